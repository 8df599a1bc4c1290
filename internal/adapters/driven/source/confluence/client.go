// Package confluence provides a source client for Confluence Cloud's
// REST API.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
	"github.com/knowbase-labs/knowbase-cli/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.SourceClient = (*Client)(nil)

// Default configuration values.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultPageSize = 50

	// requestsPerSecond throttles proactively under Confluence Cloud's
	// limits.
	requestsPerSecond = 5
)

// Config holds configuration for the Confluence client.
type Config struct {
	// BaseURL is the wiki URL, e.g. https://yourcompany.atlassian.net/wiki.
	BaseURL string

	// Email and APIToken authenticate via basic auth.
	Email    string
	APIToken string

	// SpaceKeys restricts the sync to the given spaces. Empty means every
	// space the account can see.
	SpaceKeys []string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// PageSize is the search page size (default: 50).
	PageSize int
}

// Client fetches Confluence pages as canonical documents.
type Client struct {
	client   *http.Client
	limiter  *rate.Limiter
	baseURL  string
	email    string
	apiToken string
	spaces   []string
	pageSize int
}

// New creates a Confluence client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Email == "" || cfg.APIToken == "" {
		return nil, fmt.Errorf("%w: confluence base URL, email and API token", domain.ErrNotConfigured)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	return &Client{
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		baseURL:  cfg.BaseURL,
		email:    cfg.Email,
		apiToken: cfg.APIToken,
		spaces:   cfg.SpaceKeys,
		pageSize: cfg.PageSize,
	}, nil
}

// Type identifies this client as the Confluence source.
func (c *Client) Type() domain.DocumentType {
	return domain.DocTypeConfluence
}

// searchResponse is the /rest/api/content/search response format.
type searchResponse struct {
	Results []page `json:"results"`
	Size    int    `json:"size"`
	Links   struct {
		Next string `json:"next"`
	} `json:"_links"`
}

// ItemsUpdatedSince returns all pages modified at or after since, in
// canonical document form. A nil since fetches everything.
func (c *Client) ItemsUpdatedSince(ctx context.Context, since *time.Time) ([]domain.Document, error) {
	cql := c.cql(since)
	logger.Debug("Confluence search: %s", cql)

	var docs []domain.Document
	start := 0
	for {
		pageResp, err := c.searchPage(ctx, cql, start, "body.storage,version,history,space")
		if err != nil {
			return nil, err
		}
		for i := range pageResp.Results {
			docs = append(docs, formatPage(c.baseURL, &pageResp.Results[i]))
		}

		if pageResp.Links.Next == "" || len(pageResp.Results) == 0 {
			break
		}
		start += len(pageResp.Results)
	}
	return docs, nil
}

// AllIDs enumerates the IDs of every page currently visible, unbounded by
// modification time.
func (c *Client) AllIDs(ctx context.Context) ([]string, error) {
	cql := c.cql(nil)

	var ids []string
	start := 0
	for {
		pageResp, err := c.searchPage(ctx, cql, start, "")
		if err != nil {
			return nil, err
		}
		for i := range pageResp.Results {
			ids = append(ids, pageResp.Results[i].ID)
		}

		if pageResp.Links.Next == "" || len(pageResp.Results) == 0 {
			break
		}
		start += len(pageResp.Results)
	}
	return ids, nil
}

// TestConnection validates credentials with a one-result search.
func (c *Client) TestConnection(ctx context.Context) error {
	query := url.Values{}
	query.Set("cql", "type = page")
	query.Set("limit", "1")
	_, err := c.get(ctx, "/rest/api/content/search", query)
	return err
}

// cql builds the search query, scoped to the configured spaces and the
// watermark.
func (c *Client) cql(since *time.Time) string {
	clauses := []string{"type = page"}
	if len(c.spaces) > 0 {
		quoted := make([]string, len(c.spaces))
		for i, s := range c.spaces {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		clauses = append(clauses, "space in ("+strings.Join(quoted, ", ")+")")
	}
	if since != nil {
		clauses = append(clauses, fmt.Sprintf("lastModified >= %q", since.Format("2006/01/02 15:04")))
	}
	return strings.Join(clauses, " AND ") + " ORDER BY lastModified ASC"
}

// searchPage requests one page of search results.
func (c *Client) searchPage(ctx context.Context, cql string, start int, expand string) (*searchResponse, error) {
	query := url.Values{}
	query.Set("cql", cql)
	query.Set("start", strconv.Itoa(start))
	query.Set("limit", strconv.Itoa(c.pageSize))
	if expand != "" {
		query.Set("expand", expand)
	}

	body, err := c.get(ctx, "/rest/api/content/search", query)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &resp, nil
}

// get performs an authenticated GET, honouring the rate limiter and
// mapping throttle and server failures to retryable domain errors.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("confluence: %w", domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("confluence (status %d): %w", resp.StatusCode, domain.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("confluence error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
