// Package jira provides a source client for Jira Cloud's REST API.
package jira

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

	// requestsPerSecond throttles proactively under Jira Cloud's limits.
	requestsPerSecond = 5
)

// Config holds configuration for the Jira client.
type Config struct {
	// BaseURL is the site URL, e.g. https://yourcompany.atlassian.net.
	BaseURL string

	// Email and APIToken authenticate via basic auth.
	Email    string
	APIToken string

	// ProjectKeys restricts the sync to the given projects. Empty means
	// every project the account can see.
	ProjectKeys []string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// PageSize is the search page size (default: 50).
	PageSize int
}

// Client fetches Jira issues as canonical documents.
type Client struct {
	client   *http.Client
	limiter  *rate.Limiter
	baseURL  string
	email    string
	apiToken string
	projects []string
	pageSize int
}

// New creates a Jira client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Email == "" || cfg.APIToken == "" {
		return nil, fmt.Errorf("%w: jira base URL, email and API token", domain.ErrNotConfigured)
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
		projects: cfg.ProjectKeys,
		pageSize: cfg.PageSize,
	}, nil
}

// Type identifies this client as the Jira source.
func (c *Client) Type() domain.DocumentType {
	return domain.DocTypeJira
}

// searchResponse is the /rest/api/2/search response format.
type searchResponse struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []issue `json:"issues"`
}

// ItemsUpdatedSince returns all issues updated at or after since, in
// canonical document form. A nil since fetches everything.
func (c *Client) ItemsUpdatedSince(ctx context.Context, since *time.Time) ([]domain.Document, error) {
	jql := c.jql(since)
	logger.Debug("Jira search: %s", jql)

	var docs []domain.Document
	startAt := 0
	for {
		page, err := c.searchPage(ctx, jql, startAt, searchFields)
		if err != nil {
			return nil, err
		}
		for i := range page.Issues {
			docs = append(docs, formatIssue(c.baseURL, &page.Issues[i]))
		}

		startAt += len(page.Issues)
		if startAt >= page.Total || len(page.Issues) == 0 {
			break
		}
	}
	return docs, nil
}

// AllIDs enumerates the keys of every issue currently visible, unbounded
// by update time.
func (c *Client) AllIDs(ctx context.Context) ([]string, error) {
	jql := c.jql(nil)

	var ids []string
	startAt := 0
	for {
		page, err := c.searchPage(ctx, jql, startAt, "key")
		if err != nil {
			return nil, err
		}
		for i := range page.Issues {
			ids = append(ids, page.Issues[i].Key)
		}

		startAt += len(page.Issues)
		if startAt >= page.Total || len(page.Issues) == 0 {
			break
		}
	}
	return ids, nil
}

// TestConnection validates credentials against the /myself endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	body, err := c.get(ctx, "/rest/api/2/myself", nil)
	if err != nil {
		return err
	}
	var me struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	logger.Debug("Jira connection ok, authenticated as %s", me.DisplayName)
	return nil
}

// jql builds the search query, scoped to the configured projects and the
// watermark.
func (c *Client) jql(since *time.Time) string {
	var clauses []string
	if len(c.projects) > 0 {
		quoted := make([]string, len(c.projects))
		for i, p := range c.projects {
			quoted[i] = fmt.Sprintf("%q", p)
		}
		clauses = append(clauses, "project in ("+strings.Join(quoted, ", ")+")")
	}
	if since != nil {
		clauses = append(clauses, fmt.Sprintf("updated >= %q", since.Format("2006-01-02 15:04")))
	}

	jql := strings.Join(clauses, " AND ")
	if jql != "" {
		jql += " "
	}
	return jql + "ORDER BY updated ASC"
}

// searchPage requests one page of search results.
func (c *Client) searchPage(ctx context.Context, jql string, startAt int, fields string) (*searchResponse, error) {
	query := url.Values{}
	query.Set("jql", jql)
	query.Set("startAt", strconv.Itoa(startAt))
	query.Set("maxResults", strconv.Itoa(c.pageSize))
	query.Set("fields", fields)

	body, err := c.get(ctx, "/rest/api/2/search", query)
	if err != nil {
		return nil, err
	}

	var page searchResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &page, nil
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
		return nil, fmt.Errorf("jira: %w", domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("jira (status %d): %w", resp.StatusCode, domain.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("jira error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
