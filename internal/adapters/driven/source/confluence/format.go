package confluence

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

// page is the wire format of one content search hit.
type page struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space *struct {
		Key string `json:"key"`
	} `json:"space"`
	Body *struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Version *struct {
		When string `json:"when"`
	} `json:"version"`
	History *struct {
		CreatedDate string `json:"createdDate"`
		CreatedBy   *struct {
			DisplayName string `json:"displayName"`
		} `json:"createdBy"`
	} `json:"history"`
	Links struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

// formatPage turns a Confluence page into a canonical document. The
// storage-format HTML body is reduced to plain text.
func formatPage(baseURL string, p *page) domain.Document {
	content := p.Title
	if p.Body != nil {
		if text := StripHTML(p.Body.Storage.Value); text != "" {
			content += "\n\n" + text
		}
	}

	author := ""
	createdAt := time.Time{}
	if p.History != nil {
		if p.History.CreatedBy != nil {
			author = p.History.CreatedBy.DisplayName
		}
		createdAt = parseTime(p.History.CreatedDate)
	}
	updatedAt := createdAt
	if p.Version != nil {
		updatedAt = parseTime(p.Version.When)
	}

	metadata := map[string]any{"page_id": p.ID}
	if p.Space != nil {
		metadata["space_key"] = p.Space.Key
	}

	return domain.Document{
		DocID:     domain.DocID(domain.DocTypeConfluence, p.ID),
		Type:      domain.DocTypeConfluence,
		Title:     p.Title,
		URL:       baseURL + p.Links.WebUI,
		Content:   content,
		Author:    author,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Metadata:  metadata,
	}
}

var (
	blockTagRe = regexp.MustCompile(`(?i)</(p|div|li|ul|ol|h[1-6]|table|tr|blockquote)>|<br\s*/?>`)
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	blankRe    = regexp.MustCompile(`\n{3,}`)
)

// StripHTML reduces Confluence storage-format markup to plain text.
// Block-level closings become newlines so paragraph structure survives
// for the chunker; everything else is dropped and entities are unescaped.
func StripHTML(s string) string {
	s = blockTagRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// parseTime parses Confluence's RFC 3339 timestamps, yielding the zero
// time for unparseable values.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
