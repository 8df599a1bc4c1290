package jira

import (
	"fmt"
	"strings"
	"time"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
)

// searchFields lists the issue fields the sync needs.
const searchFields = "summary,description,comment,status,reporter,created,updated"

// jiraTime is the timestamp layout Jira Cloud uses.
const jiraTime = "2006-01-02T15:04:05.000-0700"

// issue is the wire format of one search hit.
type issue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Status      *struct {
			Name string `json:"name"`
		} `json:"status"`
		Reporter *struct {
			DisplayName string `json:"displayName"`
		} `json:"reporter"`
		Created string `json:"created"`
		Updated string `json:"updated"`
		Comment *struct {
			Comments []struct {
				Author *struct {
					DisplayName string `json:"displayName"`
				} `json:"author"`
				Body string `json:"body"`
			} `json:"comments"`
		} `json:"comment"`
	} `json:"fields"`
}

// formatIssue turns a Jira issue into a canonical document. The content
// carries the summary, description and every comment so chunking sees the
// whole conversation.
func formatIssue(baseURL string, is *issue) domain.Document {
	var b strings.Builder
	b.WriteString(is.Fields.Summary)
	if desc := strings.TrimSpace(is.Fields.Description); desc != "" {
		b.WriteString("\n\n")
		b.WriteString(desc)
	}
	if is.Fields.Comment != nil {
		for _, c := range is.Fields.Comment.Comments {
			body := strings.TrimSpace(c.Body)
			if body == "" {
				continue
			}
			author := "unknown"
			if c.Author != nil {
				author = c.Author.DisplayName
			}
			fmt.Fprintf(&b, "\n\nComment by %s:\n%s", author, body)
		}
	}

	author := ""
	if is.Fields.Reporter != nil {
		author = is.Fields.Reporter.DisplayName
	}

	metadata := map[string]any{"issue_key": is.Key}
	if is.Fields.Status != nil {
		metadata["status"] = is.Fields.Status.Name
	}

	return domain.Document{
		DocID:     domain.DocID(domain.DocTypeJira, is.Key),
		Type:      domain.DocTypeJira,
		Title:     is.Fields.Summary,
		URL:       baseURL + "/browse/" + is.Key,
		Content:   b.String(),
		Author:    author,
		CreatedAt: parseJiraTime(is.Fields.Created),
		UpdatedAt: parseJiraTime(is.Fields.Updated),
		Metadata:  metadata,
	}
}

// parseJiraTime parses Jira's timestamp format, falling back to RFC 3339.
// Unparseable values yield the zero time rather than failing the item.
func parseJiraTime(s string) time.Time {
	for _, layout := range []string{jiraTime, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
