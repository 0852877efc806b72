package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/marketbrief/internal/models"
)

// GofeedSource fetches RSS, Atom and JSON feeds over HTTP
type GofeedSource struct {
	parser *gofeed.Parser
}

// NewGofeedSource creates a feed source with the given user agent and per-request timeout
func NewGofeedSource(userAgent string, timeout time.Duration) *GofeedSource {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &GofeedSource{parser: parser}
}

// Fetch retrieves and parses the feed at url.
// Entry summaries are reduced to plain text; description falls back to content.
func (s *GofeedSource) Fetch(ctx context.Context, url string) ([]models.FeedEntry, error) {
	feed, err := s.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", url, err)
	}

	entries := make([]models.FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		summary := item.Description
		if strings.TrimSpace(summary) == "" {
			summary = item.Content
		}

		entries = append(entries, models.FeedEntry{
			Title:   item.Title,
			Link:    item.Link,
			Summary: plainText(summary),
		})
	}

	return entries, nil
}

// plainText strips markup from a feed summary and collapses whitespace
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
