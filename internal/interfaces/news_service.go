package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/marketbrief/internal/models"
)

// LinkResolver maps a cited item id to its link, returning a placeholder for unknown ids
type LinkResolver interface {
	LookupLink(id int) string
}

// NewsCatalog is the read-only view of the run's news store used after ingestion
type NewsCatalog interface {
	LinkResolver
	Item(id int) (models.NewsItem, bool)
	Len() int
	SerializeForPrompt() string
}

// NewsSink receives entries during ingestion
type NewsSink interface {
	Add(category string, entry models.FeedEntry) int
}

// FeedSource retrieves and parses one syndication feed
type FeedSource interface {
	Fetch(ctx context.Context, url string) ([]models.FeedEntry, error)
}

// ReportSender delivers a rendered report to a recipient list
type ReportSender interface {
	SendReport(ctx context.Context, html string, recipients []string, date time.Time) models.SendSummary
}

// ReportRenderer turns an analysis into report HTML
type ReportRenderer interface {
	Render(result *models.AnalysisResult, catalog NewsCatalog, date time.Time) (string, error)
}

// MarketAnalyzer produces the structured analysis for a run's news
type MarketAnalyzer interface {
	Analyze(ctx context.Context, catalog NewsCatalog) (*models.AnalysisResult, error)
}
