// Package feeds fills the run's news store from the configured syndication feeds.
package feeds

import (
	"context"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketbrief/internal/interfaces"
)

// DefaultMaxItemsPerSource is the number of entries consumed from each feed
const DefaultMaxItemsPerSource = 10

// Service ingests feeds into a news store
type Service struct {
	source   interfaces.FeedSource
	maxItems int
	logger   arbor.ILogger
}

// NewService creates a new ingestion service
func NewService(source interfaces.FeedSource, maxItems int, logger arbor.ILogger) *Service {
	if maxItems <= 0 {
		maxItems = DefaultMaxItemsPerSource
	}
	return &Service{
		source:   source,
		maxItems: maxItems,
		logger:   logger,
	}
}

// Ingest fetches every source and adds up to maxItems entries per category to sink.
// Categories are visited in sorted label order so ids are stable across runs.
// A failing or empty feed is logged and skipped. Returns the number of items added.
func (s *Service) Ingest(ctx context.Context, sources map[string]string, sink interfaces.NewsSink) int {
	labels := make([]string, 0, len(sources))
	for label := range sources {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	total := 0
	for _, label := range labels {
		if ctx.Err() != nil {
			s.logger.Warn().Err(ctx.Err()).Msg("Ingestion cancelled")
			break
		}

		url := sources[label]
		entries, err := s.source.Fetch(ctx, url)
		if err != nil {
			s.logger.Warn().Str("category", label).Str("url", url).Err(err).Msg("Feed fetch failed, skipping")
			continue
		}
		if len(entries) == 0 {
			s.logger.Warn().Str("category", label).Str("url", url).Msg("Feed has no entries, skipping")
			continue
		}

		if len(entries) > s.maxItems {
			entries = entries[:s.maxItems]
		}
		for _, entry := range entries {
			sink.Add(label, entry)
		}
		total += len(entries)

		s.logger.Info().Str("category", label).Int("added", len(entries)).Msg("Feed ingested")
	}

	s.logger.Info().Int("total", total).Int("sources", len(labels)).Msg("Ingestion complete")
	return total
}
