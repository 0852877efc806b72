// Package newsstore holds the articles ingested during a single run and
// resolves the integer ids the analysis model cites back to article links.
package newsstore

import (
	"fmt"
	"strings"

	"github.com/ternarybob/marketbrief/internal/models"
)

// PlaceholderLink is returned for ids the store never assigned
const PlaceholderLink = "#"

// Store assigns dense, sequential ids starting at 1 and owns id -> item.
// It is built once per run, written only during ingestion and read-only afterwards.
type Store struct {
	items  []models.NewsItem // items[i].ID == i+1
	nextID int
}

// New creates an empty store
func New() *Store {
	return &Store{nextID: 1}
}

// Add stores the entry under category and returns its id. It never fails:
// a missing summary is stored as empty and long summaries are clipped.
func (s *Store) Add(category string, entry models.FeedEntry) int {
	id := s.nextID
	s.items = append(s.items, models.NewsItem{
		ID:      id,
		Source:  category,
		Title:   strings.TrimSpace(entry.Title),
		Link:    entry.Link,
		Summary: clip(entry.Summary, models.MaxSummaryRunes),
	})
	s.nextID++
	return id
}

// LookupLink returns the link of id, or PlaceholderLink when id is unknown
func (s *Store) LookupLink(id int) string {
	if item, ok := s.Item(id); ok {
		return item.Link
	}
	return PlaceholderLink
}

// Item returns the item with the given id
func (s *Store) Item(id int) (models.NewsItem, bool) {
	if id < 1 || id > len(s.items) {
		return models.NewsItem{}, false
	}
	return s.items[id-1], true
}

// Items returns a copy of all items in ascending id order
func (s *Store) Items() []models.NewsItem {
	out := make([]models.NewsItem, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of stored items
func (s *Store) Len() int {
	return len(s.items)
}

// SerializeForPrompt renders one line per item in ascending id order.
// The output is deterministic for the same contents.
func (s *Store) SerializeForPrompt() string {
	var sb strings.Builder
	for _, item := range s.items {
		sb.WriteString(fmt.Sprintf("[ID: %d] Title: %s | Source: %s | Context: %s\n",
			item.ID, item.Title, item.Source, item.Summary))
	}
	return sb.String()
}

// clip truncates s to max runes so multibyte text is never split mid-character
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
