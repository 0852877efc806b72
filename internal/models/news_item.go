package models

// MaxSummaryRunes is the longest excerpt kept per item. Summaries are model context only.
const MaxSummaryRunes = 250

// FeedEntry is a raw entry as yielded by a feed source, before it is assigned an id
type FeedEntry struct {
	Title   string
	Link    string
	Summary string // optional, may be empty
}

// NewsItem is one ingested article addressable by its citation id
type NewsItem struct {
	ID      int    `json:"id"`      // dense, sequential from 1, assigned in insertion order
	Source  string `json:"source"`  // category label the item was ingested under
	Title   string `json:"title"`   // trimmed
	Link    string `json:"link"`    // the only artifact shown to readers for this item
	Summary string `json:"summary"` // clipped to MaxSummaryRunes
}
