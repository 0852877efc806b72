package report

import (
	"strings"

	"github.com/ternarybob/marketbrief/internal/models"
)

// Report palette
const (
	ColorStrongPositive = "#28a745"
	ColorMildPositive   = "#5cdb5c"
	ColorStrongNegative = "#dc3545"
	ColorMildNegative   = "#ff6b6b"
	ColorNeutral        = "#6c757d"
)

// SentimentColor maps a sentiment score to the accent color of the report header.
// Non-numeric scores are neutral.
func SentimentColor(score models.Score) string {
	s, ok := score.Float()
	if !ok {
		return ColorNeutral
	}

	switch {
	case s >= 6:
		return ColorStrongPositive
	case s >= 2:
		return ColorMildPositive
	case s <= -6:
		return ColorStrongNegative
	case s <= -2:
		return ColorMildNegative
	default:
		return ColorNeutral
	}
}

// TagColor maps a top-pick tag to its badge color. "Bull" wins over "Bear" when both appear.
func TagColor(tag string) string {
	lower := strings.ToLower(tag)
	switch {
	case strings.Contains(lower, "bull"):
		return ColorStrongPositive
	case strings.Contains(lower, "bear"):
		return ColorStrongNegative
	default:
		return ColorNeutral
	}
}
