package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/marketbrief/internal/models"
)

func TestSentimentColor(t *testing.T) {
	tests := []struct {
		name  string
		score models.Score
		want  string
	}{
		{"strong positive", models.NewScore(7), ColorStrongPositive},
		{"boundary six", models.NewScore(6), ColorStrongPositive},
		{"mild positive", models.NewScore(3), ColorMildPositive},
		{"boundary two", models.NewScore(2), ColorMildPositive},
		{"just below two", models.NewScore(1.9), ColorNeutral},
		{"zero", models.NewScore(0), ColorNeutral},
		{"mild negative", models.NewScore(-2), ColorMildNegative},
		{"strong negative", models.NewScore(-8), ColorStrongNegative},
		{"boundary minus six", models.NewScore(-6), ColorStrongNegative},
		{"numeric string", models.ParseScore("6.5"), ColorStrongPositive},
		{"non-numeric", models.ParseScore("bullish"), ColorNeutral},
		{"missing", models.Score{}, ColorNeutral},
		{"out of range", models.NewScore(42), ColorStrongPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SentimentColor(tt.score))
		})
	}
}

func TestTagColor(t *testing.T) {
	assert.Equal(t, ColorStrongPositive, TagColor("Bullish"))
	assert.Equal(t, ColorStrongPositive, TagColor("Modestly bullish"))
	assert.Equal(t, ColorStrongNegative, TagColor("Bearish"))
	assert.Equal(t, ColorStrongNegative, TagColor("BEAR"))
	assert.Equal(t, ColorNeutral, TagColor("Neutral"))
	assert.Equal(t, ColorNeutral, TagColor(""))
}
