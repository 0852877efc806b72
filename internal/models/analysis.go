package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

const (
	// DefaultSentimentLabel is used when the model omits sentiment_label
	DefaultSentimentLabel = "Neutral"
	// DefaultSentimentReason is used when the model omits sentiment_reason
	DefaultSentimentReason = "No data"
	// DefaultPickTag is used when a top pick has no tag
	DefaultPickTag = "Neutral"
)

// AnalysisResult is the structured market analysis parsed from a model reply
type AnalysisResult struct {
	SentimentScore  Score     `json:"sentiment_score"`
	SentimentLabel  string    `json:"sentiment_label"`
	SentimentReason string    `json:"sentiment_reason"`
	AnalysisHTML    string    `json:"analysis_html"` // prose with citation markers
	TopPicks        []TopPick `json:"top_picks"`
}

// UnmarshalJSON decodes a model reply object, applying the defaults for missing fields.
// Top picks that are not objects are dropped individually.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("analysis reply is null")
	}

	*r = AnalysisResult{
		SentimentLabel:  stringOr(fields, "sentiment_label", DefaultSentimentLabel),
		SentimentReason: stringOr(fields, "sentiment_reason", DefaultSentimentReason),
		AnalysisHTML:    stringOr(fields, "analysis_html", ""),
		TopPicks:        []TopPick{},
	}

	if raw, ok := fields["sentiment_score"]; ok {
		if err := r.SentimentScore.UnmarshalJSON(raw); err != nil {
			return err
		}
	}

	var picks []json.RawMessage
	if err := json.Unmarshal(fields["top_picks"], &picks); err == nil {
		for _, raw := range picks {
			var pick TopPick
			if err := json.Unmarshal(raw, &pick); err != nil {
				continue
			}
			r.TopPicks = append(r.TopPicks, pick)
		}
	}

	return nil
}

// stringOr returns the field as text, or fallback when it is absent or null
func stringOr(fields map[string]json.RawMessage, key, fallback string) string {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fallback
	}
	return looseString(raw)
}

// Score is the sentiment score exactly as the model wrote it.
// Nominal range is [-10, +10] but values are neither validated nor clamped;
// non-numeric values are kept for display and report no numeric value.
type Score struct {
	raw   string
	value float64
	valid bool
}

// NewScore builds a numeric score
func NewScore(v float64) Score {
	return Score{raw: strconv.FormatFloat(v, 'f', -1, 64), value: v, valid: true}
}

// ParseScore builds a score from free text, keeping the text for display
func ParseScore(raw string) Score {
	s := Score{raw: raw}
	if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		s.value = v
		s.valid = true
	}
	return s
}

// Float returns the numeric value and whether the score was numeric.
// The zero Score is numeric zero.
func (s Score) Float() (float64, bool) {
	if s.raw == "" {
		return 0, true
	}
	return s.value, s.valid
}

// String returns the score as written by the model
func (s Score) String() string {
	if s.raw == "" {
		return "0"
	}
	return s.raw
}

// MarshalJSON writes numeric scores as numbers and everything else as strings
func (s Score) MarshalJSON() ([]byte, error) {
	if v, ok := s.Float(); ok {
		return json.Marshal(v)
	}
	return json.Marshal(s.raw)
}

// UnmarshalJSON accepts any JSON value and never fails
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Score{}
		return nil
	}

	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err == nil {
			*s = ParseScore(text)
			return nil
		}
	}

	*s = ParseScore(string(data))
	return nil
}

// TopPick is one story the model flagged as notable.
// ID is expected to reference a NewsItem but is not guaranteed to.
type TopPick struct {
	ID     int    `json:"id"`
	Reason string `json:"reason"`
	Tag    string `json:"tag"`
}

// UnmarshalJSON tolerates string ids and non-string reason/tag values.
// An id that is not an integer becomes 0, which never matches a stored item.
func (p *TopPick) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*p = TopPick{
		ID:     pickID(fields["id"]),
		Reason: looseString(fields["reason"]),
		Tag:    looseString(fields["tag"]),
	}
	if p.Tag == "" {
		p.Tag = DefaultPickTag
	}
	return nil
}

func pickID(raw json.RawMessage) int {
	text := looseString(raw)
	if text == "" {
		return 0
	}
	if id, err := strconv.Atoi(text); err == nil {
		return id
	}
	// 3.0 is still item 3
	if f, err := strconv.ParseFloat(text, 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	return 0
}

func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(string(raw))
}
