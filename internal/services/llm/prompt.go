package llm

import (
	"fmt"
	"strings"
)

// PromptOptions shapes the analyst prompt
type PromptOptions struct {
	Language     string // Language for reasons and the macro summary
	PickCount    int    // Number of top picks requested
	SummaryWords int    // Target length of the macro summary
}

// DefaultPromptOptions returns the options used when analysis settings are left unset
func DefaultPromptOptions() PromptOptions {
	return PromptOptions{
		Language:     "Chinese",
		PickCount:    5,
		SummaryWords: 300,
	}
}

func (o PromptOptions) withDefaults() PromptOptions {
	defaults := DefaultPromptOptions()
	if strings.TrimSpace(o.Language) == "" {
		o.Language = defaults.Language
	}
	if o.PickCount <= 0 {
		o.PickCount = defaults.PickCount
	}
	if o.SummaryWords <= 0 {
		o.SummaryWords = defaults.SummaryWords
	}
	return o
}

// BuildAnalysisPrompt embeds the news digest in the analyst instructions.
// Returns an empty string for an empty digest; callers skip analysis in that case.
func BuildAnalysisPrompt(digest string, opts PromptOptions) string {
	if strings.TrimSpace(digest) == "" {
		return ""
	}
	opts = opts.withDefaults()

	var b strings.Builder

	b.WriteString("You are a Quantitative Financial Analyst.\n\n")

	b.WriteString("# RAW NEWS:\n\"\"\"\n")
	b.WriteString(digest)
	if !strings.HasSuffix(digest, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\"\"\"\n\n")

	b.WriteString("# TASKS:\n")
	b.WriteString("**Task 1: Market Sentiment Scoring**\n")
	b.WriteString("- Score from -10 (Extreme Fear) to +10 (Extreme Greed).\n")
	fmt.Fprintf(&b, "- Provide a one-sentence explanation in %s.\n\n", opts.Language)

	b.WriteString("**Task 2: Macro Analysis**\n")
	fmt.Fprintf(&b, "- Write a %d-word summary in %s.\n", opts.SummaryWords, opts.Language)
	b.WriteString("- STRICT CITATION FORMAT: You MUST use `[1]`, `[2]` format. Do NOT use `[ID:1]`.\n\n")

	fmt.Fprintf(&b, "**Task 3: Top %d Picks**\n", opts.PickCount)
	fmt.Fprintf(&b, "- Select %d critical stories with `id`, `reason` (%s), and `tag`.\n\n", opts.PickCount, opts.Language)

	b.WriteString("# OUTPUT JSON:\n")
	b.WriteString(`{
    "sentiment_score": 5.5,
    "sentiment_label": "Modestly Bullish",
    "sentiment_reason": "...",
    "analysis_html": "...",
    "top_picks": [ { "id": 1, "reason": "...", "tag": "Bullish" } ]
}
`)

	return b.String()
}
