package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildAnalysisPrompt_EmptyDigest(t *testing.T) {
	assert.Empty(t, BuildAnalysisPrompt("", DefaultPromptOptions()))
	assert.Empty(t, BuildAnalysisPrompt("  \n", DefaultPromptOptions()))
}

func TestBuildAnalysisPrompt_Defaults(t *testing.T) {
	digest := "[ID: 1] Title: Fed holds | Source: Macro | Context: Rates unchanged\n"

	prompt := BuildAnalysisPrompt(digest, PromptOptions{})

	assert.Contains(t, prompt, "\"\"\"\n"+digest+"\"\"\"")
	assert.Contains(t, prompt, "Score from -10 (Extreme Fear) to +10 (Extreme Greed).")
	assert.Contains(t, prompt, "one-sentence explanation in Chinese")
	assert.Contains(t, prompt, "Write a 300-word summary in Chinese.")
	assert.Contains(t, prompt, "You MUST use `[1]`, `[2]` format. Do NOT use `[ID:1]`.")
	assert.Contains(t, prompt, "**Task 3: Top 5 Picks**")
	assert.Contains(t, prompt, `"sentiment_score": 5.5`)
	assert.Contains(t, prompt, `"top_picks": [ { "id": 1, "reason": "...", "tag": "Bullish" } ]`)
}

func TestBuildAnalysisPrompt_Options(t *testing.T) {
	prompt := BuildAnalysisPrompt("[ID: 1] Title: A | Source: B | Context: C", PromptOptions{
		Language:     "English",
		PickCount:    3,
		SummaryWords: 150,
	})

	assert.Contains(t, prompt, "Write a 150-word summary in English.")
	assert.Contains(t, prompt, "Select 3 critical stories with `id`, `reason` (English), and `tag`.")
	assert.NotContains(t, prompt, "Chinese")
	// Digest without trailing newline still closes the quote block on its own line
	assert.True(t, strings.Contains(prompt, "Context: C\n\"\"\""))
}
