package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective run settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Market Brief", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("provider", string(config.AnalysisProvider())).
		Str("model", config.Analysis.Model).
		Int("sources", len(config.Sources)).
		Int("recipients", len(config.Recipients)).
		Str("schedule", config.Schedule).
		Msg("Market Brief starting")
}
