package common

import (
	"github.com/ternarybob/arbor"
)

// FilterValidSources drops feed entries whose URL is not an absolute URL, logging each one.
// The remaining categories are still ingested; an empty result fails Validate with ErrNoSources.
func FilterValidSources(sources map[string]string, logger arbor.ILogger) map[string]string {
	valid := make(map[string]string, len(sources))
	for label, url := range sources {
		if err := configValidator.Var(url, "required,url"); err != nil {
			logger.Warn().Str("category", label).Str("url", url).Msg("Dropping feed with invalid URL")
			continue
		}
		valid[label] = url
	}
	return valid
}
