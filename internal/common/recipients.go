package common

import (
	"strings"

	"github.com/ternarybob/arbor"
)

// MergeRecipients combines configured recipients with a comma-separated list
// (usually RECEIVER_EMAIL). Entries are trimmed, empties dropped, and duplicates
// removed keeping first-seen order.
func MergeRecipients(configured []string, envList string) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0, len(configured))

	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		merged = append(merged, addr)
	}

	for _, addr := range configured {
		add(addr)
	}
	for _, addr := range strings.Split(envList, ",") {
		add(addr)
	}

	return merged
}

// FilterValidRecipients drops addresses that are not syntactically valid, logging each one
func FilterValidRecipients(recipients []string, logger arbor.ILogger) []string {
	valid := make([]string, 0, len(recipients))
	for _, addr := range recipients {
		if err := configValidator.Var(addr, "required,email"); err != nil {
			logger.Warn().Str("recipient", addr).Msg("Dropping invalid recipient address")
			continue
		}
		valid = append(valid, addr)
	}
	return valid
}
