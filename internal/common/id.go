package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique identifier for one pipeline run
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewMessageID generates a Message-ID (without angle brackets) for the given mail domain
func NewMessageID(domain string) string {
	if domain == "" {
		domain = "marketbrief.local"
	}
	return uuid.New().String() + "@" + domain
}
