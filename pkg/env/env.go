// Package env reads the few process settings that live outside the
// envconfig-loaded Config: log format, instance naming and CLI fallbacks.
package env

import (
	"os"
	"strings"
)

// First returns the first non-blank value among keys, trimmed.
func First(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// Get returns the value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if v := First(key); v != "" {
		return v
	}
	return fallback
}
