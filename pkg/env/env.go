package env

import (
	"os"
	"strings"
)

// Get reads key, treating unset and blank values alike as missing.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
