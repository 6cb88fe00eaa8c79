package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// CleanText trims and sanitizes user supplied text. An empty result means nothing usable was sent.
func CleanText(input string) string {
	return strings.TrimSpace(Sanitize(strings.TrimSpace(input)))
}
