package service

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// cleanText strips markup from user-supplied names and descriptions.
// bluemonday escapes entities, which are turned back into plain text
// since responses are JSON, not HTML.
func cleanText(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(input)))
}

func checkLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return invalid("%s must be between %d and %d characters", field, min, max)
	}
	return nil
}
