package fill

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxCountryNameLen = 100

var (
	markupPattern      = regexp.MustCompile(`<[^>]*>`)
	countryNamePattern = regexp.MustCompile(`^[a-zA-Z\s\-().,']+$`)
)

// Sanitize strips markup-like substrings, trims whitespace and truncates to
// 100 characters.
func Sanitize(s string) string {
	s = strings.TrimSpace(markupPattern.ReplaceAllString(s, ""))
	if utf8.RuneCountInString(s) > maxCountryNameLen {
		s = string([]rune(s)[:maxCountryNameLen])
		s = strings.TrimRightFunc(s, unicode.IsSpace)
	}
	return s
}

// IsValidCountryName reports whether s is 2 to 100 characters of letters,
// spaces and the punctuation - ( ) . , '.
func IsValidCountryName(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < 2 || n > maxCountryNameLen {
		return false
	}
	return countryNamePattern.MatchString(s)
}
