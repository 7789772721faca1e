package testutil

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const redacted = "REDACTED"

// Pattern is one text redaction applied to captured HTML.
type Pattern struct {
	Re          *regexp.Regexp
	Replacement string
	Description string
}

// SensitivePatterns redact customer data that a captured CRM page carries.
var SensitivePatterns = []Pattern{
	{
		regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		"user@example.com",
		"Email address",
	},
	{
		regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`),
		"00000000-0000-0000-0000-000000000000",
		"Dataverse record id",
	},
	{
		regexp.MustCompile(`\+\d{1,3}[\s.-]?\(?\d{1,4}\)?(?:[\s.-]?\d{2,4}){2,4}\b`),
		"+1 555 0100",
		"Phone number",
	},
	{
		regexp.MustCompile(`(?i)(token|csrf|session|auth)(["']?[\s:=]+)(["']?)[a-zA-Z0-9_\-.]{20,}`),
		"${1}${2}${3}" + redacted,
		"Token",
	},
}

// sensitiveName matches input names and ids whose value must not be kept.
var sensitiveName = regexp.MustCompile(`(?i)password|secret|token|session|auth|csrf|phone|email|nationalNumber`)

// SanitizeHTML drops scripts, blanks the value of sensitive inputs and
// redacts SensitivePatterns from the remaining markup.
func SanitizeHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		s.Empty()
	})
	doc.Find("input[value]").Each(func(_ int, s *goquery.Selection) {
		name := s.AttrOr("name", "") + " " + s.AttrOr("id", "") + " " + s.AttrOr("type", "")
		if sensitiveName.MatchString(name) {
			s.SetAttr("value", redacted)
		}
	})

	out, err := doc.Html()
	if err != nil {
		return "", err
	}
	for _, p := range SensitivePatterns {
		out = p.Re.ReplaceAllString(out, p.Replacement)
	}
	return out, nil
}
