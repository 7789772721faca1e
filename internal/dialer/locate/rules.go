package locate

import (
	"errors"
	"fmt"

	"github.com/andybalholm/cascadia"
)

var (
	ErrInvalidPattern    = errors.New("invalid selector pattern")
	ErrInvalidConfidence = errors.New("confidence out of range")
)

// Rule is one selector strategy for the country/region input.
type Rule struct {
	Pattern    string
	Confidence int
	Label      string
}

// NewRule validates pattern and confidence. Patterns are parsed once here so
// a rule table never carries a selector the locator cannot evaluate.
func NewRule(label, pattern string, confidence int) (Rule, error) {
	if confidence < 0 || confidence > 100 {
		return Rule{}, fmt.Errorf("%w: rule %q has confidence %d", ErrInvalidConfidence, label, confidence)
	}
	if _, err := cascadia.Compile(pattern); err != nil {
		return Rule{}, fmt.Errorf("%w: rule %q: %v", ErrInvalidPattern, label, err)
	}
	return Rule{Pattern: pattern, Confidence: confidence, Label: label}, nil
}

// MustRule is like NewRule but panics on error.
func MustRule(label, pattern string, confidence int) Rule {
	r, err := NewRule(label, pattern, confidence)
	if err != nil {
		panic(err)
	}
	return r
}

// Selectors for the Dynamics 365 Omnichannel dialer transfer widget.
const (
	SelectorRegionComboBoxID = "#CRM-Omnichannel-Control-Dialer-regionComboBox-data-automation-id"
	SelectorNationalNumberID = "#CRM-Omnichannel-Control-Dialer-nationalNumberInput-data-automation-id"
	SelectorCombobox         = `input[role="combobox"]`
	SelectorListbox          = `[role="listbox"]`
	SelectorOption           = `[role="option"]`
)

// DefaultRules returns the built-in rule table, most specific first.
func DefaultRules() []Rule {
	return []Rule{
		MustRule("exact-id", SelectorRegionComboBoxID, 100),
		MustRule("partial-id", `[id*="regionComboBox"][id*="Dialer"]`, 90),
		MustRule("placeholder-exact", `input[placeholder="Country/region"]`, 85),
		MustRule("placeholder-partial", `input[placeholder*="Country"]`, 70),
		MustRule("aria-country", `input[aria-label*="Country"]`, 65),
		MustRule("aria-region", `input[aria-label*="region"]`, 60),
		MustRule("automation-id", `[data-automation-id*="region"] input[role="combobox"]`, 50),
	}
}

// OnDemandSelectors is the broader, unranked list searched by an explicit
// fill request. Matches are further filtered by LooksLikeCountryInput.
func OnDemandSelectors() []string {
	return []string{
		SelectorRegionComboBoxID,
		`input[placeholder="Country/region"]`,
		`input[placeholder*="Country"]`,
		`input[aria-label*="Country"]`,
		`input[aria-label*="region"]`,
		`[data-automation-id*="regionComboBox"] input`,
		`[class*="region"] input[role="combobox"]`,
		SelectorCombobox,
	}
}
