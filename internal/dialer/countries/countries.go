// Package countries is the catalog behind the country picker and the flag
// shown in feedback panels.
package countries

import "strings"

// FallbackFlag is shown for countries without a flag entry.
const FallbackFlag = "🌐"

// Country is one selectable country/region.
type Country struct {
	Name     string
	DialCode string
	Flag     string
}

var catalog = []Country{
	{"United States", "+1", "🇺🇸"},
	{"Australia", "+61", "🇦🇺"},
	{"United Kingdom", "+44", "🇬🇧"},
	{"Canada", "+1", "🇨🇦"},
	{"Germany", "+49", "🇩🇪"},
	{"France", "+33", "🇫🇷"},
	{"India", "+91", "🇮🇳"},
	{"Japan", "+81", "🇯🇵"},
	{"China", "+86", "🇨🇳"},
	{"Brazil", "+55", "🇧🇷"},
	{"Mexico", "+52", "🇲🇽"},
	{"Spain", "+34", "🇪🇸"},
	{"Italy", "+39", "🇮🇹"},
	{"Netherlands", "+31", "🇳🇱"},
	{"Singapore", "+65", "🇸🇬"},
	{"South Korea", "+82", "🇰🇷"},
	{"New Zealand", "+64", "🇳🇿"},
	{"Ireland", "+353", "🇮🇪"},
	{"Switzerland", "+41", "🇨🇭"},
	{"Sweden", "+46", "🇸🇪"},
	{"Norway", "+47", "🇳🇴"},
	{"Denmark", "+45", "🇩🇰"},
	{"Finland", "+358", "🇫🇮"},
	{"Belgium", "+32", "🇧🇪"},
	{"Austria", "+43", "🇦🇹"},
	{"Poland", "+48", "🇵🇱"},
	{"Portugal", "+351", "🇵🇹"},
	{"Russia", "+7", "🇷🇺"},
	{"South Africa", "+27", "🇿🇦"},
	{"UAE", "+971", "🇦🇪"},
	{"Saudi Arabia", "+966", "🇸🇦"},
	{"Israel", "+972", "🇮🇱"},
	{"Philippines", "+63", "🇵🇭"},
	{"Malaysia", "+60", "🇲🇾"},
	{"Thailand", "+66", "🇹🇭"},
	{"Indonesia", "+62", "🇮🇩"},
	{"Vietnam", "+84", "🇻🇳"},
	{"Argentina", "+54", "🇦🇷"},
	{"Chile", "+56", "🇨🇱"},
	{"Colombia", "+57", "🇨🇴"},
	{"Peru", "+51", "🇵🇪"},
	{"Egypt", "+20", "🇪🇬"},
	{"Nigeria", "+234", "🇳🇬"},
	{"Kenya", "+254", "🇰🇪"},
	{"Pakistan", "+92", "🇵🇰"},
	{"Bangladesh", "+880", "🇧🇩"},
	{"Turkey", "+90", "🇹🇷"},
	{"Greece", "+30", "🇬🇷"},
	{"Czech Republic", "+420", "🇨🇿"},
	{"Romania", "+40", "🇷🇴"},
	{"Hungary", "+36", "🇭🇺"},
}

// All returns the catalog in picker order.
func All() []Country {
	return append([]Country(nil), catalog...)
}

// Lookup finds a country by exact name, falling back to a case-insensitive
// match.
func Lookup(name string) (Country, bool) {
	for _, c := range catalog {
		if c.Name == name {
			return c, true
		}
	}
	for _, c := range catalog {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Country{}, false
}

// Flag returns the flag glyph for name, or FallbackFlag.
func Flag(name string) string {
	if c, ok := Lookup(name); ok {
		return c.Flag
	}
	return FallbackFlag
}
