package countries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	c, ok := Lookup("United Kingdom")
	require.True(t, ok)
	assert.Equal(t, "+44", c.DialCode)
	assert.Equal(t, "🇬🇧", c.Flag)

	c, ok = Lookup("united states")
	require.True(t, ok)
	assert.Equal(t, "United States", c.Name)

	_, ok = Lookup("Atlantis")
	assert.False(t, ok)
}

func TestFlag(t *testing.T) {
	assert.Equal(t, "🇺🇸", Flag("United States"))
	assert.Equal(t, FallbackFlag, Flag("Atlantis"))
	assert.Equal(t, FallbackFlag, Flag(""))
}

func TestCatalogEntriesAreComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range All() {
		assert.NotEmpty(t, c.Name)
		assert.Regexp(t, `^\+\d{1,3}$`, c.DialCode, c.Name)
		assert.NotEmpty(t, c.Flag, c.Name)
		assert.False(t, seen[c.Name], "duplicate %s", c.Name)
		seen[c.Name] = true
	}
}
