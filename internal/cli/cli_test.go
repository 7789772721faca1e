package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grez-lucas/dialer-helper/internal/settings"
)

// run executes the root command against a config whose settings file lives
// in a temp dir.
func run(t *testing.T, settingsFile string, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "dialer.yaml")
	cfgBody := "logger:\n  level: error\nsettings:\n  file: " + settingsFile + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgBody), 0o600))

	a := &app{}
	t.Cleanup(a.close)
	cmd := newRootCommand(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func showSettings(t *testing.T, file string) settings.Settings {
	t.Helper()
	out, err := run(t, file, "settings", "show")
	require.NoError(t, err)
	var s settings.Settings
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	return s
}

func TestSettings_ShowDefaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.yaml")
	assert.Equal(t, settings.Defaults(), showSettings(t, file))
}

func TestSettings_SetCountryCarriesDialCode(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	_, err := run(t, file, "settings", "set", "countryName=germany", "showToast=false")
	require.NoError(t, err)

	got := showSettings(t, file)
	assert.Equal(t, "Germany", got.CountryName)
	assert.Equal(t, "+49", got.DialCode)
	assert.True(t, got.Enabled)
	assert.False(t, got.ShowToast)
}

func TestSettings_ExplicitDialCodeWins(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.yaml")

	_, err := run(t, file, "settings", "set", "dialCode=+999", "countryName=Spain")
	require.NoError(t, err)

	got := showSettings(t, file)
	assert.Equal(t, "Spain", got.CountryName)
	assert.Equal(t, "+999", got.DialCode)
}

func TestSettings_SetRejectsBadInput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.yaml")

	for _, arg := range []string{"colour=blue", "enabled=maybe", "countryName=<b>x</b>", "novalue"} {
		_, err := run(t, file, "settings", "set", arg)
		assert.Error(t, err, arg)
	}
	_, statErr := os.Stat(file)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRules_ListsDefaultTable(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "settings.yaml"), "rules")
	require.NoError(t, err)

	assert.Contains(t, out, "LABEL")
	assert.Contains(t, out, "exact-id")
	assert.Contains(t, out, "placeholder-partial")
}

func TestCountries_ListsCatalog(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "settings.yaml"), "countries")
	require.NoError(t, err)

	assert.Contains(t, out, "United States")
	assert.Contains(t, out, "+49")
}

func TestVersion(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "settings.yaml"), "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestRoot_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "dialer.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("timing:\n  max_retries: 0\n"), 0o600))

	cmd := newRootCommand(&app{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "rules"})
	assert.ErrorContains(t, cmd.Execute(), "max_retries")
}
