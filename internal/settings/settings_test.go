package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, "United States", d.CountryName)
	assert.Equal(t, "+1", d.DialCode)
	assert.True(t, d.Enabled)
	assert.True(t, d.ShowToast)
}

func TestLive_ApplyUpdatesInPlace(t *testing.T) {
	live := NewLive(Defaults(), zaptest.NewLogger(t))

	live.Apply(map[string]any{
		KeyCountryName: "Australia",
		KeyDialCode:    "+61",
		KeyEnabled:     false,
		"unrelated":    42,
	})

	got := live.Current()
	assert.Equal(t, "Australia", got.CountryName)
	assert.Equal(t, "+61", got.DialCode)
	assert.False(t, got.Enabled)
	assert.False(t, live.Enabled())
	assert.True(t, got.ShowToast)
}

func TestLive_UnsetFallsBackToDefaults(t *testing.T) {
	live := NewLive(Defaults(), nil)
	live.Apply(map[string]any{KeyCountryName: "Japan", KeyShowToast: false})

	live.Apply(map[string]any{KeyCountryName: nil, KeyShowToast: nil})

	assert.Equal(t, Defaults(), live.Current())
}

func TestLive_MistypedValueFallsBackToDefault(t *testing.T) {
	live := NewLive(Defaults(), nil)
	live.Apply(map[string]any{KeyCountryName: "Japan", KeyEnabled: false})

	live.Apply(map[string]any{KeyCountryName: 12, KeyEnabled: "nope"})

	got := live.Current()
	assert.Equal(t, "United States", got.CountryName)
	assert.True(t, got.Enabled)
}

func TestLive_StringBooleansAccepted(t *testing.T) {
	live := NewLive(Defaults(), nil)
	live.Apply(map[string]any{KeyEnabled: "false"})
	assert.False(t, live.Enabled())
}

func TestLive_BindLoadsThenFollowsChanges(t *testing.T) {
	store := NewMemoryStore(map[string]any{KeyCountryName: "Germany", KeyDialCode: "+49"})
	live := NewLive(Defaults(), nil)

	cancel, err := live.Bind(context.Background(), store)
	require.NoError(t, err)

	assert.Equal(t, "Germany", live.Current().CountryName)
	assert.True(t, live.Current().Enabled)

	store.Set(map[string]any{KeyEnabled: false})
	assert.False(t, live.Enabled())

	store.Delete(KeyCountryName)
	assert.Equal(t, "United States", live.Current().CountryName)

	cancel()
	store.Set(map[string]any{KeyCountryName: "France"})
	assert.Equal(t, "United States", live.Current().CountryName)
}

func TestLive_BindCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLive(Defaults(), nil).Bind(ctx, NewMemoryStore(nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"), nil)
	require.NoError(t, err)

	got, err := store.Get(context.Background(), Defaults())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestFileStore_ReadsCamelCaseKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("countryName: India\ndialCode: \"+91\"\nshowToast: false\n"), 0o644))

	store, err := NewFileStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	got, err := store.Get(context.Background(), Defaults())
	require.NoError(t, err)
	assert.Equal(t, "India", got.CountryName)
	assert.Equal(t, "+91", got.DialCode)
	assert.False(t, got.ShowToast)
	assert.True(t, got.Enabled)
}

func TestFileStore_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, err := NewFileStore(path, nil)
	require.NoError(t, err)

	want := Settings{CountryName: "Canada", DialCode: "+1", Enabled: false, ShowToast: true}
	require.NoError(t, store.Save(context.Background(), want))

	reopened, err := NewFileStore(path, nil)
	require.NoError(t, err)
	got, err := reopened.Get(context.Background(), Defaults())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStore_NotifiesOnFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("countryName: Spain\n"), 0o644))

	store, err := NewFileStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	var (
		mu  sync.Mutex
		got []map[string]any
	)
	cancel := store.OnChange(func(changes map[string]any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, changes)
	})
	defer cancel()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("countryName: Italy\nenabled: false\n"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, changes := range got {
			if changes[KeyCountryName] == "Italy" {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestDiff(t *testing.T) {
	before := map[string]any{KeyCountryName: "Spain", KeyEnabled: true, KeyDialCode: "+34"}
	after := map[string]any{KeyCountryName: "Italy", KeyEnabled: true, KeyShowToast: false}

	assert.Equal(t, map[string]any{
		KeyCountryName: "Italy",
		KeyShowToast:   false,
		KeyDialCode:    nil,
	}, diff(before, after))
}
