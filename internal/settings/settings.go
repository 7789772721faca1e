// Package settings holds the user-facing dialer settings and the stores that
// persist them. The dialer core only reads settings; writing belongs to the
// settings UI (the `settings set` command).
package settings

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// Storage keys.
const (
	KeyCountryName = "countryName"
	KeyDialCode    = "dialCode"
	KeyEnabled     = "enabled"
	KeyShowToast   = "showToast"
)

// Keys lists every known key.
var Keys = []string{KeyCountryName, KeyDialCode, KeyEnabled, KeyShowToast}

// Settings is the user's dialer configuration.
type Settings struct {
	CountryName string `json:"countryName" yaml:"countryName"`
	DialCode    string `json:"dialCode" yaml:"dialCode"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ShowToast   bool   `json:"showToast" yaml:"showToast"`
}

// Defaults returns the settings used for any key that is absent or unset.
func Defaults() Settings {
	return Settings{
		CountryName: "United States",
		DialCode:    "+1",
		Enabled:     true,
		ShowToast:   true,
	}
}

// Values returns s keyed by storage key.
func (s Settings) Values() map[string]any {
	return map[string]any{
		KeyCountryName: s.CountryName,
		KeyDialCode:    s.DialCode,
		KeyEnabled:     s.Enabled,
		KeyShowToast:   s.ShowToast,
	}
}

// Listener receives the keys that changed and their new values. A nil value
// means the key was removed.
type Listener func(changes map[string]any)

// Store is the key-value settings collaborator.
type Store interface {
	// Get returns the stored settings, with defaults for absent keys.
	Get(ctx context.Context, defaults Settings) (Settings, error)
	// OnChange subscribes listener and returns a function that unsubscribes.
	OnChange(listener Listener) (cancel func())
}

// merge overlays stored values on base. Values of the wrong type are
// treated as unset and reported in the returned key list.
func merge(base Settings, values map[string]any) (Settings, []string) {
	out := base
	var rejected []string
	for key, raw := range values {
		if raw == nil {
			continue
		}
		ok := true
		switch key {
		case KeyCountryName:
			out.CountryName, ok = raw.(string)
		case KeyDialCode:
			out.DialCode, ok = raw.(string)
		case KeyEnabled:
			out.Enabled, ok = asBool(raw)
		case KeyShowToast:
			out.ShowToast, ok = asBool(raw)
		}
		if !ok {
			rejected = append(rejected, key)
			out = restore(out, base, key)
		}
	}
	return out, rejected
}

func restore(out, base Settings, key string) Settings {
	switch key {
	case KeyCountryName:
		out.CountryName = base.CountryName
	case KeyDialCode:
		out.DialCode = base.DialCode
	case KeyEnabled:
		out.Enabled = base.Enabled
	case KeyShowToast:
		out.ShowToast = base.ShowToast
	}
	return out
}

func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	default:
		return false, false
	}
}

// Live is the process-wide settings object shared by reference between the
// detector and the fill scheduler. It is updated in place by a store
// subscription and read at the moment of use.
type Live struct {
	mu       sync.RWMutex
	current  Settings
	defaults Settings
	logger   *zap.Logger
}

// NewLive returns live settings initialised to defaults.
func NewLive(defaults Settings, logger *zap.Logger) *Live {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Live{current: defaults, defaults: defaults, logger: logger}
}

// Current returns a copy of the current settings.
func (l *Live) Current() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Enabled reports whether automatic detection is on.
func (l *Live) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current.Enabled
}

// Apply updates the changed keys in place. Removed or mistyped values fall
// back to the defaults; unknown keys are ignored.
func (l *Live) Apply(changes map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, raw := range changes {
		var rejected []string
		switch key {
		case KeyCountryName, KeyDialCode, KeyEnabled, KeyShowToast:
		default:
			continue
		}
		if raw == nil {
			l.current = restore(l.current, l.defaults, key)
			continue
		}
		l.current, rejected = merge(l.current, map[string]any{key: raw})
		if len(rejected) > 0 {
			l.current = restore(l.current, l.defaults, key)
			l.logger.Warn("Ignoring mistyped setting", zap.String("key", key), zap.Any("value", raw))
		}
	}
	l.logger.Debug("Settings updated", zap.Int("changed", len(changes)))
}

// Replace overwrites every setting.
func (l *Live) Replace(s Settings) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = s
}

// Bind subscribes l to store and then loads the stored settings. The
// returned function ends the subscription.
func (l *Live) Bind(ctx context.Context, store Store) (func(), error) {
	cancel := store.OnChange(l.Apply)

	s, err := store.Get(ctx, l.defaults)
	if err != nil {
		cancel()
		return nil, err
	}
	l.Replace(s)
	l.logger.Debug("Settings loaded", zap.String("country", s.CountryName))
	return cancel, nil
}
