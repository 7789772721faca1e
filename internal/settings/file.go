package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// FileStore keeps settings in a YAML file and notifies listeners when the
// file changes on disk.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu        sync.Mutex
	values    map[string]any
	listeners map[int]Listener
	next      int

	watchOnce sync.Once
	watcher   *viper.Viper
}

var _ Store = (*FileStore)(nil)

// NewFileStore reads path if it exists. A missing file is an empty store.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FileStore{
		path:      path,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
	values, err := readValues(path)
	if err != nil {
		return nil, err
	}
	s.values = values
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func readValues(path string) (map[string]any, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	values := make(map[string]any, len(Keys))
	for _, key := range Keys {
		// viper keys are case-insensitive, so camelCase lookups work against
		// the lower-cased keys it stores.
		if v.IsSet(key) {
			values[key] = v.Get(key)
		}
	}
	return values, nil
}

func (s *FileStore) Get(ctx context.Context, defaults Settings) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out, rejected := merge(defaults, s.values)
	for _, key := range rejected {
		s.logger.Warn("Ignoring mistyped setting", zap.String("key", key), zap.String("file", s.path))
	}
	return out, nil
}

// OnChange subscribes listener. The file watch starts with the first
// subscription.
func (s *FileStore) OnChange(listener Listener) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.listeners[id] = listener
	s.mu.Unlock()

	s.watchOnce.Do(s.watch)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *FileStore) watch() {
	// The watcher instance is only used for its fsnotify loop; the values
	// are re-read into a fresh instance so viper's internal state is never
	// shared across goroutines.
	s.watcher = viper.New()
	s.watcher.SetConfigFile(s.path)
	s.watcher.SetConfigType("yaml")
	s.watcher.OnConfigChange(func(e fsnotify.Event) {
		s.reload(e.Name)
	})
	s.watcher.WatchConfig()
}

func (s *FileStore) reload(name string) {
	values, err := readValues(s.path)
	if err != nil {
		s.logger.Warn("Settings reload failed", zap.String("file", name), zap.Error(err))
		return
	}

	s.mu.Lock()
	changes := diff(s.values, values)
	s.values = values
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if len(changes) == 0 {
		return
	}
	s.logger.Debug("Settings file changed", zap.String("file", name), zap.Int("changed", len(changes)))
	for _, l := range listeners {
		l(changes)
	}
}

// diff returns the keys whose values differ, with nil for removed keys.
func diff(before, after map[string]any) map[string]any {
	changes := make(map[string]any)
	for k, v := range after {
		if old, ok := before[k]; !ok || !reflect.DeepEqual(old, v) {
			changes[k] = v
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			changes[k] = nil
		}
	}
	return changes
}

// Save writes every setting to the file. Only the settings UI writes; the
// dialer core never calls this.
func (s *FileStore) Save(ctx context.Context, settings Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range settings.Values() {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.values = settings.Values()
	s.mu.Unlock()
	return nil
}
