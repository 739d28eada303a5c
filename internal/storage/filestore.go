package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileStore keeps config documents in a single YAML or JSON file, chosen by
// extension. It suits rule sets kept under version control.
type FileStore struct {
	path     string
	debounce time.Duration
	mu       sync.Mutex
}

// NewFileStore returns a store for path. The file is created on first save.
func NewFileStore(path string) (*FileStore, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}
	return &FileStore{path: path, debounce: 100 * time.Millisecond}, nil
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) isJSON() bool {
	return strings.EqualFold(filepath.Ext(f.path), ".json")
}

// load reads the file; a missing file is an empty store.
func (f *FileStore) load() (map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	doc := map[string]any{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return doc, nil
	}

	if f.isJSON() {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.path, err)
	}
	return doc, nil
}

// store writes doc through a temporary file so readers never see a partial file.
func (f *FileStore) store(doc map[string]any) error {
	var data []byte
	var err error
	if f.isJSON() {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", f.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".rdc-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

func toRaw(doc map[string]any) (map[string]json.RawMessage, error) {
	configs := make(map[string]json.RawMessage, len(doc))
	for key, value := range doc {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("config %q is not representable as JSON: %w", key, err)
		}
		configs[key] = data
	}
	return configs, nil
}

// GetConfigs returns every stored config keyed by name.
func (f *FileStore) GetConfigs(ctx context.Context) (map[string]json.RawMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	return toRaw(doc)
}

// SaveConfig upserts a config value.
func (f *FileStore) SaveConfig(ctx context.Context, key string, value any) error {
	return f.SaveConfigs(ctx, map[string]any{key: value})
}

// SaveConfigs upserts several config values in one file write.
func (f *FileStore) SaveConfigs(ctx context.Context, values map[string]any) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	for key, value := range values {
		data, err := encodeValue(key, value)
		if err != nil {
			return err
		}
		// Round-trip through JSON so the file holds plain maps and lists.
		var plain any
		if err := json.Unmarshal(data, &plain); err != nil {
			return fmt.Errorf("failed to normalize config %q: %w", key, err)
		}
		doc[key] = plain
	}

	return f.store(doc)
}

// Watch calls onChange with the reloaded configs whenever the file changes,
// until ctx is done. Bursts of events within the debounce window cause a
// single reload.
func (f *FileStore) Watch(ctx context.Context, onChange func(map[string]json.RawMessage)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors and store() replace the file by rename.
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(f.path)
	timer := time.NewTimer(f.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			timer.Reset(f.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Config watcher error", "path", f.path, "error", err)

		case <-timer.C:
			configs, err := f.GetConfigs(ctx)
			if err != nil {
				slog.Warn("Failed to reload configs", "path", f.path, "error", err)
				continue
			}
			slog.Debug("Reloaded configs", "path", f.path, "keys", len(configs))
			onChange(configs)
		}
	}
}
