// Package settingsstore provides the key-value settings façade spec.md
// names only as an external collaborator (a secure OS store, or an
// in-memory dictionary). MapSettingsStore is the in-memory form;
// FileSettingsStore persists the same map as a JSON document using
// whole-file atomic rename, the way this module's teacher persists its own
// flat files.
package settingsstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/natefinch/atomic"
)

// KeyValueStore is the interface a real secure-store adapter (OS keychain,
// credential manager) would implement. Get reports absence via ok=false,
// never an error, mirroring how [persist.LoadResult] treats absence as an
// expected state rather than a failure.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// MapSettingsStore is an in-memory KeyValueStore backed by a plain map. It
// has no durability: values are lost when the process exits.
type MapSettingsStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMapSettingsStore returns an empty MapSettingsStore.
func NewMapSettingsStore() *MapSettingsStore {
	return &MapSettingsStore{values: make(map[string]string)}
}

// Compile-time interface check.
var _ KeyValueStore = (*MapSettingsStore)(nil)

// Get returns the value for key, if any.
func (m *MapSettingsStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]

	return value, ok, nil
}

// Set stores value under key, overwriting any existing entry.
func (m *MapSettingsStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value

	return nil
}

// Delete removes key. Not an error if key is absent.
func (m *MapSettingsStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)

	return nil
}

// Keys returns every key currently stored, in no particular order.
func (m *MapSettingsStore) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}

	return keys, nil
}

// FileSettingsStore is a KeyValueStore whose entire map is persisted as a
// single JSON document via [atomic.WriteFile]. Unlike
// [persist.LockedFileDataPersister], it has no staged-pivot recovery
// protocol of its own: a whole-file atomic rename is sufficient for a
// settings document that is rewritten in full on every change and never
// needs crash-safe incremental updates.
type FileSettingsStore struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// NewFileSettingsStore loads path if it exists (treating a missing file as
// an empty store) and returns a store that persists every subsequent
// mutation back to path.
func NewFileSettingsStore(path string) (*FileSettingsStore, error) {
	store := &FileSettingsStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}

		return nil, fmt.Errorf("settingsstore: read %q: %w", path, err)
	}

	if len(data) == 0 {
		return store, nil
	}

	if err := json.Unmarshal(data, &store.values); err != nil {
		return nil, fmt.Errorf("settingsstore: decode %q: %w", path, err)
	}

	return store, nil
}

// Compile-time interface check.
var _ KeyValueStore = (*FileSettingsStore)(nil)

// Get returns the value for key, if any.
func (f *FileSettingsStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.values[key]

	return value, ok, nil
}

// Set stores value under key and rewrites the backing file.
func (f *FileSettingsStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[key] = value

	return f.flushLocked()
}

// Delete removes key and rewrites the backing file. Not an error if key is
// absent.
func (f *FileSettingsStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.values, key)

	return f.flushLocked()
}

// Keys returns every key currently stored, in no particular order.
func (f *FileSettingsStore) Keys(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}

	return keys, nil
}

func (f *FileSettingsStore) flushLocked() error {
	data, err := json.Marshal(f.values)
	if err != nil {
		return fmt.Errorf("settingsstore: encode: %w", err)
	}

	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("settingsstore: write %q: %w", f.path, err)
	}

	return nil
}
