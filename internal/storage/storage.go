// Package storage is the durable key-value store that keeps the console
// session across restarts.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	AccountKey = "console.account"
	UserKey    = "console.user"
)

var ErrUnsupportedVersion = errors.New("storage: unsupported state version")

// KV holds opaque JSON blobs by key.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

type persistedFile struct {
	Version int                        `json:"version"`
	Values  map[string]json.RawMessage `json:"values"`
	SavedAt int64                      `json:"savedAt"`
}

// FileKV keeps every key in one JSON document and rewrites it on each
// change. Writes go through a temp file and rename so a crash never leaves
// a torn document behind.
type FileKV struct {
	path   string
	logger *zap.Logger

	mu     sync.RWMutex
	values map[string]json.RawMessage

	persistMu sync.Mutex
}

func OpenFile(path string, logger *zap.Logger) (*FileKV, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &FileKV{
		path:   path,
		logger: logger,
		values: make(map[string]json.RawMessage),
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileKV) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var file persistedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Version != 1 {
		return ErrUnsupportedVersion
	}
	for k, v := range file.Values {
		f.values[k] = v
	}
	return nil
}

func (f *FileKV) Get(key string) ([]byte, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (f *FileKV) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return errors.New("storage: value is not valid JSON")
	}
	f.mu.Lock()
	f.values[key] = append(json.RawMessage(nil), value...)
	snapshot := f.snapshotLocked()
	f.mu.Unlock()
	return f.persist(snapshot)
}

func (f *FileKV) Remove(key string) error {
	f.mu.Lock()
	if _, ok := f.values[key]; !ok {
		f.mu.Unlock()
		return nil
	}
	delete(f.values, key)
	snapshot := f.snapshotLocked()
	f.mu.Unlock()
	return f.persist(snapshot)
}

func (f *FileKV) snapshotLocked() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

func (f *FileKV) persist(values map[string]json.RawMessage) error {
	f.persistMu.Lock()
	defer f.persistMu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		f.logger.Error("state persistence: mkdir failed", zap.String("dir", dir), zap.Error(err))
		return err
	}

	file := persistedFile{Version: 1, Values: values, SavedAt: time.Now().UnixMilli()}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		f.logger.Error("state persistence: create temp failed", zap.Error(err))
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		f.logger.Error("state persistence: rename failed", zap.String("path", f.path), zap.Error(err))
		return err
	}
	return nil
}
