package localcart

import (
	"encoding/json"
	"os"
	"sync"
)

// Storage is the string key-value store behind the local cart. The file
// implementation survives restarts the way browser storage survives page
// loads; the memory one backs tests.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// FileStorage keeps the whole key space in one JSON file, rewritten on
// every mutation. Cart payloads are small enough that this stays cheap.
type FileStorage struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

func NewFileStorage(path string) (*FileStorage, error) {
	f := &FileStorage{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &f.values); err != nil {
			// Corrupt state file; start over rather than failing every call.
			f.values = make(map[string]string)
		}
	}
	return f, nil
}

func (f *FileStorage) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

func (f *FileStorage) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return f.flush()
}

func (f *FileStorage) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return f.flush()
}

func (f *FileStorage) flush() error {
	data, err := json.Marshal(f.values)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}
