package threads

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// Persister is a key/value store for serialized client state.
// Load returns (nil, nil) when the key has never been saved.
type Persister interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// FilePersister keeps every key in one JSON object on disk.
type FilePersister struct {
	mu   sync.Mutex
	path string
}

// NewFilePersister returns a persister backed by the file at path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) readAll() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	entries := map[string]json.RawMessage{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Load implements Persister.
func (p *FilePersister) Load(key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, err := p.readAll()
	if err != nil {
		return nil, err
	}
	raw, ok := entries[key]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

// Save implements Persister. The file is replaced atomically.
func (p *FilePersister) Save(key string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, err := p.readAll()
	if err != nil {
		return err
	}
	entries[key] = json.RawMessage(data)

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".threads-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p.path)
}

// MemoryPersister keeps state in memory.
type MemoryPersister struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryPersister returns an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: map[string][]byte{}}
}

// Load implements Persister.
func (p *MemoryPersister) Load(key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Save implements Persister.
func (p *MemoryPersister) Save(key string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = append([]byte(nil), data...)
	return nil
}
