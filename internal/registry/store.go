package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists registry records between process restarts.
type Store interface {
	Load() (map[string]ServiceRecord, error)
	Save(records map[string]ServiceRecord) error
}

// nopStore discards all writes. Used in tests and when persistence is
// disabled.
type nopStore struct{}

func (nopStore) Load() (map[string]ServiceRecord, error) { return nil, nil }
func (nopStore) Save(map[string]ServiceRecord) error     { return nil }

// NopStore returns a store that keeps nothing.
func NopStore() Store {
	return nopStore{}
}

// FileStore persists records as a JSON object keyed by service name.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted records. A missing file yields an empty map.
func (s *FileStore) Load() (map[string]ServiceRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	records := make(map[string]ServiceRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode registry file: %w", err)
	}
	return records, nil
}

// Save writes the records atomically via a temp file rename.
func (s *FileStore) Save(records map[string]ServiceRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".services-*.json")
	if err != nil {
		return fmt.Errorf("create temp registry file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close registry file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace registry file: %w", err)
	}
	return nil
}
