// Package dirstore provides primitives for directory-backed entity stores.
// Every entity owns a subdirectory holding a meta.json plus optional
// companion files such as append-only JSONL logs.
package dirstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DirStore manages one directory per entity under a common base dir.
type DirStore struct {
	mu     sync.RWMutex
	base   string
	entity string // used in error messages: "mission", "artifact"
}

func New(base, entity string) *DirStore {
	return &DirStore{base: base, entity: entity}
}

func (ds *DirStore) Lock()    { ds.mu.Lock() }
func (ds *DirStore) Unlock()  { ds.mu.Unlock() }
func (ds *DirStore) RLock()   { ds.mu.RLock() }
func (ds *DirStore) RUnlock() { ds.mu.RUnlock() }

// Dir returns the directory that holds the entity's files.
func (ds *DirStore) Dir(id string) string {
	return filepath.Join(ds.base, id)
}

// Path returns the location of a named file inside the entity's directory.
func (ds *DirStore) Path(id, name string) string {
	return filepath.Join(ds.base, id, name)
}

// EnsureDir creates the entity directory and any missing parents.
func (ds *DirStore) EnsureDir(id string) error {
	if err := os.MkdirAll(ds.Dir(id), 0o755); err != nil {
		return fmt.Errorf("create %s dir: %w", ds.entity, err)
	}
	return nil
}

// RemoveDir deletes the entity directory and everything inside it.
func (ds *DirStore) RemoveDir(id string) error {
	return os.RemoveAll(ds.Dir(id))
}

// ListDirs returns the IDs of every stored entity.
func (ds *DirStore) ListDirs() ([]string, error) {
	entries, err := os.ReadDir(ds.base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %ss: %w", ds.entity, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// WriteMeta writes meta.json atomically via a temp file and rename.
func (ds *DirStore) WriteMeta(id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	path := ds.Path(id, "meta.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write meta tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename meta: %w", err)
	}
	return nil
}

// ReadMeta unmarshals meta.json into out.
func (ds *DirStore) ReadMeta(id string, out any) error {
	data, err := os.ReadFile(ds.Path(id, "meta.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s not found: %s", ds.entity, id)
		}
		return fmt.Errorf("read meta: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal meta: %w", err)
	}
	return nil
}

// AppendJSONL adds one JSON-encoded line to the named file.
func (ds *DirStore) AppendJSONL(id, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	f, err := os.OpenFile(ds.Path(id, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// LoadJSONL reads every line of the named file as a T. Corrupted lines
// are skipped so a partial write never poisons the whole log.
func LoadJSONL[T any](ds *DirStore, id, name string) ([]T, error) {
	f, err := os.Open(ds.Path(id, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	var items []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", name, err)
	}
	return items, nil
}

// WriteBlob writes raw content to a named file atomically.
func (ds *DirStore) WriteBlob(id, name string, content []byte) error {
	path := ds.Path(id, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write %s tmp: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// ReadBlob reads a named file. A missing file yields nil, nil.
func (ds *DirStore) ReadBlob(id, name string) ([]byte, error) {
	data, err := os.ReadFile(ds.Path(id, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
