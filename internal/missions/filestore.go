package missions

import (
	"sort"
	"time"

	"github.com/aegisworks/aegis/internal/storage/dirstore"
)

// FileStore persists missions as directories with meta.json + log.jsonl.
type FileStore struct {
	ds *dirstore.DirStore
}

// NewFileStore creates a FileStore rooted at baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{ds: dirstore.New(baseDir, "mission")}
}

// Create persists a new mission to disk.
func (fs *FileStore) Create(m *Mission) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	if m.ID == "" {
		m.ID = GenerateMissionID()
	}
	if m.Status == "" {
		m.Status = StatusQueued
	}
	if m.Priority == "" {
		m.Priority = PriorityNormal
	}

	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := fs.ds.EnsureDir(m.ID); err != nil {
		return err
	}
	return fs.ds.WriteMeta(m.ID, m)
}

// Get reads mission metadata by ID.
func (fs *FileStore) Get(id string) (*Mission, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	var m Mission
	if err := fs.ds.ReadMeta(id, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns missions matching the filter, oldest first so the queue
// drains in submission order.
func (fs *FileStore) List(filter ListFilter) ([]*Mission, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	dirs, err := fs.ds.ListDirs()
	if err != nil {
		return nil, err
	}

	var out []*Mission
	for _, name := range dirs {
		var m Mission
		if err := fs.ds.ReadMeta(name, &m); err != nil {
			continue // skip corrupted missions
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if filter.Modality != "" && m.Modality != filter.Modality {
			continue
		}
		if filter.Origin != "" && m.Origin != filter.Origin {
			continue
		}
		out = append(out, &m)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update atomically rewrites a mission's meta.json.
func (fs *FileStore) Update(m *Mission) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	m.UpdatedAt = time.Now()
	return fs.ds.WriteMeta(m.ID, m)
}

// Delete removes a mission directory.
func (fs *FileStore) Delete(id string) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	return fs.ds.RemoveDir(id)
}

// AppendLog appends a step log entry to the mission's JSONL log.
func (fs *FileStore) AppendLog(missionID string, entry LogEntry) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	return fs.ds.AppendJSONL(missionID, "log.jsonl", entry)
}

// LoadLogs reads all step log entries for a mission.
func (fs *FileStore) LoadLogs(missionID string) ([]LogEntry, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	return dirstore.LoadJSONL[LogEntry](fs.ds, missionID, "log.jsonl")
}
