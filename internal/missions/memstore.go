package missions

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store, used by tests and ephemeral runs.
type MemStore struct {
	mu       sync.RWMutex
	missions map[string]*Mission
	logs     map[string][]LogEntry
}

func NewMemStore() *MemStore {
	return &MemStore{
		missions: make(map[string]*Mission),
		logs:     make(map[string][]LogEntry),
	}
}

func (ms *MemStore) Create(m *Mission) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

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

	cp := *m
	ms.missions[m.ID] = &cp
	return nil
}

func (ms *MemStore) Get(id string) (*Mission, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	m, ok := ms.missions[id]
	if !ok {
		return nil, fmt.Errorf("mission not found: %s", id)
	}
	cp := *m
	return &cp, nil
}

func (ms *MemStore) List(filter ListFilter) ([]*Mission, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []*Mission
	for _, m := range ms.missions {
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if filter.Modality != "" && m.Modality != filter.Modality {
			continue
		}
		if filter.Origin != "" && m.Origin != filter.Origin {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (ms *MemStore) Update(m *Mission) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.missions[m.ID]; !ok {
		return fmt.Errorf("mission not found: %s", m.ID)
	}
	m.UpdatedAt = time.Now()
	cp := *m
	ms.missions[m.ID] = &cp
	return nil
}

func (ms *MemStore) Delete(id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.missions, id)
	delete(ms.logs, id)
	return nil
}

func (ms *MemStore) AppendLog(missionID string, entry LogEntry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.logs[missionID] = append(ms.logs[missionID], entry)
	return nil
}

func (ms *MemStore) LoadLogs(missionID string) ([]LogEntry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	logs := ms.logs[missionID]
	out := make([]LogEntry, len(logs))
	copy(out, logs)
	return out, nil
}
