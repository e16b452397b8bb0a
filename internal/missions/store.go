package missions

// ListFilter defines criteria for filtering mission lists.
type ListFilter struct {
	Status   Status   `json:"status,omitempty"`
	Modality Modality `json:"modality,omitempty"`
	Origin   string   `json:"origin,omitempty"`
}

// Store defines the persistence interface for missions.
type Store interface {
	Create(m *Mission) error
	Get(id string) (*Mission, error)
	List(filter ListFilter) ([]*Mission, error)
	Update(m *Mission) error
	Delete(id string) error
	AppendLog(missionID string, entry LogEntry) error
	LoadLogs(missionID string) ([]LogEntry, error)
}
