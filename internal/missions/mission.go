// Package missions defines the mission queue model and its persistence.
package missions

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Modality selects the output medium a mission produces.
type Modality string

const (
	ModalityText  Modality = "TEXT"
	ModalityImage Modality = "IMAGE"
	ModalityVideo Modality = "VIDEO"
	ModalityAudio Modality = "AUDIO"
	ModalityFile  Modality = "FILE"
	ModalityCode  Modality = "CODE"
)

// ParseModality normalizes a user-supplied modality string.
func ParseModality(s string) (Modality, error) {
	switch Modality(strings.ToUpper(strings.TrimSpace(s))) {
	case ModalityText:
		return ModalityText, nil
	case ModalityImage:
		return ModalityImage, nil
	case ModalityVideo:
		return ModalityVideo, nil
	case ModalityAudio:
		return ModalityAudio, nil
	case ModalityFile:
		return ModalityFile, nil
	case ModalityCode:
		return ModalityCode, nil
	case "":
		return ModalityText, nil
	default:
		return "", fmt.Errorf("unknown modality: %q", s)
	}
}

// Status represents the lifecycle state of a mission.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPaused    Status = "paused"
	StatusEscalated Status = "escalated"
)

// Priority represents the scheduling priority of a mission.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Mission is a queued unit of work for the pipeline.
type Mission struct {
	ID          string     `json:"id"`
	Prompt      string     `json:"prompt"`
	Modality    Modality   `json:"modality"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Origin      string     `json:"origin,omitempty"` // "cli", "gateway", "scheduler", "mcp"
	RetryCount  int        `json:"retry_count"`
	ArtifactID  string     `json:"artifact_id,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// LogEntry records one pipeline step outcome for a mission.
type LogEntry struct {
	Ts      time.Time `json:"ts"`
	Role    string    `json:"role"`
	Status  string    `json:"status"`
	Content string    `json:"content"`
}

// GenerateMissionID creates a unique mission identifier.
func GenerateMissionID() string {
	u := uuid.New().String()
	return "msn_" + strings.ReplaceAll(u[:8], "-", "")
}
