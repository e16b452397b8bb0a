package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// MISSION EVENTS
// =============================================================================

type MissionQueuedPayload struct {
	MissionID string `json:"mission_id"`
	Modality  string `json:"modality"`
	Prompt    string `json:"prompt"`
}

func (MissionQueuedPayload) EventType() EventType { return EventMissionQueued }

type MissionStartedPayload struct {
	MissionID string `json:"mission_id"`
	Modality  string `json:"modality"`
}

func (MissionStartedPayload) EventType() EventType { return EventMissionStarted }

type MissionCompletedPayload struct {
	MissionID  string        `json:"mission_id"`
	ArtifactID string        `json:"artifact_id"`
	Score      int           `json:"score"`
	Duration   time.Duration `json:"duration,omitempty"`
}

func (MissionCompletedPayload) EventType() EventType { return EventMissionCompleted }

type MissionFailedPayload struct {
	MissionID string `json:"mission_id"`
	Error     string `json:"error"`
	Retries   int    `json:"retries"`
}

func (MissionFailedPayload) EventType() EventType { return EventMissionFailed }

type MissionEscalatedPayload struct {
	MissionID  string `json:"mission_id"`
	ArtifactID string `json:"artifact_id"`
	Score      int    `json:"score"`
	Reason     string `json:"reason"`
}

func (MissionEscalatedPayload) EventType() EventType { return EventMissionEscalated }

// =============================================================================
// STAGE EVENTS
// =============================================================================

type StageStartedPayload struct {
	MissionID string `json:"mission_id"`
	Role      string `json:"role"`
	Attempt   int    `json:"attempt"`
}

func (StageStartedPayload) EventType() EventType { return EventStageStarted }

type StageCompletedPayload struct {
	MissionID string `json:"mission_id"`
	Role      string `json:"role"`
	Status    string `json:"status"`
}

func (StageCompletedPayload) EventType() EventType { return EventStageCompleted }

type RunRetryingPayload struct {
	MissionID string `json:"mission_id"`
	Attempt   int    `json:"attempt"`
	Reason    string `json:"reason"`
}

func (RunRetryingPayload) EventType() EventType { return EventRunRetrying }

// =============================================================================
// ARTIFACT EVENTS
// =============================================================================

type ArtifactVaultedPayload struct {
	ArtifactID string `json:"artifact_id"`
	MissionID  string `json:"mission_id,omitempty"`
	Score      int    `json:"score"`
}

func (ArtifactVaultedPayload) EventType() EventType { return EventArtifactVaulted }

type ArtifactPendingPayload struct {
	ArtifactID string `json:"artifact_id"`
	MissionID  string `json:"mission_id,omitempty"`
	Score      int    `json:"score"`
	Reason     string `json:"reason"`
}

func (ArtifactPendingPayload) EventType() EventType { return EventArtifactPending }

type ArtifactResolvedPayload struct {
	ArtifactID string `json:"artifact_id"`
	Accepted   bool   `json:"accepted"`
}

func (p ArtifactResolvedPayload) EventType() EventType {
	if p.Accepted {
		return EventArtifactAccepted
	}
	return EventArtifactRejected
}

// =============================================================================
// RUNNER / SCHEDULER EVENTS
// =============================================================================

type RunnerStatePayload struct {
	Autonomous bool   `json:"autonomous"`
	ActiveID   string `json:"active_id,omitempty"`
}

func (RunnerStatePayload) EventType() EventType { return EventRunnerStateChanged }

type ScheduleTriggerPayload struct {
	EntryID   string `json:"entry_id"`
	Trigger   string `json:"trigger"`
	MissionID string `json:"mission_id"`
}

func (ScheduleTriggerPayload) EventType() EventType { return EventScheduleTrigger }

// =============================================================================
// TYPED EVENT CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func NewTypedEventForMission(source EventSource, payload EventPayload, missionID string) Event {
	e := NewTypedEvent(source, payload)
	e.MissionID = missionID
	return e
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// ExtractPayload decodes an event's payload map into a typed payload.
func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}
