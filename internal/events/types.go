package events

// EventType represents the type of event.
type EventType string

const (
	// Mission lifecycle
	EventMissionQueued    EventType = "mission.queued"
	EventMissionStarted   EventType = "mission.started"
	EventMissionCompleted EventType = "mission.completed"
	EventMissionFailed    EventType = "mission.failed"
	EventMissionEscalated EventType = "mission.escalated"

	// Pipeline stages
	EventStageStarted   EventType = "stage.started"
	EventStageCompleted EventType = "stage.completed"
	EventRunRetrying    EventType = "run.retrying"

	// Artifacts
	EventArtifactVaulted  EventType = "artifact.vaulted"
	EventArtifactPending  EventType = "artifact.pending"
	EventArtifactAccepted EventType = "artifact.accepted"
	EventArtifactRejected EventType = "artifact.rejected"

	// Runner
	EventRunnerStateChanged EventType = "runner.state"

	// Scheduler
	EventScheduleTrigger EventType = "schedule.trigger"
)

// EventSource identifies the component that emitted an event.
type EventSource string

const (
	SourceRunner    EventSource = "runner"
	SourcePipeline  EventSource = "pipeline"
	SourceVault     EventSource = "vault"
	SourceGateway   EventSource = "gateway"
	SourceScheduler EventSource = "scheduler"
)
