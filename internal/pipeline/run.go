package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aegisworks/aegis/internal/capability"
	"github.com/aegisworks/aegis/internal/events"
	"github.com/aegisworks/aegis/internal/missions"
)

// Debate rejection markers. Either one discards the candidate and
// restarts the run from Control.
const (
	markerCriticalFlaw = "CRITICAL_FLAW"
	markerRejectOutput = "REJECT_OUTPUT"
)

// Audit hard markers. Either one aborts the attempt.
const (
	markerHalt         = "HALT"
	markerRiskDetected = "RISK_DETECTED"
)

// StepObserver receives each stage result as it settles. Used by the
// runner to persist per-mission logs.
type StepObserver func(missionID string, result StepResult)

// StateMachine drives one mission through the stage sequence with the
// configured retry budget and acceptance threshold.
type StateMachine struct {
	exec           *StageExecutor
	maxRetries     int
	scoreThreshold int
	bus            *events.Bus
	onStep         StepObserver
	logger         *slog.Logger
}

func NewStateMachine(exec *StageExecutor, maxRetries, scoreThreshold int, bus *events.Bus, onStep StepObserver, logger *slog.Logger) *StateMachine {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StateMachine{
		exec:           exec,
		maxRetries:     maxRetries,
		scoreThreshold: scoreThreshold,
		bus:            bus,
		onStep:         onStep,
		logger:         logger,
	}
}

// Run executes the pipeline for one mission. Soft failures restart from
// Control until the retry budget is spent; hard failures and capability
// errors also consume a retry. Exhaustion returns ErrRetryExhausted.
func (sm *StateMachine) Run(ctx context.Context, m *missions.Mission) (*FinalArtifact, error) {
	var logs []string
	var rejected []string

	retries := 0
	for retries < sm.maxRetries {
		logs = append(logs, fmt.Sprintf("[META-BRAIN] Initializing Layer 1: Controller for %s", m.ID))

		artifact, err := sm.attempt(ctx, m, retries, &logs, rejected)
		if err == nil {
			return artifact, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var soft *softFailure
		if errors.As(err, &soft) {
			if soft.candidate != "" {
				rejected = append(rejected, soft.candidate)
			}
			logs = append(logs, fmt.Sprintf("%s Retrying...", soft.reason))
		} else {
			logs = append(logs, "FATAL_ERROR: "+err.Error())
		}

		retries++
		sm.publish(events.NewTypedEventForMission(events.SourcePipeline, events.RunRetryingPayload{
			MissionID: m.ID,
			Attempt:   retries,
			Reason:    err.Error(),
		}, m.ID))
		sm.logger.Warn("run attempt failed",
			"mission", m.ID,
			"attempt", retries,
			"error", err)
	}

	return nil, fmt.Errorf("%w: %d attempts consumed", ErrRetryExhausted, retries)
}

// attempt runs every stage once. A returned softFailure restarts from
// Control; every other error aborts the attempt.
func (sm *StateMachine) attempt(ctx context.Context, m *missions.Mission, retries int, logs *[]string, rejected []string) (*FinalArtifact, error) {
	// 1. Control
	controlOut, err := sm.step(ctx, m, capability.RoleController, missions.ModalityText, m.Prompt, "", retries)
	if err != nil {
		return nil, err
	}
	if controlOut.Status == StepFailure {
		return nil, ErrControllerRejection
	}

	// 2. Swarm: primary candidate synthesis, routed to the modality
	// specialist where one exists.
	swarmRole := capability.SpecialistFor(m.Modality)
	swarmOut, err := sm.step(ctx, m, swarmRole, m.Modality, controlOut.Content, "", retries)
	if err != nil {
		return nil, err
	}
	candidate := swarmOut.Content

	// 3. Debate: challenger then defender.
	debateA, err := sm.step(ctx, m, capability.RoleDebateA, missions.ModalityText, candidate, "Find every weakness.", retries)
	if err != nil {
		return nil, err
	}
	debateB, err := sm.step(ctx, m, capability.RoleDebateB, missions.ModalityText, candidate, debateA.Content, retries)
	if err != nil {
		return nil, err
	}
	if strings.Contains(debateA.Content, markerCriticalFlaw) || strings.Contains(debateB.Content, markerRejectOutput) {
		return nil, &softFailure{
			reason:    "DEBATE_FAILED: Forced contradiction detected.",
			candidate: candidate,
		}
	}

	// 4. Audit
	auditOut, err := sm.step(ctx, m, capability.RoleAudit, missions.ModalityText, candidate, debateB.Content, retries)
	if err != nil {
		return nil, err
	}
	if strings.Contains(auditOut.Content, markerHalt) || strings.Contains(auditOut.Content, markerRiskDetected) {
		return nil, ErrAuditHalt
	}
	score := ParseScore(auditOut.Content)
	if score < sm.scoreThreshold {
		return nil, &softFailure{
			reason:    fmt.Sprintf("AUDIT_SCORE_LOW: %d below acceptance threshold %d.", score, sm.scoreThreshold),
			candidate: candidate,
		}
	}

	// 5. Refine
	refineOut, err := sm.step(ctx, m, capability.RoleRefiner, m.Modality, candidate, "Strip complexity, maximize efficiency.", retries)
	if err != nil {
		return nil, err
	}
	if refineOut.Status == StepFailure {
		return nil, ErrRefineFailure
	}
	candidate = refineOut.Content

	// 6. Emit
	finalContent, err := sm.emit(ctx, m, candidate, retries)
	if err != nil {
		return nil, err
	}

	*logs = append(*logs, "SUCCESS: Layer 7 Emission completed.")
	return Synthesize(m.Modality, m.Prompt, finalContent, append([]string(nil), *logs...), score, retries, rejected), nil
}

// emit runs the final assembly stage. File missions ask for a
// schema-constrained asset first and fall back to plain emission when
// the schema is violated.
func (sm *StateMachine) emit(ctx context.Context, m *missions.Mission, candidate string, retries int) (string, error) {
	if m.Modality == missions.ModalityFile {
		asset, err := sm.exec.cap.GenerateStructuredAsset(ctx, candidate)
		if err == nil {
			data, merr := json.Marshal(asset)
			if merr == nil {
				sm.observeStep(m.ID, StepResult{
					Role:      capability.RoleEmitter,
					Content:   string(data),
					Status:    StepSuccess,
					Timestamp: time.Now(),
				})
				return string(data), nil
			}
		} else if !errors.Is(err, capability.ErrAssetSchema) {
			return "", fmt.Errorf("stage %s: %w", capability.RoleEmitter, err)
		}
		sm.logger.Debug("structured asset unavailable, falling back to plain emission", "mission", m.ID)
	}

	emitOut, err := sm.step(ctx, m, capability.RoleEmitter, m.Modality, candidate, "", retries)
	if err != nil {
		return "", err
	}
	return emitOut.Content, nil
}

func (sm *StateMachine) step(ctx context.Context, m *missions.Mission, role capability.Role, modality missions.Modality, input, contextData string, attempt int) (*StepResult, error) {
	sm.publish(events.NewTypedEventForMission(events.SourcePipeline, events.StageStartedPayload{
		MissionID: m.ID,
		Role:      string(role),
		Attempt:   attempt,
	}, m.ID))

	result, err := sm.exec.Execute(ctx, role, modality, input, contextData)
	if err != nil {
		return nil, err
	}

	sm.observeStep(m.ID, *result)
	sm.publish(events.NewTypedEventForMission(events.SourcePipeline, events.StageCompletedPayload{
		MissionID: m.ID,
		Role:      string(role),
		Status:    string(result.Status),
	}, m.ID))
	return result, nil
}

func (sm *StateMachine) observeStep(missionID string, result StepResult) {
	if sm.onStep != nil {
		sm.onStep(missionID, result)
	}
}

func (sm *StateMachine) publish(e events.Event) {
	if sm.bus != nil {
		sm.bus.Publish(e)
	}
}
