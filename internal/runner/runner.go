// Package runner owns the mission queue loop: it picks the oldest queued
// mission while autonomous mode is on and drives it through the pipeline,
// one mission at a time.
package runner

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aegisworks/aegis/internal/events"
	"github.com/aegisworks/aegis/internal/missions"
	"github.com/aegisworks/aegis/internal/pipeline"
	"github.com/aegisworks/aegis/internal/vault"
)

// Snapshot is the read-only observation of the whole pipeline state.
type Snapshot struct {
	Missions   []*missions.Mission       `json:"missions"`
	Vault      []*pipeline.FinalArtifact `json:"vault"`
	Pending    []*pipeline.FinalArtifact `json:"pending"`
	ActiveID   string                    `json:"active_id,omitempty"`
	Autonomous bool                      `json:"autonomous"`
}

// Runner is the single-flight scheduler over the mission queue.
type Runner struct {
	store  missions.Store
	sm     *pipeline.StateMachine
	vault  *vault.Vault
	bus    *events.Bus
	logger *slog.Logger

	tick       time.Duration
	autonomous atomic.Bool

	mu       sync.Mutex
	activeID string

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func New(store missions.Store, sm *pipeline.StateMachine, vlt *vault.Vault, bus *events.Bus, tick time.Duration, logger *slog.Logger) *Runner {
	if tick <= 0 {
		tick = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:  store,
		sm:     sm,
		vault:  vlt,
		bus:    bus,
		logger: logger,
		tick:   tick,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the runner loop. Call once.
func (r *Runner) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Stop halts the loop after any in-flight run settles.
func (r *Runner) Stop() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	<-r.done
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
		case <-r.wake:
		}
		r.tickOnce(ctx)
	}
}

// tickOnce picks and runs at most one mission. The run is synchronous,
// so a second pick cannot happen while one is in flight.
func (r *Runner) tickOnce(ctx context.Context) {
	if !r.autonomous.Load() {
		return
	}

	r.mu.Lock()
	if r.activeID != "" {
		r.mu.Unlock()
		return
	}

	queued, err := r.store.List(missions.ListFilter{Status: missions.StatusQueued})
	if err != nil {
		r.mu.Unlock()
		r.logger.Error("list queued missions", "error", err)
		return
	}
	if len(queued) == 0 {
		r.mu.Unlock()
		return
	}

	m := queued[0]
	now := time.Now()
	m.Status = missions.StatusActive
	m.StartedAt = &now
	if err := r.store.Update(m); err != nil {
		r.mu.Unlock()
		r.logger.Error("activate mission", "mission", m.ID, "error", err)
		return
	}
	r.activeID = m.ID
	r.mu.Unlock()

	r.run(ctx, m)

	r.mu.Lock()
	r.activeID = ""
	r.mu.Unlock()
}

func (r *Runner) run(ctx context.Context, m *missions.Mission) {
	r.publish(events.NewTypedEventForMission(events.SourceRunner, events.MissionStartedPayload{
		MissionID: m.ID,
		Modality:  string(m.Modality),
	}, m.ID))
	r.logger.Info("mission started", "mission", m.ID, "modality", string(m.Modality))

	start := time.Now()
	art, err := r.sm.Run(ctx, m)
	now := time.Now()
	m.CompletedAt = &now

	if err != nil {
		m.Status = missions.StatusFailed
		m.Error = err.Error()
		if uerr := r.store.Update(m); uerr != nil {
			r.logger.Error("persist failed mission", "mission", m.ID, "error", uerr)
		}
		r.publish(events.NewTypedEventForMission(events.SourceRunner, events.MissionFailedPayload{
			MissionID: m.ID,
			Error:     err.Error(),
		}, m.ID))
		r.logger.Error("mission failed", "mission", m.ID, "error", err)
		return
	}

	m.ArtifactID = art.ID
	m.RetryCount = art.RecheckPasses - 1

	if art.HumanActionRequired != nil {
		m.Status = missions.StatusEscalated
		if uerr := r.store.Update(m); uerr != nil {
			r.logger.Error("persist escalated mission", "mission", m.ID, "error", uerr)
		}
		r.vault.Flag(art)
		r.publish(events.NewTypedEventForMission(events.SourceRunner, events.MissionEscalatedPayload{
			MissionID:  m.ID,
			ArtifactID: art.ID,
			Score:      art.VerificationScore,
			Reason:     *art.HumanActionRequired,
		}, m.ID))
		r.logger.Warn("mission escalated",
			"mission", m.ID,
			"artifact", art.ID,
			"score", art.VerificationScore)
		return
	}

	m.Status = missions.StatusCompleted
	if uerr := r.store.Update(m); uerr != nil {
		r.logger.Error("persist completed mission", "mission", m.ID, "error", uerr)
	}
	if verr := r.vault.Append(art); verr != nil {
		r.logger.Error("vault artifact", "artifact", art.ID, "error", verr)
	}
	r.publish(events.NewTypedEventForMission(events.SourceRunner, events.MissionCompletedPayload{
		MissionID:  m.ID,
		ArtifactID: art.ID,
		Score:      art.VerificationScore,
		Duration:   time.Since(start),
	}, m.ID))
	r.logger.Info("mission completed",
		"mission", m.ID,
		"artifact", art.ID,
		"duration", time.Since(start))
}

func (r *Runner) publish(e events.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}

// Enqueue appends a mission to the queue and nudges the loop.
func (r *Runner) Enqueue(prompt string, modality missions.Modality, origin string) (string, error) {
	m := &missions.Mission{
		Prompt:   prompt,
		Modality: modality,
		Origin:   origin,
	}
	if err := r.store.Create(m); err != nil {
		return "", err
	}

	r.publish(events.NewTypedEventForMission(events.SourceRunner, events.MissionQueuedPayload{
		MissionID: m.ID,
		Modality:  string(m.Modality),
		Prompt:    m.Prompt,
	}, m.ID))
	r.logger.Info("mission queued", "mission", m.ID, "origin", origin)

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return m.ID, nil
}

// SetAutonomous flips the autonomous flag. Turning it off lets an
// in-flight run settle; no new mission is picked afterwards.
func (r *Runner) SetAutonomous(on bool) {
	r.autonomous.Store(on)
	r.publish(events.NewTypedEvent(events.SourceRunner, events.RunnerStatePayload{
		Autonomous: on,
		ActiveID:   r.ActiveID(),
	}))
	r.logger.Info("runner state changed", "autonomous", on)
	if on {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
}

// Autonomous reports whether the loop picks new missions.
func (r *Runner) Autonomous() bool {
	return r.autonomous.Load()
}

// ActiveID returns the in-flight mission id, if any.
func (r *Runner) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// Observe returns the current pipeline state for display.
func (r *Runner) Observe() (*Snapshot, error) {
	list, err := r.store.List(missions.ListFilter{})
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Missions:   list,
		Vault:      r.vault.Snapshot(),
		Pending:    r.vault.Pending(),
		ActiveID:   r.ActiveID(),
		Autonomous: r.autonomous.Load(),
	}, nil
}
