// Package scheduler turns recurring mission templates from config into
// queued missions on cron or interval triggers.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aegisworks/aegis/internal/config"
	"github.com/aegisworks/aegis/internal/events"
	"github.com/aegisworks/aegis/internal/missions"
)

// DefaultCooldown is the minimum interval between two triggers of the
// same entry.
const DefaultCooldown = 60 * time.Second

// Enqueuer submits a mission to the queue.
type Enqueuer interface {
	Enqueue(prompt string, modality missions.Modality, origin string) (string, error)
}

type entry struct {
	id          string
	prompt      string
	modality    missions.Modality
	cron        *CronExpr
	intervalSec int
	cooldown    time.Duration
	lastRun     time.Time
}

// Scheduler drives cron-based and interval-based mission templates.
type Scheduler struct {
	queue  Enqueuer
	bus    *events.Bus
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry

	done chan struct{}
}

// New builds a scheduler from config templates. Invalid entries are
// rejected up front.
func New(templates []config.ScheduleConfig, queue Enqueuer, bus *events.Bus, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		queue:   queue,
		bus:     bus,
		logger:  logger,
		entries: make(map[string]*entry),
		done:    make(chan struct{}),
	}

	for i, tmpl := range templates {
		if tmpl.Cron == "" && tmpl.IntervalSec == 0 {
			return nil, fmt.Errorf("schedule %d: needs a cron or interval trigger", i)
		}
		if tmpl.IntervalSec > 0 && tmpl.IntervalSec < 5 {
			return nil, fmt.Errorf("schedule %d: interval must be at least 5 seconds", i)
		}
		if tmpl.Prompt == "" {
			return nil, fmt.Errorf("schedule %d: prompt is required", i)
		}

		modality, err := missions.ParseModality(tmpl.Modality)
		if err != nil {
			return nil, fmt.Errorf("schedule %d: %w", i, err)
		}

		e := &entry{
			id:          fmt.Sprintf("sched_%d", i),
			prompt:      tmpl.Prompt,
			modality:    modality,
			intervalSec: tmpl.IntervalSec,
			cooldown:    time.Duration(tmpl.CooldownSec) * time.Second,
		}
		if tmpl.Cron != "" {
			expr, err := ParseCron(tmpl.Cron)
			if err != nil {
				return nil, fmt.Errorf("schedule %d: %w", i, err)
			}
			e.cron = expr
		}
		if e.cooldown == 0 {
			e.cooldown = DefaultCooldown
		}
		s.entries[e.id] = e
	}

	return s, nil
}

// Start begins the cron and interval tickers.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", "entries", len(s.entries))
	go s.cronLoop()
	go s.intervalLoop()
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	close(s.done)
	s.logger.Info("scheduler stopped")
}

// Size returns the number of registered entries.
func (s *Scheduler) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Scheduler) cronLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.checkCron(now)
		}
	}
}

func (s *Scheduler) intervalLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.checkIntervals(now)
		}
	}
}

func (s *Scheduler) checkCron(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.cron == nil || !e.cron.Matches(now) {
			continue
		}
		if now.Sub(e.lastRun) < e.cooldown {
			continue
		}
		s.trigger(e, "cron", now)
	}
}

func (s *Scheduler) checkIntervals(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.intervalSec <= 0 {
			continue
		}
		interval := time.Duration(e.intervalSec) * time.Second
		if now.Sub(e.lastRun) < interval {
			continue
		}
		s.trigger(e, "interval", now)
	}
}

// trigger enqueues a mission for the entry. Caller holds s.mu.
func (s *Scheduler) trigger(e *entry, kind string, now time.Time) {
	e.lastRun = now

	id, err := s.queue.Enqueue(e.prompt, e.modality, "scheduler")
	if err != nil {
		s.logger.Error("scheduler enqueue", "entry", e.id, "error", err)
		return
	}

	if s.bus != nil {
		s.bus.Publish(events.NewTypedEventForMission(events.SourceScheduler, events.ScheduleTriggerPayload{
			EntryID:   e.id,
			Trigger:   kind,
			MissionID: id,
		}, id))
	}
	s.logger.Info("schedule triggered", "entry", e.id, "trigger", kind, "mission", id)
}
