package runner

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aegisworks/aegis/internal/capability"
	"github.com/aegisworks/aegis/internal/missions"
	"github.com/aegisworks/aegis/internal/pipeline"
	"github.com/aegisworks/aegis/internal/vault"
)

// scriptedCap answers text calls through a handler and blocks on gate
// when one is set, to hold a run in flight.
type scriptedCap struct {
	mu   sync.Mutex
	text func(role capability.Role, input, contextData string) (string, error)
	gate chan struct{}
}

func (s *scriptedCap) GenerateText(_ context.Context, role capability.Role, input, contextData string, _ capability.Tier) (string, error) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil && role == capability.RoleSwarm {
		<-gate
	}
	return s.text(role, input, contextData)
}

func (s *scriptedCap) GenerateImage(context.Context, string) (string, error) {
	return "data:image/png;base64,x", nil
}

func (s *scriptedCap) GenerateVideo(context.Context, string) (string, error) {
	return "https://cdn/video.mp4", nil
}

func (s *scriptedCap) GenerateAudio(context.Context, string) (string, error) {
	return "YQ==", nil
}

func (s *scriptedCap) GenerateStructuredAsset(context.Context, string) (*capability.StructuredAsset, error) {
	return nil, capability.ErrAssetSchema
}

func passingText(role capability.Role, input, _ string) (string, error) {
	switch role {
	case capability.RoleAudit:
		return "Confidence: 100/100", nil
	case capability.RoleEmitter:
		return "Hello, operator.", nil
	case capability.RoleSwarm:
		return "candidate for " + input, nil
	default:
		return "ack " + input, nil
	}
}

type harness struct {
	store  *missions.MemStore
	vault  *vault.Vault
	runner *Runner
}

func newHarness(t *testing.T, cap capability.Capability, maxRetries, threshold int) *harness {
	t.Helper()

	store := missions.NewMemStore()
	vlt, err := vault.New(nil, nil, nil)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}

	onStep := func(missionID string, res pipeline.StepResult) {
		store.AppendLog(missionID, missions.LogEntry{
			Ts:      res.Timestamp,
			Role:    string(res.Role),
			Status:  string(res.Status),
			Content: res.Content,
		})
	}
	sm := pipeline.NewStateMachine(pipeline.NewStageExecutor(cap, nil), maxRetries, threshold, nil, onStep, nil)
	r := New(store, sm, vlt, nil, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	t.Cleanup(func() {
		cancel()
		r.Stop()
	})

	return &harness{store: store, vault: vlt, runner: r}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func missionStatus(t *testing.T, h *harness, id string) missions.Status {
	t.Helper()
	m, err := h.store.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return m.Status
}

func TestEndToEndGreeting(t *testing.T) {
	h := newHarness(t, &scriptedCap{text: passingText}, 2, 100)
	h.runner.SetAutonomous(true)

	id, err := h.runner.Enqueue("draft a greeting", missions.ModalityText, "cli")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !strings.HasPrefix(id, "msn_") {
		t.Errorf("id = %q", id)
	}

	waitFor(t, func() bool { return missionStatus(t, h, id) == missions.StatusCompleted })

	snap := h.vault.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("vault size = %d", len(snap))
	}
	art := snap[0]
	if art.FinalOutput != "Hello, operator." {
		t.Errorf("final output = %q", art.FinalOutput)
	}
	if art.VerificationScore != 100 || art.HumanActionRequired != nil {
		t.Errorf("score = %d, action = %v", art.VerificationScore, art.HumanActionRequired)
	}

	m, _ := h.store.Get(id)
	if m.ArtifactID != art.ID {
		t.Errorf("mission artifact = %q", m.ArtifactID)
	}

	logs, _ := h.store.LoadLogs(id)
	if len(logs) != 7 {
		t.Errorf("step logs = %d, want 7", len(logs))
	}
}

func TestSingleActiveInvariant(t *testing.T) {
	gate := make(chan struct{})
	cap := &scriptedCap{text: passingText, gate: gate}
	h := newHarness(t, cap, 2, 100)
	h.runner.SetAutonomous(true)

	first, _ := h.runner.Enqueue("first", missions.ModalityText, "test")
	second, _ := h.runner.Enqueue("second", missions.ModalityText, "test")

	waitFor(t, func() bool { return h.runner.ActiveID() == first })

	// While the first run is held open, the second stays queued.
	time.Sleep(30 * time.Millisecond)
	active := 0
	list, _ := h.store.List(missions.ListFilter{})
	for _, m := range list {
		if m.Status == missions.StatusActive {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("active missions = %d", active)
	}
	if missionStatus(t, h, second) != missions.StatusQueued {
		t.Fatalf("second mission status = %s", missionStatus(t, h, second))
	}

	close(gate)
	waitFor(t, func() bool {
		return missionStatus(t, h, first) == missions.StatusCompleted &&
			missionStatus(t, h, second) == missions.StatusCompleted
	})

	// FIFO: the vault preserves submission order.
	snap := h.vault.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("vault size = %d", len(snap))
	}
	if snap[0].OriginalInput != "first" || snap[1].OriginalInput != "second" {
		t.Errorf("order = %q, %q", snap[0].OriginalInput, snap[1].OriginalInput)
	}
}

func TestEscalationAcceptFlow(t *testing.T) {
	cap := &scriptedCap{text: func(role capability.Role, input, contextData string) (string, error) {
		if role == capability.RoleAudit {
			return "Confidence: 92/100", nil
		}
		return passingText(role, input, contextData)
	}}
	h := newHarness(t, cap, 2, 85)
	h.runner.SetAutonomous(true)

	id, _ := h.runner.Enqueue("risky work", missions.ModalityText, "test")
	waitFor(t, func() bool { return missionStatus(t, h, id) == missions.StatusEscalated })

	if h.vault.Size() != 0 {
		t.Fatalf("vault size before sign-off = %d", h.vault.Size())
	}
	pending := h.vault.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending = %d", len(pending))
	}
	if pending[0].VerificationScore != 92 {
		t.Errorf("score = %d", pending[0].VerificationScore)
	}

	if err := h.vault.Accept(pending[0].ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if h.vault.Size() != 1 {
		t.Errorf("vault size after accept = %d", h.vault.Size())
	}
}

func TestFailedMissionKeepsLogs(t *testing.T) {
	cap := &scriptedCap{text: func(role capability.Role, input, contextData string) (string, error) {
		if role == capability.RoleDebateA {
			return "CRITICAL_FLAW everywhere", nil
		}
		return passingText(role, input, contextData)
	}}
	h := newHarness(t, cap, 2, 100)
	h.runner.SetAutonomous(true)

	id, _ := h.runner.Enqueue("doomed", missions.ModalityText, "test")
	waitFor(t, func() bool { return missionStatus(t, h, id) == missions.StatusFailed })

	m, _ := h.store.Get(id)
	if m.Error == "" {
		t.Error("failed mission must carry an error")
	}
	if h.vault.Size() != 0 {
		t.Errorf("vault size = %d", h.vault.Size())
	}

	logs, _ := h.store.LoadLogs(id)
	if len(logs) == 0 {
		t.Error("failed mission must keep its step logs")
	}
}

func TestAutonomousOffPicksNothing(t *testing.T) {
	h := newHarness(t, &scriptedCap{text: passingText}, 2, 100)

	id, _ := h.runner.Enqueue("waiting", missions.ModalityText, "test")
	time.Sleep(50 * time.Millisecond)

	if missionStatus(t, h, id) != missions.StatusQueued {
		t.Fatalf("status = %s, want queued", missionStatus(t, h, id))
	}

	h.runner.SetAutonomous(true)
	waitFor(t, func() bool { return missionStatus(t, h, id) == missions.StatusCompleted })
}

func TestDisableLetsInFlightRunSettle(t *testing.T) {
	gate := make(chan struct{})
	cap := &scriptedCap{text: passingText, gate: gate}
	h := newHarness(t, cap, 2, 100)
	h.runner.SetAutonomous(true)

	first, _ := h.runner.Enqueue("in flight", missions.ModalityText, "test")
	second, _ := h.runner.Enqueue("left behind", missions.ModalityText, "test")

	waitFor(t, func() bool { return h.runner.ActiveID() == first })
	h.runner.SetAutonomous(false)
	close(gate)

	waitFor(t, func() bool { return missionStatus(t, h, first) == missions.StatusCompleted })

	time.Sleep(50 * time.Millisecond)
	if missionStatus(t, h, second) != missions.StatusQueued {
		t.Errorf("second status = %s, want queued", missionStatus(t, h, second))
	}
}

func TestObserve(t *testing.T) {
	h := newHarness(t, &scriptedCap{text: passingText}, 2, 100)
	h.runner.SetAutonomous(true)

	id, _ := h.runner.Enqueue("observe me", missions.ModalityText, "test")
	waitFor(t, func() bool { return missionStatus(t, h, id) == missions.StatusCompleted })

	snap, err := h.runner.Observe()
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if len(snap.Missions) != 1 || len(snap.Vault) != 1 {
		t.Errorf("snapshot = %d missions, %d vaulted", len(snap.Missions), len(snap.Vault))
	}
	if !snap.Autonomous {
		t.Error("autonomous flag missing from snapshot")
	}
	if snap.ActiveID != "" {
		t.Errorf("active id = %q", snap.ActiveID)
	}
}
