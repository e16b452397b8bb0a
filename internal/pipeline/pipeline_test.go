package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aegisworks/aegis/internal/capability"
	"github.com/aegisworks/aegis/internal/missions"
)

// fakeCap scripts capability responses per role.
type fakeCap struct {
	mu         sync.Mutex
	text       func(role capability.Role, input, contextData string) (string, error)
	image      string
	video      string
	audio      string
	asset      *capability.StructuredAsset
	assetErr   error
	imageCalls int
	videoCalls int
	audioCalls int
	assetCalls int
	textCalls  []capability.Role
}

func (f *fakeCap) GenerateText(_ context.Context, role capability.Role, input, contextData string, _ capability.Tier) (string, error) {
	f.mu.Lock()
	f.textCalls = append(f.textCalls, role)
	f.mu.Unlock()
	return f.text(role, input, contextData)
}

func (f *fakeCap) GenerateImage(context.Context, string) (string, error) {
	f.mu.Lock()
	f.imageCalls++
	f.mu.Unlock()
	if f.image == "" {
		return "", capability.ErrImageGeneration
	}
	return f.image, nil
}

func (f *fakeCap) GenerateVideo(context.Context, string) (string, error) {
	f.mu.Lock()
	f.videoCalls++
	f.mu.Unlock()
	return f.video, nil
}

func (f *fakeCap) GenerateAudio(context.Context, string) (string, error) {
	f.mu.Lock()
	f.audioCalls++
	f.mu.Unlock()
	return f.audio, nil
}

func (f *fakeCap) GenerateStructuredAsset(context.Context, string) (*capability.StructuredAsset, error) {
	f.mu.Lock()
	f.assetCalls++
	f.mu.Unlock()
	if f.assetErr != nil {
		return nil, f.assetErr
	}
	return f.asset, nil
}

// happyText answers every role with clean, passing content.
func happyText(role capability.Role, _, _ string) (string, error) {
	switch role {
	case capability.RoleController:
		return "sub-task plan", nil
	case capability.RoleSwarm:
		return "candidate draft", nil
	case capability.RoleDebateA:
		return "no weakness found", nil
	case capability.RoleDebateB:
		return "defense holds", nil
	case capability.RoleAudit:
		return "Confidence: 100/100", nil
	case capability.RoleRefiner:
		return "refined draft", nil
	case capability.RoleEmitter:
		return "Hello, operator.", nil
	}
	return "ok", nil
}

func newSM(cap capability.Capability, maxRetries, threshold int) *StateMachine {
	return NewStateMachine(NewStageExecutor(cap, nil), maxRetries, threshold, nil, nil, nil)
}

func textMission(prompt string) *missions.Mission {
	return &missions.Mission{ID: "msn_test", Prompt: prompt, Modality: missions.ModalityText}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		content string
		want    StepStatus
	}{
		{"all clear", StepSuccess},
		{"system HALT requested", StepFailure},
		{"FAILURE in module", StepFailure},
		{"CERTAINTY_LOW on estimate", StepFailure},
		{"halt lowercase is fine", StepSuccess},
		{"", StepSuccess},
	}
	for _, c := range cases {
		if got := Classify(c.content); got != c.want {
			t.Errorf("Classify(%q) = %s, want %s", c.content, got, c.want)
		}
		// Pure function: repeated calls agree.
		if got := Classify(c.content); got != c.want {
			t.Errorf("Classify(%q) second call = %s", c.content, got)
		}
	}
}

func TestParseScore(t *testing.T) {
	cases := []struct {
		content string
		want    int
	}{
		{"Confidence: 87/100", 87},
		{"100/100", 100},
		{"score 0/100 detected", 0},
		{"no score here", 0},
		{"5/10", 0},
		{"Confidence: 42/100 and later 99/100", 42},
	}
	for _, c := range cases {
		if got := ParseScore(c.content); got != c.want {
			t.Errorf("ParseScore(%q) = %d, want %d", c.content, got, c.want)
		}
	}
}

func TestRunHappyPath(t *testing.T) {
	cap := &fakeCap{text: happyText}
	sm := newSM(cap, 2, 100)

	art, err := sm.Run(context.Background(), textMission("draft a greeting"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if art.FinalOutput != "Hello, operator." {
		t.Errorf("final output = %q", art.FinalOutput)
	}
	if art.VerificationScore != 100 {
		t.Errorf("score = %d", art.VerificationScore)
	}
	if art.HumanActionRequired != nil {
		t.Errorf("human action = %v", *art.HumanActionRequired)
	}
	if art.RecheckPasses != 1 {
		t.Errorf("recheck passes = %d", art.RecheckPasses)
	}
	if len(art.SourceChain) != 5 {
		t.Errorf("source chain = %v", art.SourceChain)
	}
	if art.ID[:4] != "art_" {
		t.Errorf("id = %q", art.ID)
	}
}

func TestRunDebateSoftFailExhaustsBudget(t *testing.T) {
	cap := &fakeCap{text: func(role capability.Role, input, contextData string) (string, error) {
		if role == capability.RoleDebateA {
			return "CRITICAL_FLAW: contradiction", nil
		}
		return happyText(role, input, contextData)
	}}
	sm := newSM(cap, 2, 100)

	_, err := sm.Run(context.Background(), textMission("x"))
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("err = %v, want retry exhaustion", err)
	}

	// Two full attempts reach DebateA; no attempt goes past it.
	controllers := 0
	for _, r := range cap.textCalls {
		if r == capability.RoleController {
			controllers++
		}
		if r == capability.RoleAudit {
			t.Error("audit must not run after debate rejection")
		}
	}
	if controllers != 2 {
		t.Errorf("controller calls = %d, want 2", controllers)
	}
}

func TestRunSoftFailThenRecovers(t *testing.T) {
	attempt := 0
	cap := &fakeCap{text: func(role capability.Role, input, contextData string) (string, error) {
		if role == capability.RoleController {
			attempt++
		}
		if role == capability.RoleDebateB && attempt == 1 {
			return "REJECT_OUTPUT", nil
		}
		return happyText(role, input, contextData)
	}}
	sm := newSM(cap, 3, 100)

	art, err := sm.Run(context.Background(), textMission("x"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if art.RecheckPasses != 2 {
		t.Errorf("recheck passes = %d, want 2", art.RecheckPasses)
	}
	if len(art.RejectedAlternatives) != 1 || art.RejectedAlternatives[0] != "candidate draft" {
		t.Errorf("rejected = %v", art.RejectedAlternatives)
	}
}

func TestAttemptControllerRejection(t *testing.T) {
	cap := &fakeCap{text: func(role capability.Role, input, contextData string) (string, error) {
		if role == capability.RoleController {
			return "HALT: cannot decompose", nil
		}
		return happyText(role, input, contextData)
	}}
	sm := newSM(cap, 2, 100)

	var logs []string
	_, err := sm.attempt(context.Background(), textMission("x"), 0, &logs, nil)
	if !errors.Is(err, ErrControllerRejection) {
		t.Fatalf("err = %v", err)
	}
}

func TestAttemptAuditHalt(t *testing.T) {
	cap := &fakeCap{text: func(role capability.Role, input, contextData string) (string, error) {
		if role == capability.RoleAudit {
			return "RISK_DETECTED in edge case", nil
		}
		return happyText(role, input, contextData)
	}}
	sm := newSM(cap, 2, 100)

	var logs []string
	_, err := sm.attempt(context.Background(), textMission("x"), 0, &logs, nil)
	if !errors.Is(err, ErrAuditHalt) {
		t.Fatalf("err = %v", err)
	}
}

func TestThresholdPolicy(t *testing.T) {
	score99 := func(role capability.Role, input, contextData string) (string, error) {
		if role == capability.RoleAudit {
			return "Confidence: 99/100", nil
		}
		return happyText(role, input, contextData)
	}

	// Zero tolerance: 99 is a soft failure and the budget drains.
	strict := newSM(&fakeCap{text: score99}, 2, 100)
	if _, err := strict.Run(context.Background(), textMission("x")); !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("strict err = %v", err)
	}

	// Relaxed cut-off accepts 99 but still demands sign-off below 100.
	relaxed := newSM(&fakeCap{text: score99}, 2, 85)
	art, err := relaxed.Run(context.Background(), textMission("x"))
	if err != nil {
		t.Fatalf("relaxed run: %v", err)
	}
	if art.VerificationScore != 99 {
		t.Errorf("score = %d", art.VerificationScore)
	}
	if art.HumanActionRequired == nil {
		t.Fatal("human action must be set below 100")
	}
	if *art.HumanActionRequired != "Manual integrity sign-off required." {
		t.Errorf("message = %q", *art.HumanActionRequired)
	}
}

func TestCapabilityErrorConsumesRetry(t *testing.T) {
	boom := errors.New("quota exceeded")
	cap := &fakeCap{text: func(role capability.Role, input, contextData string) (string, error) {
		if role == capability.RoleSwarm {
			return "", boom
		}
		return happyText(role, input, contextData)
	}}
	sm := newSM(cap, 2, 100)

	_, err := sm.Run(context.Background(), textMission("x"))
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("err = %v", err)
	}
}

func TestExecutorMediaRouting(t *testing.T) {
	cap := &fakeCap{text: happyText, image: "data:image/png;base64,abc", video: "https://cdn/video.mp4", audio: "YXVkaW8="}
	exec := NewStageExecutor(cap, nil)
	ctx := context.Background()

	res, err := exec.Execute(ctx, capability.RoleMediaForge, missions.ModalityImage, "diagram", "")
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if res.Content != "data:image/png;base64,abc" || cap.imageCalls != 1 {
		t.Errorf("image routing: %q, calls=%d", res.Content, cap.imageCalls)
	}

	if _, err := exec.Execute(ctx, capability.RoleMediaForge, missions.ModalityVideo, "clip", ""); err != nil {
		t.Fatalf("video: %v", err)
	}
	if cap.videoCalls != 1 {
		t.Errorf("video calls = %d", cap.videoCalls)
	}

	if _, err := exec.Execute(ctx, capability.RoleAudioEngineer, missions.ModalityAudio, "say hi", ""); err != nil {
		t.Fatalf("audio: %v", err)
	}
	if cap.audioCalls != 1 {
		t.Errorf("audio calls = %d", cap.audioCalls)
	}

	// Non-synthesis roles always use text, whatever the mission modality.
	if _, err := exec.Execute(ctx, capability.RoleDebateA, missions.ModalityImage, "data:...", "ctx"); err != nil {
		t.Fatalf("debate: %v", err)
	}
	if cap.imageCalls != 1 {
		t.Errorf("image calls after debate = %d", cap.imageCalls)
	}
}

func TestExecutorPropagatesCapabilityError(t *testing.T) {
	cap := &fakeCap{text: happyText}
	exec := NewStageExecutor(cap, nil)

	_, err := exec.Execute(context.Background(), capability.RoleSwarm, missions.ModalityImage, "x", "")
	if !errors.Is(err, capability.ErrImageGeneration) {
		t.Fatalf("err = %v", err)
	}
}

func TestFileEmissionStructuredAsset(t *testing.T) {
	cap := &fakeCap{
		text:  happyText,
		asset: &capability.StructuredAsset{Filename: "report.csv", Content: "a,b\n1,2", MimeType: "text/csv"},
	}
	sm := newSM(cap, 2, 100)

	m := &missions.Mission{ID: "msn_f", Prompt: "make a report", Modality: missions.ModalityFile}
	art, err := sm.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if cap.assetCalls != 1 {
		t.Errorf("asset calls = %d", cap.assetCalls)
	}
	if art.FileData == nil {
		t.Fatal("file data missing")
	}
	if art.FileData.Name != "report.csv" || art.FileData.Type != "text/csv" {
		t.Errorf("file data = %+v", art.FileData)
	}
}

func TestFileEmissionSchemaFallback(t *testing.T) {
	cap := &fakeCap{text: happyText, assetErr: capability.ErrAssetSchema}
	sm := newSM(cap, 2, 100)

	m := &missions.Mission{ID: "msn_f", Prompt: "make a report", Modality: missions.ModalityFile}
	art, err := sm.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Plain emitter output, unparseable as JSON, stays raw.
	if art.FinalOutput != "Hello, operator." {
		t.Errorf("final output = %q", art.FinalOutput)
	}
	if art.FileData != nil {
		t.Errorf("file data = %+v", art.FileData)
	}
}

func TestSynthesizeCodeFileData(t *testing.T) {
	content := `{"filename":"main.go","content":"package main","mimeType":"text/x-go"}`
	art := Synthesize(missions.ModalityCode, "write main", content, nil, 100, 0, nil)
	if art.FileData == nil {
		t.Fatal("file data missing")
	}
	if art.FileData.Name != "main.go" || art.FileData.Type != "text/x-go" {
		t.Errorf("file data = %+v", art.FileData)
	}

	raw := Synthesize(missions.ModalityCode, "write main", "not json at all", nil, 100, 0, nil)
	if raw.FileData != nil {
		t.Errorf("raw fallback produced file data: %+v", raw.FileData)
	}
	if raw.FinalOutput != "not json at all" {
		t.Errorf("final output = %q", raw.FinalOutput)
	}
}

func TestSynthesizeSpecs(t *testing.T) {
	art := Synthesize(missions.ModalityText, "in", "out", []string{"l1"}, 87, 1, []string{"old"})
	if art.Specs != "Integrity: 87% | Meta-Cycles: 2" {
		t.Errorf("specs = %q", art.Specs)
	}
	if art.RecheckPasses != 2 {
		t.Errorf("recheck passes = %d", art.RecheckPasses)
	}
	if art.HumanActionRequired == nil {
		t.Error("human action must be set for score 87")
	}
	if len(art.RejectedAlternatives) != 1 {
		t.Errorf("rejected = %v", art.RejectedAlternatives)
	}
}
