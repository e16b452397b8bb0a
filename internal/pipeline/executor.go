package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aegisworks/aegis/internal/capability"
	"github.com/aegisworks/aegis/internal/missions"
)

// StageExecutor invokes the generation capability for a single stage and
// classifies the result. Capability errors propagate as returned errors,
// distinct from content-classified failures.
type StageExecutor struct {
	cap    capability.Capability
	logger *slog.Logger
}

func NewStageExecutor(cap capability.Capability, logger *slog.Logger) *StageExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &StageExecutor{cap: cap, logger: logger}
}

func isSynthesisRole(role capability.Role) bool {
	switch role {
	case capability.RoleSwarm, capability.RoleMediaForge, capability.RoleAudioEngineer:
		return true
	default:
		return false
	}
}

// Execute runs one stage. The capability sub-call is chosen by (role,
// modality): media variants at the candidate synthesis stage, text
// generation everywhere else.
func (e *StageExecutor) Execute(ctx context.Context, role capability.Role, modality missions.Modality, input, contextData string) (*StepResult, error) {
	tier := capability.TierFor(role)

	var content string
	var err error
	switch {
	case modality == missions.ModalityImage && isSynthesisRole(role):
		content, err = e.cap.GenerateImage(ctx, input)
	case modality == missions.ModalityVideo && isSynthesisRole(role):
		content, err = e.cap.GenerateVideo(ctx, input)
	case modality == missions.ModalityAudio && role == capability.RoleAudioEngineer:
		content, err = e.cap.GenerateAudio(ctx, input)
	default:
		content, err = e.cap.GenerateText(ctx, role, input, contextData, tier)
	}
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", role, err)
	}

	result := &StepResult{
		Role:      role,
		Content:   content,
		Status:    Classify(content),
		Timestamp: time.Now(),
	}
	e.logger.Debug("stage executed",
		"role", string(role),
		"tier", string(tier),
		"status", string(result.Status))
	return result, nil
}
