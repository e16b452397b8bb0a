// Package capability defines the generation roles, model tiers, and the
// backend-neutral interface the pipeline calls to produce content.
package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/aegisworks/aegis/internal/missions"
)

// Role identifies one generation persona in the pipeline.
type Role string

const (
	RoleController Role = "META_BRAIN_CONTROLLER"
	RoleSwarm      Role = "SWARM_GENERATOR"
	RoleDebateA    Role = "DEBATE_ENGINE_A"
	RoleDebateB    Role = "DEBATE_ENGINE_B"
	RoleAudit      Role = "ERROR_INTELLIGENCE_AUDIT"
	RoleRefiner    Role = "INTENT_FILTER_REFINER"
	RoleEmitter    Role = "OUTPUT_FORGE_EMITTER"

	// Modality specialists used at the Swarm stage.
	RoleCodeArchitect Role = "CODE_ARCHITECT"
	RoleMediaForge    Role = "MEDIA_FORGE"
	RoleAudioEngineer Role = "AUDIO_ENGINEER"
	RoleFileMaestro   Role = "FILE_SYSTEM_MAESTRO"
)

// AllRoles lists every role the system knows about.
var AllRoles = []Role{
	RoleController, RoleSwarm, RoleDebateA, RoleDebateB,
	RoleAudit, RoleRefiner, RoleEmitter,
	RoleCodeArchitect, RoleMediaForge, RoleAudioEngineer, RoleFileMaestro,
}

// RoleInstructions maps each role to its system prompt.
var RoleInstructions = map[Role]string{
	RoleController: "ROLE: META-BRAIN CONTROLLER (LAYER 1). TASK: Decompose task into atomic sub-tasks. Absolute logic only. Select optimal swarm routing. Zero inference allowed.",

	RoleSwarm: "ROLE: SWARM GENERATOR (LAYER 2). TASK: Execute sub-tasks with maximum technical fidelity. Deterministic output only. Produce raw candidate for debate.",

	RoleDebateA: "ROLE: DEBATE ENGINE A (LAYER 3). TASK: Challenge the swarm output. Find every logical weakness. Force evidence-based convergence.",

	RoleDebateB: "ROLE: DEBATE ENGINE B (LAYER 3). TASK: Defend the swarm output with data. Resolve contradictions. If consensus < 100%, flag for rejection.",

	RoleAudit: "ROLE: ERROR INTELLIGENCE (LAYER 4). TASK: Stress-test against edge cases. Detect structural weaknesses or execution risks. Halt if failure possible.",

	RoleRefiner: "ROLE: INTENT FILTER (LAYER 6). TASK: Strip complexity. Align strictly with User Intent. Rewrite for maximum execution efficiency.",

	RoleEmitter: "ROLE: OUTPUT FORGE (LAYER 7). TASK: Final assembly of validated components. Emission of production-ready binary or text assets.",

	RoleCodeArchitect: "ROLE: CODE ARCHITECT. TASK: Production-grade coding systems. Zero bugs. Maximum performance.",

	RoleMediaForge: "ROLE: MEDIA FORGE. TASK: Industrial-quality visual synthesis. Clean, technical, aligned with mission parameters.",

	RoleAudioEngineer: "ROLE: AUDIO ENGINEER. TASK: High-fidelity audio synthesis. Accurate acoustic representation of command intent.",

	RoleFileMaestro: "ROLE: FILE SYSTEM MAESTRO. TASK: Handling serialization, packaging, and binary integrity of system assets.",
}

// ValidateRoles ensures the instruction table covers every known role.
// Called once at startup so a table drift fails fast.
func ValidateRoles() error {
	for _, r := range AllRoles {
		if RoleInstructions[r] == "" {
			return fmt.Errorf("role %s has no instruction", r)
		}
	}
	return nil
}

// Tier selects the model class a role runs on.
type Tier string

const (
	TierCapable Tier = "capable"
	TierFast    Tier = "fast"
)

// TierFor maps a role to its model tier. The controller and the emitter
// carry the heaviest reasoning load and get the capable tier.
func TierFor(role Role) Tier {
	switch role {
	case RoleController, RoleEmitter:
		return TierCapable
	default:
		return TierFast
	}
}

// SpecialistFor returns the swarm-stage specialist for a modality, or the
// plain swarm role when no specialist applies.
func SpecialistFor(m missions.Modality) Role {
	switch m {
	case missions.ModalityCode:
		return RoleCodeArchitect
	case missions.ModalityImage, missions.ModalityVideo:
		return RoleMediaForge
	case missions.ModalityAudio:
		return RoleAudioEngineer
	case missions.ModalityFile:
		return RoleFileMaestro
	default:
		return RoleSwarm
	}
}

// StructuredAsset is the schema-constrained output of file generation.
type StructuredAsset struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

var (
	ErrImageGeneration = errors.New("image generation produced no inline data")
	ErrVideoGeneration = errors.New("video generation produced no uri")
	ErrSpeechSynthesis = errors.New("speech synthesis produced no audio data")
	ErrAssetSchema     = errors.New("structured asset violates schema")
)

// Capability is the generation backend the pipeline talks to.
type Capability interface {
	GenerateText(ctx context.Context, role Role, input, contextData string, tier Tier) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	GenerateVideo(ctx context.Context, prompt string) (string, error)
	GenerateAudio(ctx context.Context, text string) (string, error)
	GenerateStructuredAsset(ctx context.Context, prompt string) (*StructuredAsset, error)
}
