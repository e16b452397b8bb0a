// Package pipeline drives a mission through the fixed stage sequence
// Control, Swarm, Debate A/B, Audit, Refine, Emit and synthesizes the
// resulting artifact.
package pipeline

import (
	"time"

	"github.com/aegisworks/aegis/internal/capability"
)

// StepStatus classifies the outcome of one stage invocation.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepFailure StepStatus = "failure"
	StepWarning StepStatus = "warning"
)

// StepResult is the immutable outcome of one stage invocation.
type StepResult struct {
	Role      capability.Role `json:"role"`
	Content   string          `json:"content"`
	Status    StepStatus      `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}
