package pipeline

import (
	"errors"
	"fmt"
)

// Hard failures abort the current attempt and surface to the retry loop.
var (
	ErrControllerRejection = errors.New("controller rejection")
	ErrAuditHalt           = errors.New("audit halt")
	ErrRefineFailure       = errors.New("refine stage failure")
	ErrRetryExhausted      = errors.New("retry budget exhausted")
)

// softFailure restarts the run from Control, consuming one retry. The
// discarded candidate is kept for the artifact's rejected alternatives.
type softFailure struct {
	reason    string
	candidate string
}

func (s *softFailure) Error() string {
	return fmt.Sprintf("soft failure: %s", s.reason)
}
