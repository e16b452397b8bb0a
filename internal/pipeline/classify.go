package pipeline

import "strings"

// failureTokens are the exact, case-sensitive markers that classify stage
// content as a failure. Compatibility depends on this token set being
// checked verbatim; do not extend it without versioning the pipeline.
var failureTokens = []string{"HALT", "FAILURE", "CERTAINTY_LOW"}

// Classify returns the step status for raw stage content. Pure function.
func Classify(content string) StepStatus {
	for _, token := range failureTokens {
		if strings.Contains(content, token) {
			return StepFailure
		}
	}
	return StepSuccess
}
