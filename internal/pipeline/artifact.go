package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aegisworks/aegis/internal/capability"
	"github.com/aegisworks/aegis/internal/missions"
)

// FileData is the decoded file payload of a structured artifact.
type FileData struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Blob string `json:"blob"` // base64-encoded content
}

// FinalArtifact is the durable, immutable output of a successful run.
type FinalArtifact struct {
	ID                   string            `json:"id"`
	Modality             missions.Modality `json:"modality"`
	OriginalInput        string            `json:"original_input"`
	FinalOutput          string            `json:"final_output"`
	SourceChain          []capability.Role `json:"source_chain"`
	VerificationScore    int               `json:"verification_score"`
	RecheckPasses        int               `json:"recheck_passes"`
	Logs                 []string          `json:"logs"`
	RejectedAlternatives []string          `json:"rejected_alternatives,omitempty"`
	HumanActionRequired  *string           `json:"human_action_required"`
	FileData             *FileData         `json:"file_data,omitempty"`
	Specs                string            `json:"specs"`
	SafeUsageScope       string            `json:"safe_usage_scope"`
	Limitations          []string          `json:"limitations"`
	EmissionSpecs        string            `json:"emission_specs"`
	CreatedAt            time.Time         `json:"created_at"`
}

// sourceChain is the canonical audit trail for this pipeline version.
var sourceChain = []capability.Role{
	capability.RoleController,
	capability.RoleSwarm,
	capability.RoleDebateA,
	capability.RoleAudit,
	capability.RoleEmitter,
}

const signOffMessage = "Manual integrity sign-off required."

// GenerateArtifactID creates a unique artifact identifier.
func GenerateArtifactID() string {
	u := uuid.New().String()
	return "art_" + strings.ReplaceAll(u[:8], "-", "")
}

var scoreRe = regexp.MustCompile(`(\d{1,3})/100`)

// ParseScore extracts the first "<int>/100" match from audit content.
// No match yields 0.
func ParseScore(content string) int {
	m := scoreRe.FindStringSubmatch(content)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > 100 {
		return 0
	}
	return n
}

// structuredContent is the wire shape emitted for code and file assets.
type structuredContent struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

// Synthesize builds the final artifact from a completed run. Pure except
// for id generation and the creation timestamp.
func Synthesize(modality missions.Modality, input, content string, logs []string, score, retries int, rejected []string) *FinalArtifact {
	var fileData *FileData
	if modality == missions.ModalityCode || modality == missions.ModalityFile {
		var parsed structuredContent
		if err := json.Unmarshal([]byte(content), &parsed); err == nil {
			raw := parsed.Content
			if raw == "" {
				raw = content
			}
			name := parsed.Filename
			if name == "" {
				name = "asset.txt"
			}
			mime := parsed.MimeType
			if mime == "" {
				mime = "text/plain"
			}
			fileData = &FileData{
				Name: name,
				Type: mime,
				Blob: base64.StdEncoding.EncodeToString([]byte(raw)),
			}
		}
		// Unparseable content stays as raw text output.
	}

	var humanAction *string
	if score < 100 {
		msg := signOffMessage
		humanAction = &msg
	}

	return &FinalArtifact{
		ID:                   GenerateArtifactID(),
		Modality:             modality,
		OriginalInput:        input,
		FinalOutput:          content,
		SourceChain:          sourceChain,
		VerificationScore:    score,
		RecheckPasses:        retries + 1,
		Logs:                 logs,
		RejectedAlternatives: rejected,
		HumanActionRequired:  humanAction,
		FileData:             fileData,
		Specs:                fmt.Sprintf("Integrity: %d%% | Meta-Cycles: %d", score, retries+1),
		SafeUsageScope:       "Universal industrial deployment within verified command parameters.",
		Limitations:          []string{"Stateless command loop", "Execution sandbox recommended"},
		EmissionSpecs:        "Protocol_v7.5_META // Verified_By_Consensus",
		CreatedAt:            time.Now(),
	}
}
