package capability

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// ChatProvider resolves a tier to a ready chat model.
type ChatProvider interface {
	Model(tier Tier) (model.ToolCallingChatModel, error)
}

// Default media model names. Overridable through EngineOptions.
const (
	defaultImageModel = "gemini-3-pro-image-preview"
	defaultVideoModel = "veo-3.1-fast-generate-preview"
	defaultAudioModel = "gemini-2.5-flash-preview-tts"
	defaultAssetModel = "gemini-3-pro-preview"

	defaultVideoPollInterval = 10 * time.Second
)

// EngineOptions tunes the Gemini-backed engine.
type EngineOptions struct {
	ImageModel        string
	VideoModel        string
	AudioModel        string
	AssetModel        string
	VideoPollInterval time.Duration
}

func (o *EngineOptions) applyDefaults() {
	if o.ImageModel == "" {
		o.ImageModel = defaultImageModel
	}
	if o.VideoModel == "" {
		o.VideoModel = defaultVideoModel
	}
	if o.AudioModel == "" {
		o.AudioModel = defaultAudioModel
	}
	if o.AssetModel == "" {
		o.AssetModel = defaultAssetModel
	}
	if o.VideoPollInterval <= 0 {
		o.VideoPollInterval = defaultVideoPollInterval
	}
}

// Engine is the production Capability backed by Google Gemini. Text runs
// through the chat model registry; media and structured assets go straight
// to the genai SDK.
type Engine struct {
	client *genai.Client
	chat   ChatProvider
	opts   EngineOptions
	logger *slog.Logger
}

func NewEngine(client *genai.Client, chat ChatProvider, opts EngineOptions, logger *slog.Logger) *Engine {
	opts.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{client: client, chat: chat, opts: opts, logger: logger}
}

// GenerateText runs one role-scoped generation on the tier's chat model.
func (e *Engine) GenerateText(ctx context.Context, role Role, input, contextData string, tier Tier) (string, error) {
	cm, err := e.chat.Model(tier)
	if err != nil {
		return "", fmt.Errorf("resolve %s model: %w", tier, err)
	}

	msgs := []*schema.Message{
		schema.SystemMessage(RoleInstructions[role]),
		schema.UserMessage(fmt.Sprintf("[%s] Mission Data: %s | Context: %s", role, input, contextData)),
	}

	e.logger.Debug("generate text", "role", string(role), "tier", string(tier))
	out, err := cm.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", role, err)
	}
	return out.Content, nil
}

// GenerateImage produces a single still image and returns it as a data URL.
func (e *Engine) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := e.client.Models.GenerateContent(ctx, e.opts.ImageModel,
		genai.Text("Deterministic industrial documentation asset: "+prompt),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		})
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return "data:image/png;base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
			}
		}
	}
	return "", ErrImageGeneration
}

// GenerateVideo starts a video render and polls until the operation settles.
func (e *Engine) GenerateVideo(ctx context.Context, prompt string) (string, error) {
	op, err := e.client.Models.GenerateVideos(ctx, e.opts.VideoModel,
		"Industrial system documentation, clean, technical: "+prompt,
		nil,
		&genai.GenerateVideosConfig{
			NumberOfVideos: 1,
			Resolution:     "1080p",
			AspectRatio:    "16:9",
		})
	if err != nil {
		return "", fmt.Errorf("start video generation: %w", err)
	}

	ticker := time.NewTicker(e.opts.VideoPollInterval)
	defer ticker.Stop()
	for !op.Done {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		op, err = e.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return "", fmt.Errorf("poll video operation: %w", err)
		}
		e.logger.Debug("video operation polled", "done", op.Done)
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 ||
		op.Response.GeneratedVideos[0].Video == nil ||
		op.Response.GeneratedVideos[0].Video.URI == "" {
		return "", ErrVideoGeneration
	}
	return op.Response.GeneratedVideos[0].Video.URI, nil
}

// GenerateAudio synthesizes speech for the given text, returned as base64.
func (e *Engine) GenerateAudio(ctx context.Context, text string) (string, error) {
	resp, err := e.client.Models.GenerateContent(ctx, e.opts.AudioModel,
		genai.Text("Aegis Command: "+text),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: "Zephyr"},
				},
			},
		})
	if err != nil {
		return "", fmt.Errorf("generate audio: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
			}
		}
	}
	return "", ErrSpeechSynthesis
}

// GenerateStructuredAsset asks for a schema-constrained JSON file asset.
// Schema violations come back wrapped in ErrAssetSchema so callers can
// treat them as soft failures.
func (e *Engine) GenerateStructuredAsset(ctx context.Context, prompt string) (*StructuredAsset, error) {
	resp, err := e.client.Models.GenerateContent(ctx, e.opts.AssetModel,
		genai.Text("System Request: Generate a professional file based on: "+prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"filename": {Type: genai.TypeString},
					"content":  {Type: genai.TypeString},
					"mimeType": {Type: genai.TypeString},
				},
				Required: []string{"filename", "content", "mimeType"},
			},
		})
	if err != nil {
		return nil, fmt.Errorf("generate asset: %w", err)
	}

	var asset StructuredAsset
	if err := json.Unmarshal([]byte(resp.Text()), &asset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetSchema, err)
	}
	if asset.Filename == "" || asset.Content == "" {
		return nil, ErrAssetSchema
	}
	return &asset, nil
}
