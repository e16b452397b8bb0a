package models

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/aegisworks/aegis/internal/config"
)

const defaultGeminiModel = "gemini-3-flash-preview"

// GeminiChatModel implements model.ToolCallingChatModel over the genai SDK.
// Sampling temperature is pinned to 0 for deterministic output; the
// thinking budget comes from provider options.
type GeminiChatModel struct {
	client         *genai.Client
	modelName      string
	maxTokens      int
	thinkingBudget int32
	tools          []*schema.ToolInfo
}

// NewGemini creates a new Gemini ToolCallingChatModel.
func NewGemini(ctx context.Context, cfg config.ProviderConfig, auth ResolvedAuth) (model.ToolCallingChatModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  auth.Value,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, HandleError(err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	var budget int32
	if v, ok := cfg.Options["thinking_budget"].(float64); ok {
		budget = int32(v)
	}

	return &GeminiChatModel{
		client:         client,
		modelName:      modelName,
		maxTokens:      cfg.MaxTokens,
		thinkingBudget: budget,
	}, nil
}

func (m *GeminiChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (outMsg *schema.Message, err error) {
	ctx = callbacks.EnsureRunInfo(ctx, "Gemini", components.ComponentOfChatModel)

	cbInput := &model.CallbackInput{
		Messages: messages,
		Tools:    m.tools,
		Config:   &model.Config{Model: m.modelName},
	}
	ctx = callbacks.OnStart(ctx, cbInput)
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	genCfg, contents := m.buildRequest(messages, opts)
	resp, err := m.client.Models.GenerateContent(ctx, m.modelName, contents, genCfg)
	if err != nil {
		return nil, HandleError(err)
	}

	outMsg = &schema.Message{
		Role:    schema.Assistant,
		Content: resp.Text(),
	}
	usage := &model.TokenUsage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message:    outMsg,
		Config:     cbInput.Config,
		TokenUsage: usage,
	})
	return outMsg, nil
}

// Stream satisfies the interface with a single-chunk stream; the genai
// response is collected in full before emission.
func (m *GeminiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *GeminiChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &GeminiChatModel{
		client:         m.client,
		modelName:      m.modelName,
		maxTokens:      m.maxTokens,
		thinkingBudget: m.thinkingBudget,
		tools:          tools,
	}, nil
}

func (m *GeminiChatModel) buildRequest(messages []*schema.Message, opts []model.Option) (*genai.GenerateContentConfig, []*genai.Content) {
	options := model.GetCommonOptions(&model.Options{
		MaxTokens: &m.maxTokens,
	}, opts...)

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(m.thinkingBudget),
		},
	}
	if options.MaxTokens != nil && *options.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(*options.MaxTokens)
	}

	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case schema.System:
			genCfg.SystemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(m.tools) > 0 {
		tool := &genai.Tool{}
		for _, t := range m.tools {
			decl := &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Desc,
			}
			if t.ParamsOneOf != nil {
				if js, err := t.ParamsOneOf.ToJSONSchema(); err == nil && js != nil {
					if data, merr := json.Marshal(js); merr == nil {
						var raw map[string]any
						if json.Unmarshal(data, &raw) == nil {
							decl.ParametersJsonSchema = raw
						}
					}
				}
			}
			tool.FunctionDeclarations = append(tool.FunctionDeclarations, decl)
		}
		genCfg.Tools = []*genai.Tool{tool}
	}

	return genCfg, contents
}

var _ model.ToolCallingChatModel = (*GeminiChatModel)(nil)
