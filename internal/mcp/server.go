// Package mcp exposes the mission pipeline as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aegisworks/aegis/internal/missions"
	"github.com/aegisworks/aegis/internal/runner"
	"github.com/aegisworks/aegis/internal/vault"
)

// Pipeline is the slice of the runner the MCP tools need.
type Pipeline interface {
	Enqueue(prompt string, modality missions.Modality, origin string) (string, error)
	Observe() (*runner.Snapshot, error)
}

// NewMCPServer creates an MCP server exposing the pipeline tools.
func NewMCPServer(pipeline Pipeline, vlt *vault.Vault) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "aegis",
		Version: "0.1.0",
	}, nil)

	server.AddTool(submitMissionTool(), func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args struct {
			Prompt   string `json:"prompt"`
			Modality string `json:"modality"`
		}
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return errorResult(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		if args.Prompt == "" {
			return errorResult(fmt.Errorf("prompt is required")), nil
		}
		modality, err := missions.ParseModality(args.Modality)
		if err != nil {
			return errorResult(err), nil
		}

		id, err := pipeline.Enqueue(args.Prompt, modality, "mcp")
		if err != nil {
			slog.Debug("mcp submit_mission", "error", err)
			return errorResult(err), nil
		}
		return textResult(fmt.Sprintf("mission %s queued", id)), nil
	})

	server.AddTool(observePipelineTool(), func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		snap, err := pipeline.Observe()
		if err != nil {
			slog.Debug("mcp observe_pipeline", "error", err)
			return errorResult(err), nil
		}
		return jsonResult(snap)
	})

	server.AddTool(listArtifactsTool(), func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args struct {
			Pending bool `json:"pending"`
		}
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}
		if args.Pending {
			return jsonResult(vlt.Pending())
		}
		return jsonResult(vlt.Snapshot())
	})

	return server
}

func submitMissionTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "submit_mission",
		Description: "Queue a mission for autonomous execution through the verification pipeline.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "The mission directive to execute",
				},
				"modality": map[string]any{
					"type":        "string",
					"description": "The output modality",
					"enum":        []string{"TEXT", "IMAGE", "VIDEO", "AUDIO", "FILE", "CODE"},
					"default":     "TEXT",
				},
			},
			"required": []string{"prompt"},
		},
	}
}

func observePipelineTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "observe_pipeline",
		Description: "Return the current pipeline state: missions, vaulted artifacts, pending escalations and runner mode.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

func listArtifactsTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "list_artifacts",
		Description: "List vaulted artifacts, or artifacts awaiting human sign-off.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pending": map[string]any{
					"type":        "boolean",
					"description": "Only list artifacts awaiting sign-off",
					"default":     false,
				},
			},
		},
	}
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}
}

func errorResult(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
	}
}

func jsonResult(v any) (*mcpsdk.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return textResult(string(data)), nil
}
