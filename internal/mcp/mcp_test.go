package mcp

import (
	"encoding/json"
	"testing"

	"github.com/aegisworks/aegis/internal/events"
	"github.com/aegisworks/aegis/internal/missions"
	"github.com/aegisworks/aegis/internal/runner"
	"github.com/aegisworks/aegis/internal/vault"
)

type fakePipeline struct {
	submitted []string
}

func (p *fakePipeline) Enqueue(prompt string, _ missions.Modality, _ string) (string, error) {
	p.submitted = append(p.submitted, prompt)
	return "msn_fake0001", nil
}

func (p *fakePipeline) Observe() (*runner.Snapshot, error) {
	return &runner.Snapshot{Autonomous: true}, nil
}

func TestNewMCPServer(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()

	vlt, err := vault.New(nil, bus, nil)
	if err != nil {
		t.Fatal(err)
	}

	server := NewMCPServer(&fakePipeline{}, vlt)
	if server == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestSubmitMissionToolSchema(t *testing.T) {
	tool := submitMissionTool()

	if tool.Name != "submit_mission" {
		t.Errorf("Name = %q", tool.Name)
	}

	schemaBytes, err := json.Marshal(tool.InputSchema)
	if err != nil {
		t.Fatalf("marshal InputSchema: %v", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		t.Fatalf("unmarshal InputSchema: %v", err)
	}

	if schema["type"] != "object" {
		t.Errorf("schema type = %v", schema["type"])
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatal("schema properties not a map")
	}
	if len(props) != 2 {
		t.Errorf("schema properties len = %d, want 2", len(props))
	}

	req, ok := schema["required"].([]any)
	if !ok {
		t.Fatal("schema required not an array")
	}
	if len(req) != 1 || req[0] != "prompt" {
		t.Errorf("schema required = %v, want [prompt]", req)
	}

	modalityProp, ok := props["modality"].(map[string]any)
	if !ok {
		t.Fatal("modality property not a map")
	}
	enumVal, ok := modalityProp["enum"].([]any)
	if !ok {
		t.Fatal("modality enum not an array")
	}
	if len(enumVal) != 6 {
		t.Errorf("modality enum len = %d, want 6", len(enumVal))
	}
}

func TestObservePipelineToolSchema(t *testing.T) {
	tool := observePipelineTool()

	schemaBytes, err := json.Marshal(tool.InputSchema)
	if err != nil {
		t.Fatalf("marshal InputSchema: %v", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		t.Fatalf("unmarshal InputSchema: %v", err)
	}

	if schema["type"] != "object" {
		t.Errorf("schema type = %v", schema["type"])
	}
	if _, ok := schema["required"]; ok {
		t.Error("schema should not have required field when no params are required")
	}
}
