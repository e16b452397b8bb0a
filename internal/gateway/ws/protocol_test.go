package ws

import (
	"encoding/json"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	f, err := NewEventFrame("mission.queued", "msn_ab12cd34", map[string]string{"prompt": "hello"})
	if err != nil {
		t.Fatalf("new event frame: %v", err)
	}

	data, err := MarshalFrame(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := UnmarshalFrame(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != FrameTypeEvent {
		t.Errorf("type = %q", got.Type)
	}
	if got.Event != "mission.queued" {
		t.Errorf("event = %q", got.Event)
	}
	if got.MissionID != "msn_ab12cd34" {
		t.Errorf("mission id = %q", got.MissionID)
	}

	var payload map[string]string
	if err := json.Unmarshal(got.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["prompt"] != "hello" {
		t.Errorf("payload = %v", payload)
	}
}

func TestResponseFrame(t *testing.T) {
	f, err := NewResponseFrame("req-1", false, nil, "boom")
	if err != nil {
		t.Fatalf("new response frame: %v", err)
	}
	if f.OK == nil || *f.OK {
		t.Error("ok should be false")
	}
	if f.Error != "boom" {
		t.Errorf("error = %q", f.Error)
	}
	if f.ID != "req-1" {
		t.Errorf("id = %q", f.ID)
	}
}

func TestUnmarshalFrameRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalFrame([]byte("{not json")); err == nil {
		t.Error("expected error")
	}
}
