package protocol

import (
	"errors"
	"testing"
)

func TestParseStep(t *testing.T) {
	frame := []byte(`{"event":"step","node":"planner_agent","data":"{\"goal\":\"G\",\"topic\":\"T\"}"}`)

	ev, err := Parse(frame)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	step, ok := ev.(*Step)
	if !ok {
		t.Fatalf("expected *Step, got %T", ev)
	}
	if step.Node != "planner_agent" {
		t.Errorf("node = %q", step.Node)
	}
	if step.State == nil || step.State.Goal == nil || *step.State.Goal != "G" {
		t.Errorf("unexpected state: %+v", step.State)
	}
	if string(step.Raw) != `{"goal":"G","topic":"T"}` {
		t.Errorf("raw = %s", step.Raw)
	}
}

func TestParseDoneAndError(t *testing.T) {
	ev, err := Parse([]byte(`{"event":"done"}`))
	if err != nil {
		t.Fatalf("Parse done: %v", err)
	}
	if _, ok := ev.(*Done); !ok {
		t.Errorf("expected *Done, got %T", ev)
	}

	ev, err = Parse([]byte(`{"event":"error","data":"planner exploded"}`))
	if err != nil {
		t.Fatalf("Parse error frame: %v", err)
	}
	se, ok := ev.(*StreamError)
	if !ok {
		t.Fatalf("expected *StreamError, got %T", ev)
	}
	if se.Message != "planner exploded" {
		t.Errorf("message = %q", se.Message)
	}
}

func TestParseMalformedOuter(t *testing.T) {
	if _, err := Parse([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed outer JSON")
	}
}

func TestParseMalformedInnerIsPayloadError(t *testing.T) {
	frame := []byte(`{"event":"step","node":"web_agent","data":"{broken"}`)

	_, err := Parse(frame)
	var pe *PayloadError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PayloadError, got %v", err)
	}
	if pe.Node != "web_agent" {
		t.Errorf("node = %q", pe.Node)
	}
}

func TestParseUnknownEvent(t *testing.T) {
	if _, err := Parse([]byte(`{"event":"ping"}`)); err == nil {
		t.Fatal("expected error for unknown event")
	}
}

func TestEncodeStart(t *testing.T) {
	data, err := EncodeStart("launch a webinar")
	if err != nil {
		t.Fatalf("EncodeStart: %v", err)
	}
	if string(data) != `{"initial_prompt":"launch a webinar"}` {
		t.Errorf("frame = %s", data)
	}
}
