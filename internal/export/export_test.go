package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/foundrylabs/foundryctl/internal/store"
)

func sampleRun() *store.Run {
	now := time.Now()
	return &store.Run{ID: "run-1", Prompt: "launch a webinar", Status: "completed", CreatedAt: now, UpdatedAt: now}
}

func TestBuildDecodesArtifacts(t *testing.T) {
	b := Build(sampleRun(), map[string][]byte{
		"planner_agent": []byte(`{"topic":"AI webinars"}`),
		"brd_agent":     []byte(`not-json`),
	})

	if b.RunID != "run-1" || b.Status != "completed" {
		t.Errorf("bundle header = %+v", b)
	}
	if len(b.Agents) != 2 || b.Agents[0] != "brd_agent" || b.Agents[1] != "planner_agent" {
		t.Errorf("agents = %v, want sorted", b.Agents)
	}
	planner, ok := b.Artifacts["planner_agent"].(map[string]any)
	if !ok || planner["topic"] != "AI webinars" {
		t.Errorf("planner artifact = %v", b.Artifacts["planner_agent"])
	}
	if b.Artifacts["brd_agent"] != "not-json" {
		t.Errorf("undecodable payload should survive as string, got %v", b.Artifacts["brd_agent"])
	}
}

func TestEncodeJSON(t *testing.T) {
	b := Build(sampleRun(), map[string][]byte{"planner_agent": []byte(`{"topic":"x"}`)})

	var buf bytes.Buffer
	if err := b.Encode(&buf, "json"); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var out Bundle
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if out.RunID != "run-1" {
		t.Errorf("round-tripped run_id = %q", out.RunID)
	}
}

func TestEncodeYAML(t *testing.T) {
	b := Build(sampleRun(), map[string][]byte{"planner_agent": []byte(`{"topic":"x"}`)})

	var buf bytes.Buffer
	if err := b.Encode(&buf, "yaml"); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var out map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if out["run_id"] != "run-1" {
		t.Errorf("run_id = %v", out["run_id"])
	}
	if !strings.Contains(buf.String(), "planner_agent:") {
		t.Errorf("yaml = %s", buf.String())
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	b := Build(sampleRun(), nil)
	if err := b.Encode(&bytes.Buffer{}, "toml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
