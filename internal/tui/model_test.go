package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/foundrylabs/foundryctl/internal/campaign"
	"github.com/foundrylabs/foundryctl/internal/session"
)

func entry(text string) session.LogEntry {
	return session.LogEntry{ID: text, Time: time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC), Text: text}
}

func TestRenderLogOrdersAndTimestamps(t *testing.T) {
	out := renderLog([]session.LogEntry{
		entry("STATUS: Connected to server. Ready to run."),
		entry("PLANNER_AGENT: Planned topic: AI webinars"),
	}, 80)

	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "10:30:00") {
		t.Errorf("missing timestamp: %q", lines[0])
	}
	if !strings.Contains(lines[1], "Planned topic: AI webinars") {
		t.Errorf("line = %q", lines[1])
	}
}

func TestRenderLogSeparatorRule(t *testing.T) {
	sep := entry("STATUS: Sending prompt to Foundry...")
	sep.Separator = true
	out := renderLog([]session.LogEntry{entry("a"), sep}, 40)

	if !strings.Contains(out, "────") {
		t.Errorf("expected separator rule in:\n%s", out)
	}
}

func TestRenderCardsReadiness(t *testing.T) {
	var a campaign.Artifacts
	out := renderCards(a, 200)
	if strings.Contains(out, "✓") {
		t.Errorf("no artifact should be ready yet:\n%s", out)
	}

	a.Planner = &campaign.PlannerArtifact{}
	a.Web = &campaign.WebArtifact{LandingPageCode: "<html></html>"}
	out = renderCards(a, 200)
	if got := strings.Count(out, "✓"); got != 2 {
		t.Errorf("ready marks = %d, want 2:\n%s", got, out)
	}
}

func TestRenderCardsNarrowFallback(t *testing.T) {
	var a campaign.Artifacts
	a.BRD = &campaign.BRDArtifact{URL: "output/x.pdf"}
	out := renderCards(a, 20)
	if strings.Contains(out, "╭") {
		t.Errorf("narrow render should not use borders:\n%s", out)
	}
	if !strings.Contains(out, "✓BRD") {
		t.Errorf("compact render = %q", out)
	}
}

func TestRenderSnapshot(t *testing.T) {
	if out := renderSnapshot(nil, nil); !strings.Contains(out, "No snapshot") {
		t.Errorf("empty snapshot = %q", out)
	}

	topic := "AI webinars"
	out := renderSnapshot(&campaign.State{Topic: &topic}, nil)
	if !strings.Contains(out, `"topic": "AI webinars"`) {
		t.Errorf("snapshot pane = %q", out)
	}

	out = renderSnapshot(nil, []byte(`{"goal":"launch"}`))
	if !strings.Contains(out, `"goal": "launch"`) {
		t.Errorf("raw snapshot pane = %q", out)
	}
}

func TestArtifactReadyCoversAllAgents(t *testing.T) {
	a := campaign.Artifacts{
		Planner:  &campaign.PlannerArtifact{},
		Research: &campaign.ResearchArtifact{},
		Content:  &campaign.ContentArtifact{},
		Design:   &campaign.DesignArtifact{},
		Web:      &campaign.WebArtifact{},
		BRD:      &campaign.BRDArtifact{},
		Strategy: &campaign.StrategyArtifact{},
	}
	for _, agent := range campaign.Agents {
		if !artifactReady(a, agent) {
			t.Errorf("agent %s should be ready", agent)
		}
	}
	if artifactReady(campaign.Artifacts{}, campaign.AgentPlanner) {
		t.Error("empty artifacts reported ready")
	}
}
