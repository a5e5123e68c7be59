package campaign

import (
	"encoding/json"
	"reflect"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestApplyPlannerFillsAllFields(t *testing.T) {
	var a Artifacts
	st := &State{Goal: strPtr("G"), Topic: strPtr("T")}

	if !a.Apply(AgentPlanner, st) {
		t.Fatal("expected planner apply to report a change")
	}
	if a.Planner == nil {
		t.Fatal("planner artifact not set")
	}
	if *a.Planner.Goal != "G" || *a.Planner.Topic != "T" {
		t.Errorf("unexpected planner fields: %+v", a.Planner)
	}
	// Missing payload fields surface as nil, not zero values.
	if a.Planner.TargetAudience != nil || a.Planner.SourceDocsURL != nil || a.Planner.CampaignDate != nil {
		t.Errorf("expected absent fields to stay nil: %+v", a.Planner)
	}
}

func TestApplyResearchDefaultsToEmptyMaps(t *testing.T) {
	var a Artifacts
	if !a.Apply(AgentResearch, &State{}) {
		t.Fatal("expected research apply to report a change")
	}
	if a.Research.AudiencePersona == nil || a.Research.CoreMessaging == nil {
		t.Errorf("expected empty maps, got %+v", a.Research)
	}
	if len(a.Research.AudiencePersona) != 0 {
		t.Errorf("expected empty persona, got %v", a.Research.AudiencePersona)
	}
}

func TestApplyContentDefaults(t *testing.T) {
	var a Artifacts
	a.Apply(AgentContent, &State{})
	if a.Content.WebinarDetails == nil || a.Content.SocialPosts == nil {
		t.Errorf("expected empty defaults, got %+v", a.Content)
	}
}

func TestApplyGatedAgentsLeavePriorValueWhenFieldAbsent(t *testing.T) {
	tests := []struct {
		agent Agent
		first *State
		check func(a *Artifacts) bool
	}{
		{AgentDesign, &State{GeneratedAssets: map[string]string{"logo_url": "u"}}, func(a *Artifacts) bool {
			return a.Design != nil && a.Design.GeneratedAssets["logo_url"] == "u"
		}},
		{AgentWeb, &State{LandingPageCode: strPtr("<html></html>")}, func(a *Artifacts) bool {
			return a.Web != nil && a.Web.LandingPageCode == "<html></html>"
		}},
		{AgentBRD, &State{BrdURL: strPtr("output/x_brd.pdf")}, func(a *Artifacts) bool {
			return a.BRD != nil && a.BRD.URL == "output/x_brd.pdf"
		}},
		{AgentStrategy, &State{StrategyMarkdown: strPtr("## S\nline")}, func(a *Artifacts) bool {
			return a.Strategy != nil && a.Strategy.Markdown == "## S\nline"
		}},
	}

	for _, tt := range tests {
		var a Artifacts
		if !a.Apply(tt.agent, tt.first) {
			t.Errorf("%s: first apply should change", tt.agent)
		}
		// A later step without the field must not clear the prior value.
		if a.Apply(tt.agent, &State{}) {
			t.Errorf("%s: apply without field should not report change", tt.agent)
		}
		if !tt.check(&a) {
			t.Errorf("%s: prior artifact was lost", tt.agent)
		}
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	var a Artifacts
	st := &State{Goal: strPtr("G"), Topic: strPtr("T")}
	a.Apply(AgentPlanner, st)
	first := *a.Planner
	a.Apply(AgentPlanner, st)
	if !reflect.DeepEqual(first, *a.Planner) {
		t.Errorf("re-applying the same payload changed the artifact: %+v vs %+v", first, *a.Planner)
	}
}

func TestApplyUnknownAgentIgnored(t *testing.T) {
	var a Artifacts
	if a.Apply(Agent("ops_agent"), &State{Goal: strPtr("G")}) {
		t.Error("unknown agent must not change artifacts")
	}
	if !reflect.DeepEqual(a, Artifacts{}) {
		t.Errorf("artifacts mutated by unknown agent: %+v", a)
	}
}

func TestSummaryTemplates(t *testing.T) {
	tests := []struct {
		name  string
		agent string
		st    *State
		want  string
	}{
		{"planner", "planner_agent", &State{Topic: strPtr("Go Webinar")}, "Planned topic: Go Webinar"},
		{"planner missing topic", "planner_agent", &State{}, "Planned topic: N/A"},
		{"research", "research_agent", &State{AudiencePersona: map[string]string{"pain_point": "slow builds"}}, "Found pain point: slow builds"},
		{"research missing persona", "research_agent", &State{}, "Found pain point: N/A"},
		{"content", "content_agent", &State{EmailSequence: []EmailStep{{}, {}}}, "Wrote 2 emails."},
		{"content empty", "content_agent", &State{}, "Wrote 0 emails."},
		{"design", "design_agent", &State{BrandKit: &BrandKit{LogoPrompt: "minimal gopher"}}, "Created logo prompt: minimal gopher"},
		{"design missing kit", "design_agent", &State{}, "Created logo prompt: N/A"},
		{"fallback", "web_agent", &State{LandingPageURL: strPtr("http://x")}, "Updated landing_page_url: http://x"},
		{"fallback missing url", "ops_agent", &State{}, "Updated landing_page_url: N/A"},
	}

	for _, tt := range tests {
		if got := Summary(tt.agent, tt.st); got != tt.want {
			t.Errorf("%s: Summary() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStateRoundTripsBackendPayload(t *testing.T) {
	payload := `{"goal":"G","topic":"T","audience_persona":{"pain_point":"p"},"social_posts":[{"platform":"LinkedIn","content":"c"}],"generated_assets":{"logo_url":"u"}}`
	var st State
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *st.Goal != "G" || st.AudiencePersona["pain_point"] != "p" {
		t.Errorf("unexpected state: %+v", st)
	}
	if len(st.SocialPosts) != 1 || st.SocialPosts[0].Platform != "LinkedIn" {
		t.Errorf("unexpected posts: %+v", st.SocialPosts)
	}
}
