package campaign

import (
	"fmt"
	"strings"
)

// PlannerArtifact holds the planner's projection. All five fields are set on
// every planner step; missing payload fields become nil.
type PlannerArtifact struct {
	Goal           *string `json:"goal"`
	Topic          *string `json:"topic"`
	TargetAudience *string `json:"target_audience"`
	SourceDocsURL  *string `json:"source_docs_url"`
	CampaignDate   *string `json:"campaign_date"`
}

// ResearchArtifact holds the research projection; absent payload fields
// default to empty maps.
type ResearchArtifact struct {
	AudiencePersona map[string]string `json:"audience_persona"`
	CoreMessaging   map[string]string `json:"core_messaging"`
}

// ContentArtifact holds the content projection.
type ContentArtifact struct {
	WebinarDetails map[string]string `json:"webinar_details"`
	SocialPosts    []SocialPost      `json:"social_posts"`
}

// DesignArtifact holds the generated asset URL mapping.
type DesignArtifact struct {
	GeneratedAssets map[string]string `json:"generated_assets"`
}

// WebArtifact holds the generated landing page markup.
type WebArtifact struct {
	LandingPageCode string `json:"landing_page_code"`
}

// BRDArtifact points at the BRD file served by the backend.
type BRDArtifact struct {
	URL string `json:"brd_url"`
}

// StrategyArtifact holds the strategy markdown plus its parsed sections.
type StrategyArtifact struct {
	Markdown string            `json:"strategy_markdown"`
	Sections []StrategySection `json:"sections,omitempty"`
}

// Artifacts is the dashboard's view of what each agent has produced so far.
// A nil entry means that agent has not emitted a usable payload yet.
//
// Overwrite semantics differ by agent: planner/research/content replace the
// whole record on every step, while design/web/brd/strategy only update when
// the payload actually carries their field, leaving prior values untouched.
type Artifacts struct {
	Planner  *PlannerArtifact  `json:"planner_agent,omitempty"`
	Research *ResearchArtifact `json:"research_agent,omitempty"`
	Content  *ContentArtifact  `json:"content_agent,omitempty"`
	Design   *DesignArtifact   `json:"design_agent,omitempty"`
	Web      *WebArtifact      `json:"web_agent,omitempty"`
	BRD      *BRDArtifact      `json:"brd_agent,omitempty"`
	Strategy *StrategyArtifact `json:"strategy_agent,omitempty"`
}

// Apply projects one step payload from the named agent onto the artifact
// set. It reports whether anything changed. Unknown agents change nothing.
func (a *Artifacts) Apply(agent Agent, st *State) bool {
	if st == nil {
		return false
	}

	switch agent {
	case AgentPlanner:
		a.Planner = &PlannerArtifact{
			Goal:           st.Goal,
			Topic:          st.Topic,
			TargetAudience: st.TargetAudience,
			SourceDocsURL:  st.SourceDocsURL,
			CampaignDate:   st.CampaignDate,
		}
		return true

	case AgentResearch:
		r := &ResearchArtifact{
			AudiencePersona: st.AudiencePersona,
			CoreMessaging:   st.CoreMessaging,
		}
		if r.AudiencePersona == nil {
			r.AudiencePersona = map[string]string{}
		}
		if r.CoreMessaging == nil {
			r.CoreMessaging = map[string]string{}
		}
		a.Research = r
		return true

	case AgentContent:
		c := &ContentArtifact{
			WebinarDetails: st.WebinarDetails,
			SocialPosts:    st.SocialPosts,
		}
		if c.WebinarDetails == nil {
			c.WebinarDetails = map[string]string{}
		}
		if c.SocialPosts == nil {
			c.SocialPosts = []SocialPost{}
		}
		a.Content = c
		return true

	case AgentDesign:
		if st.GeneratedAssets == nil {
			return false
		}
		a.Design = &DesignArtifact{GeneratedAssets: st.GeneratedAssets}
		return true

	case AgentWeb:
		if st.LandingPageCode == nil {
			return false
		}
		a.Web = &WebArtifact{LandingPageCode: *st.LandingPageCode}
		return true

	case AgentBRD:
		if st.BrdURL == nil {
			return false
		}
		a.BRD = &BRDArtifact{URL: *st.BrdURL}
		return true

	case AgentStrategy:
		if st.StrategyMarkdown == nil {
			return false
		}
		a.Strategy = &StrategyArtifact{
			Markdown: *st.StrategyMarkdown,
			Sections: ParseStrategySections(*st.StrategyMarkdown),
		}
		return true
	}

	return false
}

// Get returns the stored artifact for one agent, or nil when that agent
// has produced nothing yet.
func (a Artifacts) Get(agent Agent) any {
	switch agent {
	case AgentPlanner:
		if a.Planner != nil {
			return a.Planner
		}
	case AgentResearch:
		if a.Research != nil {
			return a.Research
		}
	case AgentContent:
		if a.Content != nil {
			return a.Content
		}
	case AgentDesign:
		if a.Design != nil {
			return a.Design
		}
	case AgentWeb:
		if a.Web != nil {
			return a.Web
		}
	case AgentBRD:
		if a.BRD != nil {
			return a.BRD
		}
	case AgentStrategy:
		if a.Strategy != nil {
			return a.Strategy
		}
	}
	return nil
}

// Summary renders the one-line activity log snippet for a step from the
// named agent. It never fails on missing fields; placeholders stand in.
func Summary(agent string, st *State) string {
	switch Agent(agent) {
	case AgentPlanner:
		return "Planned topic: " + orPlaceholder(st.Topic)
	case AgentResearch:
		if st.AudiencePersona != nil {
			if p, ok := st.AudiencePersona["pain_point"]; ok && p != "" {
				return "Found pain point: " + p
			}
		}
		return "Found pain point: N/A"
	case AgentContent:
		return fmt.Sprintf("Wrote %d emails.", len(st.EmailSequence))
	case AgentDesign:
		prompt := "N/A"
		if st.BrandKit != nil && st.BrandKit.LogoPrompt != "" {
			prompt = st.BrandKit.LogoPrompt
		}
		return "Created logo prompt: " + prompt
	}
	return "Updated landing_page_url: " + orPlaceholder(st.LandingPageURL)
}

// LogLine renders the full activity log entry for a step.
func LogLine(agent string, st *State) string {
	return strings.ToUpper(agent) + ": " + Summary(agent, st)
}

func orPlaceholder(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}
