// Package campaign defines the state streamed by the foundry backend and the
// per-agent artifacts the dashboard projects out of it.
package campaign

// Agent identifies a backend pipeline stage by its wire name.
type Agent string

// The fixed set of agents the backend reports on.
const (
	AgentPlanner  Agent = "planner_agent"
	AgentResearch Agent = "research_agent"
	AgentContent  Agent = "content_agent"
	AgentDesign   Agent = "design_agent"
	AgentWeb      Agent = "web_agent"
	AgentBRD      Agent = "brd_agent"
	AgentStrategy Agent = "strategy_agent"
)

// Agents lists the known agents in pipeline order.
var Agents = []Agent{
	AgentPlanner,
	AgentResearch,
	AgentContent,
	AgentDesign,
	AgentWeb,
	AgentBRD,
	AgentStrategy,
}

// Known reports whether name is one of the fixed agent names.
func Known(name string) bool {
	for _, a := range Agents {
		if string(a) == name {
			return true
		}
	}
	return false
}

// EmailStep is a single email in the nurture sequence.
type EmailStep struct {
	Subject       string `json:"subject,omitempty"`
	BodyMarkdown  string `json:"body_markdown,omitempty"`
	SendDelayDays int    `json:"send_delay_days,omitempty"`
}

// SocialPost is a single generated social media post. The backend emits
// platform/content/image_prompt; the dashboard variants add presentation
// fields (caption, handle, likes) which are tolerated when present.
type SocialPost struct {
	Platform    string `json:"platform,omitempty"`
	Content     string `json:"content,omitempty"`
	Caption     string `json:"caption,omitempty"`
	ImagePrompt string `json:"image_prompt,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Handle      string `json:"handle,omitempty"`
	Username    string `json:"username,omitempty"`
	Likes       int    `json:"likes,omitempty"`
}

// BrandKit is the campaign's visual identity.
type BrandKit struct {
	LogoPrompt   string   `json:"logo_prompt,omitempty"`
	ColorPalette []string `json:"color_palette,omitempty"`
	FontPair     string   `json:"font_pair,omitempty"`
}

// State mirrors the backend's campaign state object. Every step event
// carries the full state as known to the emitting agent, so all fields are
// optional; pointer fields distinguish "absent" from "empty".
type State struct {
	InitialPrompt      string            `json:"initial_prompt,omitempty"`
	Goal               *string           `json:"goal,omitempty"`
	Topic              *string           `json:"topic,omitempty"`
	TargetAudience     *string           `json:"target_audience,omitempty"`
	SourceDocsURL      *string           `json:"source_docs_url,omitempty"`
	CampaignDate       *string           `json:"campaign_date,omitempty"`
	AudiencePersona    map[string]string `json:"audience_persona,omitempty"`
	CoreMessaging      map[string]string `json:"core_messaging,omitempty"`
	WebinarDetails     map[string]string `json:"webinar_details,omitempty"`
	WebinarImagePrompt *string           `json:"webinar_image_prompt,omitempty"`
	BlogPost           *string           `json:"blog_post,omitempty"`
	EmailSequence      []EmailStep       `json:"email_sequence,omitempty"`
	SocialPosts        []SocialPost      `json:"social_posts,omitempty"`
	BrandKit           *BrandKit         `json:"brand_kit,omitempty"`
	GeneratedAssets    map[string]string `json:"generated_assets,omitempty"`
	LandingPageCode    *string           `json:"landing_page_code,omitempty"`
	LandingPageURL     *string           `json:"landing_page_url,omitempty"`
	BrdURL             *string           `json:"brd_url,omitempty"`
	StrategyMarkdown   *string           `json:"strategy_markdown,omitempty"`
	AutomationStatus   map[string]string `json:"automation_status,omitempty"`
}
