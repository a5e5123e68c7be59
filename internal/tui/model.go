// Package tui is the terminal dashboard: an activity log, per-agent
// artifact cards, and a prompt box driving a streaming session.
package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/foundrylabs/foundryctl/internal/campaign"
	"github.com/foundrylabs/foundryctl/internal/session"
)

// noticeMsg carries one session notice onto the bubbletea loop.
type noticeMsg session.Notice

// noticesClosedMsg signals the notice channel was closed.
type noticesClosedMsg struct{}

// startResultMsg reports the outcome of a Start call.
type startResultMsg struct{ err error }

// waitNotice bridges the session's notice channel into the program. Each
// delivery re-arms itself from Update.
func waitNotice(ch <-chan session.Notice) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return noticesClosedMsg{}
		}
		return noticeMsg(n)
	}
}

// Model is the dashboard's bubbletea model.
type Model struct {
	sess    *session.Session
	notices <-chan session.Notice

	spin  spinner.Model
	vp    viewport.Model
	input textinput.Model

	width  int
	height int
	ready  bool

	status       session.Status
	flash        string
	quitting     bool
	autostart    string
	showSnapshot bool
}

// New creates the dashboard model. autostart, when non-empty, is submitted
// as the prompt once the program starts.
func New(sess *session.Session, notices <-chan session.Notice, autostart string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))

	ti := textinput.New()
	ti.Placeholder = "Describe the campaign to generate..."
	ti.CharLimit = 500
	ti.Focus()

	return Model{
		sess:      sess,
		notices:   notices,
		spin:      sp,
		input:     ti,
		status:    sess.Status(),
		autostart: strings.TrimSpace(autostart),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, textinput.Blink, waitNotice(m.notices)}
	if m.autostart != "" {
		cmds = append(cmds, m.startCmd(m.autostart))
	}
	return tea.Batch(cmds...)
}

func (m Model) startCmd(prompt string) tea.Cmd {
	return func() tea.Msg {
		return startResultMsg{err: m.sess.Start(prompt)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			m.sess.Close()
			return m, tea.Quit
		case tea.KeyTab:
			m.showSnapshot = !m.showSnapshot
			m.refreshViewport()
			return m, nil
		case tea.KeyEnter:
			prompt := strings.TrimSpace(m.input.Value())
			if prompt == "" {
				m.flash = "Enter a prompt first."
				return m, nil
			}
			m.input.Reset()
			m.flash = ""
			return m, m.startCmd(prompt)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - chromeHeight
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.vp = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = vpHeight
		}
		m.refreshViewport()
		return m, nil

	case noticeMsg:
		m.status = msg.Status
		switch msg.Kind {
		case session.NoticeLog, session.NoticeAlert:
			if !m.showSnapshot {
				m.refreshViewport()
			}
		case session.NoticeSnapshot:
			if m.showSnapshot {
				m.refreshViewport()
			}
		}
		return m, waitNotice(m.notices)

	case noticesClosedMsg:
		return m, nil

	case startResultMsg:
		if msg.err != nil {
			m.flash = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// chromeHeight is the rows taken by everything that is not the log
// viewport: title, cards, flash, input, help.
const chromeHeight = 9

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	if m.showSnapshot {
		m.vp.SetContent(renderSnapshot(m.sess.Snapshot()))
		m.vp.GotoTop()
		return
	}
	wasAtBottom := m.vp.AtBottom()
	m.vp.SetContent(renderLog(m.sess.Log(), m.vp.Width))
	if wasAtBottom {
		m.vp.GotoBottom()
	}
}

// renderSnapshot pretty-prints the latest state for the snapshot pane.
func renderSnapshot(state *campaign.State, raw []byte) string {
	if state == nil && len(raw) == 0 {
		return dimStyle.Render("No snapshot received yet.")
	}
	var src any = state
	if state == nil {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return logStyle.Render(string(raw))
		}
		src = decoded
	}
	out, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return alertStyle.Render("snapshot render failed: " + err.Error())
	}
	return logStyle.Render(string(out))
}

func (m Model) View() string {
	if m.quitting {
		return "Session closed.\n"
	}

	var b strings.Builder

	title := titleStyle.Render("Campaign Foundry")
	status := statusStyle.Render(string(m.status))
	if m.status == session.StatusRunning || m.status == session.StatusConnecting {
		status = m.spin.View() + status
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", status))
	b.WriteString("\n\n")

	b.WriteString(renderCards(m.sess.Artifacts(), m.width))
	b.WriteString("\n")

	if m.ready {
		b.WriteString(m.vp.View())
	}
	b.WriteString("\n")

	if m.flash != "" {
		b.WriteString(alertStyle.Render(m.flash))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	pane := "log"
	if m.showSnapshot {
		pane = "snapshot"
	}
	b.WriteString(helpStyle.Render(
		fmt.Sprintf("enter: run campaign • tab: %s pane • esc/ctrl+c: quit", pane)))
	return b.String()
}

// renderLog formats the session activity log for the viewport.
func renderLog(entries []session.LogEntry, width int) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		if e.Separator {
			rule := strings.Repeat("─", max(4, width/2))
			b.WriteString(separatorStyle.Render(rule))
			b.WriteByte('\n')
		}
		line := fmt.Sprintf("%s %s", e.Time.Format("15:04:05"), e.Text)
		switch {
		case e.Alert || strings.HasPrefix(e.Text, "ERROR:"):
			b.WriteString(alertStyle.Render(line))
		case strings.HasPrefix(e.Text, "STATUS:"):
			b.WriteString(dimStyle.Render(line))
		default:
			b.WriteString(logStyle.Render(line))
		}
	}
	return b.String()
}

// cardLabels maps agents to short card captions, in display order.
var cardLabels = []struct {
	agent campaign.Agent
	label string
}{
	{campaign.AgentPlanner, "Plan"},
	{campaign.AgentResearch, "Research"},
	{campaign.AgentContent, "Content"},
	{campaign.AgentDesign, "Design"},
	{campaign.AgentWeb, "Web"},
	{campaign.AgentBRD, "BRD"},
	{campaign.AgentStrategy, "Strategy"},
}

// renderCards draws one readiness card per agent.
func renderCards(a campaign.Artifacts, width int) string {
	cards := make([]string, 0, len(cardLabels))
	for _, c := range cardLabels {
		done := artifactReady(a, c.agent)
		style := cardStyle
		mark := "·"
		if done {
			style = cardDoneStyle
			mark = "✓"
		}
		cards = append(cards, style.Render(mark+" "+c.label))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	if width > 0 && lipgloss.Width(row) > width {
		// narrow terminal, fall back to a compact single line
		parts := make([]string, 0, len(cardLabels))
		for _, c := range cardLabels {
			mark := "·"
			if artifactReady(a, c.agent) {
				mark = "✓"
			}
			parts = append(parts, mark+c.label)
		}
		return dimStyle.Render(strings.Join(parts, " "))
	}
	return row
}

func artifactReady(a campaign.Artifacts, agent campaign.Agent) bool {
	switch agent {
	case campaign.AgentPlanner:
		return a.Planner != nil
	case campaign.AgentResearch:
		return a.Research != nil
	case campaign.AgentContent:
		return a.Content != nil
	case campaign.AgentDesign:
		return a.Design != nil
	case campaign.AgentWeb:
		return a.Web != nil
	case campaign.AgentBRD:
		return a.BRD != nil
	case campaign.AgentStrategy:
		return a.Strategy != nil
	}
	return false
}
