package campaign

import "strings"

// StrategySection is one heading-delimited block of the strategy markdown.
type StrategySection struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
}

// ParseStrategySections splits strategy markdown into sections on "##" and
// "###" headings. The top-level "# " title and blank lines are dropped;
// content lines are trimmed. Lines before the first section heading are
// discarded, matching the dashboard's renderer.
func ParseStrategySections(markdown string) []StrategySection {
	if markdown == "" {
		return nil
	}

	var sections []StrategySection
	var current *StrategySection

	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "# ") {
			continue
		}
		if strings.HasPrefix(line, "## ") || strings.HasPrefix(line, "### ") {
			if current != nil {
				sections = append(sections, *current)
			}
			title := strings.TrimLeft(line, "#")
			current = &StrategySection{Title: strings.TrimSpace(title), Content: []string{}}
			continue
		}
		if current != nil {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				current.Content = append(current.Content, trimmed)
			}
		}
	}

	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}
