package campaign

import (
	"reflect"
	"testing"
)

func TestParseStrategySections(t *testing.T) {
	md := "# Campaign Strategy\n\nintro ignored\n\n## Channels\nLinkedIn first.\n\nEmail second.\n### Budget\n$500\n"

	got := ParseStrategySections(md)
	want := []StrategySection{
		{Title: "Channels", Content: []string{"LinkedIn first.", "Email second."}},
		{Title: "Budget", Content: []string{"$500"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sections = %+v, want %+v", got, want)
	}
}

func TestParseStrategySectionsEmpty(t *testing.T) {
	if got := ParseStrategySections(""); got != nil {
		t.Errorf("expected nil for empty markdown, got %+v", got)
	}
	// No section headings at all: nothing to show.
	if got := ParseStrategySections("# Title\njust prose"); len(got) != 0 {
		t.Errorf("expected no sections, got %+v", got)
	}
}
