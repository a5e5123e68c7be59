// Package export renders a run's stored artifacts as a single portable
// document.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/foundrylabs/foundryctl/internal/store"
)

// Bundle is the exported shape of one run.
type Bundle struct {
	RunID      string         `json:"run_id" yaml:"run_id"`
	Prompt     string         `json:"prompt" yaml:"prompt"`
	Status     string         `json:"status" yaml:"status"`
	ExportedAt time.Time      `json:"exported_at" yaml:"exported_at"`
	Agents     []string       `json:"agents" yaml:"agents"`
	Artifacts  map[string]any `json:"artifacts" yaml:"artifacts"`
}

// Build assembles a bundle from a run record and its raw artifact
// payloads. Payloads that fail to decode are kept as strings rather than
// dropped.
func Build(run *store.Run, artifacts map[string][]byte) *Bundle {
	b := &Bundle{
		RunID:      run.ID,
		Prompt:     run.Prompt,
		Status:     run.Status,
		ExportedAt: time.Now().UTC(),
		Artifacts:  make(map[string]any, len(artifacts)),
	}

	for agent, payload := range artifacts {
		b.Agents = append(b.Agents, agent)
		var decoded any
		if err := json.Unmarshal(payload, &decoded); err != nil {
			b.Artifacts[agent] = string(payload)
			continue
		}
		b.Artifacts[agent] = decoded
	}
	sort.Strings(b.Agents)
	return b
}

// Encode writes the bundle in the requested format, "json" or "yaml".
func (b *Bundle) Encode(w io.Writer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("encode JSON bundle: %w", err)
		}
		return nil
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("encode YAML bundle: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q (want json or yaml)", format)
	}
}
