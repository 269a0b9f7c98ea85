package tool

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/chatmesh/logging"
)

// Selection is one tool the plan wants to run, with confidence, reasoning and
// the parameter mapping the decision model proposed.
type Selection struct {
	Kind       Kind           `json:"tool_type"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
	Parameters map[string]any `json:"parameters"`
}

// StringParam returns the named string parameter or fallback when absent or
// not a string.
func (s Selection) StringParam(key, fallback string) string {
	if v, ok := s.Parameters[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// IntParam returns the named integer parameter or fallback. JSON numbers
// decode as float64, so both shapes are accepted.
func (s Selection) IntParam(key string, fallback int) int {
	switch v := s.Parameters[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// Plan is the Tool Selector's decision for one user message. It is ephemeral:
// computed fresh per message and folded into the turn's context, never
// persisted.
type Plan struct {
	UseTools   bool        `json:"should_use_tools"`
	Selections []Selection `json:"selected_tools"`
	Reasoning  string      `json:"reasoning"`
	Confidence float64     `json:"confidence_score"`
}

// EmptyPlan returns a no-tools plan carrying the reason tools were skipped.
// Used both for genuine "no tools needed" outcomes and for degradation when
// selection itself failed.
func EmptyPlan(reason string) Plan {
	return Plan{UseTools: false, Selections: []Selection{}, Reasoning: reason, Confidence: 0}
}

const (
	defaultSelectionReasoning = "No reasoning provided"
	defaultOverallReasoning   = "No overall reasoning provided"
)

// ParsePlan is the single deserialization boundary between the decision
// model's raw JSON and the typed Plan the rest of the system sees. Confidence
// values are clamped into [0,1], selections naming a kind missing from the
// catalog are dropped with a warning, and missing reasoning fields get
// placeholder text.
func ParsePlan(raw []byte, catalog *Catalog, logger logging.Logger) (Plan, error) {
	var wire struct {
		ShouldUseTools bool `json:"should_use_tools"`
		SelectedTools  []struct {
			ToolType   string         `json:"tool_type"`
			Confidence float64        `json:"confidence"`
			Reasoning  string         `json:"reasoning"`
			Parameters map[string]any `json:"parameters"`
		} `json:"selected_tools"`
		Reasoning       string  `json:"reasoning"`
		ConfidenceScore float64 `json:"confidence_score"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Plan{}, fmt.Errorf("malformed tool decision: %w", err)
	}

	selections := make([]Selection, 0, len(wire.SelectedTools))
	for _, st := range wire.SelectedTools {
		kind := Kind(st.ToolType)
		if !catalog.Has(kind) {
			logger.Warn("dropping selection with unknown tool kind", "tool_type", st.ToolType)
			continue
		}
		reasoning := st.Reasoning
		if reasoning == "" {
			reasoning = defaultSelectionReasoning
		}
		params := st.Parameters
		if params == nil {
			params = map[string]any{}
		}
		selections = append(selections, Selection{
			Kind:       kind,
			Confidence: clamp01(st.Confidence),
			Reasoning:  reasoning,
			Parameters: params,
		})
	}

	reasoning := wire.Reasoning
	if reasoning == "" {
		reasoning = defaultOverallReasoning
	}

	return Plan{
		UseTools:   wire.ShouldUseTools,
		Selections: selections,
		Reasoning:  reasoning,
		Confidence: clamp01(wire.ConfidenceScore),
	}, nil
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
