package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/gateway"
)

type scriptedDecider struct {
	raw   string
	err   error
	calls int
}

func (d *scriptedDecider) Decide(context.Context, string, string) (string, error) {
	d.calls++
	if d.err != nil {
		return "", d.err
	}
	return d.raw, nil
}

func fastSelectionPolicy() gateway.Policy {
	p := gateway.SelectionPolicy
	p.InitialInterval = 1
	p.MaxInterval = 1
	return p
}

func TestSelectCompanySearchScenario(t *testing.T) {
	decider := &scriptedDecider{raw: `{
		"should_use_tools": true,
		"selected_tools": [{
			"tool_type": "company_search",
			"confidence": 0.9,
			"reasoning": "user is looking for IT consulting companies",
			"parameters": {"query_text": "IT consulting companies in Texas", "num_results": 5}
		}],
		"reasoning": "company lookup query",
		"confidence_score": 0.9
	}`}
	s := NewSelector(decider, func(o *SelectorOptions) { o.Policy = fastSelectionPolicy() })

	plan := s.Select(context.Background(), "Find IT consulting companies in Texas", "")
	assert.True(t, plan.UseTools)
	require.NotEmpty(t, plan.Selections)
	assert.Equal(t, KindCompanySearch, plan.Selections[0].Kind)
	assert.NotEmpty(t, plan.Selections[0].StringParam("query_text", ""))
}

func TestSelectDegradesOnDeciderError(t *testing.T) {
	decider := &scriptedDecider{err: core.NewUpstreamError("tool_decision", errors.New("model down"))}
	s := NewSelector(decider, func(o *SelectorOptions) { o.Policy = fastSelectionPolicy() })

	plan := s.Select(context.Background(), "hello", "")
	assert.False(t, plan.UseTools)
	assert.Empty(t, plan.Selections)
	assert.Zero(t, plan.Confidence)
	assert.Contains(t, plan.Reasoning, "Tool selection failed due to error")
	assert.Equal(t, 2, decider.calls, "selection retries once before degrading")
}

func TestSelectDegradesOnMalformedDecision(t *testing.T) {
	decider := &scriptedDecider{raw: "I think you should use the company tool"}
	s := NewSelector(decider, func(o *SelectorOptions) { o.Policy = fastSelectionPolicy() })

	plan := s.Select(context.Background(), "hello", "")
	assert.False(t, plan.UseTools)
	assert.Contains(t, plan.Reasoning, "Failed to parse tool decision")
}

func TestSelectNoDecider(t *testing.T) {
	s := NewSelector(nil)
	plan := s.Select(context.Background(), "hello", "")
	assert.False(t, plan.UseTools)
}

func TestBuildUserPromptIncludesContext(t *testing.T) {
	s := NewSelector(&scriptedDecider{})
	prompt := s.buildUserPrompt("find suppliers", "user: hi assistant: hello")
	assert.Contains(t, prompt, `USER QUERY: "find suppliers"`)
	assert.Contains(t, prompt, "CONVERSATION CONTEXT:")
	assert.Contains(t, prompt, "user: hi assistant: hello")
	assert.Contains(t, prompt, "Company & Supplier Database Search")

	bare := s.buildUserPrompt("find suppliers", "")
	assert.NotContains(t, bare, "CONVERSATION CONTEXT:")
}
