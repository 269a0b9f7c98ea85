package chatmesh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/gateway"
	"github.com/hupe1980/chatmesh/gateway/memstore"
	"github.com/hupe1980/chatmesh/internal/testutil"
)

func fastOptions(o *Options) {
	fast := gateway.Policy{
		MaxAttempts:     2,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Coefficient:     2,
		CallTimeout:     time.Second,
	}
	o.CompletionPolicy = fast
	o.SelectionPolicy = fast
	o.SearchPolicy = fast
	o.PersistPolicy = fast
	o.InactivityTimeout = 10 * time.Second
}

func TestConversationRoundTrip(t *testing.T) {
	completer := &testutil.ScriptedCompleter{Responses: []string{"hello!", "a friendly greeting exchange"}}
	store := memstore.New()
	mesh := New(completer, func(o *Options) {
		fastOptions(o)
		o.Store = store
	})
	defer mesh.Shutdown(5 * time.Second)

	require.True(t, mesh.SendMessage("sess-1", "hi there", nil))
	require.Eventually(t, func() bool { return len(mesh.GetHistory("sess-1")) == 2 }, 3*time.Second, 5*time.Millisecond)

	history := mesh.GetHistory("sess-1")
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, "hi there", history[0].Text)
	assert.Equal(t, core.RoleAssistant, history[1].Role)
	assert.Equal(t, "hello!", history[1].Text)

	mesh.CompleteSession("sess-1")
	require.Eventually(t, func() bool { return mesh.GetSummary("sess-1") != "" }, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, "a friendly greeting exchange", mesh.GetSummary("sess-1"))

	transcript, summary, err := store.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Len(t, transcript, 2)
	assert.Equal(t, "a friendly greeting exchange", summary)
}

func TestToolEnhancedTurn(t *testing.T) {
	completer := &testutil.ScriptedCompleter{Responses: []string{"here are some companies"}}
	decider := &testutil.ScriptedDecider{Raw: `{
		"should_use_tools": true,
		"selected_tools": [{
			"tool_type": "company_search",
			"confidence": 0.9,
			"reasoning": "company lookup",
			"parameters": {"query_text": "IT consulting companies in Texas"}
		}],
		"reasoning": "entity lookup query",
		"confidence_score": 0.9
	}`}
	vector := &testutil.StubVectorSearcher{Response: &gateway.VectorSearchResponse{
		Columns:      []string{"company_name", "city", "state"},
		Rows:         [][]any{{"Acme IT", "Austin", "TX"}},
		TotalResults: 1,
	}}

	mesh := New(completer, func(o *Options) {
		fastOptions(o)
		o.Decider = decider
		o.VectorSearcher = vector
		o.VectorIndex = "catalog.schema.idx"
	})
	defer mesh.Shutdown(5 * time.Second)

	require.True(t, mesh.SendMessage("sess-1", "Find IT consulting companies in Texas", nil))
	require.Eventually(t, func() bool { return len(mesh.GetHistory("sess-1")) == 2 }, 3*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, vector.Calls(), "the selected tool ran once")
	assert.Equal(t, "IT consulting companies in Texas", vector.LastRequest().QueryText)

	// The completion prompt carried the tool context.
	prompts := completer.Prompts()
	require.NotEmpty(t, prompts)
	assert.Contains(t, prompts[0], "Additional context from tools:")
	assert.Contains(t, prompts[0], "Acme IT")
}

func TestSelectionFailureStillAnswers(t *testing.T) {
	completer := &testutil.ScriptedCompleter{Responses: []string{"plain answer"}}
	decider := &testutil.ScriptedDecider{Raw: "not json at all"}

	mesh := New(completer, func(o *Options) {
		fastOptions(o)
		o.Decider = decider
	})
	defer mesh.Shutdown(5 * time.Second)

	require.True(t, mesh.SendMessage("sess-1", "hello", nil))
	require.Eventually(t, func() bool { return len(mesh.GetHistory("sess-1")) == 2 }, 3*time.Second, 5*time.Millisecond)

	assert.Equal(t, "plain answer", mesh.GetHistory("sess-1")[1].Text)
	prompts := completer.Prompts()
	require.NotEmpty(t, prompts)
	assert.NotContains(t, prompts[0], "Additional context from tools:", "degraded selection adds no tool context")
}
