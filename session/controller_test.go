package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/gateway"
	"github.com/hupe1980/chatmesh/gateway/memstore"
	"github.com/hupe1980/chatmesh/internal/testutil"
)

func fastPolicies(o *Options) {
	fast := gateway.Policy{
		MaxAttempts:     2,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Coefficient:     2,
		CallTimeout:     time.Second,
	}
	o.CompletionPolicy = fast
	o.PersistPolicy = fast
}

func waitTerminated(t *testing.T, c *Controller) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not terminate in time")
	}
}

func TestTurnOrdering(t *testing.T) {
	completer := &testutil.ScriptedCompleter{Responses: []string{"r1", "r2", "r3", "summary"}}
	c := New("sess-1", completer, nil, nil, func(o *Options) {
		fastPolicies(o)
		o.InactivityTimeout = 10 * time.Second
	})
	c.Start(context.Background())

	for i := 1; i <= 3; i++ {
		require.True(t, c.Enqueue(fmt.Sprintf("message %d", i)))
	}

	require.Eventually(t, func() bool { return len(c.History()) == 6 }, 3*time.Second, 5*time.Millisecond)

	history := c.History()
	for i := 0; i < 3; i++ {
		assert.Equal(t, core.RoleUser, history[2*i].Role)
		assert.Equal(t, fmt.Sprintf("message %d", i+1), history[2*i].Text)
		assert.Equal(t, core.RoleAssistant, history[2*i+1].Role)
	}

	c.RequestCompletion()
	waitTerminated(t, c)
	assert.Equal(t, StateTerminated, c.State())
	assert.False(t, c.TimedOut())
}

func TestInactivityTimeoutFinalizes(t *testing.T) {
	completer := &testutil.ScriptedCompleter{Responses: []string{"hello there", "a short chat"}}
	store := memstore.New()
	c := New("sess-1", completer, nil, nil, func(o *Options) {
		fastPolicies(o)
		o.InactivityTimeout = 50 * time.Millisecond
		o.Store = store
	})
	c.Start(context.Background())

	require.True(t, c.Enqueue("hi"))
	require.Eventually(t, func() bool { return len(c.History()) == 2 }, 3*time.Second, 5*time.Millisecond)
	before := c.History()

	waitTerminated(t, c)

	assert.Equal(t, StateTerminated, c.State())
	assert.True(t, c.TimedOut())
	assert.Equal(t, before, c.History(), "finalization must not mutate prior entries")
	assert.Equal(t, "a short chat", c.Summary())

	// Transcript and summary were flushed to the store.
	transcript, summary, err := store.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, before, transcript)
	assert.Equal(t, "a short chat", summary)
}

func TestPostTimeoutMessagesDropped(t *testing.T) {
	completer := &testutil.ScriptedCompleter{Responses: []string{"summary"}}
	c := New("sess-1", completer, nil, nil, func(o *Options) {
		fastPolicies(o)
		o.InactivityTimeout = 20 * time.Millisecond
	})
	c.Start(context.Background())
	waitTerminated(t, c)

	assert.False(t, c.Enqueue("too late"))
	assert.Empty(t, c.History())
	assert.Equal(t, StateTerminated, c.State())
}

func TestCompletionFailureLeavesNoAssistantEntry(t *testing.T) {
	completer := &testutil.ScriptedCompleter{Err: core.NewUpstreamError("complete", errors.New("model down"))}
	c := New("sess-1", completer, nil, nil, func(o *Options) {
		fastPolicies(o)
		o.InactivityTimeout = 10 * time.Second
	})
	c.Start(context.Background())

	require.True(t, c.Enqueue("hi"))
	require.Eventually(t, func() bool { return len(c.History()) == 1 }, 3*time.Second, 5*time.Millisecond)

	// The retry budget is exhausted without an assistant entry; the session
	// stays open for the next message.
	assert.Equal(t, core.RoleUser, c.History()[0].Role)
	assert.NotEqual(t, StateTerminated, c.State())

	c.RequestCompletion()
	waitTerminated(t, c)
	assert.Empty(t, c.Summary(), "summary generation failure finalizes with an empty summary")
}

func TestCompleteRequestWinsOverQueuedMessages(t *testing.T) {
	completer := &testutil.ScriptedCompleter{Responses: []string{"r1", "summary"}}
	c := New("sess-1", completer, nil, nil, func(o *Options) {
		fastPolicies(o)
		o.InactivityTimeout = 10 * time.Second
	})

	// Request completion before the controller starts draining.
	c.RequestCompletion()
	require.True(t, c.Enqueue("never processed"))
	c.Start(context.Background())

	waitTerminated(t, c)
	assert.Empty(t, c.History(), "completion request takes precedence over queued messages")
}

func TestRehydrationFromStore(t *testing.T) {
	store := memstore.New()
	prior := core.Transcript{
		{Role: core.RoleUser, Text: "earlier question"},
		{Role: core.RoleAssistant, Text: "earlier answer"},
	}
	require.NoError(t, store.Save(context.Background(), "sess-1", nil, prior, "earlier summary"))

	completer := &testutil.ScriptedCompleter{Responses: []string{"fresh answer", "summary"}}
	c := New("sess-1", completer, nil, nil, func(o *Options) {
		fastPolicies(o)
		o.InactivityTimeout = 10 * time.Second
		o.Store = store
	})
	c.Start(context.Background())

	assert.Equal(t, prior, c.History())
	assert.Equal(t, "earlier summary", c.Summary())

	require.True(t, c.Enqueue("new question"))
	require.Eventually(t, func() bool { return len(c.History()) == 4 }, 3*time.Second, 5*time.Millisecond)

	// The new turn's prompt quotes the rehydrated history.
	prompts := completer.Prompts()
	require.NotEmpty(t, prompts)
	assert.True(t, strings.Contains(prompts[0], "earlier question"))
}

func TestPersistFailureDoesNotBreakSession(t *testing.T) {
	completer := &testutil.ScriptedCompleter{Responses: []string{"r1", "r2", "summary"}}
	c := New("sess-1", completer, nil, nil, func(o *Options) {
		fastPolicies(o)
		o.InactivityTimeout = 10 * time.Second
		o.Store = failingStore{}
	})
	c.Start(context.Background())

	require.True(t, c.Enqueue("one"))
	require.True(t, c.Enqueue("two"))
	require.Eventually(t, func() bool { return len(c.History()) == 4 }, 3*time.Second, 5*time.Millisecond)

	c.RequestCompletion()
	waitTerminated(t, c)
	assert.Len(t, c.History(), 4, "in-memory transcript stays authoritative when persistence fails")
}

type failingStore struct{}

func (failingStore) Save(context.Context, string, *int64, core.Transcript, string) error {
	return &core.PersistenceError{Err: errors.New("db down")}
}

func (failingStore) Load(context.Context, string) (core.Transcript, string, error) {
	return nil, "", &core.PersistenceError{Err: errors.New("db down")}
}
