package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatmesh/gateway/memstore"
	"github.com/hupe1980/chatmesh/internal/testutil"
)

func newTestDirectory(completer *testutil.ScriptedCompleter, optFns ...func(o *DirectoryOptions)) *Directory {
	return NewDirectory(completer, nil, nil, func(o *DirectoryOptions) {
		o.InactivityTimeout = 10 * time.Second
		o.CompletionPolicy.InitialInterval = time.Millisecond
		o.CompletionPolicy.MaxInterval = time.Millisecond
		o.PersistPolicy.InitialInterval = time.Millisecond
		o.PersistPolicy.MaxInterval = time.Millisecond
		for _, fn := range optFns {
			fn(o)
		}
	})
}

func TestConcurrentStartOrSignal(t *testing.T) {
	completer := &testutil.ScriptedCompleter{Responses: []string{"ok"}}
	d := newTestDirectory(completer)
	defer d.Shutdown(5 * time.Second)

	const senders = 16
	var wg sync.WaitGroup
	wg.Add(senders)
	for i := 0; i < senders; i++ {
		go func() {
			defer wg.Done()
			d.SendMessage("sess-1", "hello", nil)
		}()
	}
	wg.Wait()

	d.mu.Lock()
	count := len(d.sessions)
	d.mu.Unlock()
	assert.Equal(t, 1, count, "concurrent sends for one key must resolve to a single session")

	require.Eventually(t, func() bool {
		h := d.GetHistory("sess-1")
		return len(h) == 2*senders
	}, 5*time.Second, 10*time.Millisecond, "all messages processed in one session")
}

func TestGetHistoryUnknownKey(t *testing.T) {
	d := newTestDirectory(&testutil.ScriptedCompleter{})
	defer d.Shutdown(time.Second)

	assert.Empty(t, d.GetHistory("unknown"))
	assert.Empty(t, d.GetSummary("unknown"))
}

func TestCompleteSessionIdempotent(t *testing.T) {
	completer := &testutil.ScriptedCompleter{Responses: []string{"answer", "summary"}}
	store := memstore.New()
	d := newTestDirectory(completer, func(o *DirectoryOptions) { o.Store = store })
	defer d.Shutdown(5 * time.Second)

	require.True(t, d.SendMessage("sess-1", "hi", nil))
	require.Eventually(t, func() bool { return len(d.GetHistory("sess-1")) == 2 }, 3*time.Second, 5*time.Millisecond)

	d.CompleteSession("sess-1")
	d.CompleteSession("sess-1")
	d.CompleteSession("unknown") // no-op

	require.Eventually(t, func() bool { return d.GetSummary("sess-1") != "" }, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, "summary", d.GetSummary("sess-1"))

	// Terminated sessions do not reopen.
	assert.False(t, d.SendMessage("sess-1", "are you still there?", nil))
	assert.Len(t, d.GetHistory("sess-1"), 2)
}

func TestShutdownFinalizesSessions(t *testing.T) {
	completer := &testutil.ScriptedCompleter{Responses: []string{"answer", "summary"}}
	store := memstore.New()
	d := newTestDirectory(completer, func(o *DirectoryOptions) { o.Store = store })

	require.True(t, d.SendMessage("sess-1", "hi", nil))
	require.Eventually(t, func() bool { return len(d.GetHistory("sess-1")) == 2 }, 3*time.Second, 5*time.Millisecond)

	assert.True(t, d.Shutdown(5*time.Second))

	if _, summary, err := store.Load(context.Background(), "sess-1"); assert.NoError(t, err) {
		assert.NotEmpty(t, summary, "shutdown flushes the summary to the store")
	}
}
