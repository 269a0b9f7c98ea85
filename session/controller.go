package session

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/gateway"
	"github.com/hupe1980/chatmesh/logging"
	"github.com/hupe1980/chatmesh/tool"
)

// State is the lifecycle phase of a session controller.
type State int32

const (
	// StateIdle means the controller is waiting for messages, a completion
	// request or the inactivity deadline.
	StateIdle State = iota
	// StateDraining means queued messages are being processed.
	StateDraining
	// StateFinalizing means the controller is generating the summary and
	// persisting the final transcript.
	StateFinalizing
	// StateTerminated is absorbing; the transcript is final.
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateFinalizing:
		return "finalizing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// DefaultInactivityTimeout closes a session after five minutes without
// messages.
const DefaultInactivityTimeout = 5 * time.Minute

const finalizeTimeout = 3 * time.Minute

// Options configure a session Controller.
type Options struct {
	OwnerID           *int64
	Store             gateway.Store
	Logger            logging.Logger
	InactivityTimeout time.Duration
	CompletionPolicy  gateway.Policy
	PersistPolicy     gateway.Policy
}

// Controller runs one conversation session: a single goroutine owns the
// transcript and drains a FIFO message queue, suspending on whichever of a
// new message, a completion request or the inactivity deadline arrives first.
// All mutation happens on that goroutine; the exported accessors return
// snapshots and are safe to call concurrently.
type Controller struct {
	key       string
	completer gateway.Completer
	selector  *tool.Selector
	executor  *tool.Executor
	opts      Options

	mu                sync.Mutex
	state             State
	queue             []string
	transcript        core.Transcript
	summary           string
	completeRequested bool
	timedOut          bool
	started           bool

	wake chan struct{}
	done chan struct{}
}

// New constructs a Controller for the given session key. The selector and
// executor may be nil; turns then run without tool context.
func New(key string, completer gateway.Completer, selector *tool.Selector, executor *tool.Executor, optFns ...func(o *Options)) *Controller {
	opts := Options{
		Logger:            logging.NoOpLogger{},
		InactivityTimeout: DefaultInactivityTimeout,
		CompletionPolicy:  gateway.CompletionPolicy,
		PersistPolicy:     gateway.PersistPolicy,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = DefaultInactivityTimeout
	}
	return &Controller{
		key:       key,
		completer: completer,
		selector:  selector,
		executor:  executor,
		opts:      opts,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Key returns the session key.
func (c *Controller) Key() string { return c.key }

// Start rehydrates any persisted transcript for the key and launches the
// session goroutine. Calling Start twice is a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.hydrate(ctx)
	go c.run(ctx)
}

// Enqueue appends a message to the session queue and reports whether it was
// accepted. Messages arriving after the inactivity timeout fired, or once
// finalization started, are dropped.
func (c *Controller) Enqueue(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timedOut {
		c.opts.Logger.Warn("message dropped, session closed due to inactivity", "session_key", c.key, "text", text)
		return false
	}
	if c.state >= StateFinalizing {
		c.opts.Logger.Warn("message dropped, session is finalizing", "session_key", c.key, "text", text)
		return false
	}
	c.queue = append(c.queue, text)
	c.signal()
	return true
}

// RequestCompletion signals explicit termination. Idempotent; a completed
// session stays completed.
func (c *Controller) RequestCompletion() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateTerminated {
		return
	}
	c.completeRequested = true
	c.signal()
}

// History returns a snapshot of the transcript.
func (c *Controller) History() core.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Clone()
}

// Summary returns the session summary, empty until finalization completed.
func (c *Controller) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TimedOut reports whether the session finalized via the inactivity deadline
// rather than an explicit completion request.
func (c *Controller) TimedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timedOut
}

// Done is closed when the session reaches StateTerminated.
func (c *Controller) Done() <-chan struct{} { return c.done }

// signal wakes the session goroutine. Callers hold c.mu.
func (c *Controller) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) hydrate(ctx context.Context) {
	if c.opts.Store == nil {
		return
	}
	transcript, summary, err := c.opts.Store.Load(ctx, c.key)
	if err != nil {
		c.opts.Logger.Error("failed to rehydrate session, starting empty", "session_key", c.key, "error", err.Error())
		return
	}
	if len(transcript) == 0 && summary == "" {
		return
	}
	c.mu.Lock()
	c.transcript = transcript
	c.summary = summary
	c.mu.Unlock()
	c.opts.Logger.Info("session rehydrated from store", "session_key", c.key, "entries", len(transcript))
}

type wakeReason int

const (
	wakeWork wakeReason = iota
	wakeTimeout
	wakeCanceled
)

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	timer := time.NewTimer(c.opts.InactivityTimeout)
	defer timer.Stop()

	for {
		c.opts.Logger.Info("waiting for messages", "session_key", c.key, "inactivity_timeout", c.opts.InactivityTimeout.String())

		switch c.await(ctx, timer) {
		case wakeCanceled:
			c.opts.Logger.Info("session canceled, finalizing", "session_key", c.key)
			c.finalize(ctx)
			return
		case wakeTimeout:
			c.markTimedOut()
			c.opts.Logger.Info("session closed due to inactivity", "session_key", c.key)
			c.finalize(ctx)
			return
		case wakeWork:
		}

		if c.isCompleteRequested() {
			c.opts.Logger.Info("session completion requested", "session_key", c.key)
			c.finalize(ctx)
			return
		}

		for {
			msg, ok := c.dequeue()
			if !ok {
				break
			}
			c.processTurn(ctx, msg)
		}
		c.setState(StateIdle)
	}
}

// await blocks until there is work (queued message or completion request),
// the inactivity deadline elapses, or ctx is canceled. The deadline is reset
// on every invocation, so it measures idle time since the last drain.
func (c *Controller) await(ctx context.Context, timer *time.Timer) wakeReason {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(c.opts.InactivityTimeout)

	for {
		c.mu.Lock()
		ready := len(c.queue) > 0 || c.completeRequested
		c.mu.Unlock()
		if ready {
			return wakeWork
		}
		select {
		case <-ctx.Done():
			return wakeCanceled
		case <-timer.C:
			return wakeTimeout
		case <-c.wake:
		}
	}
}

func (c *Controller) dequeue() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return "", false
	}
	msg := c.queue[0]
	c.queue = c.queue[1:]
	return msg, true
}

func (c *Controller) isCompleteRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completeRequested
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) markTimedOut() {
	c.mu.Lock()
	c.timedOut = true
	c.mu.Unlock()
}

func (c *Controller) appendEntry(role, text string) {
	c.mu.Lock()
	c.transcript = append(c.transcript, core.Entry{Role: role, Text: text})
	c.mu.Unlock()
}

// processTurn handles one queued message: user entry, tool selection and
// execution, bounded-history completion, assistant entry, best-effort persist.
// A completion that exhausts its retries leaves the turn without an assistant
// entry; every other failure degrades without touching the transcript flow.
func (c *Controller) processTurn(ctx context.Context, prompt string) {
	c.setState(StateDraining)
	started := time.Now()

	c.appendEntry(core.RoleUser, prompt)
	c.opts.Logger.Info("processing message", "session_key", c.key, "prompt", prompt)

	toolContext := ""
	if c.selector != nil {
		conversationContext := c.History().LastN(3).JoinLabeled()
		plan := c.selector.Select(ctx, prompt, conversationContext)
		if plan.UseTools && c.executor != nil {
			toolContext = c.executor.Execute(ctx, plan, prompt)
		}
	}

	finalPrompt := prompt
	if toolContext != "" {
		finalPrompt = enhancedPrompt(prompt, toolContext)
	}

	request := turnPrompt(c.History(), finalPrompt)
	var response string
	err := gateway.Do(ctx, c.opts.CompletionPolicy, "completion", func(ctx context.Context) error {
		var cerr error
		response, cerr = c.completer.Complete(ctx, request)
		return cerr
	})
	if err != nil {
		c.opts.Logger.Error("completion failed, no response for this turn",
			"session_key", c.key,
			"duration", time.Since(started).String(),
			"error", err.Error(),
		)
		return
	}

	c.appendEntry(core.RoleAssistant, response)
	c.opts.Logger.Info("turn completed",
		"session_key", c.key,
		"used_tools", toolContext != "",
		"duration", time.Since(started).String(),
	)

	c.persist(ctx, "")
}

// finalize generates the summary from the full transcript, persists transcript
// plus summary, and terminates. It runs on a context detached from the session
// context so shutdown still flushes state; summary failure is logged and the
// session finalizes with an empty summary.
func (c *Controller) finalize(ctx context.Context) {
	c.setState(StateFinalizing)

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	summary := ""
	if snapshot := c.History(); len(snapshot) > 0 {
		request := summaryPrompt(snapshot)
		var response string
		err := gateway.Do(fctx, c.opts.CompletionPolicy, "summary", func(ctx context.Context) error {
			var cerr error
			response, cerr = c.completer.Complete(ctx, request)
			return cerr
		})
		if err != nil {
			c.opts.Logger.Error("summary generation failed, finalizing without summary", "session_key", c.key, "error", err.Error())
		} else {
			summary = response
			c.opts.Logger.Info("conversation summary generated", "session_key", c.key, "summary", summary)
		}
	}

	c.mu.Lock()
	c.summary = summary
	c.mu.Unlock()

	c.persist(fctx, summary)
	c.setState(StateTerminated)
}

// persist saves the current transcript (and summary, when non-empty) under
// the persistence retry policy. Failures degrade durability, never the
// conversation: the in-memory transcript stays authoritative.
func (c *Controller) persist(ctx context.Context, summary string) {
	if c.opts.Store == nil {
		return
	}
	transcript := c.History()
	err := gateway.Do(ctx, c.opts.PersistPolicy, "persist", func(ctx context.Context) error {
		return c.opts.Store.Save(ctx, c.key, c.opts.OwnerID, transcript, summary)
	})
	if err != nil {
		c.opts.Logger.Error("transcript persistence failed, continuing with in-memory state", "session_key", c.key, "error", err.Error())
	}
}
