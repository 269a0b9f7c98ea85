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

// DirectoryOptions configure a Directory.
type DirectoryOptions struct {
	Store             gateway.Store
	Logger            logging.Logger
	InactivityTimeout time.Duration
	CompletionPolicy  gateway.Policy
	PersistPolicy     gateway.Policy
}

// Directory maps session keys to live controllers and deduplicates instance
// creation: concurrent sends for the same unseen key resolve to exactly one
// controller. Terminated sessions are not reopened; a message for a
// terminated key is dropped with a warning.
type Directory struct {
	completer gateway.Completer
	selector  *tool.Selector
	executor  *tool.Executor
	opts      DirectoryOptions

	mu       sync.Mutex
	sessions map[string]*Controller

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDirectory constructs a Directory. The context passed to each controller
// is owned by the directory and canceled on Shutdown.
func NewDirectory(completer gateway.Completer, selector *tool.Selector, executor *tool.Executor, optFns ...func(o *DirectoryOptions)) *Directory {
	opts := DirectoryOptions{
		Logger:            logging.NoOpLogger{},
		InactivityTimeout: DefaultInactivityTimeout,
		CompletionPolicy:  gateway.CompletionPolicy,
		PersistPolicy:     gateway.PersistPolicy,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Directory{
		completer: completer,
		selector:  selector,
		executor:  executor,
		opts:      opts,
		sessions:  make(map[string]*Controller),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SendMessage delivers text to the session identified by sessionKey, starting
// a new controller if the key is unseen. It reports whether the message was
// accepted. Safe for concurrent use with the same key.
func (d *Directory) SendMessage(sessionKey, text string, ownerID *int64) bool {
	d.mu.Lock()
	ctrl, ok := d.sessions[sessionKey]
	if !ok {
		ctrl = New(sessionKey, d.completer, d.selector, d.executor, func(o *Options) {
			o.OwnerID = ownerID
			o.Store = d.opts.Store
			o.Logger = d.opts.Logger
			o.InactivityTimeout = d.opts.InactivityTimeout
			o.CompletionPolicy = d.opts.CompletionPolicy
			o.PersistPolicy = d.opts.PersistPolicy
		})
		d.sessions[sessionKey] = ctrl
	}
	d.mu.Unlock()

	if !ok {
		// Start outside the directory lock; rehydration may hit the store.
		ctrl.Start(d.ctx)
		d.opts.Logger.Info("session started", "session_key", sessionKey)
	}

	if ctrl.State() == StateTerminated {
		d.opts.Logger.Warn("message dropped, session already terminated", "session_key", sessionKey)
		return false
	}
	return ctrl.Enqueue(text)
}

// GetHistory returns the transcript for sessionKey, empty when the key is
// unknown.
func (d *Directory) GetHistory(sessionKey string) core.Transcript {
	d.mu.Lock()
	ctrl, ok := d.sessions[sessionKey]
	d.mu.Unlock()
	if !ok {
		return nil
	}
	return ctrl.History()
}

// GetSummary returns the summary for sessionKey, empty when unknown or not
// yet finalized.
func (d *Directory) GetSummary(sessionKey string) string {
	d.mu.Lock()
	ctrl, ok := d.sessions[sessionKey]
	d.mu.Unlock()
	if !ok {
		return ""
	}
	return ctrl.Summary()
}

// CompleteSession requests termination of sessionKey. Idempotent; unknown
// keys are a no-op.
func (d *Directory) CompleteSession(sessionKey string) {
	d.mu.Lock()
	ctrl, ok := d.sessions[sessionKey]
	d.mu.Unlock()
	if !ok {
		return
	}
	ctrl.RequestCompletion()
}

// Shutdown cancels every session and waits up to timeout for finalization to
// complete. It returns false if the deadline was hit with sessions still
// finalizing.
func (d *Directory) Shutdown(timeout time.Duration) bool {
	d.cancel()

	d.mu.Lock()
	ctrls := make([]*Controller, 0, len(d.sessions))
	for _, c := range d.sessions {
		ctrls = append(ctrls, c)
	}
	d.mu.Unlock()

	deadline := time.After(timeout)
	for _, c := range ctrls {
		select {
		case <-c.Done():
		case <-deadline:
			d.opts.Logger.Warn("shutdown deadline reached with sessions still finalizing")
			return false
		}
	}
	return true
}
