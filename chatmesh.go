// Package chatmesh provides a high-level façade over the session directory
// and gateway abstractions (completion, tool retrieval, persistence &
// logging) enabling rapid construction of durable conversational backends.
// Most applications interact with this package by:
//  1. Creating a ChatMesh via New() (optionally overriding default in-memory services)
//  2. Sending user messages keyed by session (SendMessage)
//  3. Querying transcripts (GetHistory) and closing sessions (CompleteSession)
//
// The façade delegates session lifecycle to session.Directory while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply the
// postgres store and a structured logger.
package chatmesh

import (
	"time"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/gateway"
	"github.com/hupe1980/chatmesh/gateway/memstore"
	"github.com/hupe1980/chatmesh/logging"
	"github.com/hupe1980/chatmesh/session"
	"github.com/hupe1980/chatmesh/tool"
)

// Options configures the ChatMesh instance.
type Options struct {
	// Decider drives tool selection. Nil disables tool selection entirely;
	// every turn then runs as a plain completion.
	Decider gateway.Decider

	// VectorSearcher backs the company/supplier retrieval tool. Nil degrades
	// company-search selections to a diagnostic line.
	VectorSearcher gateway.VectorSearcher

	// WebSearcher backs the real-time web retrieval tool. Nil degrades
	// web-search selections to a diagnostic line.
	WebSearcher gateway.WebSearcher

	// VectorEndpoint and VectorIndex address the vector search index queried
	// by the company retrieval tool.
	VectorEndpoint string
	VectorIndex    string

	// Store persists transcripts and summaries (defaults to an in-memory
	// implementation if not provided).
	Store gateway.Store

	// Catalog is the retrieval tool catalog (defaults to the built-in
	// two-tool catalog).
	Catalog *tool.Catalog

	// InactivityTimeout closes idle sessions (defaults to five minutes).
	InactivityTimeout time.Duration

	// Retry policies for the remote operations.
	CompletionPolicy gateway.Policy
	SelectionPolicy  gateway.Policy
	SearchPolicy     gateway.Policy
	PersistPolicy    gateway.Policy

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// ChatMesh is the high-level façade aggregating the session directory and the
// configured gateway services.
type ChatMesh struct {
	opts      Options
	directory *session.Directory
}

// New creates a new ChatMesh instance driven by the given completion model.
// Any unset service is initialized with a safe default.
func New(completer gateway.Completer, optFns ...func(o *Options)) *ChatMesh {
	opts := Options{
		Store:             memstore.New(),
		Catalog:           tool.DefaultCatalog(),
		InactivityTimeout: session.DefaultInactivityTimeout,
		CompletionPolicy:  gateway.CompletionPolicy,
		SelectionPolicy:   gateway.SelectionPolicy,
		SearchPolicy:      gateway.SearchPolicy,
		PersistPolicy:     gateway.PersistPolicy,
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var selector *tool.Selector
	if opts.Decider != nil {
		selector = tool.NewSelector(opts.Decider, func(o *tool.SelectorOptions) {
			o.Catalog = opts.Catalog
			o.Policy = opts.SelectionPolicy
			o.Logger = opts.Logger
		})
	}

	executor := tool.NewExecutor(opts.VectorSearcher, opts.WebSearcher, func(o *tool.ExecutorOptions) {
		o.Endpoint = opts.VectorEndpoint
		o.Index = opts.VectorIndex
		o.Policy = opts.SearchPolicy
		o.Logger = opts.Logger
	})

	directory := session.NewDirectory(completer, selector, executor, func(o *session.DirectoryOptions) {
		o.Store = opts.Store
		o.Logger = opts.Logger
		o.InactivityTimeout = opts.InactivityTimeout
		o.CompletionPolicy = opts.CompletionPolicy
		o.PersistPolicy = opts.PersistPolicy
	})

	return &ChatMesh{opts: opts, directory: directory}
}

// SendMessage delivers a user message to the session identified by sessionKey,
// starting the session if the key is unseen. Delivery is fire-and-forget; the
// returned bool reports whether the message was accepted (false when the
// session already closed). The effect becomes visible via GetHistory.
func (m *ChatMesh) SendMessage(sessionKey, text string, ownerID *int64) bool {
	return m.directory.SendMessage(sessionKey, text, ownerID)
}

// GetHistory returns the ordered transcript for sessionKey, empty when the
// session is unknown.
func (m *ChatMesh) GetHistory(sessionKey string) core.Transcript {
	return m.directory.GetHistory(sessionKey)
}

// GetSummary returns the session summary, empty until the session finalized.
func (m *ChatMesh) GetSummary(sessionKey string) string {
	return m.directory.GetSummary(sessionKey)
}

// CompleteSession requests termination of the session. Idempotent.
func (m *ChatMesh) CompleteSession(sessionKey string) {
	m.directory.CompleteSession(sessionKey)
}

// Shutdown cancels all sessions and waits up to timeout for them to finalize.
func (m *ChatMesh) Shutdown(timeout time.Duration) bool {
	return m.directory.Shutdown(timeout)
}
