// Package gateway is the boundary between chatmesh and every remote system it
// talks to: language-model completion, vector similarity search, real-time web
// search and relational persistence. Each external call is wrapped behind a
// small interface with typed request/response structures so the session state
// machine never sees provider SDKs. Implementations live in the provider
// subpackages (openai, anthropic, databricks, postgres, memstore) and must be
// safe for concurrent use by many sessions at once.
package gateway

import (
	"context"

	"github.com/hupe1980/chatmesh/core"
)

// Completer produces a free-text completion for a prompt. Callers apply their
// own retry policy; implementations fail fast with *core.UpstreamError.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Decider asks a language model for a structured (JSON object) decision given
// a system instruction and a user prompt. Used by the tool selector.
type Decider interface {
	Decide(ctx context.Context, system, user string) (string, error)
}

// VectorSearchRequest describes a similarity search against a vector index.
type VectorSearchRequest struct {
	Endpoint   string         `json:"endpoint_name"`
	Index      string         `json:"index_name"`
	QueryText  string         `json:"query_text"`
	NumResults int            `json:"num_results"`
	Columns    []string       `json:"columns,omitempty"`
	Filters    map[string]any `json:"filters,omitempty"`
}

// VectorSearchResponse carries raw result rows plus the comprehensiveness
// scores computed when the rows were re-ranked (see SortByComprehensiveness).
type VectorSearchResponse struct {
	Columns      []string  `json:"columns"`
	Rows         [][]any   `json:"rows"`
	TotalResults int       `json:"total_results"`
	Scores       []float64 `json:"comprehensiveness_scores,omitempty"`
}

// VectorSearcher performs similarity search returning rows ordered by data
// comprehensiveness (most complete records first).
type VectorSearcher interface {
	VectorSearch(ctx context.Context, req VectorSearchRequest) (*VectorSearchResponse, error)
}

// WebSearchRequest describes a real-time web search.
type WebSearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// WebSearchResult is a single result stub.
type WebSearchResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// WebSearchResponse carries result stubs plus a synthesized summary of the
// findings.
type WebSearchResponse struct {
	Query        string            `json:"query"`
	Results      []WebSearchResult `json:"results"`
	Summary      string            `json:"summary"`
	TotalResults int               `json:"total_results"`
}

// WebSearcher performs a real-time web search.
type WebSearcher interface {
	WebSearch(ctx context.Context, req WebSearchRequest) (*WebSearchResponse, error)
}

// Store persists session transcripts and summaries. Save replaces all rows for
// the session key and upserts the summary atomically, making it safe to
// re-invoke under retry. Load rehydrates a previously persisted session.
type Store interface {
	Save(ctx context.Context, sessionKey string, ownerID *int64, transcript core.Transcript, summary string) error
	Load(ctx context.Context, sessionKey string) (core.Transcript, string, error)
}
