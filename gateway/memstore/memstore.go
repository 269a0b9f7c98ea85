// Package memstore provides a volatile gateway.Store storing transcripts in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo deployments; production deployments should use the
// postgres store instead.
package memstore

import (
	"context"
	"sync"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/gateway"
)

type record struct {
	transcript core.Transcript
	summary    string
	ownerID    *int64
}

// Store is an in-memory Store implementation. Saved transcripts are cloned in
// both directions to prevent external mutation of internal state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]record
}

var _ gateway.Store = (*Store)(nil)

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{sessions: make(map[string]record)}
}

// Save replaces the stored transcript for sessionKey. A non-empty summary
// overwrites the stored one; an empty summary leaves it untouched, matching
// the upsert semantics of the relational store.
func (s *Store) Save(_ context.Context, sessionKey string, ownerID *int64, transcript core.Transcript, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.sessions[sessionKey]
	rec.transcript = transcript.Clone()
	rec.ownerID = ownerID
	if summary != "" {
		rec.summary = summary
	}
	s.sessions[sessionKey] = rec
	return nil
}

// Load returns the stored transcript and summary, or empty values when the
// session key is unknown.
func (s *Store) Load(_ context.Context, sessionKey string) (core.Transcript, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionKey]
	if !ok {
		return nil, "", nil
	}
	return rec.transcript.Clone(), rec.summary, nil
}

// Len reports the number of stored sessions. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
