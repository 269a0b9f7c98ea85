package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/chatmesh/gateway"
)

// ScriptedCompleter returns canned responses in order, then repeats the last
// one. When Err is set every call fails with it instead.
type ScriptedCompleter struct {
	Responses []string
	Err       error

	mu      sync.Mutex
	calls   int
	prompts []string
}

// Complete returns the next scripted response.
func (c *ScriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.prompts = append(c.prompts, prompt)
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Responses) == 0 {
		return "ok", nil
	}
	idx := c.calls - 1
	if idx >= len(c.Responses) {
		idx = len(c.Responses) - 1
	}
	return c.Responses[idx], nil
}

// Calls reports how many times Complete was invoked.
func (c *ScriptedCompleter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Prompts returns a copy of every prompt seen so far.
func (c *ScriptedCompleter) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.prompts))
	copy(out, c.prompts)
	return out
}

// ScriptedDecider returns a fixed raw JSON decision (or error).
type ScriptedDecider struct {
	Raw string
	Err error

	mu    sync.Mutex
	calls int
}

// Decide returns the scripted JSON document.
func (d *ScriptedDecider) Decide(context.Context, string, string) (string, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.Err != nil {
		return "", d.Err
	}
	return d.Raw, nil
}

// Calls reports how many times Decide was invoked.
func (d *ScriptedDecider) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// StubVectorSearcher returns a fixed response (or error) and records the last
// request.
type StubVectorSearcher struct {
	Response *gateway.VectorSearchResponse
	Err      error

	mu      sync.Mutex
	lastReq gateway.VectorSearchRequest
	calls   int
}

// VectorSearch returns the stubbed response.
func (s *StubVectorSearcher) VectorSearch(_ context.Context, req gateway.VectorSearchRequest) (*gateway.VectorSearchResponse, error) {
	s.mu.Lock()
	s.lastReq = req
	s.calls++
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Response, nil
}

// LastRequest returns the most recent request.
func (s *StubVectorSearcher) LastRequest() gateway.VectorSearchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq
}

// Calls reports how many times VectorSearch was invoked.
func (s *StubVectorSearcher) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// StubWebSearcher returns a fixed response (or error).
type StubWebSearcher struct {
	Response *gateway.WebSearchResponse
	Err      error

	mu      sync.Mutex
	lastReq gateway.WebSearchRequest
}

// WebSearch returns the stubbed response.
func (s *StubWebSearcher) WebSearch(_ context.Context, req gateway.WebSearchRequest) (*gateway.WebSearchResponse, error) {
	s.mu.Lock()
	s.lastReq = req
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Response, nil
}

// LastRequest returns the most recent request.
func (s *StubWebSearcher) LastRequest() gateway.WebSearchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq
}
