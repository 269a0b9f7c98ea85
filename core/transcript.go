// Package core defines the shared vocabulary of chatmesh: transcript entries,
// transcripts with bounded-history windowing, and the error taxonomy used to
// classify remote operation failures. Higher-level packages (gateway, tool,
// session) depend only on these types, never on each other's internals.
package core

import "strings"

// Conversation roles recorded in a transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is a single transcript line: who said it and what was said.
type Entry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Transcript is the ordered (role, text) history of a session. It is
// append-only during a session's active lifetime; the owning controller is
// the sole mutator.
type Transcript []Entry

// ApproxTokens estimates the token count of a text using the 1 token ≈ 4
// characters heuristic. Good enough for history budgeting, not billing.
func ApproxTokens(text string) int { return len(text) / 4 }

// LastN returns the trailing n entries (all entries if n exceeds the length).
func (t Transcript) LastN(n int) Transcript {
	if n <= 0 {
		return nil
	}
	if n >= len(t) {
		n = len(t)
	}
	return t[len(t)-n:]
}

// Window returns the longest suffix of the transcript whose approximate token
// total stays at or under tokenBudget. Entries are scanned newest-first; the
// first entry that would push the total over the budget stops accumulation.
// The result preserves chronological order.
func (t Transcript) Window(tokenBudget int) Transcript {
	if tokenBudget <= 0 {
		return nil
	}
	total := 0
	start := len(t)
	for i := len(t) - 1; i >= 0; i-- {
		cost := ApproxTokens(t[i].Text)
		if total+cost > tokenBudget {
			break
		}
		total += cost
		start = i
	}
	return t[start:]
}

// JoinText concatenates entry texts with single spaces, ignoring roles. Used
// to quote history back into completion prompts.
func (t Transcript) JoinText() string {
	parts := make([]string, len(t))
	for i, e := range t {
		parts[i] = e.Text
	}
	return strings.Join(parts, " ")
}

// JoinLabeled concatenates "role: text" pairs with single spaces. Used for
// the short conversation context handed to the tool selector.
func (t Transcript) JoinLabeled() string {
	parts := make([]string, len(t))
	for i, e := range t {
		parts[i] = e.Role + ": " + e.Text
	}
	return strings.Join(parts, " ")
}

// Clone returns a copy safe for use outside the owning controller.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}
