package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/chatmesh/core"
)

func TestTurnPromptBoundsHistory(t *testing.T) {
	long := strings.Repeat("a", 5000) // well over the 1000 token budget
	tr := core.Transcript{
		{Role: core.RoleUser, Text: long},
		{Role: core.RoleAssistant, Text: "recent answer"},
		{Role: core.RoleUser, Text: "recent question"},
	}

	got := turnPrompt(tr, "recent question")
	assert.Contains(t, got, "Here is the conversation history: recent answer recent question")
	assert.Contains(t, got, "Prompt: recent question")
	assert.NotContains(t, got, long, "over-budget entries must be excluded")
}

func TestSummaryPromptUsesFullTranscript(t *testing.T) {
	long := strings.Repeat("b", 5000)
	tr := core.Transcript{
		{Role: core.RoleUser, Text: long},
		{Role: core.RoleAssistant, Text: "short"},
	}

	got := summaryPrompt(tr)
	assert.Contains(t, got, long, "summary prompt is built from the unbounded transcript")
	assert.Contains(t, got, "Please produce a two sentence summary of this conversation.")
}

func TestEnhancedPrompt(t *testing.T) {
	got := enhancedPrompt("find suppliers", "Company Search Results: 2 companies found")
	assert.Contains(t, got, "User query: find suppliers")
	assert.Contains(t, got, "Additional context from tools:\nCompany Search Results: 2 companies found")
	assert.Contains(t, got, "comprehensive response")
}
