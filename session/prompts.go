package session

import (
	"fmt"

	"github.com/hupe1980/chatmesh/core"
)

// historyTokenBudget bounds how much conversation history a turn prompt may
// quote back to the completion model.
const historyTokenBudget = 1000

// turnPrompt embeds a bounded window of the history plus the (possibly tool
// enhanced) user prompt into the completion request.
func turnPrompt(transcript core.Transcript, prompt string) string {
	history := transcript.Window(historyTokenBudget).JoinText()
	return fmt.Sprintf(
		"Here is the conversation history: %s Please add a few sentence response to the prompt in plain text sentences. "+
			"Don't editorialize or add metadata like response. Keep the text a plain explanation based on the history. Prompt: %s",
		history, prompt,
	)
}

// summaryPrompt quotes the full transcript (no window) and asks for a two
// sentence summary. Used once at finalization.
func summaryPrompt(transcript core.Transcript) string {
	return fmt.Sprintf(
		"Here is the conversation history between a user and a chatbot: %s  -- Please produce a two sentence summary of this conversation.",
		transcript.JoinText(),
	)
}

// enhancedPrompt folds executed tool context into the user's query.
func enhancedPrompt(query, toolContext string) string {
	return fmt.Sprintf(
		"User query: %s\n\nAdditional context from tools:\n%s\n\nPlease provide a comprehensive response using both the conversation history and the additional context.",
		query, toolContext,
	)
}
