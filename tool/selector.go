package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/chatmesh/gateway"
	"github.com/hupe1980/chatmesh/logging"
)

const selectorSystemPrompt = `You are an intelligent tool selection agent. Your job is to analyze user queries and determine which tools (if any) should be used to provide the best response.

IMPORTANT INSTRUCTIONS:
1. You must respond with valid JSON only
2. Be conservative - only select tools when they would genuinely improve the response
3. Consider the user's intent carefully - don't over-interpret simple conversational messages
4. For each selected tool, provide clear reasoning and appropriate parameters
5. If no tools are needed, set should_use_tools to false

RESPONSE FORMAT (JSON):
{
  "should_use_tools": boolean,
  "selected_tools": [
    {
      "tool_type": "company_search" | "web_search",
      "confidence": float (0.0-1.0),
      "reasoning": "Clear explanation of why this tool was selected",
      "parameters": {
        "query_text": "search query" (for company_search),
        "query": "search query" (for web_search),
        "num_results": integer (for company_search only)
      }
    }
  ],
  "reasoning": "Overall explanation of tool selection decisions",
  "confidence_score": float (0.0-1.0)
}

DECISION CRITERIA:
- Use company_search for: company/supplier/vendor lookups, business directory searches, finding service providers
- Use web_search for: current events, real-time information, recent news, market data, trending topics
- Use both tools when query requires both company data AND current information
- Use no tools for: general conversation, simple questions that don't require external data

Be precise and only select tools that will meaningfully improve the response quality.`

// SelectorOptions configure a Selector.
type SelectorOptions struct {
	Catalog *Catalog
	Policy  gateway.Policy
	Logger  logging.Logger
}

// Selector asks a decision model which retrieval tools (if any) should run
// for a user query. It is conservative by design and can only degrade, never
// fail: every internal error becomes an empty no-tools plan carrying the
// error description as reasoning.
type Selector struct {
	decider gateway.Decider
	opts    SelectorOptions
}

// NewSelector constructs a Selector backed by the given decision model.
func NewSelector(decider gateway.Decider, optFns ...func(o *SelectorOptions)) *Selector {
	opts := SelectorOptions{
		Catalog: DefaultCatalog(),
		Policy:  gateway.SelectionPolicy,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Selector{decider: decider, opts: opts}
}

// Catalog returns the catalog this selector validates selections against.
func (s *Selector) Catalog() *Catalog { return s.opts.Catalog }

// Select produces the tool plan for a user query with optional recent
// conversation context. It never returns an error.
func (s *Selector) Select(ctx context.Context, userQuery, conversationContext string) Plan {
	if s.decider == nil {
		return EmptyPlan("Tool selection unavailable: no decision model configured")
	}

	userPrompt := s.buildUserPrompt(userQuery, conversationContext)

	var raw string
	err := gateway.Do(ctx, s.opts.Policy, "tool_selection", func(ctx context.Context) error {
		var derr error
		raw, derr = s.decider.Decide(ctx, selectorSystemPrompt, userPrompt)
		return derr
	})
	if err != nil {
		s.opts.Logger.Error("tool selection failed, degrading to no tools", "error", err.Error())
		return EmptyPlan(fmt.Sprintf("Tool selection failed due to error: %v", err))
	}

	plan, err := ParsePlan([]byte(raw), s.opts.Catalog, s.opts.Logger)
	if err != nil {
		s.opts.Logger.Error("tool decision parse failed, degrading to no tools", "error", err.Error())
		return EmptyPlan(fmt.Sprintf("Failed to parse tool decision: %v", err))
	}

	s.opts.Logger.Info("tool selection completed",
		"should_use_tools", plan.UseTools,
		"selected", len(plan.Selections),
		"confidence", plan.Confidence,
	)
	return plan
}

func (s *Selector) buildUserPrompt(userQuery, conversationContext string) string {
	contextSection := ""
	if conversationContext != "" {
		contextSection = fmt.Sprintf("\n\nCONVERSATION CONTEXT:\n%s\n", conversationContext)
	}
	return fmt.Sprintf(`USER QUERY: %q%s

AVAILABLE TOOLS:%s

Analyze the user query and determine which tools (if any) should be used. Respond with JSON only.`,
		userQuery, contextSection, s.opts.Catalog.FormatForDecision())
}
