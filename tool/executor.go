package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/chatmesh/gateway"
	"github.com/hupe1980/chatmesh/logging"
)

// ExecutorOptions configure an Executor.
type ExecutorOptions struct {
	Endpoint string
	Index    string
	Policy   gateway.Policy
	Logger   logging.Logger
}

// Executor runs a tool plan against the gateway searchers and folds every
// result into one context block for the completion prompt. Tool failures are
// isolated: a failing tool contributes a short diagnostic line instead of
// aborting the other selections.
type Executor struct {
	vector gateway.VectorSearcher
	web    gateway.WebSearcher
	opts   ExecutorOptions
}

// NewExecutor constructs an Executor. Either searcher may be nil; selections
// for an unconfigured tool degrade to a diagnostic line.
func NewExecutor(vector gateway.VectorSearcher, web gateway.WebSearcher, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		Policy: gateway.SearchPolicy,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{vector: vector, web: web, opts: opts}
}

// Execute runs every selection of the plan in order and returns the combined
// tool context, or "" when the plan selected no tools or produced nothing.
func (e *Executor) Execute(ctx context.Context, plan Plan, originalQuery string) string {
	if !plan.UseTools || len(plan.Selections) == 0 {
		return ""
	}

	sections := make([]string, 0, len(plan.Selections)+1)
	sections = append(sections, fmt.Sprintf("Tool Selection Reasoning: %s", plan.Reasoning))

	for _, sel := range plan.Selections {
		e.opts.Logger.Info("executing tool",
			"tool_type", string(sel.Kind),
			"confidence", sel.Confidence,
		)
		var section string
		var err error
		switch sel.Kind {
		case KindCompanySearch:
			section, err = e.runCompanySearch(ctx, sel, originalQuery)
		case KindWebSearch:
			section, err = e.runWebSearch(ctx, sel, originalQuery)
		default:
			continue
		}
		if err != nil {
			e.opts.Logger.Error("tool execution failed", "tool_type", string(sel.Kind), "error", err.Error())
			section = fmt.Sprintf("%s search encountered an error, proceeding with general response.", sel.Kind)
		}
		if section != "" {
			sections = append(sections, section)
		}
	}

	if len(sections) == 1 {
		return ""
	}
	return strings.Join(sections, "\n\n")
}

func (e *Executor) runCompanySearch(ctx context.Context, sel Selection, originalQuery string) (string, error) {
	if e.vector == nil {
		return "", fmt.Errorf("no vector searcher configured")
	}

	queryText := sel.StringParam("query_text", originalQuery)
	numResults := sel.IntParam("num_results", 5)
	if numResults < 1 {
		numResults = 1
	}
	if numResults > 10 {
		numResults = 10
	}

	req := gateway.VectorSearchRequest{
		Endpoint:   e.opts.Endpoint,
		Index:      e.opts.Index,
		QueryText:  queryText,
		NumResults: numResults,
		Columns:    DefaultColumns,
	}

	var resp *gateway.VectorSearchResponse
	err := gateway.Do(ctx, e.opts.Policy, "company_search", func(ctx context.Context) error {
		var serr error
		resp, serr = e.vector.VectorSearch(ctx, req)
		return serr
	})
	if err != nil {
		return "", err
	}

	return formatCompanyResults(resp), nil
}

func (e *Executor) runWebSearch(ctx context.Context, sel Selection, originalQuery string) (string, error) {
	if e.web == nil {
		return "", fmt.Errorf("no web searcher configured")
	}

	query := sel.StringParam("query", originalQuery)
	req := gateway.WebSearchRequest{Query: query, MaxResults: 5}

	var resp *gateway.WebSearchResponse
	err := gateway.Do(ctx, e.opts.Policy, "web_search", func(ctx context.Context) error {
		var serr error
		resp, serr = e.web.WebSearch(ctx, req)
		return serr
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Current Web Information: %s", resp.Summary), nil
}

func formatCompanyResults(resp *gateway.VectorSearchResponse) string {
	if resp == nil || len(resp.Rows) == 0 {
		return "No companies found matching the search criteria."
	}

	colIdx := make(map[string]int, len(resp.Columns))
	for i, c := range resp.Columns {
		colIdx[c] = i
	}

	field := func(row []any, name string) string {
		i, ok := colIdx[name]
		if !ok || i >= len(row) || row[i] == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprintf("%v", row[i]))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Company Search Results: %d companies found matching your query.", resp.TotalResults)

	top := resp.Rows
	if len(top) > 3 {
		top = top[:3]
	}
	for i, row := range top {
		name := field(row, "company_name")
		if name == "" {
			name = "N/A"
		}
		fmt.Fprintf(&b, "\nCompany %d: %s", i+1, name)
		if phone := field(row, "phone"); phone != "" {
			fmt.Fprintf(&b, ", Phone: %s", phone)
		}
		if email := field(row, "email"); email != "" {
			fmt.Fprintf(&b, ", Email: %s", email)
		}
		if city, state := field(row, "city"), field(row, "state"); city != "" && state != "" {
			fmt.Fprintf(&b, ", Location: %s, %s", city, state)
		}
		if capability := field(row, "capability"); capability != "" {
			if len(capability) > 100 {
				capability = capability[:100] + "..."
			}
			fmt.Fprintf(&b, ", Capabilities: %s", capability)
		}
	}
	return b.String()
}
