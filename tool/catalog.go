// Package tool contains the retrieval-tool layer: the static self-describing
// catalog, the ToolPlan model produced by LLM-backed selection, the Selector
// that decides which tools should run for a user query, and the Executor that
// runs a plan against the gateway and folds the results into a single context
// block for the completion prompt.
package tool

import (
	"fmt"
	"strings"
)

// Kind identifies a retrieval tool.
type Kind string

const (
	// KindCompanySearch is the vector-backed company/supplier database lookup.
	KindCompanySearch Kind = "company_search"
	// KindWebSearch is the real-time web search.
	KindWebSearch Kind = "web_search"
)

// Descriptor is the self-describing metadata of one tool kind: what it does,
// when to use it, and what parameters it takes. Read-only; loaded once and
// shared across all sessions.
type Descriptor struct {
	Kind           Kind           `json:"kind"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	UseCases       []string       `json:"use_cases"`
	InputSchema    map[string]any `json:"input_schema"`
	ExampleQueries []string       `json:"example_queries"`
}

// Catalog is an immutable set of tool descriptors.
type Catalog struct {
	descriptors []Descriptor
	byKind      map[Kind]Descriptor
}

// NewCatalog builds a catalog from the given descriptors.
func NewCatalog(descriptors ...Descriptor) *Catalog {
	byKind := make(map[Kind]Descriptor, len(descriptors))
	for _, d := range descriptors {
		byKind[d.Kind] = d
	}
	return &Catalog{descriptors: descriptors, byKind: byKind}
}

// Has reports whether the catalog contains the kind.
func (c *Catalog) Has(k Kind) bool {
	_, ok := c.byKind[k]
	return ok
}

// Get returns the descriptor for a kind.
func (c *Catalog) Get(k Kind) (Descriptor, bool) {
	d, ok := c.byKind[k]
	return d, ok
}

// Descriptors returns the catalog contents in registration order.
func (c *Catalog) Descriptors() []Descriptor { return c.descriptors }

// FormatForDecision renders the catalog for consumption by the decision
// model: name, description, top use cases and a few example queries per tool.
func (c *Catalog) FormatForDecision() string {
	formatted := make([]string, 0, len(c.descriptors))
	for i, d := range c.descriptors {
		var b strings.Builder
		fmt.Fprintf(&b, "Tool %d: %s (%s)\n", i+1, d.Name, d.Kind)
		fmt.Fprintf(&b, "Description: %s\n\n", d.Description)
		b.WriteString("Key Use Cases:\n")
		for _, uc := range firstN(d.UseCases, 5) {
			fmt.Fprintf(&b, "- %s\n", uc)
		}
		b.WriteString("\nExample Queries:\n")
		for _, eq := range firstN(d.ExampleQueries, 3) {
			fmt.Fprintf(&b, "- %q\n", eq)
		}
		formatted = append(formatted, strings.TrimSpace(b.String()))
	}
	return "\n\n" + strings.Join(formatted, "\n\n"+strings.Repeat("=", 80)+"\n\n")
}

func firstN(items []string, n int) []string {
	if len(items) < n {
		n = len(items)
	}
	return items[:n]
}

// DefaultColumns are the company record fields retrieved when a selection
// does not name its own column set.
var DefaultColumns = []string{"company_name", "city", "state", "phone", "website", "email", "capability", "scope_of_work_ranges"}

// DefaultCatalog returns the built-in two-tool catalog: the company/supplier
// database search and the real-time web search.
func DefaultCatalog() *Catalog {
	return NewCatalog(companySearchDescriptor(), webSearchDescriptor())
}

func companySearchDescriptor() Descriptor {
	return Descriptor{
		Kind: KindCompanySearch,
		Name: "Company & Supplier Database Search",
		Description: "Searches a comprehensive database of companies and suppliers using vector similarity search. " +
			"Returns detailed company information including contact details, capabilities, locations, " +
			"and scope of work. Ideal for finding suppliers, vendors, contractors, and business partners " +
			"based on business requirements, location, industry, or specific capabilities.",
		UseCases: []string{
			"Finding suppliers for specific products or services",
			"Locating companies with particular capabilities or expertise",
			"Searching for vendors in specific geographic regions",
			"Identifying contractors for construction or IT projects",
			"Getting contact information for business partners",
			"Finding companies that match specific procurement requirements",
			"Researching competitors or market players in an industry",
			"Locating certified or qualified service providers",
		},
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query_text": map[string]any{
					"type":        "string",
					"description": "Natural language search query describing the company or supplier requirements",
				},
				"num_results": map[string]any{
					"type":        "integer",
					"default":     5,
					"description": "Number of results to return (1-10)",
				},
				"columns": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"default":     DefaultColumns,
					"description": "Specific data fields to retrieve",
				},
			},
			"required": []string{"query_text"},
		},
		ExampleQueries: []string{
			"Find IT companies in Texas that provide cloud services",
			"I need construction contractors in California",
			"Search for suppliers that manufacture medical devices",
			"Find companies that provide logistics services in the Midwest",
			"Look for software development firms with AI expertise",
			"I need vendors for renewable energy projects",
			"Find certified minority-owned businesses in New York",
			"Search for companies with expertise in aerospace engineering",
		},
	}
}

func webSearchDescriptor() Descriptor {
	return Descriptor{
		Kind: KindWebSearch,
		Name: "Real-time Web Search",
		Description: "Performs real-time web searches to find current information, news, trends, and up-to-date data " +
			"from across the internet. Uses advanced AI to analyze and summarize search results, providing " +
			"comprehensive and current information on any topic. Ideal for getting the latest news, current " +
			"prices, recent developments, or any information that changes frequently.",
		UseCases: []string{
			"Getting current news and breaking stories",
			"Finding latest stock prices or market information",
			"Checking current weather conditions",
			"Researching recent developments in technology or industry",
			"Finding trending topics or viral content",
			"Getting up-to-date product information or reviews",
			"Checking current prices for goods or services",
			"Finding recent research or scientific publications",
			"Getting current sports scores or statistics",
			"Finding real-time traffic or transportation information",
		},
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query for finding current/real-time information",
				},
			},
			"required": []string{"query"},
		},
		ExampleQueries: []string{
			"What's the current stock price of Apple?",
			"Latest news about artificial intelligence breakthroughs",
			"Current weather in San Francisco",
			"What's trending on social media today?",
			"Recent developments in electric vehicle technology",
			"Current cryptocurrency prices",
			"Latest sports scores from NBA games",
			"Breaking news in the technology sector",
			"Current interest rates for mortgages",
			"What's happening in the stock market right now?",
		},
	}
}
