// Package openai implements the gateway's completion, decision and web-search
// operations using the OpenAI Chat Completions API. One Client serves all
// three concerns; each method maps onto a dedicated model (conversation,
// JSON-mode tool decisions, search-preview real-time lookups).
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/gateway"
	"github.com/hupe1980/chatmesh/logging"
)

// Options configure the OpenAI gateway adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	CompletionModel string
	DecisionModel   string
	SearchModel     string
	Temperature     float64
	TopP            float64
	MaxTokens       int64
	Logger          logging.Logger
}

// Client wraps the OpenAI Chat Completions API behind the gateway interfaces.
// It is stateless after construction and safe for concurrent use across
// sessions.
type Client struct {
	client *openai.Client
	opts   Options
}

var (
	_ gateway.Completer   = (*Client)(nil)
	_ gateway.Decider     = (*Client)(nil)
	_ gateway.WebSearcher = (*Client)(nil)
)

// New creates a new OpenAI gateway client using the official SDK client
// (API key taken from the environment).
func New(optFns ...func(o *Options)) *Client {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI gateway client from an existing SDK client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		CompletionModel: openai.ChatModelGPT3_5Turbo,
		DecisionModel:   openai.ChatModelGPT4oMini,
		SearchModel:     "gpt-4o-search-preview",
		Temperature:     0.1,
		TopP:            0.2,
		MaxTokens:       512,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// Complete sends the prompt as a single user message and returns the model's
// text. Provider failures surface as *core.UpstreamError so callers can retry
// under their own policy.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               c.opts.CompletionModel,
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		MaxCompletionTokens: openai.Int(c.opts.MaxTokens),
		Temperature:         openai.Float(c.opts.Temperature),
		TopP:                openai.Float(c.opts.TopP),
	})
	if err != nil {
		c.opts.Logger.Error("openai completion failed", "error", err.Error())
		return "", core.NewUpstreamError("complete", err)
	}
	if len(resp.Choices) == 0 {
		return "", core.NewUpstreamError("complete", fmt.Errorf("no choices returned"))
	}
	c.opts.Logger.Debug("openai completion succeeded", "model", c.opts.CompletionModel, "duration_ms", time.Since(start).Milliseconds())
	return resp.Choices[0].Message.Content, nil
}

// Decide runs a low-temperature JSON-mode chat completion and returns the raw
// JSON document produced by the model. Parsing is the caller's concern; this
// keeps one deserialization boundary in the tool layer.
func (c *Client) Decide(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.opts.DecisionModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxCompletionTokens: openai.Int(1500),
		Temperature:         openai.Float(0.1),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", core.NewUpstreamError("tool_decision", err)
	}
	if len(resp.Choices) == 0 {
		return "", core.NewUpstreamError("tool_decision", fmt.Errorf("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

// WebSearch performs a real-time lookup through the search-preview model and
// returns the synthesized summary plus a single result stub describing it.
func (c *Client) WebSearch(ctx context.Context, req gateway.WebSearchRequest) (*gateway.WebSearchResponse, error) {
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	prompt := fmt.Sprintf(`Please search the web for current information about: %s

Provide up to %d relevant results and then give a comprehensive summary of the findings. Focus on the most recent and accurate information available.`, req.Query, maxResults)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               c.opts.SearchModel,
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		MaxCompletionTokens: openai.Int(2048),
	})
	if err != nil {
		c.opts.Logger.Error("web search failed", "query", req.Query, "error", err.Error())
		return nil, core.NewUpstreamError("web_search", err)
	}
	if len(resp.Choices) == 0 {
		return nil, core.NewUpstreamError("web_search", fmt.Errorf("no choices returned"))
	}
	content := resp.Choices[0].Message.Content

	results := []gateway.WebSearchResult{{
		Title:   fmt.Sprintf("Web Search Results for: %s", req.Query),
		Content: content,
		Source:  c.opts.SearchModel,
	}}
	return &gateway.WebSearchResponse{
		Query:        req.Query,
		Results:      results,
		Summary:      content,
		TotalResults: len(results),
	}, nil
}
