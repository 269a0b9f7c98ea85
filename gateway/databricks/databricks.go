// Package databricks implements the gateway's vector similarity search
// against the Databricks Vector Search REST API. No official Go SDK covers
// the vector-search surface, so this speaks the documented HTTP contract
// directly. Results are re-ranked by data comprehensiveness before they are
// returned to callers.
package databricks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/gateway"
	"github.com/hupe1980/chatmesh/logging"
)

// Options configure the Databricks vector search client. Endpoint and Index
// act as deployment defaults; a request may still carry its own.
type Options struct {
	Endpoint   string
	Index      string
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client performs similarity searches against a Databricks vector index.
type Client struct {
	host  string
	token string
	opts  Options
}

var _ gateway.VectorSearcher = (*Client)(nil)

// New creates a vector search client for the workspace at host authenticating
// with a personal access token.
func New(host, token string, optFns ...func(o *Options)) *Client {
	opts := Options{
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{host: strings.TrimRight(host, "/"), token: token, opts: opts}
}

type queryPayload struct {
	QueryText   string   `json:"query_text"`
	NumResults  int      `json:"num_results"`
	Columns     []string `json:"columns,omitempty"`
	FiltersJSON string   `json:"filters_json,omitempty"`
	QueryType   string   `json:"query_type"`
}

type queryResult struct {
	Manifest struct {
		Columns []struct {
			Name string `json:"name"`
		} `json:"columns"`
	} `json:"manifest"`
	Result struct {
		RowCount  int     `json:"row_count"`
		DataArray [][]any `json:"data_array"`
	} `json:"result"`
}

// VectorSearch runs an approximate-nearest-neighbor query and returns rows
// sorted by descending comprehensiveness score. Missing query text or index
// name is a validation error and is never retried.
func (c *Client) VectorSearch(ctx context.Context, req gateway.VectorSearchRequest) (*gateway.VectorSearchResponse, error) {
	if strings.TrimSpace(req.QueryText) == "" {
		return nil, core.NewValidationError("query_text", "query text is required")
	}
	index := req.Index
	if index == "" {
		index = c.opts.Index
	}
	if index == "" {
		return nil, core.NewValidationError("index_name", "index name is required")
	}

	numResults := req.NumResults
	if numResults <= 0 {
		numResults = 10
	}

	payload := queryPayload{
		QueryText:  req.QueryText,
		NumResults: numResults,
		Columns:    req.Columns,
		QueryType:  "ann",
	}
	if len(req.Filters) > 0 {
		raw, err := json.Marshal(req.Filters)
		if err != nil {
			return nil, core.NewValidationError("filters", fmt.Sprintf("filters are not serializable: %v", err))
		}
		payload.FiltersJSON = string(raw)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, core.NewUpstreamError("vector_search", err)
	}

	url := fmt.Sprintf("%s/api/2.0/vector-search/indexes/%s/query", c.host, index)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, core.NewUpstreamError("vector_search", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	c.opts.Logger.Debug("vector search", "index", index, "query", req.QueryText, "num_results", numResults)

	httpResp, err := c.opts.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, core.NewUpstreamError("vector_search", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, core.NewUpstreamError("vector_search", fmt.Errorf("status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var result queryResult
	if err := json.NewDecoder(httpResp.Body).Decode(&result); err != nil {
		return nil, core.NewUpstreamError("vector_search", fmt.Errorf("malformed response: %w", err))
	}

	columns := make([]string, 0, len(result.Manifest.Columns))
	for _, col := range result.Manifest.Columns {
		columns = append(columns, col.Name)
	}
	if len(columns) == 0 {
		columns = req.Columns
	}

	resp := &gateway.VectorSearchResponse{
		Columns:      columns,
		Rows:         result.Result.DataArray,
		TotalResults: len(result.Result.DataArray),
	}
	gateway.SortByComprehensiveness(resp)

	c.opts.Logger.Info("vector search completed", "index", index, "total_results", resp.TotalResults)
	return resp, nil
}
