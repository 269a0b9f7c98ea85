package databricks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/gateway"
)

func TestVectorSearchValidation(t *testing.T) {
	c := New("https://dbc.example", "token")

	_, err := c.VectorSearch(context.Background(), gateway.VectorSearchRequest{Index: "idx"})
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "query_text", ve.Field)

	_, err = c.VectorSearch(context.Background(), gateway.VectorSearchRequest{QueryText: "acme"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "index_name", ve.Field)
}

func TestVectorSearchParsesAndSorts(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.0/vector-search/indexes/catalog.schema.idx/query", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		resp := map[string]any{
			"manifest": map[string]any{
				"columns": []map[string]any{
					{"name": "company_name"}, {"name": "city"}, {"name": "state"},
					{"name": "phone"}, {"name": "website"}, {"name": "email"},
					{"name": "capability"}, {"name": "scope_of_work_ranges"},
				},
			},
			"result": map[string]any{
				"row_count": 2,
				"data_array": [][]any{
					{"Sparse Co", "", "", "", "", "", "", ""},
					{"Complete Co", "Austin", "TX", "555-0100", "c.example", "a@c.example", "IT", "$1M"},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	resp, err := c.VectorSearch(context.Background(), gateway.VectorSearchRequest{
		Index:      "catalog.schema.idx",
		QueryText:  "IT companies in Texas",
		NumResults: 5,
		Columns:    []string{"company_name", "city"},
	})
	require.NoError(t, err)

	assert.Equal(t, "IT companies in Texas", gotPayload["query_text"])
	assert.Equal(t, float64(5), gotPayload["num_results"])
	assert.Equal(t, "ann", gotPayload["query_type"])

	assert.Equal(t, 2, resp.TotalResults)
	// Rows come back re-ranked by comprehensiveness, most complete first.
	assert.Equal(t, "Complete Co", resp.Rows[0][0])
	assert.Equal(t, "Sparse Co", resp.Rows[1][0])
	require.Len(t, resp.Scores, 2)
	assert.Greater(t, resp.Scores[0], resp.Scores[1])
}

func TestVectorSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "index not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	_, err := c.VectorSearch(context.Background(), gateway.VectorSearchRequest{
		Index:     "missing.idx",
		QueryText: "acme",
	})
	var ue *core.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, err.Error(), "status 404")
}

func TestVectorSearchDefaultIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.0/vector-search/indexes/default.idx/query", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	c := New(srv.URL, "token", func(o *Options) { o.Index = "default.idx" })
	resp, err := c.VectorSearch(context.Background(), gateway.VectorSearchRequest{QueryText: "acme"})
	require.NoError(t, err)
	assert.Zero(t, resp.TotalResults)
}
