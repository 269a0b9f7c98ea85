package gateway

import (
	"fmt"
	"sort"
	"strings"
)

// Field groups and weights for the comprehensiveness score. A record with
// full contact details and business data outranks one that only has a name.
var (
	contactFields  = []string{"phone", "email", "website"}
	addressFields  = []string{"city", "state", "physical_address", "address", "zip"}
	businessFields = []string{"capability", "scope_of_work_ranges", "commodity_codes"}
)

const (
	contactWeight  = 3.0
	addressWeight  = 2.0
	businessWeight = 3.0
	basicWeight    = 1.0
	maxScore       = 10.0
)

// Comprehensiveness computes the weighted completeness score of a result row.
// Contact fields always divide by the full group size; address and business
// sub-scores divide by the fields actually available in the column set. A
// present company_name adds the basic weight. The total is capped at 10.
func Comprehensiveness(columns []string, row []any) float64 {
	if len(row) != len(columns) {
		return 0
	}
	values := make(map[string]any, len(columns))
	for i, col := range columns {
		values[col] = row[i]
	}

	score := 0.0

	present := 0
	for _, f := range contactFields {
		if fieldPresent(values, f) {
			present++
		}
	}
	score += float64(present) / float64(len(contactFields)) * contactWeight

	score += groupScore(columns, values, addressFields) * addressWeight
	score += groupScore(columns, values, businessFields) * businessWeight

	if fieldPresent(values, "company_name") {
		score += basicWeight
	}

	if score > maxScore {
		score = maxScore
	}
	return score
}

// groupScore returns present/available for the subset of fields that exist in
// the column set, or 0 when none are available.
func groupScore(columns []string, values map[string]any, fields []string) float64 {
	available, present := 0, 0
	for _, f := range fields {
		if !containsColumn(columns, f) {
			continue
		}
		available++
		if fieldPresent(values, f) {
			present++
		}
	}
	if available == 0 {
		return 0
	}
	return float64(present) / float64(available)
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

func fieldPresent(values map[string]any, field string) bool {
	v, ok := values[field]
	if !ok || v == nil {
		return false
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v)) != ""
}

// SortByComprehensiveness re-orders response rows by descending score and
// records the per-row scores. The sort is stable: rows with equal scores keep
// their original relative order, so sorting an already-sorted response is a
// no-op.
func SortByComprehensiveness(resp *VectorSearchResponse) {
	if resp == nil || len(resp.Rows) == 0 || len(resp.Columns) == 0 {
		return
	}
	type scored struct {
		row   []any
		score float64
	}
	items := make([]scored, len(resp.Rows))
	for i, row := range resp.Rows {
		items[i] = scored{row: row, score: Comprehensiveness(resp.Columns, row)}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })
	scores := make([]float64, len(items))
	for i, it := range items {
		resp.Rows[i] = it.row
		scores[i] = it.score
	}
	resp.Scores = scores
}
