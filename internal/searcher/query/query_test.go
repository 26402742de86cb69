package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/company-search/pkg/errors"
)

func ptr[T any](v T) *T { return &v }

func buildJSON(t *testing.T, entity document.EntityType, req SearchRequest) string {
	t.Helper()
	body, err := Build(entity, req)
	require.NoError(t, err)
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return string(raw)
}

// clauses decodes the bool query of a built body.
func clauses(t *testing.T, entity document.EntityType, req SearchRequest) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(buildJSON(t, entity, req)), &body))
	return body["query"].(map[string]any)["bool"].(map[string]any)
}

func TestEmptyQueryMatchesAll(t *testing.T) {
	assert.JSONEq(t, `{
		"size": 10,
		"query": {"bool": {
			"must": [{"match_all": {}}],
			"filter": [],
			"should": [],
			"minimum_should_match": 0
		}}
	}`, buildJSON(t, document.Employees, SearchRequest{}))
}

func TestCompanyPrefixIsLowerCased(t *testing.T) {
	assert.JSONEq(t, `{
		"size": 5,
		"query": {"bool": {
			"must": [{"prefix": {"name": {"value": "acme", "case_insensitive": true}}}],
			"filter": [],
			"should": [{"term": {"active": {"value": true, "boost": 1.5}}}],
			"minimum_should_match": 0
		}}
	}`, buildJSON(t, document.Companies, SearchRequest{Query: "ACME", Size: 5}))
}

func TestEmployeeQueryBoosts(t *testing.T) {
	assert.JSONEq(t, `{
		"size": 10,
		"query": {"bool": {
			"must": [{"bool": {
				"should": [
					{"prefix": {"name": {"value": "Ada", "boost": 4}}},
					{"match": {"name": {"query": "Ada", "boost": 3, "fuzziness": "AUTO"}}},
					{"match": {"job_title": {"query": "Ada", "boost": 2, "fuzziness": "AUTO"}}},
					{"match": {"email": {"query": "Ada", "boost": 1, "fuzziness": "AUTO"}}}
				],
				"minimum_should_match": 1
			}}],
			"filter": [],
			"should": [],
			"minimum_should_match": 0
		}}
	}`, buildJSON(t, document.Employees, SearchRequest{Query: "Ada"}))
}

func TestRangeBranching(t *testing.T) {
	tests := []struct {
		name string
		req  SearchRequest
		want string
	}{
		{"deal min only", SearchRequest{DealAmountMin: ptr(10.0)}, `[{"range": {"total_deals_amount": {"gte": 10}}}]`},
		{"deal both", SearchRequest{DealAmountMin: ptr(10.0), DealAmountMax: ptr(20.0)}, `[{"range": {"total_deals_amount": {"gte": 10, "lte": 20}}}]`},
		{"deal max only", SearchRequest{DealAmountMax: ptr(20.0)}, `[{"range": {"total_deals_amount": {"lte": 20}}}]`},
		{"deal zero min is present", SearchRequest{DealAmountMin: ptr(0.0)}, `[{"range": {"total_deals_amount": {"gte": 0}}}]`},
		{"employees min only", SearchRequest{EmployeeCountMin: ptr(5)}, `[{"range": {"employee_count": {"gte": 5}}}]`},
		{"employees both", SearchRequest{EmployeeCountMin: ptr(5), EmployeeCountMax: ptr(250)}, `[{"range": {"employee_count": {"gte": 5, "lte": 250}}}]`},
		{"employees max only", SearchRequest{EmployeeCountMax: ptr(250)}, `[{"range": {"employee_count": {"lte": 250}}}]`},
		{"employees zero min is present", SearchRequest{EmployeeCountMin: ptr(0)}, `[{"range": {"employee_count": {"gte": 0}}}]`},
		{"neither", SearchRequest{}, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := clauses(t, document.Companies, tt.req)
			raw, err := json.Marshal(b["filter"])
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestCompanyFiltersInOrder(t *testing.T) {
	req := SearchRequest{
		DateFrom:         "2000-01-01",
		DealAmountMax:    ptr(5e6),
		Countries:        []string{"GB", "FR"},
		EmployeeCountMin: ptr(3),
		EmployeeCountMax: ptr(50),
	}
	b := clauses(t, document.Companies, req)
	raw, err := json.Marshal(b["filter"])
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"range": {"date_founded": {"gte": "2000-01-01"}}},
		{"range": {"total_deals_amount": {"lte": 5000000}}},
		{"terms": {"country.iso_code": ["GB", "FR"]}},
		{"range": {"employee_count": {"gte": 3, "lte": 50}}}
	]`, string(raw))
}

func TestDateRangeUpperOnly(t *testing.T) {
	b := clauses(t, document.Companies, SearchRequest{DateTo: "2020-12-31"})
	raw, err := json.Marshal(b["filter"])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"range": {"date_founded": {"lte": "2020-12-31"}}}]`, string(raw))
}

func TestEmployeesIgnoreCompanyFilters(t *testing.T) {
	req := SearchRequest{
		DateFrom:         "2000-01-01",
		DealAmountMin:    ptr(1.0),
		Countries:        []string{"GB"},
		EmployeeCountMin: ptr(1),
	}
	b := clauses(t, document.Employees, req)
	assert.Empty(t, b["filter"])
	assert.Empty(t, b["should"])
}

func TestSort(t *testing.T) {
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(buildJSON(t, document.Companies, SearchRequest{SortBy: "name"})), &body))
	raw, _ := json.Marshal(body["sort"])
	assert.JSONEq(t, `[{"name": {"order": "asc"}}]`, string(raw))

	body = nil
	require.NoError(t, json.Unmarshal([]byte(buildJSON(t, document.Employees, SearchRequest{SortBy: "name", SortOrder: "desc"})), &body))
	raw, _ = json.Marshal(body["sort"])
	assert.JSONEq(t, `[{"name": {"order": "desc"}}]`, string(raw))

	body = nil
	require.NoError(t, json.Unmarshal([]byte(buildJSON(t, document.Companies, SearchRequest{SortOrder: "desc"})), &body))
	assert.NotContains(t, body, "sort")
}

func TestUnknownEntityType(t *testing.T) {
	_, err := Build(document.All, SearchRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = Build("deals", SearchRequest{})
	assert.Error(t, err)
}
