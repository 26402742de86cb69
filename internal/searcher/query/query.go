// Package query translates a search request into an engine query body for a
// single entity type.
package query

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/company-search/pkg/errors"
)

// DefaultSize is the per-type hit count when a request leaves Size unset.
const DefaultSize = 10

// SearchRequest carries the user's query and filters. Optional numeric
// bounds are pointers so an absent bound differs from zero.
type SearchRequest struct {
	Query            string
	Types            []document.EntityType
	Size             int
	DateFrom         string
	DateTo           string
	DealAmountMin    *float64
	DealAmountMax    *float64
	EmployeeCountMin *int
	EmployeeCountMax *int
	Countries        []string
	SortBy           string
	SortOrder        string
}

// Body is a JSON-serializable engine query.
type Body map[string]any

// Build returns the query body searching entityType with req. Filters on
// founding date, deal amount, employee count and country only apply to
// companies.
func Build(entityType document.EntityType, req SearchRequest) (Body, error) {
	var must []any
	switch entityType {
	case document.Companies:
		must = companyMust(req.Query)
	case document.Employees:
		must = employeeMust(req.Query)
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 400, "unknown entity type %q", entityType)
	}

	filter := []any{}
	should := []any{}
	if entityType == document.Companies {
		filter = companyFilters(req)
		should = append(should, map[string]any{
			"term": map[string]any{
				"active": map[string]any{"value": true, "boost": 1.5},
			},
		})
	}

	size := req.Size
	if size <= 0 {
		size = DefaultSize
	}
	body := Body{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"must":                 must,
				"filter":               filter,
				"should":               should,
				"minimum_should_match": 0,
			},
		},
	}
	if req.SortBy != "" {
		order := req.SortOrder
		if order == "" {
			order = "asc"
		}
		body["sort"] = []any{
			map[string]any{req.SortBy: map[string]any{"order": order}},
		}
	}
	return body, nil
}

func matchAll() []any {
	return []any{map[string]any{"match_all": map[string]any{}}}
}

func companyMust(q string) []any {
	if q == "" {
		return matchAll()
	}
	return []any{map[string]any{
		"prefix": map[string]any{
			"name": map[string]any{
				"value":            strings.ToLower(q),
				"case_insensitive": true,
			},
		},
	}}
}

func employeeMust(q string) []any {
	if q == "" {
		return matchAll()
	}
	fuzzy := func(field string, boost int) any {
		return map[string]any{
			"match": map[string]any{
				field: map[string]any{"query": q, "boost": boost, "fuzziness": "AUTO"},
			},
		}
	}
	return []any{map[string]any{
		"bool": map[string]any{
			"should": []any{
				map[string]any{
					"prefix": map[string]any{
						"name": map[string]any{"value": q, "boost": 4},
					},
				},
				fuzzy("name", 3),
				fuzzy("job_title", 2),
				fuzzy("email", 1),
			},
			"minimum_should_match": 1,
		},
	}}
}

func companyFilters(req SearchRequest) []any {
	filter := []any{}
	if req.DateFrom != "" || req.DateTo != "" {
		bounds := map[string]any{}
		if req.DateFrom != "" {
			bounds["gte"] = req.DateFrom
		}
		if req.DateTo != "" {
			bounds["lte"] = req.DateTo
		}
		filter = append(filter, rangeClause("date_founded", bounds))
	}
	if bounds := minMax(req.DealAmountMin, req.DealAmountMax); bounds != nil {
		filter = append(filter, rangeClause("total_deals_amount", bounds))
	}
	if len(req.Countries) > 0 {
		filter = append(filter, map[string]any{
			"terms": map[string]any{"country.iso_code": req.Countries},
		})
	}
	if bounds := minMax(req.EmployeeCountMin, req.EmployeeCountMax); bounds != nil {
		filter = append(filter, rangeClause("employee_count", bounds))
	}
	return filter
}

// minMax builds gte/lte bounds. A minimum carries the maximum along with it;
// a lone maximum yields lte only. Neither yields nil.
func minMax[T int | float64](lo, hi *T) map[string]any {
	switch {
	case lo != nil:
		bounds := map[string]any{"gte": *lo}
		if hi != nil {
			bounds["lte"] = *hi
		}
		return bounds
	case hi != nil:
		return map[string]any{"lte": *hi}
	default:
		return nil
	}
}

func rangeClause(field string, bounds map[string]any) any {
	return map[string]any{"range": map[string]any{field: bounds}}
}

// String renders a short description of the request for logs.
func (r SearchRequest) String() string {
	return fmt.Sprintf("q=%q types=%v size=%d sort=%s:%s", r.Query, r.Types, r.Size, r.SortBy, r.SortOrder)
}
