// Package executor runs a federated search: one query per requested entity
// type, submitted together as a single multi-search.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/engine"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/metrics"
)

// Engine is the multi-search capability of the index client.
type Engine interface {
	Msearch(ctx context.Context, searches []engine.Search) ([]engine.MsearchItem, error)
}

// Outcome records what happened to one entity type of a federated search.
type Outcome string

const (
	// OutcomeOK means the type's slot returned hits (possibly none).
	OutcomeOK Outcome = "ok"
	// OutcomeFailed means the engine answered the slot with an error.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the type was not requested.
	OutcomeSkipped Outcome = "skipped"
)

// Totals holds the engine-reported match counts per type.
type Totals struct {
	Companies int `json:"companies"`
	Employees int `json:"employees"`
}

// SearchResponse is the raw federated result. Hits are the matched
// documents' source in engine order. Outcomes is not part of the payload.
type SearchResponse struct {
	Companies    []json.RawMessage `json:"companies"`
	Employees    []json.RawMessage `json:"employees"`
	Total        Totals            `json:"total"`
	Aggregations json.RawMessage   `json:"aggregations,omitempty"`

	Outcomes map[document.EntityType]Outcome `json:"-"`
}

// NewSearchResponse returns an empty response with every type skipped.
func NewSearchResponse() *SearchResponse {
	outcomes := make(map[document.EntityType]Outcome, len(document.EntityTypes))
	for _, t := range document.EntityTypes {
		outcomes[t] = OutcomeSkipped
	}
	return &SearchResponse{
		Companies: []json.RawMessage{},
		Employees: []json.RawMessage{},
		Outcomes:  outcomes,
	}
}

// Hits returns the documents found for t.
func (r *SearchResponse) Hits(t document.EntityType) []json.RawMessage {
	switch t {
	case document.Companies:
		return r.Companies
	case document.Employees:
		return r.Employees
	default:
		return nil
	}
}

// Count returns the engine-reported total for t.
func (r *SearchResponse) Count(t document.EntityType) int {
	switch t {
	case document.Companies:
		return r.Total.Companies
	case document.Employees:
		return r.Total.Employees
	default:
		return 0
	}
}

// Outcome returns what happened to t, defaulting to skipped.
func (r *SearchResponse) Outcome(t document.EntityType) Outcome {
	if o, ok := r.Outcomes[t]; ok {
		return o
	}
	return OutcomeSkipped
}

// Degraded reports whether any requested type failed.
func (r *SearchResponse) Degraded() bool {
	for _, o := range r.Outcomes {
		if o == OutcomeFailed {
			return true
		}
	}
	return false
}

func (r *SearchResponse) set(t document.EntityType, hits []json.RawMessage, total int) {
	switch t {
	case document.Companies:
		r.Companies, r.Total.Companies = hits, total
	case document.Employees:
		r.Employees, r.Total.Employees = hits, total
	}
}

// ResolveTypes expands the requested types into canonical order. An empty
// request or one containing "all" selects every type; duplicates collapse.
func ResolveTypes(requested []document.EntityType) []document.EntityType {
	if len(requested) == 0 {
		return document.EntityTypes
	}
	want := make(map[document.EntityType]bool, len(requested))
	for _, t := range requested {
		if t == document.All {
			return document.EntityTypes
		}
		want[t] = true
	}
	resolved := make([]document.EntityType, 0, len(want))
	for _, t := range document.EntityTypes {
		if want[t] {
			resolved = append(resolved, t)
		}
	}
	return resolved
}

// Executor runs federated searches as one multi-search round trip.
type Executor struct {
	engine  Engine
	indices document.Indices
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns an Executor searching the given indices through eng.
func New(eng Engine, indices document.Indices, m *metrics.Metrics) *Executor {
	return &Executor{
		engine:  eng,
		indices: indices,
		metrics: m,
		logger:  slog.Default().With("component", "search-executor"),
	}
}

// Execute builds one query per resolved type and submits them in a single
// multi-search. A failed slot leaves its type empty with OutcomeFailed; only
// a failure of the whole round trip is returned as an error.
func (e *Executor) Execute(ctx context.Context, req query.SearchRequest) (*SearchResponse, error) {
	resp := NewSearchResponse()
	types := ResolveTypes(req.Types)
	if len(types) == 0 {
		return resp, nil
	}

	searches := make([]engine.Search, 0, len(types))
	for _, t := range types {
		body, err := query.Build(t, req)
		if err != nil {
			return nil, fmt.Errorf("building %s query: %w", t, err)
		}
		searches = append(searches, engine.Search{Index: e.indices.Name(t), Body: body})
	}

	start := time.Now()
	items, err := e.engine.Msearch(ctx, searches)
	e.metrics.EngineLatency.WithLabelValues("msearch").Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("executing federated search: %w", err)
	}

	log := logger.FromContext(ctx)
	found := 0
	for i, t := range types {
		item := items[i]
		if !item.Usable() {
			resp.Outcomes[t] = OutcomeFailed
			e.metrics.SearchTypeOutcomes.WithLabelValues(string(t), metrics.OutcomeFailed).Inc()
			log.Warn("search slot failed",
				"component", "search-executor",
				"entity", t,
				"index", searches[i].Index,
				"error", item.Err(),
			)
			continue
		}

		hits := make([]json.RawMessage, 0, len(item.Hits.Hits))
		for _, h := range item.Hits.Hits {
			hits = append(hits, h.Source)
		}
		resp.set(t, hits, item.Hits.Total.Value)
		resp.Outcomes[t] = OutcomeOK
		if t == document.Companies && len(item.Aggregations) > 0 {
			resp.Aggregations = item.Aggregations
		}
		found += len(hits)
		e.metrics.SearchTypeOutcomes.WithLabelValues(string(t), metrics.OutcomeOK).Inc()
		e.metrics.SearchResultsCount.WithLabelValues(string(t)).Observe(float64(len(hits)))
	}

	resultType := "hit"
	if found == 0 {
		resultType = "zero_result"
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()

	e.logger.Debug("federated search executed",
		"request", req.String(),
		"types", types,
		"companies", resp.Total.Companies,
		"employees", resp.Total.Employees,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
