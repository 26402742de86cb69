package executor_test

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	indexsync "github.com/Adithya-Monish-Kumar-K/company-search/internal/indexer/sync"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/engine"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/metrics"
)

// memEngine is an in-memory index shared by the write and read paths. It
// answers company searches by evaluating the name prefix clause and treats
// every other query as match-all.
type memEngine struct {
	mu   sync.Mutex
	docs map[string]map[string]json.RawMessage
}

func newMemEngine() *memEngine {
	return &memEngine{docs: map[string]map[string]json.RawMessage{}}
}

func (e *memEngine) Upsert(_ context.Context, index, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.docs[index] == nil {
		e.docs[index] = map[string]json.RawMessage{}
	}
	e.docs[index][id] = data
	return nil
}

func (e *memEngine) Delete(_ context.Context, index, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.docs[index], id)
	return nil
}

func (e *memEngine) Msearch(_ context.Context, searches []engine.Search) ([]engine.MsearchItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := make([]engine.MsearchItem, len(searches))
	for i, s := range searches {
		prefix := namePrefix(s.Body)
		ids := make([]string, 0, len(e.docs[s.Index]))
		for id := range e.docs[s.Index] {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		hits := &engine.Hits{}
		for _, id := range ids {
			src := e.docs[s.Index][id]
			var doc struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(src, &doc); err != nil {
				return nil, err
			}
			if prefix != "" && !strings.HasPrefix(strings.ToLower(doc.Name), prefix) {
				continue
			}
			hits.Hits = append(hits.Hits, engine.Hit{Index: s.Index, ID: id, Source: src})
		}
		hits.Total.Value = len(hits.Hits)
		items[i] = engine.MsearchItem{Status: 200, Hits: hits}
	}
	return items, nil
}

// namePrefix digs the company name prefix out of a bool query, or returns ""
// when the query has none.
func namePrefix(body any) string {
	b, ok := body.(query.Body)
	if !ok {
		return ""
	}
	q, _ := b["query"].(map[string]any)
	boolq, _ := q["bool"].(map[string]any)
	must, _ := boolq["must"].([]any)
	for _, clause := range must {
		c, _ := clause.(map[string]any)
		p, _ := c["prefix"].(map[string]any)
		name, _ := p["name"].(map[string]any)
		if v, ok := name["value"].(string); ok {
			return strings.ToLower(v)
		}
	}
	return ""
}

type catalog map[int64]document.CompanyDocument

func (c catalog) MapCompany(_ context.Context, id int64) (document.CompanyDocument, error) {
	return c[id], nil
}

func (c catalog) MapEmployee(_ context.Context, id int64) (document.EmployeeDocument, error) {
	return document.EmployeeDocument{ID: id}, nil
}

func TestIndexedCompanyIsSearchableUntilDeleted(t *testing.T) {
	ctx := context.Background()
	indices := document.Indices{Companies: "companies", Employees: "employees"}
	m := metrics.NewUnregistered()
	eng := newMemEngine()

	hooks := indexsync.New(catalog{
		7: {ID: 7, Name: "Acme Robotics", Active: true},
		8: {ID: 8, Name: "Globex", Active: true},
	}, eng, indices, m, nil)
	exec := executor.New(eng, indices, m)
	req := query.SearchRequest{Query: "acme", Types: []document.EntityType{document.Companies}}

	require.NoError(t, hooks.CompanySaved(ctx, 7))
	require.NoError(t, hooks.CompanySaved(ctx, 8))

	resp, err := exec.Execute(ctx, req)
	require.NoError(t, err)
	require.Len(t, resp.Companies, 1)
	var found document.CompanyDocument
	require.NoError(t, json.Unmarshal(resp.Companies[0], &found))
	assert.Equal(t, int64(7), found.ID)
	assert.Equal(t, 1, resp.Total.Companies)
	assert.Equal(t, executor.OutcomeOK, resp.Outcome(document.Companies))
	assert.Equal(t, executor.OutcomeSkipped, resp.Outcome(document.Employees))

	require.NoError(t, hooks.CompanyDeleted(ctx, 7))

	resp, err = exec.Execute(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, resp.Companies)
	assert.Equal(t, 0, resp.Total.Companies)
	assert.Equal(t, executor.OutcomeOK, resp.Outcome(document.Companies))
}
