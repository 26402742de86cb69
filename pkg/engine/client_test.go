package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/company-search/pkg/errors"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeEngine answers engine API calls from a route table keyed by
// "METHOD /path".
type fakeEngine struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter, body string)
}

func newFakeEngine(t *testing.T) (*fakeEngine, *Client) {
	t.Helper()
	fe := &fakeEngine{routes: make(map[string]func(http.ResponseWriter, string))}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fe.mu.Lock()
		fe.requests = append(fe.requests, recordedRequest{
			Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body),
		})
		handler, ok := fe.routes[r.Method+" "+r.URL.Path]
		fe.mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"type":"no_route","reason":"unexpected call"},"status":404}`)
			return
		}
		handler(w, string(body))
	}))
	t.Cleanup(srv.Close)

	client, err := New(config.EngineConfig{Addresses: []string{srv.URL}, Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return fe, client
}

func (fe *fakeEngine) on(route string, status int, body string) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.routes[route] = func(w http.ResponseWriter, _ string) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func (fe *fakeEngine) last() recordedRequest {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.requests[len(fe.requests)-1]
}

func TestIndexExists(t *testing.T) {
	fe, client := newFakeEngine(t)
	fe.on("HEAD /companies", http.StatusOK, "")

	ok, err := client.IndexExists(context.Background(), "companies")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.IndexExists(context.Background(), "employees")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateIndexSendsMapping(t *testing.T) {
	fe, client := newFakeEngine(t)
	fe.on("PUT /companies", http.StatusOK, `{"acknowledged":true}`)

	mapping := map[string]any{"mappings": map[string]any{"properties": map[string]any{"id": map[string]string{"type": "integer"}}}}
	require.NoError(t, client.CreateIndex(context.Background(), "companies", mapping))

	req := fe.last()
	assert.JSONEq(t, `{"mappings":{"properties":{"id":{"type":"integer"}}}}`, req.Body)
}

func TestCreateIndexError(t *testing.T) {
	fe, client := newFakeEngine(t)
	fe.on("PUT /companies", http.StatusBadRequest,
		`{"error":{"type":"resource_already_exists_exception","reason":"index [companies] already exists"},"status":400}`)

	err := client.CreateIndex(context.Background(), "companies", map[string]any{})
	require.Error(t, err)
	var respErr *ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, "resource_already_exists_exception", respErr.Type)
	assert.True(t, errors.Is(err, apperrors.ErrEngine))
}

func TestUpsertRefreshesOnWrite(t *testing.T) {
	fe, client := newFakeEngine(t)
	fe.on("PUT /companies/_doc/42", http.StatusCreated, `{"result":"created"}`)

	err := client.Upsert(context.Background(), "companies", "42", map[string]any{"id": 42, "name": "Acme Robotics"})
	require.NoError(t, err)

	req := fe.last()
	assert.Contains(t, req.Query, "refresh=true")
	assert.JSONEq(t, `{"id":42,"name":"Acme Robotics"}`, req.Body)
}

func TestDeleteToleratesMissingDocument(t *testing.T) {
	fe, client := newFakeEngine(t)
	fe.on("DELETE /employees/_doc/7", http.StatusNotFound, `{"_id":"7","result":"not_found"}`)

	require.NoError(t, client.Delete(context.Background(), "employees", "7"))
	assert.Contains(t, fe.last().Query, "refresh=true")
}

func TestDeleteMissingIndexIsError(t *testing.T) {
	fe, client := newFakeEngine(t)
	fe.on("DELETE /employees/_doc/7", http.StatusNotFound,
		`{"error":{"type":"index_not_found_exception","reason":"no such index [employees]"},"status":404}`)

	err := client.Delete(context.Background(), "employees", "7")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrIndexNotFound))
}

func TestMsearchPreservesSlotOrder(t *testing.T) {
	fe, client := newFakeEngine(t)
	fe.on("POST /_msearch", http.StatusOK, `{"responses":[
		{"status":200,"hits":{"total":{"value":1},"hits":[{"_id":"1","_source":{"id":1,"name":"Acme"}}]},"aggregations":{"countries":{"buckets":[]}}},
		{"status":404,"error":{"type":"index_not_found_exception","reason":"no such index [employees]"}}
	]}`)

	items, err := client.Msearch(context.Background(), []Search{
		{Index: "companies", Body: map[string]any{"size": 10}},
		{Index: "employees", Body: map[string]any{"size": 10}},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.True(t, items[0].Usable())
	assert.Equal(t, 1, items[0].Hits.Total.Value)
	assert.JSONEq(t, `{"id":1,"name":"Acme"}`, string(items[0].Hits.Hits[0].Source))
	assert.JSONEq(t, `{"countries":{"buckets":[]}}`, string(items[0].Aggregations))

	assert.False(t, items[1].Usable())
	assert.True(t, errors.Is(items[1].Err(), apperrors.ErrIndexNotFound))

	lines := ndjsonLines(t, fe.last().Body)
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":"companies"}`, lines[0])
	assert.JSONEq(t, `{"index":"employees"}`, lines[2])
}

func TestMsearchEmptyBatchSkipsEngine(t *testing.T) {
	fe, client := newFakeEngine(t)
	items, err := client.Msearch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, items)
	assert.Empty(t, fe.requests)
}

func TestMsearchResponseCountMismatch(t *testing.T) {
	fe, client := newFakeEngine(t)
	fe.on("POST /_msearch", http.StatusOK, `{"responses":[]}`)

	_, err := client.Msearch(context.Background(), []Search{{Index: "companies", Body: map[string]any{}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEngine))
}

func TestBulkReportsItemFailures(t *testing.T) {
	fe, client := newFakeEngine(t)
	fe.on("POST /companies/_bulk", http.StatusOK, `{"errors":true,"items":[
		{"index":{"_id":"1","status":201}},
		{"index":{"_id":"2","status":400,"error":{"type":"mapper_parsing_exception","reason":"failed to parse field [date_founded]"}}}
	]}`)

	res, err := client.Bulk(context.Background(), "companies", []BulkItem{
		{ID: "1", Document: map[string]any{"id": 1}},
		{ID: "2", Document: map[string]any{"id": 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Indexed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "2", res.Failures[0].ID)
	assert.Equal(t, "mapper_parsing_exception", res.Failures[0].Type)

	req := fe.last()
	assert.Contains(t, req.Query, "refresh=true")
	lines := ndjsonLines(t, req.Body)
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_id":"1"}}`, lines[0])
	assert.JSONEq(t, `{"id":1}`, lines[1])
}

func TestTransportFailureIsEngineError(t *testing.T) {
	client, err := New(config.EngineConfig{Addresses: []string{"http://127.0.0.1:1"}, Timeout: time.Second})
	require.NoError(t, err)
	defer client.Close()

	err = client.Upsert(context.Background(), "companies", "1", map[string]any{"id": 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEngine))
}

func ndjsonLines(t *testing.T, body string) []string {
	t.Helper()
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			var v any
			require.NoError(t, json.Unmarshal([]byte(line), &v), "line %q is not JSON", line)
			lines = append(lines, line)
		}
	}
	return lines
}
