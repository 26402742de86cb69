// Package handler serves the federated search HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/render"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/company-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/metrics"
)

const (
	msgInvalidType      = "Invalid search type. Must be one of: all, companies, employees"
	msgInvalidSortOrder = "Invalid sort order. Must be 'asc' or 'desc'"
)

// SearchExecutor runs a federated search, satisfied by *executor.Executor.
type SearchExecutor interface {
	Execute(ctx context.Context, req query.SearchRequest) (*executor.SearchResponse, error)
}

// Handler serves the search API.
type Handler struct {
	executor    SearchExecutor
	cache       *cache.SearchCache
	defaultSize int
	maxSize     int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New builds the handler. searchCache may be nil to disable caching.
func New(exec SearchExecutor, searchCache *cache.SearchCache, cfg config.SearchConfig, m *metrics.Metrics) *Handler {
	return &Handler{
		executor:    exec,
		cache:       searchCache,
		defaultSize: cfg.DefaultSize,
		maxSize:     cfg.MaxSize,
		metrics:     m,
		logger:      slog.Default().With("component", "search-handler"),
	}
}

// Search answers GET /api/v1/search with rendered sections.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parse(w, r)
	if !ok {
		return
	}
	resp, ok := h.execute(w, r, req)
	if !ok {
		return
	}
	rendered, err := render.Render(resp, executor.ResolveTypes(req.Types))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rendered)
}

// RawSearch answers GET /api/v1/search/raw with the federated payload.
func (h *Handler) RawSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parse(w, r)
	if !ok {
		return
	}
	resp, ok := h.execute(w, r, req)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// FilterOptions answers GET /api/v1/search/config/filteroptions.
func (h *Handler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, render.FilterCatalog())
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (query.SearchRequest, bool) {
	req, err := ParseRequest(r.URL.Query(), h.defaultSize, h.maxSize)
	if err != nil {
		var verr *apperrors.ValidationError
		if errors.As(err, &verr) {
			logger.FromContext(r.Context()).Debug("rejected search request", "error", err)
			h.writeError(w, http.StatusBadRequest, verr.Error())
			return req, false
		}
		h.fail(w, r, err)
		return req, false
	}
	return req, true
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request, req query.SearchRequest) (*executor.SearchResponse, bool) {
	ctx := r.Context()
	start := time.Now()

	var (
		resp     *executor.SearchResponse
		cacheHit bool
		err      error
	)
	cacheStatus := "disabled"
	if h.cache != nil {
		resp, cacheHit, err = h.cache.GetOrCompute(ctx, req, func(ctx context.Context) (*executor.SearchResponse, error) {
			return h.executor.Execute(ctx, req)
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		resp, err = h.executor.Execute(ctx, req)
	}
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())

	logger.FromContext(ctx).Info("search completed",
		"component", "search-handler",
		"query", req.Query,
		"companies", resp.Total.Companies,
		"employees", resp.Total.Employees,
		"degraded", resp.Degraded(),
		"cache", cacheStatus,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return resp, true
}

// fail reports err with the status its sentinel maps to.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	logger.FromContext(r.Context()).Error("search failed",
		"component", "search-handler",
		"status", status,
		"error", err,
	)
	h.writeError(w, status, err.Error())
}

// ParseRequest validates query parameters. Type and sort order are checked
// before anything else; empty numeric parameters count as absent. Size
// defaults to defaultSize and is capped at maxSize.
func ParseRequest(params url.Values, defaultSize, maxSize int) (query.SearchRequest, error) {
	req := query.SearchRequest{
		Query:     params.Get("q"),
		Size:      defaultSize,
		DateFrom:  params.Get("date_from"),
		DateTo:    params.Get("date_to"),
		Countries: params["country"],
		SortBy:    params.Get("sort_by"),
		SortOrder: params.Get("sort_order"),
	}

	rawTypes := params["type"]
	if len(rawTypes) == 0 {
		rawTypes = []string{string(document.All)}
	}
	for _, s := range rawTypes {
		t, ok := document.ParseEntityType(s)
		if !ok {
			return req, &apperrors.ValidationError{Message: msgInvalidType}
		}
		req.Types = append(req.Types, t)
	}

	if req.SortOrder != "" && req.SortOrder != "asc" && req.SortOrder != "desc" {
		return req, &apperrors.ValidationError{Message: msgInvalidSortOrder}
	}

	fields := map[string]string{}
	if s := params.Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			fields["size"] = "must be a positive integer"
		} else {
			req.Size = n
		}
	}
	if maxSize > 0 && req.Size > maxSize {
		req.Size = maxSize
	}

	for _, name := range []string{"date_from", "date_to"} {
		if s := params.Get(name); s != "" {
			if _, err := time.Parse("2006-01-02", s); err != nil {
				fields[name] = "must be a date in YYYY-MM-DD format"
			}
		}
	}

	req.DealAmountMin = parseFloat(params, "deal_amount_min", fields)
	req.DealAmountMax = parseFloat(params, "deal_amount_max", fields)
	req.EmployeeCountMin = parseInt(params, "employee_count_min", fields)
	req.EmployeeCountMax = parseInt(params, "employee_count_max", fields)

	if len(fields) > 0 {
		return req, &apperrors.ValidationError{Message: "Invalid search parameters", Fields: fields}
	}
	return req, nil
}

func parseFloat(params url.Values, name string, fields map[string]string) *float64 {
	s := params.Get(name)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		fields[name] = "must be a number"
		return nil
	}
	return &v
}

func parseInt(params url.Values, name string, fields map[string]string) *int {
	s := params.Get(name)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		fields[name] = "must be an integer"
		return nil
	}
	return &v
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
