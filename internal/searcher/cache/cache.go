// Package cache stores raw federated search responses in Redis and collapses
// concurrent identical searches into one engine round trip.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/company-search/pkg/redis"
)

const (
	keyPrefix = "search:"
	// generationKey lives outside keyPrefix so flushing never resets it.
	generationKey = "search-gen"
)

// Store is the key/value backend, satisfied by *pkgredis.Client.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type entry struct {
	Response *executor.SearchResponse                 `json:"response"`
	Outcomes map[document.EntityType]executor.Outcome `json:"outcomes"`
}

// SearchCache is safe for concurrent use. Backend failures are logged and
// treated as misses.
type SearchCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns a cache that keeps responses in store for ttl.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *SearchCache {
	return &SearchCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "search-cache"),
	}
}

// generation returns the current invalidation generation. A missing counter
// is generation zero.
func (c *SearchCache) generation(ctx context.Context) string {
	gen, err := c.store.Get(ctx, generationKey)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache generation read failed", "error", err)
		}
		return "0"
	}
	return gen
}

func (c *SearchCache) get(ctx context.Context, key string) (*executor.SearchResponse, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var e entry
	if err := json.Unmarshal([]byte(data), &e); err != nil || e.Response == nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	e.Response.Outcomes = e.Outcomes
	return e.Response, true
}

func (c *SearchCache) set(ctx context.Context, key string, resp *executor.SearchResponse) {
	data, err := json.Marshal(entry{Response: resp, Outcomes: resp.Outcomes})
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached response for req or computes it. Concurrent
// callers with the same request share one computation. Responses with a
// failed type are returned but not stored. The bool reports a cache hit.
//
// Entries are keyed by the generation read before compute runs, so a response
// computed across an Invalidate lands under a retired generation and is never
// served.
func (c *SearchCache) GetOrCompute(
	ctx context.Context,
	req query.SearchRequest,
	compute func(context.Context) (*executor.SearchResponse, error),
) (*executor.SearchResponse, bool, error) {
	key := Key(req) + ":g" + c.generation(ctx)
	if resp, ok := c.get(ctx, key); ok {
		c.metrics.CacheHitsTotal.Inc()
		return resp, true, nil
	}
	c.metrics.CacheMissesTotal.Inc()

	val, err, _ := c.group.Do(key, func() (any, error) {
		resp, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if !resp.Degraded() {
			c.set(ctx, key, resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResponse), false, nil
}

// Invalidate retires the current generation and drops every cached response.
func (c *SearchCache) Invalidate(ctx context.Context) error {
	if _, err := c.store.Incr(ctx, generationKey); err != nil {
		return fmt.Errorf("bumping cache generation: %w", err)
	}
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating search cache: %w", err)
	}
	c.logger.Debug("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Key derives the generation-independent fingerprint of req. Requests that search the same types with
// the same filters share a key regardless of parameter order.
func Key(req query.SearchRequest) string {
	types := executor.ResolveTypes(req.Types)
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}

	countries := make([]string, 0, len(req.Countries))
	seen := make(map[string]bool, len(req.Countries))
	for _, c := range req.Countries {
		if !seen[c] {
			seen[c] = true
			countries = append(countries, c)
		}
	}
	sort.Strings(countries)

	size := req.Size
	if size <= 0 {
		size = query.DefaultSize
	}

	parts := []string{
		"q=" + req.Query,
		"types=" + strings.Join(typeNames, ","),
		"size=" + strconv.Itoa(size),
		"date=" + req.DateFrom + ".." + req.DateTo,
		"deal=" + floatBound(req.DealAmountMin) + ".." + floatBound(req.DealAmountMax),
		"employees=" + intBound(req.EmployeeCountMin) + ".." + intBound(req.EmployeeCountMax),
		"country=" + strings.Join(countries, ","),
		"sort=" + req.SortBy + ":" + req.SortOrder,
	}
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func floatBound(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func intBound(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
