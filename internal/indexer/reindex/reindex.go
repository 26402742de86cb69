// Package reindex rebuilds the search indices from the primary store in
// keyset-paginated batches, one bulk request per batch.
package reindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/indexer/mapper"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/engine"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/metrics"
)

// DefaultBatchSize is the page size used when Options leaves BatchSize unset.
const DefaultBatchSize = 100

// ErrInterrupted is returned when the context ends between batches.
var ErrInterrupted = errors.New("reindex interrupted")

// Source pages through the primary store by ascending id.
type Source interface {
	CompanyBatch(ctx context.Context, afterID int64, limit int) ([]store.CompanySnapshot, error)
	EmployeeBatch(ctx context.Context, afterID int64, limit int) ([]store.Employee, error)
}

// BulkIndexer submits a page of documents in one request.
type BulkIndexer interface {
	Bulk(ctx context.Context, index string, items []engine.BulkItem) (*engine.BulkResult, error)
}

// Options selects what to rebuild. With neither type set, both are rebuilt.
type Options struct {
	Companies bool
	Employees bool
	BatchSize int
	// Started is called when the pass over an entity type begins, before its
	// first page is read.
	Started   func(document.EntityType)
	Progress  func(Progress)
}

// Progress is reported after every batch.
type Progress struct {
	Entity  document.EntityType
	Batch   int
	Indexed int
	Failed  int
	LastID  int64
}

// Stats are the totals for one entity type.
type Stats struct {
	Indexed  int
	Failures []engine.BulkFailure
}

// Result is the outcome of a run. It is returned alongside an error too, with
// whatever completed before the run stopped.
type Result struct {
	Companies Stats
	Employees Stats
	Duration  time.Duration
}

// Failed returns the number of documents the engine rejected.
func (r Result) Failed() int {
	return len(r.Companies.Failures) + len(r.Employees.Failures)
}

// Reindexer runs bulk rebuilds.
type Reindexer struct {
	source  Source
	indexer BulkIndexer
	indices document.Indices
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns a Reindexer paging source into indexer.
func New(source Source, indexer BulkIndexer, indices document.Indices, m *metrics.Metrics) *Reindexer {
	return &Reindexer{
		source:  source,
		indexer: indexer,
		indices: indices,
		metrics: m,
		logger:  slog.Default().With("component", "reindex"),
	}
}

// Run rebuilds the selected indices. Each batch runs to completion once
// started; cancellation of ctx is observed before the next batch. A transport
// failure aborts the run, while per-document rejections are collected.
func (r *Reindexer) Run(ctx context.Context, opts Options) (Result, error) {
	if !opts.Companies && !opts.Employees {
		opts.Companies, opts.Employees = true, true
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	start := time.Now()
	var res Result
	var err error
	if opts.Companies {
		err = r.companies(ctx, opts, &res.Companies)
	}
	if err == nil && opts.Employees {
		err = r.employees(ctx, opts, &res.Employees)
	}
	res.Duration = time.Since(start)
	if err != nil {
		r.logger.Error("reindex stopped", "error", err, "duration", res.Duration)
		return res, err
	}
	if res.Failed() == 0 {
		r.metrics.ReindexLastSuccess.SetToCurrentTime()
	}
	r.logger.Info("reindex complete",
		"companies", res.Companies.Indexed,
		"employees", res.Employees.Indexed,
		"failed", res.Failed(),
		"duration", res.Duration,
	)
	return res, nil
}

func (r *Reindexer) companies(ctx context.Context, opts Options, stats *Stats) error {
	return paginate(ctx, r, opts, document.Companies, stats,
		func(ctx context.Context, after int64) ([]engine.BulkItem, int64, error) {
			page, err := r.source.CompanyBatch(ctx, after, opts.BatchSize)
			if err != nil || len(page) == 0 {
				return nil, after, err
			}
			items := make([]engine.BulkItem, len(page))
			for i, snap := range page {
				items[i] = engine.BulkItem{ID: document.DocumentID(snap.Company.ID), Document: mapper.CompanyDocument(snap)}
			}
			return items, page[len(page)-1].Company.ID, nil
		})
}

func (r *Reindexer) employees(ctx context.Context, opts Options, stats *Stats) error {
	return paginate(ctx, r, opts, document.Employees, stats,
		func(ctx context.Context, after int64) ([]engine.BulkItem, int64, error) {
			page, err := r.source.EmployeeBatch(ctx, after, opts.BatchSize)
			if err != nil || len(page) == 0 {
				return nil, after, err
			}
			items := make([]engine.BulkItem, len(page))
			for i, e := range page {
				items[i] = engine.BulkItem{ID: document.DocumentID(e.ID), Document: mapper.EmployeeDocument(e)}
			}
			return items, page[len(page)-1].ID, nil
		})
}

// paginate drives fetch from id 0 until it returns an empty page, indexing
// each page with one bulk request.
func paginate(
	ctx context.Context,
	r *Reindexer,
	opts Options,
	t document.EntityType,
	stats *Stats,
	fetch func(ctx context.Context, after int64) ([]engine.BulkItem, int64, error),
) error {
	index := r.indices.Name(t)
	work := context.WithoutCancel(ctx)
	if opts.Started != nil {
		opts.Started(t)
	}
	var after int64
	for batch := 1; ; batch++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%w after %d %s: %w", ErrInterrupted, stats.Indexed, t, ctx.Err())
		}
		items, last, err := fetch(work, after)
		if err != nil {
			return fmt.Errorf("loading %s after id %d: %w", t, after, err)
		}
		if len(items) == 0 {
			return nil
		}
		result, err := r.indexer.Bulk(work, index, items)
		if err != nil {
			return fmt.Errorf("bulk indexing %s batch %d: %w", t, batch, err)
		}
		stats.Indexed += result.Indexed
		stats.Failures = append(stats.Failures, result.Failures...)
		r.metrics.ReindexDocsTotal.WithLabelValues(string(t), "indexed").Add(float64(result.Indexed))
		if n := len(result.Failures); n > 0 {
			r.metrics.ReindexDocsTotal.WithLabelValues(string(t), "failed").Add(float64(n))
			for _, f := range result.Failures {
				r.logger.Warn("document rejected", "entity", t, "id", f.ID, "status", f.Status, "type", f.Type, "reason", f.Reason)
			}
		}
		p := Progress{Entity: t, Batch: batch, Indexed: stats.Indexed, Failed: len(stats.Failures), LastID: last}
		r.logger.Info("batch indexed", "entity", t, "batch", batch, "indexed", p.Indexed, "failed", p.Failed, "last_id", last)
		if opts.Progress != nil {
			opts.Progress(p)
		}
		after = last
	}
}
