// Package sync keeps the search indices in step with the primary store. Each
// hook re-projects or removes a single document and waits for the engine to
// make the change visible before returning.
package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/metrics"
)

// Mapper projects store rows into search documents.
type Mapper interface {
	MapCompany(ctx context.Context, id int64) (document.CompanyDocument, error)
	MapEmployee(ctx context.Context, id int64) (document.EmployeeDocument, error)
}

// Writer is the part of the engine client the hooks write through. Both calls
// refresh the index before returning, and Delete tolerates a missing document.
type Writer interface {
	Upsert(ctx context.Context, index, id string, doc any) error
	Delete(ctx context.Context, index, id string) error
}

// Invalidator drops cached search results after an index write.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Hooks are called after a company or employee row is committed. An error is
// returned to the caller for logging only; it never undoes the store write.
type Hooks struct {
	mapper      Mapper
	writer      Writer
	indices     document.Indices
	metrics     *metrics.Metrics
	invalidator Invalidator
	logger      *slog.Logger
}

// New creates Hooks. inv may be nil when no result cache is in use.
func New(mapper Mapper, writer Writer, indices document.Indices, m *metrics.Metrics, inv Invalidator) *Hooks {
	return &Hooks{
		mapper:      mapper,
		writer:      writer,
		indices:     indices,
		metrics:     m,
		invalidator: inv,
		logger:      slog.Default().With("component", "index-sync"),
	}
}

// CompanySaved re-projects company id and writes it to the company index.
func (h *Hooks) CompanySaved(ctx context.Context, id int64) error {
	doc, err := h.mapper.MapCompany(ctx, id)
	if err != nil {
		h.fail(document.Companies, "map", id, err)
		return err
	}
	return h.upsert(ctx, document.Companies, id, doc)
}

// CompanyDeleted removes company id from the company index.
func (h *Hooks) CompanyDeleted(ctx context.Context, id int64) error {
	return h.delete(ctx, document.Companies, id)
}

// EmployeeSaved re-projects employee id and writes it to the employee index.
func (h *Hooks) EmployeeSaved(ctx context.Context, id int64) error {
	doc, err := h.mapper.MapEmployee(ctx, id)
	if err != nil {
		h.fail(document.Employees, "map", id, err)
		return err
	}
	return h.upsert(ctx, document.Employees, id, doc)
}

// EmployeeDeleted removes employee id from the employee index.
func (h *Hooks) EmployeeDeleted(ctx context.Context, id int64) error {
	return h.delete(ctx, document.Employees, id)
}

func (h *Hooks) upsert(ctx context.Context, t document.EntityType, id int64, doc any) error {
	if err := h.writer.Upsert(ctx, h.indices.Name(t), document.DocumentID(id), doc); err != nil {
		h.fail(t, "upsert", id, err)
		return fmt.Errorf("indexing %s %d: %w", t, id, err)
	}
	h.metrics.DocsIndexedTotal.WithLabelValues(string(t)).Inc()
	h.logger.Debug("document indexed", "entity", t, "id", id)
	h.invalidate(ctx)
	return nil
}

func (h *Hooks) delete(ctx context.Context, t document.EntityType, id int64) error {
	if err := h.writer.Delete(ctx, h.indices.Name(t), document.DocumentID(id)); err != nil {
		h.fail(t, "delete", id, err)
		return fmt.Errorf("removing %s %d: %w", t, id, err)
	}
	h.metrics.DocsDeletedTotal.WithLabelValues(string(t)).Inc()
	h.logger.Debug("document removed", "entity", t, "id", id)
	h.invalidate(ctx)
	return nil
}

func (h *Hooks) fail(t document.EntityType, op string, id int64, err error) {
	h.metrics.IndexFailuresTotal.WithLabelValues(string(t), op).Inc()
	h.logger.Error("index sync failed", "entity", t, "op", op, "id", id, "error", err)
}

func (h *Hooks) invalidate(ctx context.Context) {
	if h.invalidator == nil {
		return
	}
	if err := h.invalidator.Invalidate(ctx); err != nil {
		h.logger.Warn("search cache invalidation failed", "error", err)
	}
}
