// Package admin creates and drops the search indices with their declared
// mappings.
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
)

// IndexManager is the index lifecycle surface of the engine client.
type IndexManager interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, name string, body any) error
	DeleteIndex(ctx context.Context, name string) error
}

// Admin manages the company and employee indices.
type Admin struct {
	engine  IndexManager
	indices document.Indices
	logger  *slog.Logger
}

// New returns an Admin managing indices through engine.
func New(engine IndexManager, indices document.Indices) *Admin {
	return &Admin{
		engine:  engine,
		indices: indices,
		logger:  slog.Default().With("component", "index-admin"),
	}
}

// EnsureIndices creates each missing index with its mapping. Existing indices
// are left untouched. It returns the names it created.
func (a *Admin) EnsureIndices(ctx context.Context) ([]string, error) {
	var created []string
	for _, t := range document.EntityTypes {
		name := a.indices.Name(t)
		exists, err := a.engine.IndexExists(ctx, name)
		if err != nil {
			return created, err
		}
		if exists {
			a.logger.Info("index already exists", "index", name)
			continue
		}
		if err := a.engine.CreateIndex(ctx, name, document.Mapping(t)); err != nil {
			return created, fmt.Errorf("creating %s index: %w", t, err)
		}
		created = append(created, name)
	}
	return created, nil
}

// DeleteIndices drops each index that exists. It returns the names it dropped.
func (a *Admin) DeleteIndices(ctx context.Context) ([]string, error) {
	var deleted []string
	for _, t := range document.EntityTypes {
		name := a.indices.Name(t)
		exists, err := a.engine.IndexExists(ctx, name)
		if err != nil {
			return deleted, err
		}
		if !exists {
			continue
		}
		if err := a.engine.DeleteIndex(ctx, name); err != nil {
			return deleted, fmt.Errorf("deleting %s index: %w", t, err)
		}
		deleted = append(deleted, name)
	}
	return deleted, nil
}

// Recreate drops and recreates both indices. Every indexed document is lost
// until the next reindex.
func (a *Admin) Recreate(ctx context.Context) error {
	a.logger.Warn("recreating search indices", "companies", a.indices.Companies, "employees", a.indices.Employees)
	if _, err := a.DeleteIndices(ctx); err != nil {
		return err
	}
	_, err := a.EnsureIndices(ctx)
	return err
}
