package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/indexer/reindex"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/company-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/company-search/pkg/redis"
)

func newReindexCmd(a *app) *cobra.Command {
	var opts reindex.Options
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Index every company and employee from the primary store",
		Long: `Reads companies and employees in id order and submits one bulk request
per batch. Ctrl-C stops the run after the batch in flight.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("batch-size") && opts.BatchSize <= 0 {
				return fmt.Errorf("--batch-size must be positive, got %d", opts.BatchSize)
			}
			if !cmd.Flags().Changed("batch-size") {
				opts.BatchSize = a.cfg.Indexer.BatchSize
			}
			return a.runReindex(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Companies, "companies-only", false, "index only companies")
	cmd.Flags().BoolVar(&opts.Employees, "employees-only", false, "index only employees")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", reindex.DefaultBatchSize, "number of records per bulk request")
	return cmd
}

func (a *app) runReindex(ctx context.Context, out io.Writer, opts reindex.Options) error {
	db, err := postgres.New(a.cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	client, err := a.engine()
	if err != nil {
		return err
	}
	defer client.Close()

	st := store.New(db)
	totals := map[document.EntityType]int{}
	if opts.Companies || !opts.Employees {
		if totals[document.Companies], err = st.CountCompanies(ctx); err != nil {
			return err
		}
	}
	if opts.Employees || !opts.Companies {
		if totals[document.Employees], err = st.CountEmployees(ctx); err != nil {
			return err
		}
	}

	opts.Started = func(t document.EntityType) {
		fmt.Fprintf(out, "Indexing %s...\n", t)
	}
	opts.Progress = func(p reindex.Progress) {
		fmt.Fprintf(out, "  %s: %d/%d indexed, %d failed\n", p.Entity, p.Indexed, totals[p.Entity], p.Failed)
	}

	res, err := reindex.New(st, client, a.indices(), metrics.NewUnregistered()).Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("reindex stopped: %w", err)
	}
	a.invalidateCache(ctx)

	fmt.Fprintf(out, "Successfully indexed %d companies and %d employees in %s\n",
		res.Companies.Indexed, res.Employees.Indexed, res.Duration.Round(time.Millisecond))
	if n := res.Failed(); n > 0 {
		for _, f := range append(res.Companies.Failures, res.Employees.Failures...) {
			fmt.Fprintf(out, "  failed %s: %s (%s)\n", f.ID, f.Reason, f.Type)
		}
		return fmt.Errorf("%d documents were rejected by the engine", n)
	}
	return nil
}

// invalidateCache drops cached search results after a rebuild. The cache is
// optional, so failures are only logged.
func (a *app) invalidateCache(ctx context.Context) {
	if !a.cfg.Redis.Enabled {
		return
	}
	client, err := pkgredis.NewClient(a.cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search cache not invalidated", "error", err)
		return
	}
	defer client.Close()
	if err := cache.New(client, a.cfg.Redis.CacheTTL, metrics.NewUnregistered()).Invalidate(ctx); err != nil {
		slog.Warn("search cache invalidation failed", "error", err)
	}
}
