// Package cmd implements the searchctl commands for managing the company and
// employee search indices.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/engine"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/logger"
)

// app holds state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

// NewRootCmd creates the root command for searchctl.
func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "searchctl",
		Short: "Manage the company and employee search indices",
		Long: `searchctl creates, drops and rebuilds the search indices, and publishes
entity change events for the indexer worker.

Configuration is read from --config and SP_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			level := cfg.Logging.Level
			if a.logLevel != "" {
				level = a.logLevel
			}
			logger.SetupWriter(cmd.ErrOrStderr(), level, "text")
			a.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "configs/development.yaml", "path to config file (empty for defaults and environment only)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(newInitIndicesCmd(a))
	cmd.AddCommand(newDeleteIndicesCmd(a))
	cmd.AddCommand(newRecreateIndicesCmd(a))
	cmd.AddCommand(newReindexCmd(a))
	cmd.AddCommand(newEmitCmd(a))

	return cmd
}

func (a *app) indices() document.Indices {
	return document.Indices{Companies: a.cfg.Engine.CompanyIndex, Employees: a.cfg.Engine.EmployeeIndex}
}

func (a *app) engine() (*engine.Client, error) {
	client, err := engine.New(a.cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("connecting to search engine: %w", err)
	}
	return client, nil
}
