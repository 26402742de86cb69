package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/indexer/admin"
)

var errConfirmationRequired = errors.New("refusing to drop indices without --yes")

func newInitIndicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-indices",
		Short: "Create the search indices with their mappings if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.engine()
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Initializing search indices...")
			created, err := admin.New(client, a.indices()).EnsureIndices(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize search indices: %w", err)
			}
			for _, name := range created {
				fmt.Fprintf(out, "Created %s index\n", name)
			}
			fmt.Fprintln(out, "Successfully initialized search indices")
			return nil
		},
	}
}

func newDeleteIndicesCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-indices",
		Short: "Delete the search indices and every document in them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !yes && !confirm(cmd.InOrStdin(), out, a.indices().Companies, a.indices().Employees) {
				fmt.Fprintln(out, "Aborted")
				return nil
			}
			client, err := a.engine()
			if err != nil {
				return err
			}
			defer client.Close()

			deleted, err := admin.New(client, a.indices()).DeleteIndices(cmd.Context())
			for _, name := range deleted {
				fmt.Fprintf(out, "Successfully deleted %s index\n", name)
			}
			if err != nil {
				return fmt.Errorf("failed to delete search indices: %w", err)
			}
			if len(deleted) == 0 {
				fmt.Fprintln(out, "No search indices to delete")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}

func newRecreateIndicesCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "recreate-indices",
		Short: "Drop and recreate the search indices (requires --yes)",
		Long: `Drops both search indices and creates them again with the current
mappings. Search returns nothing until a reindex completes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errConfirmationRequired
			}
			client, err := a.engine()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := admin.New(client, a.indices()).Recreate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to recreate search indices: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully recreated search indices; run 'searchctl reindex' to repopulate them")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the destructive drop")
	return cmd
}

func confirm(in io.Reader, out io.Writer, names ...string) bool {
	fmt.Fprintf(out, "This deletes the indices %s. Type 'yes' to continue: ", strings.Join(names, ", "))
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.TrimSpace(line) == "yes"
}
