package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/company-search/internal/indexer/events"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/kafka"
)

func newEmitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "emit upsert|delete company|employee ID",
		Short: "Publish an entity change event for the indexer worker",
		Example: `  searchctl emit upsert company 42
  searchctl emit delete employee 7`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := parseEvent(args)
			if err != nil {
				return err
			}
			producer := kafka.NewProducer(a.cfg.Kafka, a.cfg.Kafka.Topics.EntityEvents)
			defer producer.Close()

			if err := events.NewEmitter(producer).Emit(cmd.Context(), ev); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s for %s to %s\n", ev.Type, ev.Key(), a.cfg.Kafka.Topics.EntityEvents)
			return nil
		},
	}
}

func parseEvent(args []string) (events.Event, error) {
	typ, ok := events.ParseType(args[0])
	if !ok {
		return events.Event{}, fmt.Errorf("unknown action %q: must be upsert or delete", args[0])
	}
	entity, ok := events.ParseEntity(args[1])
	if !ok {
		return events.Event{}, fmt.Errorf("unknown entity %q: must be company or employee", args[1])
	}
	id, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil || id <= 0 {
		return events.Event{}, fmt.Errorf("invalid id %q: must be a positive integer", args[2])
	}
	return events.Event{Type: typ, Entity: entity, ID: id}, nil
}
