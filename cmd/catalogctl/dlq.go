package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/storefront-catalog/pkg/db/models"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox"
)

type dlqStore interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	Replay(ctx context.Context, entryID uuid.UUID) (uuid.UUID, error)
}

// dlqStoreFor is swapped in tests.
var dlqStoreFor = func(ctx context.Context) (dlqStore, func(), error) {
	client, err := openDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	return outbox.NewDLQRepository(client.DB()), func() { _ = client.Close() }, nil
}

type dlqView struct {
	ID           uuid.UUID `json:"id" yaml:"id"`
	EventID      uuid.UUID `json:"event_id" yaml:"event_id"`
	EventType    string    `json:"event_type" yaml:"event_type"`
	Aggregate    string    `json:"aggregate" yaml:"aggregate"`
	Reason       string    `json:"reason" yaml:"reason"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`
	AttemptCount int       `json:"attempt_count" yaml:"attempt_count"`
	FailedAt     time.Time `json:"failed_at" yaml:"failed_at"`
}

func newDLQCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and replay dead-lettered outbox events",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the newest dead-lettered events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			store, done, err := dlqStoreFor(ctx)
			if err != nil {
				return err
			}
			defer done()
			rows, err := store.List(ctx, limit)
			if err != nil {
				return err
			}
			views := make([]dlqView, 0, len(rows))
			for _, row := range rows {
				v := dlqView{
					ID:           row.ID,
					EventID:      row.EventID,
					EventType:    string(row.EventType),
					Aggregate:    string(row.AggregateType) + ":" + row.AggregateID.String(),
					Reason:       string(row.ErrorReason),
					AttemptCount: row.AttemptCount,
					FailedAt:     row.FailedAt,
				}
				if row.ErrorMessage != nil {
					v.Error = *row.ErrorMessage
				}
				views = append(views, v)
			}
			return opts.print(cmd, views)
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")

	replay := &cobra.Command{
		Use:   "replay <entry-id>...",
		Short: "Hand dead-lettered events back to the outbox publisher",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid entry id %q: %w", arg, err)
				}
				ids = append(ids, id)
			}
			ctx := commandContext(cmd)
			store, done, err := dlqStoreFor(ctx)
			if err != nil {
				return err
			}
			defer done()
			for _, id := range ids {
				eventID, err := store.Replay(ctx, id)
				if err != nil {
					return fmt.Errorf("replay %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "requeued event %s\n", eventID)
			}
			return nil
		},
	}

	cmd.AddCommand(list, replay)
	return cmd
}
