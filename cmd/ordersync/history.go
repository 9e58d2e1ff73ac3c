package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/persistence"
)

func newHistoryCommand(root *rootOptions) *cobra.Command {
	var (
		limit       int
		failedSince time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history [ORDER_ID]",
		Short: "Show recorded reconciliation attempts",
		Long: "History reads the attempt log. Pass an order id for that order's attempts, " +
			"or --failed-since for recent failures across all orders.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && failedSince <= 0 {
				return fmt.Errorf("provide an order id or --failed-since")
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			if !a.cfg.Database.Enabled {
				return fmt.Errorf("attempt log is disabled (database.enabled = false)")
			}
			db, err := a.database()
			if err != nil {
				return err
			}
			repo := persistence.NewGormSyncAttemptRepository(db.DB)

			var attempts []*integration.SyncAttempt
			if len(args) == 1 {
				attempts, err = repo.ListByOrder(ctx, args[0], limit)
			} else {
				attempts, err = repo.ListFailedSince(ctx, time.Now().Add(-failedSince), limit)
			}
			if err != nil {
				return err
			}
			return writeHistoryTable(cmd.OutOrStdout(), attempts)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of attempts to show")
	cmd.Flags().DurationVar(&failedSince, "failed-since", 0, "show failed attempts newer than this duration, e.g. 24h")
	return cmd
}

func writeHistoryTable(w io.Writer, attempts []*integration.SyncAttempt) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tORDER\tOUTCOME\tERP ORDER\tATTEMPTS\tTOTALS OK\tERROR")
	for _, at := range attempts {
		errText := at.ErrorCode
		if at.ErrorMessage != "" {
			errText += ": " + at.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\t%s\n",
			at.StartedAt.UTC().Format(time.RFC3339), at.OrderID, at.Outcome, at.ERPOrderID,
			at.Attempts, at.TotalsValid, errText)
	}
	return tw.Flush()
}
