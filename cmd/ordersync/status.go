package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/netsuite"
)

func newStatusCommand(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status ORDER_ID...",
		Short: "Report whether storefront orders already exist in the ERP",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			client, err := a.netsuiteClient()
			if err != nil {
				return err
			}
			resolver := netsuite.NewSyncStatusResolver(client, a.cfg.Sync.SourcePrefix, a.cfg.ERP.StatusChunkSize, a.logger)
			statuses := resolver.CheckBatch(ctx, args)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), statuses)
			}
			return writeStatusTable(cmd.OutOrStdout(), args, statuses)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeStatusTable(w io.Writer, ids []string, statuses map[string]integration.SyncStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSYNCED\tERP ID\tDOCUMENT\tSTATUS\tTOTAL\tERROR")
	for _, id := range ids {
		st := statuses[id]
		total := ""
		if st.Synced {
			total = st.ERPTotal.StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s\t%s\t%s\n",
			id, st.Synced, st.ERPInternalID, st.ERPDisplayID, st.ERPStatus, total, st.Error)
	}
	return tw.Flush()
}
