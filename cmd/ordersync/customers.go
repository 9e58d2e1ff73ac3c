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

func newCustomersCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "ERP customer diagnostics",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "probe FRAGMENT",
		Short: "List ERP customers whose name, email or entity id contains FRAGMENT",
		Long: "Probe runs a case-insensitive LIKE search. It is a lookup aid for operators; " +
			"reconciliation never matches customers this way.",
		Args: cobra.ExactArgs(1),
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
			records, err := netsuite.NewDirectory(client, a.cfg.ERP.SubsidiaryID, a.logger).ProbeCustomers(ctx, args[0])
			if err != nil {
				return err
			}
			return writeCustomerTable(cmd.OutOrStdout(), records)
		},
	})
	return cmd
}

func writeCustomerTable(w io.Writer, records []integration.CustomerRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no matching customers")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tENTITY\tCOMPANY\tNAME\tEMAIL\tPHONE\tPERSON")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			r.ID, r.EntityID, r.CompanyName, joinName(r.FirstName, r.LastName), r.Email, r.Phone, r.IsPerson)
	}
	return tw.Flush()
}

func joinName(first, last string) string {
	return integration.Address{FirstName: first, LastName: last}.FullName()
}
