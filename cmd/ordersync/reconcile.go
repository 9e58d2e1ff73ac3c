package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	appintegration "github.com/erp/ordersync/internal/application/integration"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/storefront"
)

// rejectedOrder is a payload that never reached the ERP because it did not
// convert into a valid source order.
type rejectedOrder struct {
	Source    string `json:"source"`
	OrderID   string `json:"order_id,omitempty"`
	ErrorCode string `json:"error_code"`
	Error     string `json:"error"`
}

type reconcileReport struct {
	Batch    *appintegration.BatchResult `json:"batch,omitempty"`
	Rejected []rejectedOrder             `json:"rejected,omitempty"`
}

// orderFetcher loads one order payload from the storefront.
type orderFetcher func(ctx context.Context, orderID string) (*storefront.Order, error)

func newReconcileCommand(root *rootOptions) *cobra.Command {
	var orderIDs []string

	cmd := &cobra.Command{
		Use:   "reconcile [FILE...]",
		Short: "Create ERP sales orders for storefront orders that are not yet synced",
		Long: "Reconcile reads storefront order payloads (a JSON object or array per file, " +
			"\"-\" for stdin) and/or fetches orders by id from the storefront API, then " +
			"creates each order in the ERP unless it already exists there.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(orderIDs) == 0 {
				return fmt.Errorf("provide at least one order file or --order-id")
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			var fetch orderFetcher
			if len(orderIDs) > 0 {
				sf, err := a.storefrontClient()
				if err != nil {
					return err
				}
				fetch = sf.GetOrder
			}

			orders, rejected := loadOrders(ctx, args, orderIDs, cmd.InOrStdin(), fetch)
			report := reconcileReport{Rejected: rejected}

			if len(orders) > 0 {
				client, err := a.netsuiteClient()
				if err != nil {
					return err
				}
				reconciler, err := a.reconciler(client)
				if err != nil {
					return err
				}
				report.Batch = reconciler.ReconcileBatch(ctx, orders)
			}

			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if len(rejected) > 0 || (report.Batch != nil && report.Batch.Failed > 0) {
				return errPartialFailure
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&orderIDs, "order-id", nil, "storefront order id to fetch and reconcile (repeatable)")
	return cmd
}

// loadOrders collects source orders from files and the storefront. Payloads
// that cannot be read or converted are returned as rejections; the remaining
// orders are still reconciled.
func loadOrders(ctx context.Context, files, orderIDs []string, stdin io.Reader, fetch orderFetcher) ([]*integration.SourceOrder, []rejectedOrder) {
	var (
		orders   []*integration.SourceOrder
		rejected []rejectedOrder
	)
	reject := func(source, orderID string, err error) {
		de := integration.AsDomainError(err)
		rejected = append(rejected, rejectedOrder{
			Source:    source,
			OrderID:   orderID,
			ErrorCode: de.Code,
			Error:     de.Message,
		})
	}
	accept := func(source string, payloads []storefront.Order) {
		for i := range payloads {
			order, err := payloads[i].ToSourceOrder()
			if err != nil {
				reject(source, payloadID(payloads[i]), err)
				continue
			}
			orders = append(orders, order)
		}
	}

	for _, file := range files {
		payloads, err := readOrderFile(file, stdin)
		if err != nil {
			reject(file, "", err)
			continue
		}
		accept(file, payloads)
	}

	for _, id := range orderIDs {
		payload, err := fetch(ctx, id)
		if err != nil {
			reject("storefront", id, err)
			continue
		}
		accept("storefront", []storefront.Order{*payload})
	}
	return orders, rejected
}

func readOrderFile(path string, stdin io.Reader) ([]storefront.Order, error) {
	if path == "-" {
		return storefront.DecodeOrders(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return storefront.DecodeOrders(f)
}

func payloadID(o storefront.Order) string {
	if o.OrderID == 0 {
		return ""
	}
	return strconv.FormatInt(o.OrderID, 10)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
