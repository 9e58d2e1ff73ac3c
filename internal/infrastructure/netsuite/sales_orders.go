package netsuite

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
)

const (
	salesOrderRecordPath = "/services/rest/record/v1/salesOrder"
	tranDateLayout       = "2006-01-02"
)

// SalesOrders implements integration.SalesOrderGateway
type SalesOrders struct {
	api                Executor
	taxTotalField      string
	discountTotalField string
	logger             *zap.Logger
}

// NewSalesOrders creates a sales order gateway. The field arguments name the custom
// body fields that receive folded tax and discount amounts; empty disables them.
func NewSalesOrders(api Executor, taxTotalField, discountTotalField string, logger *zap.Logger) *SalesOrders {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalesOrders{
		api:                api,
		taxTotalField:      taxTotalField,
		discountTotalField: discountTotalField,
		logger:             logger,
	}
}

// CreateSalesOrder submits header and lines in one request and returns the internal id.
// A duplicate external id is reported as integration.ErrDuplicateOrder.
func (g *SalesOrders) CreateSalesOrder(ctx context.Context, draft *integration.SalesOrderDraft) (string, error) {
	body, err := g.buildBody(draft)
	if err != nil {
		return "", err
	}

	resp, err := g.api.Execute(ctx, http.MethodPost, salesOrderRecordPath, nil, body)
	if err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			return "", fmt.Errorf("%w: %s: %w", integration.ErrDuplicateOrder, draft.ExternalID, err)
		}
		return "", err
	}

	id := recordIDFromLocation(resp.Header.Get("Location"))
	if id == "" {
		return "", fmt.Errorf("%w: sales order created without Location header", integration.ErrTransport)
	}
	g.logger.Info("Created ERP sales order",
		zap.String("sales_order_id", id),
		zap.String("external_id", draft.ExternalID),
		zap.Int("lines", len(draft.Lines)),
	)
	return id, nil
}

func (g *SalesOrders) buildBody(draft *integration.SalesOrderDraft) (map[string]any, error) {
	if len(draft.Lines) == 0 {
		return nil, integration.NewValidationError("sales order has no lines", "item")
	}
	if draft.CustomerID == "" {
		return nil, integration.NewValidationError("sales order has no customer", "entity")
	}

	lines := make([]salesOrderLine, len(draft.Lines))
	for i, l := range draft.Lines {
		lines[i] = salesOrderLine{
			Item:        recordRef{ID: l.ItemID},
			Quantity:    decimalNumber(l.Quantity),
			Rate:        decimalNumber(l.Rate),
			Amount:      decimalNumber(l.Amount),
			Description: l.Description,
		}
	}

	body := map[string]any{
		"externalId":  draft.ExternalID,
		"entity":      recordRef{ID: draft.CustomerID},
		"otherRefNum": draft.SourceOrderID,
		"item":        salesOrderItems{Items: lines},
	}
	if !draft.TranDate.IsZero() {
		body["tranDate"] = draft.TranDate.Format(tranDateLayout)
	}
	if draft.Memo != "" {
		body["memo"] = draft.Memo
	}
	if !draft.FoldedShipping.IsZero() {
		body["shippingCost"] = decimalNumber(draft.FoldedShipping)
	}
	if g.taxTotalField != "" && !draft.FoldedTax.IsZero() {
		body[g.taxTotalField] = decimalNumber(draft.FoldedTax)
	}
	if g.discountTotalField != "" && !draft.FoldedDiscount.IsZero() {
		body[g.discountTotalField] = decimalNumber(draft.FoldedDiscount)
	}
	return body, nil
}

var _ integration.SalesOrderGateway = (*SalesOrders)(nil)
