package integration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
)

// ChargeLineSetting controls how one order-level charge is carried on the ERP order
type ChargeLineSetting struct {
	// AsLine emits the charge as its own line when ItemID validates
	AsLine bool
	ItemID string
}

// ItemSettings configures the ERP items referenced by generated lines
type ItemSettings struct {
	// FallbackItemID is used for products whose SKU has no ERP item
	FallbackItemID string
	Tax            ChargeLineSetting
	Shipping       ChargeLineSetting
	Discount       ChargeLineSetting
}

// LineBuilder turns a source order into sales order lines. Configured item
// references are validated before use; a bad reference downgrades the charge to
// an order-level field and memo note instead of failing the order.
type LineBuilder struct {
	catalog  integration.ItemCatalog
	settings ItemSettings
	logger   *zap.Logger
}

// NewLineBuilder creates a new line builder
func NewLineBuilder(catalog integration.ItemCatalog, settings ItemSettings, logger *zap.Logger) *LineBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineBuilder{catalog: catalog, settings: settings, logger: logger}
}

// BuildResult is a draft plus the warnings raised while building it
type BuildResult struct {
	Draft    *integration.SalesOrderDraft
	Warnings []string
	// Downgraded lists the charges folded because their item was unusable
	Downgraded []integration.LineKind
}

// Build creates the sales order draft for order
func (b *LineBuilder) Build(ctx context.Context, order *integration.SourceOrder, customerID, externalID string) (*BuildResult, error) {
	res := &BuildResult{
		Draft: &integration.SalesOrderDraft{
			ExternalID:     externalID,
			SourceOrderID:  order.ID(),
			CustomerID:     customerID,
			TranDate:       order.OrderDate(),
			FoldedShipping: decimal.Zero,
			FoldedTax:      decimal.Zero,
			FoldedDiscount: decimal.Zero,
		},
	}
	checked := make(map[string]*itemCheck)

	products, err := b.productLines(ctx, order, res, checked)
	if err != nil {
		return nil, err
	}
	res.Draft.Lines = products

	var notes []string
	if ref := order.InvoiceReference(); ref != "" {
		notes = append(notes, "Storefront invoice "+ref)
	}

	charges := []struct {
		kind    integration.LineKind
		amount  decimal.Decimal
		setting ChargeLineSetting
	}{
		{integration.LineKindTax, order.Tax(), b.settings.Tax},
		{integration.LineKindShipping, order.ShippingCost(), b.settings.Shipping},
		{integration.LineKindDiscount, order.Discount(), b.settings.Discount},
	}
	for _, c := range charges {
		if c.amount.IsZero() {
			continue
		}
		if c.setting.AsLine {
			refErr, err := b.checkReference(ctx, c.kind, c.setting.ItemID, checked)
			if err != nil {
				return nil, err
			}
			if refErr == nil {
				res.Draft.Lines = append(res.Draft.Lines, chargeLine(c.kind, c.setting.ItemID, c.amount))
				continue
			}
			b.logger.Warn("Item reference unusable, folding charge into order fields",
				zap.String("order_id", order.ID()),
				zap.String("kind", c.kind.String()),
				zap.String("item_id", refErr.ItemID),
				zap.String("reason", refErr.Reason),
			)
			res.Warnings = append(res.Warnings, refErr.Error())
			res.Downgraded = append(res.Downgraded, c.kind)
		}
		notes = append(notes, fold(res.Draft, c.kind, c.amount))
	}
	res.Draft.Memo = strings.Join(notes, "; ")

	return res, nil
}

func (b *LineBuilder) productLines(ctx context.Context, order *integration.SourceOrder, res *BuildResult, checked map[string]*itemCheck) ([]integration.SalesOrderLine, error) {
	items := order.Items()
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = itemName(item)
	}

	found, err := b.catalog.LookupItems(ctx, names)
	if err != nil {
		return nil, err
	}

	var missing []string
	lines := make([]integration.SalesOrderLine, 0, len(items))
	for i, item := range items {
		itemID := ""
		if erpItem, ok := found[names[i]]; ok {
			if usable, _ := erpItem.Usable(); usable {
				itemID = erpItem.ID
			}
		}
		if itemID == "" {
			refErr, err := b.checkReference(ctx, integration.LineKindProduct, b.settings.FallbackItemID, checked)
			if err != nil {
				return nil, err
			}
			if refErr != nil {
				missing = append(missing, "Items["+strconv.Itoa(i)+"].SKU")
				continue
			}
			itemID = b.settings.FallbackItemID
			res.Warnings = append(res.Warnings, fmt.Sprintf("SKU %q has no usable ERP item; using fallback item %s", names[i], itemID))
		}

		description := item.Description
		if description == "" {
			description = names[i]
		}
		lines = append(lines, integration.SalesOrderLine{
			Kind:        integration.LineKindProduct,
			ItemID:      itemID,
			Description: description,
			Quantity:    item.Quantity,
			Rate:        item.EffectiveUnitPrice(),
			Amount:      item.Subtotal(),
		})
	}

	if len(missing) > 0 {
		return nil, integration.NewValidationError("no usable ERP item for order lines", missing...)
	}
	return lines, nil
}

type itemCheck struct {
	refErr *integration.ItemReferenceError
}

// checkReference validates that an item id exists, is active and sellable.
// It returns a non-nil ItemReferenceError when the item cannot be used, and an
// error only for failures that should abort the attempt (transport, throttling).
func (b *LineBuilder) checkReference(ctx context.Context, kind integration.LineKind, itemID string, checked map[string]*itemCheck) (*integration.ItemReferenceError, error) {
	if itemID == "" {
		return &integration.ItemReferenceError{Kind: kind, Reason: "no item configured"}, nil
	}
	if c, ok := checked[itemID]; ok {
		if c.refErr == nil {
			return nil, nil
		}
		return &integration.ItemReferenceError{Kind: kind, ItemID: itemID, Reason: c.refErr.Reason}, nil
	}

	reason := ""
	item, err := b.catalog.GetItem(ctx, itemID)
	switch {
	case err != nil && integration.IsRetryable(err):
		return nil, err
	case err != nil && errors.Is(err, integration.ErrAuthentication):
		return nil, err
	case err != nil:
		reason = err.Error()
	case item == nil:
		reason = "item does not exist"
	default:
		if usable, why := item.Usable(); !usable {
			reason = why
		}
	}

	if reason == "" {
		checked[itemID] = &itemCheck{}
		return nil, nil
	}
	refErr := &integration.ItemReferenceError{Kind: kind, ItemID: itemID, Reason: reason}
	checked[itemID] = &itemCheck{refErr: refErr}
	return refErr, nil
}

func chargeLine(kind integration.LineKind, itemID string, amount decimal.Decimal) integration.SalesOrderLine {
	if kind == integration.LineKindDiscount {
		amount = amount.Abs().Neg()
	}
	return integration.SalesOrderLine{
		Kind:        kind,
		ItemID:      itemID,
		Description: strings.ToUpper(kind.String()[:1]) + kind.String()[1:],
		Quantity:    decimal.NewFromInt(1),
		Rate:        amount,
		Amount:      amount,
	}
}

// fold carries a charge on the order-level field for its kind and returns the memo note
func fold(draft *integration.SalesOrderDraft, kind integration.LineKind, amount decimal.Decimal) string {
	switch kind {
	case integration.LineKindShipping:
		draft.FoldedShipping = draft.FoldedShipping.Add(amount)
	case integration.LineKindTax:
		draft.FoldedTax = draft.FoldedTax.Add(amount)
	case integration.LineKindDiscount:
		draft.FoldedDiscount = draft.FoldedDiscount.Add(amount.Abs())
	}
	return fmt.Sprintf("%s %s carried on order", kind, amount.Abs().StringFixed(2))
}

func itemName(item integration.LineItem) string {
	if sku := strings.TrimSpace(item.SKU); sku != "" {
		return sku
	}
	return strings.TrimSpace(item.CatalogID)
}
