package integration

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineKind identifies what an ERP sales order line represents
type LineKind string

const (
	LineKindProduct  LineKind = "product"
	LineKindTax      LineKind = "tax"
	LineKindShipping LineKind = "shipping"
	LineKindDiscount LineKind = "discount"
)

// String returns the string representation of LineKind
func (k LineKind) String() string {
	return string(k)
}

// SalesOrderLine is one line of an ERP sales order.
type SalesOrderLine struct {
	Kind        LineKind
	ItemID      string
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
}

// SalesOrderDraft is the complete ERP sales order built for a source order.
// Header and lines are submitted in a single request.
type SalesOrderDraft struct {
	ExternalID    string
	SourceOrderID string
	CustomerID    string
	TranDate      time.Time
	Lines         []SalesOrderLine
	// Folded amounts are carried on order-level fields when no usable line item exists.
	FoldedShipping decimal.Decimal
	FoldedTax      decimal.Decimal
	FoldedDiscount decimal.Decimal
	Memo           string
}

// LinesTotal sums the amounts of all lines.
func (d *SalesOrderDraft) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.Lines {
		total = total.Add(l.Amount)
	}
	return total
}

// ERPItem describes an item record in the ERP.
type ERPItem struct {
	ID         string
	ItemID     string
	ItemType   string
	SubType    string
	IsInactive bool
}

// Sellable reports whether the item may appear on a sales transaction.
// Purchase-only items cannot.
func (i ERPItem) Sellable() bool {
	switch i.ItemType {
	case "Discount", "Markup", "Subtotal", "Description", "Payment":
		return true
	}
	return i.SubType != "Purchase"
}

// Usable returns an empty reason when the item can be referenced on an order.
func (i ERPItem) Usable() (bool, string) {
	if i.IsInactive {
		return false, "item is inactive"
	}
	if !i.Sellable() {
		return false, "item is not sellable"
	}
	return true, ""
}
