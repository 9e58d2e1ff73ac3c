package integration

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// Address is a billing or shipping block of a source order.
type Address struct {
	FirstName  string
	LastName   string
	Company    string
	Address1   string
	Address2   string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
	Email      string
}

// FullName joins first and last name.
func (a Address) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}

// HasName reports whether either name field is set.
func (a Address) HasName() bool {
	return strings.TrimSpace(a.FirstName) != "" || strings.TrimSpace(a.LastName) != ""
}

// LineItem is a single product line of a source order.
type LineItem struct {
	SKU         string `validate:"required_without=CatalogID"`
	CatalogID   string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	// OptionPrice is a per-unit surcharge for selected product options.
	OptionPrice decimal.Decimal
}

// Subtotal returns Quantity × (UnitPrice + OptionPrice).
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice.Add(li.OptionPrice))
}

// EffectiveUnitPrice returns UnitPrice + OptionPrice.
func (li LineItem) EffectiveUnitPrice() decimal.Decimal {
	return li.UnitPrice.Add(li.OptionPrice)
}

// SourceOrderParams holds the raw values a SourceOrder is built from.
type SourceOrderParams struct {
	ID              string `validate:"required"`
	InvoicePrefix   string
	InvoiceNumber   string
	OrderDate       time.Time
	Status          string
	PaymentMethod   string
	Amount          decimal.Decimal
	Discount        decimal.Decimal
	Tax             decimal.Decimal
	ShippingCost    decimal.Decimal
	Items           []LineItem `validate:"required,min=1,dive"`
	Billing         Address
	Shipping        *Address
	QuestionAnswers []string
}

// SourceOrder is an immutable snapshot of an order received from the storefront.
type SourceOrder struct {
	id              string
	invoicePrefix   string
	invoiceNumber   string
	orderDate       time.Time
	status          string
	paymentMethod   string
	amount          decimal.Decimal
	discount        decimal.Decimal
	tax             decimal.Decimal
	shippingCost    decimal.Decimal
	items           []LineItem
	billing         Address
	shipping        *Address
	questionAnswers []string
}

// NewSourceOrder validates p and builds a SourceOrder from it.
func NewSourceOrder(p SourceOrderParams) (*SourceOrder, error) {
	p.ID = strings.TrimSpace(p.ID)
	fields := make([]string, 0)
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		for _, fe := range verrs {
			fields = append(fields, trimNamespace(fe.Namespace()))
		}
	}
	if p.OrderDate.IsZero() {
		fields = append(fields, "OrderDate")
	}
	if p.Amount.IsNegative() {
		fields = append(fields, "Amount")
	}
	for i, item := range p.Items {
		if !item.Quantity.IsPositive() {
			fields = append(fields, "Items["+strconv.Itoa(i)+"].Quantity")
		}
	}
	if len(fields) > 0 {
		return nil, NewValidationError("invalid source order", fields...)
	}

	items := make([]LineItem, len(p.Items))
	copy(items, p.Items)
	answers := make([]string, len(p.QuestionAnswers))
	copy(answers, p.QuestionAnswers)

	var shipping *Address
	if p.Shipping != nil {
		s := *p.Shipping
		shipping = &s
	}

	return &SourceOrder{
		id:              p.ID,
		invoicePrefix:   p.InvoicePrefix,
		invoiceNumber:   p.InvoiceNumber,
		orderDate:       p.OrderDate,
		status:          p.Status,
		paymentMethod:   p.PaymentMethod,
		amount:          p.Amount,
		discount:        p.Discount,
		tax:             p.Tax,
		shippingCost:    p.ShippingCost,
		items:           items,
		billing:         p.Billing,
		shipping:        shipping,
		questionAnswers: answers,
	}, nil
}

func (o *SourceOrder) ID() string                    { return o.id }
func (o *SourceOrder) InvoicePrefix() string         { return o.invoicePrefix }
func (o *SourceOrder) InvoiceNumber() string         { return o.invoiceNumber }
func (o *SourceOrder) OrderDate() time.Time          { return o.orderDate }
func (o *SourceOrder) Status() string                { return o.status }
func (o *SourceOrder) PaymentMethod() string         { return o.paymentMethod }
func (o *SourceOrder) Amount() decimal.Decimal       { return o.amount }
func (o *SourceOrder) Discount() decimal.Decimal     { return o.discount }
func (o *SourceOrder) Tax() decimal.Decimal          { return o.tax }
func (o *SourceOrder) ShippingCost() decimal.Decimal { return o.shippingCost }
func (o *SourceOrder) Billing() Address              { return o.billing }

// Items returns a copy of the order's line items.
func (o *SourceOrder) Items() []LineItem {
	items := make([]LineItem, len(o.items))
	copy(items, o.items)
	return items
}

// Shipping returns the shipping block, if the order has one.
func (o *SourceOrder) Shipping() (Address, bool) {
	if o.shipping == nil {
		return Address{}, false
	}
	return *o.shipping, true
}

// QuestionAnswers returns a copy of the checkout question answers.
func (o *SourceOrder) QuestionAnswers() []string {
	answers := make([]string, len(o.questionAnswers))
	copy(answers, o.questionAnswers)
	return answers
}

// QuestionAnswer returns the answer at position index, or "" when absent.
func (o *SourceOrder) QuestionAnswer(index int) string {
	if index < 0 || index >= len(o.questionAnswers) {
		return ""
	}
	return strings.TrimSpace(o.questionAnswers[index])
}

// InvoiceReference returns the invoice prefix followed by the invoice number.
func (o *SourceOrder) InvoiceReference() string {
	return strings.TrimSpace(o.invoicePrefix + o.invoiceNumber)
}

// ItemsSubtotal sums Quantity × (UnitPrice + OptionPrice) over all items.
func (o *SourceOrder) ItemsSubtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ExternalID returns the ERP correlation key for this order.
func (o *SourceOrder) ExternalID(sourcePrefix string) string {
	return ExternalID(sourcePrefix, o.id)
}

// CustomerExternalID returns the external id given to a customer created for this order.
func (o *SourceOrder) CustomerExternalID(sourcePrefix string) string {
	return sourcePrefix + "_CUST_" + o.id
}

// ExternalID builds the "<SOURCE_PREFIX>_<sourceOrderId>" correlation key.
func ExternalID(sourcePrefix, orderID string) string {
	return sourcePrefix + "_" + orderID
}

// trimNamespace drops the top-level struct name from a validator namespace.
func trimNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
