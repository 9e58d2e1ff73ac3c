package storefront

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/ordersync/internal/domain/integration"
)

// Order is the storefront's order payload.
type Order struct {
	OrderID              int64           `json:"OrderID"`
	InvoiceNumberPrefix  string          `json:"InvoiceNumberPrefix"`
	InvoiceNumber        int64           `json:"InvoiceNumber"`
	OrderDate            Timestamp       `json:"OrderDate"`
	OrderStatusID        int             `json:"OrderStatusID"`
	BillingFirstName     string          `json:"BillingFirstName"`
	BillingLastName      string          `json:"BillingLastName"`
	BillingCompany       string          `json:"BillingCompany"`
	BillingAddress       string          `json:"BillingAddress"`
	BillingAddress2      string          `json:"BillingAddress2"`
	BillingCity          string          `json:"BillingCity"`
	BillingState         string          `json:"BillingState"`
	BillingZipCode       string          `json:"BillingZipCode"`
	BillingCountry       string          `json:"BillingCountry"`
	BillingPhoneNumber   string          `json:"BillingPhoneNumber"`
	BillingEmail         string          `json:"BillingEmail"`
	BillingPaymentMethod string          `json:"BillingPaymentMethod"`
	OrderAmount          decimal.Decimal `json:"OrderAmount"`
	SalesTax             decimal.Decimal `json:"SalesTax"`
	OrderDiscount        decimal.Decimal `json:"OrderDiscount"`
	ShipmentList         []Shipment      `json:"ShipmentList"`
	OrderItemList        []OrderItem     `json:"OrderItemList"`
	QuestionList         []Question      `json:"QuestionList"`
}

// Shipment is one ship-to block of an order.
type Shipment struct {
	ShipmentFirstName string          `json:"ShipmentFirstName"`
	ShipmentLastName  string          `json:"ShipmentLastName"`
	ShipmentCompany   string          `json:"ShipmentCompany"`
	ShipmentAddress   string          `json:"ShipmentAddress"`
	ShipmentAddress2  string          `json:"ShipmentAddress2"`
	ShipmentCity      string          `json:"ShipmentCity"`
	ShipmentState     string          `json:"ShipmentState"`
	ShipmentZipCode   string          `json:"ShipmentZipCode"`
	ShipmentCountry   string          `json:"ShipmentCountry"`
	ShipmentPhone     string          `json:"ShipmentPhone"`
	ShipmentEmail     string          `json:"ShipmentEmail"`
	ShipmentCost      decimal.Decimal `json:"ShipmentCost"`
}

// OrderItem is one product line.
type OrderItem struct {
	CatalogID       int64           `json:"CatalogID"`
	ItemID          string          `json:"ItemID"`
	ItemDescription string          `json:"ItemDescription"`
	ItemQuantity    decimal.Decimal `json:"ItemQuantity"`
	ItemUnitPrice   decimal.Decimal `json:"ItemUnitPrice"`
	ItemOptionPrice decimal.Decimal `json:"ItemOptionPrice"`
}

// Question is a checkout question and the buyer's answer.
type Question struct {
	QuestionID     int64  `json:"QuestionID"`
	QuestionTitle  string `json:"QuestionTitle"`
	QuestionAnswer string `json:"QuestionAnswer"`
}

var statusNames = map[int]string{
	1:  "New",
	2:  "Processing",
	3:  "Partial",
	4:  "Shipped",
	5:  "Cancelled",
	6:  "Not Completed",
	7:  "Unpaid",
	8:  "Backordered",
	9:  "Pending Review",
	10: "Partially Shipped",
}

// StatusName returns the display name of a storefront status id.
func StatusName(id int) string {
	if name, ok := statusNames[id]; ok {
		return name
	}
	return strconv.Itoa(id)
}

// ToSourceOrder converts the payload into a validated domain SourceOrder.
// Shipping cost is the sum over all shipments; the first shipment supplies
// the ship-to address.
func (o *Order) ToSourceOrder() (*integration.SourceOrder, error) {
	params := integration.SourceOrderParams{
		ID:            strconv.FormatInt(o.OrderID, 10),
		InvoicePrefix: o.InvoiceNumberPrefix,
		OrderDate:     o.OrderDate.Time,
		Status:        StatusName(o.OrderStatusID),
		PaymentMethod: o.BillingPaymentMethod,
		Amount:        o.OrderAmount,
		Discount:      o.OrderDiscount,
		Tax:           o.SalesTax,
		Billing: integration.Address{
			FirstName:  o.BillingFirstName,
			LastName:   o.BillingLastName,
			Company:    o.BillingCompany,
			Address1:   o.BillingAddress,
			Address2:   o.BillingAddress2,
			City:       o.BillingCity,
			State:      o.BillingState,
			PostalCode: o.BillingZipCode,
			Country:    o.BillingCountry,
			Phone:      o.BillingPhoneNumber,
			Email:      o.BillingEmail,
		},
	}
	if o.OrderID == 0 {
		params.ID = ""
	}
	if o.InvoiceNumber != 0 {
		params.InvoiceNumber = strconv.FormatInt(o.InvoiceNumber, 10)
	}

	shipping := decimal.Zero
	for i, s := range o.ShipmentList {
		shipping = shipping.Add(s.ShipmentCost)
		if i == 0 {
			params.Shipping = &integration.Address{
				FirstName:  s.ShipmentFirstName,
				LastName:   s.ShipmentLastName,
				Company:    s.ShipmentCompany,
				Address1:   s.ShipmentAddress,
				Address2:   s.ShipmentAddress2,
				City:       s.ShipmentCity,
				State:      s.ShipmentState,
				PostalCode: s.ShipmentZipCode,
				Country:    s.ShipmentCountry,
				Phone:      s.ShipmentPhone,
				Email:      s.ShipmentEmail,
			}
		}
	}
	params.ShippingCost = shipping

	for _, it := range o.OrderItemList {
		item := integration.LineItem{
			SKU:         strings.TrimSpace(it.ItemID),
			Description: it.ItemDescription,
			Quantity:    it.ItemQuantity,
			UnitPrice:   it.ItemUnitPrice,
			OptionPrice: it.ItemOptionPrice,
		}
		if it.CatalogID != 0 {
			item.CatalogID = strconv.FormatInt(it.CatalogID, 10)
		}
		params.Items = append(params.Items, item)
	}

	for _, q := range o.QuestionList {
		params.QuestionAnswers = append(params.QuestionAnswers, q.QuestionAnswer)
	}

	return integration.NewSourceOrder(params)
}

// DecodeOrders reads either a single order object or an array of orders.
func DecodeOrders(r io.Reader) ([]Order, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("storefront: failed to read orders: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty order payload", integration.ErrValidation)
	}

	if data[0] == '[' {
		var orders []Order
		if err := json.Unmarshal(data, &orders); err != nil {
			return nil, fmt.Errorf("%w: malformed order list: %v", integration.ErrValidation, err)
		}
		return orders, nil
	}

	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("%w: malformed order: %v", integration.ErrValidation, err)
	}
	return []Order{order}, nil
}

// Timestamp accepts the storefront's date formats, with or without a zone.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006 3:04:05 PM",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("storefront: unrecognized date %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}
