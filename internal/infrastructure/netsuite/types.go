package netsuite

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// SuiteQL Types
// ---------------------------------------------------------------------------

// suiteQLRequest is the body of a SuiteQL query request
type suiteQLRequest struct {
	Q string `json:"q"`
}

// suiteQLResponse is one page of SuiteQL results
type suiteQLResponse struct {
	Count        int   `json:"count"`
	HasMore      bool  `json:"hasMore"`
	Offset       int   `json:"offset"`
	TotalResults int   `json:"totalResults"`
	Items        []Row `json:"items"`
}

// Row is a single SuiteQL result row. SuiteQL lower-cases column names.
type Row map[string]any

// String returns the column value as a string, or "" when absent or null
func (r Row) String(column string) string {
	switch v := r[strings.ToLower(column)].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// Decimal returns the column value as a decimal, or zero when absent or malformed
func (r Row) Decimal(column string) decimal.Decimal {
	return ParseDecimal(r.String(column))
}

// Bool interprets the ERP "T"/"F" convention
func (r Row) Bool(column string) bool {
	switch strings.ToUpper(r.String(column)) {
	case "T", "TRUE":
		return true
	default:
		return false
	}
}

// ParseDecimal parses a decimal string, returning zero for empty or invalid input
func ParseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ---------------------------------------------------------------------------
// Error Types
// ---------------------------------------------------------------------------

// errorResponse is the REST error body
type errorResponse struct {
	Type         string        `json:"type"`
	Title        string        `json:"title"`
	Status       int           `json:"status"`
	ErrorDetails []ErrorDetail `json:"o:errorDetails"`
}

// ErrorDetail is one entry of o:errorDetails
type ErrorDetail struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"o:errorCode"`
	ErrorPath string `json:"o:errorPath,omitempty"`
}

// ---------------------------------------------------------------------------
// Record Types
// ---------------------------------------------------------------------------

// recordRef references another record by internal id
type recordRef struct {
	ID string `json:"id"`
}

// customerRecord is the body of a customer create request
type customerRecord struct {
	ExternalID  string     `json:"externalId,omitempty"`
	IsPerson    bool       `json:"isPerson"`
	FirstName   string     `json:"firstName,omitempty"`
	LastName    string     `json:"lastName,omitempty"`
	CompanyName string     `json:"companyName,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Parent      *recordRef `json:"parent,omitempty"`
	Subsidiary  *recordRef `json:"subsidiary,omitempty"`
}

// salesOrderLine is one entry of the sales order item sublist
type salesOrderLine struct {
	Item        recordRef   `json:"item"`
	Quantity    json.Number `json:"quantity"`
	Rate        json.Number `json:"rate"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description,omitempty"`
}

// salesOrderItems wraps the item sublist
type salesOrderItems struct {
	Items []salesOrderLine `json:"items"`
}

// decimalNumber renders an amount as a JSON number
func decimalNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
