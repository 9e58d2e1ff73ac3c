package integration

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/ordersync/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Reconciliation Results
// ---------------------------------------------------------------------------

// ReconcileResult is the outcome of reconciling one source order
type ReconcileResult struct {
	OrderID    string `json:"order_id"`
	ExternalID string `json:"external_id"`
	Success    bool   `json:"success"`
	ERPOrderID string `json:"erp_order_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	// CustomerCreated is true when a new ERP customer was created for the order
	CustomerCreated bool `json:"customer_created,omitempty"`
	// AlreadySynced is true when the order existed in the ERP and nothing was created
	AlreadySynced bool                    `json:"already_synced"`
	Attempts      int                     `json:"attempts"`
	ErrorCode     string                  `json:"error_code,omitempty"`
	Error         string                  `json:"error,omitempty"`
	Totals        TotalsSummary           `json:"totals"`
	Warnings      []string                `json:"warnings,omitempty"`
	Outcome       integration.SyncOutcome `json:"outcome"`
	Duration      time.Duration           `json:"duration"`
	Err           error                   `json:"-"`
}

// TotalsSummary is the serializable form of integration.TotalsCheck
type TotalsSummary struct {
	ItemsSubtotal decimal.Decimal `json:"items_subtotal"`
	Calculated    decimal.Decimal `json:"calculated"`
	Stated        decimal.Decimal `json:"stated"`
	Difference    decimal.Decimal `json:"difference"`
	IsValid       bool            `json:"is_valid"`
}

// ToTotalsSummary converts a totals check
func ToTotalsSummary(c integration.TotalsCheck) TotalsSummary {
	return TotalsSummary{
		ItemsSubtotal: c.ItemsSubtotal,
		Calculated:    c.Calculated,
		Stated:        c.Stated,
		Difference:    c.Difference,
		IsValid:       c.IsValid,
	}
}

// BatchResult is the outcome of reconciling a batch of orders
type BatchResult struct {
	RunID         string                  `json:"run_id"`
	Status        integration.BatchStatus `json:"status"`
	Total         int                     `json:"total"`
	Created       int                     `json:"created"`
	AlreadySynced int                     `json:"already_synced"`
	Failed        int                     `json:"failed"`
	Results       []*ReconcileResult      `json:"results"`
	StartedAt     time.Time               `json:"started_at"`
	FinishedAt    time.Time               `json:"finished_at"`
}

// add tallies a single result
func (b *BatchResult) add(r *ReconcileResult) {
	b.Results = append(b.Results, r)
	b.Total++
	switch {
	case !r.Success:
		b.Failed++
	case r.AlreadySynced:
		b.AlreadySynced++
	default:
		b.Created++
	}
}

// ---------------------------------------------------------------------------
// Status DTOs
// ---------------------------------------------------------------------------

// SyncStatusResponse is the printable form of integration.SyncStatus
type SyncStatusResponse struct {
	OrderID       string     `json:"order_id"`
	Synced        bool       `json:"synced"`
	ERPInternalID string     `json:"erp_internal_id,omitempty"`
	ERPDisplayID  string     `json:"erp_display_id,omitempty"`
	ERPStatus     string     `json:"erp_status,omitempty"`
	ERPTotal      string     `json:"erp_total,omitempty"`
	SyncedAt      *time.Time `json:"synced_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// ToSyncStatusResponse converts a status for display
func ToSyncStatusResponse(orderID string, s integration.SyncStatus) SyncStatusResponse {
	resp := SyncStatusResponse{
		OrderID:       orderID,
		Synced:        s.Synced,
		ERPInternalID: s.ERPInternalID,
		ERPDisplayID:  s.ERPDisplayID,
		ERPStatus:     s.ERPStatus,
		SyncedAt:      s.SyncedAt,
		Error:         s.Error,
	}
	if s.Synced {
		resp.ERPTotal = s.ERPTotal.StringFixed(2)
	}
	return resp
}
