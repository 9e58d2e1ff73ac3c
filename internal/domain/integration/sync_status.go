package integration

import (
	"time"

	"github.com/shopspring/decimal"
)

// SyncStatus reports whether a source order already exists in the ERP.
// It is recomputed from the ERP on every pass and never stored locally.
type SyncStatus struct {
	Synced        bool
	ERPInternalID string
	ERPDisplayID  string
	ERPStatus     string
	ERPTotal      decimal.Decimal
	SyncedAt      *time.Time
	// Error is set when the status could not be determined.
	Error string
}

// BatchStatus represents the overall outcome of a batch run
type BatchStatus string

const (
	// BatchStatusSuccess indicates every order reconciled
	BatchStatusSuccess BatchStatus = "SUCCESS"
	// BatchStatusPartial indicates some orders failed
	BatchStatusPartial BatchStatus = "PARTIAL"
	// BatchStatusFailed indicates every order failed
	BatchStatusFailed BatchStatus = "FAILED"
)

// String returns the string representation of BatchStatus
func (s BatchStatus) String() string {
	return string(s)
}

// BatchStatusFor derives the batch outcome from success and failure counts.
func BatchStatusFor(successCount, failedCount int) BatchStatus {
	if failedCount == 0 {
		return BatchStatusSuccess
	}
	if successCount > 0 {
		return BatchStatusPartial
	}
	return BatchStatusFailed
}
