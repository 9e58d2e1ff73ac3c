package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// ERP ports
// ---------------------------------------------------------------------------

// SyncStatusChecker reports which source orders already exist in the ERP.
type SyncStatusChecker interface {
	// CheckBatch returns one status per source order id. It never fails as a whole;
	// lookup failures are reported on the affected statuses.
	CheckBatch(ctx context.Context, orderIDs []string) map[string]SyncStatus
}

// CustomerDirectory searches and creates ERP customers.
// Search methods return (nil, nil) when nothing matches.
type CustomerDirectory interface {
	// FindStoreCustomerByEmail finds a company customer with exactly this email.
	FindStoreCustomerByEmail(ctx context.Context, email string) (*CustomerRecord, error)
	// FindParentCompany finds a company customer by email or phone.
	FindParentCompany(ctx context.Context, email, phone string) (*CustomerRecord, error)
	// FindByExternalID finds a customer by its external id.
	FindByExternalID(ctx context.Context, externalID string) (*CustomerRecord, error)
	// CompanyNameExists reports whether a company customer already uses name.
	CompanyNameExists(ctx context.Context, name string) (bool, error)
	// CreateCustomer creates a customer and returns its ERP internal id.
	CreateCustomer(ctx context.Context, candidate CustomerCandidate) (string, error)
}

// ItemCatalog looks up ERP items.
type ItemCatalog interface {
	// LookupItems resolves item names (SKUs) to ERP items, keyed by name.
	// Unknown names are absent from the result.
	LookupItems(ctx context.Context, names []string) (map[string]ERPItem, error)
	// GetItem returns the item with the given internal id, or nil when it does not exist.
	GetItem(ctx context.Context, id string) (*ERPItem, error)
}

// SalesOrderGateway creates sales orders in the ERP.
type SalesOrderGateway interface {
	// CreateSalesOrder submits header and lines together and returns the ERP internal id.
	CreateSalesOrder(ctx context.Context, draft *SalesOrderDraft) (string, error)
}

// ---------------------------------------------------------------------------
// Collaborator ports
// ---------------------------------------------------------------------------

// SourcePlatform is the storefront the orders come from.
type SourcePlatform interface {
	// MarkProcessing sets the order's storefront status to "processing".
	MarkProcessing(ctx context.Context, orderID string) error
}

// FailureNotice describes a reconciliation that failed terminally.
type FailureNotice struct {
	OrderID    string
	ExternalID string
	Attempts   int
	ErrorCode  string
	Cause      error
	OccurredAt time.Time
}

// FailureNotifier alerts operators about terminal failures.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, notice FailureNotice) error
}

// SyncOutcome is the recorded result of one reconciliation
type SyncOutcome string

const (
	SyncOutcomeCreated       SyncOutcome = "CREATED"
	SyncOutcomeAlreadySynced SyncOutcome = "ALREADY_SYNCED"
	SyncOutcomeFailed        SyncOutcome = "FAILED"
)

// SyncAttempt is an audit record of one reconciliation.
// It is never consulted to decide whether an order was synced.
type SyncAttempt struct {
	ID           uuid.UUID
	RunID        uuid.UUID
	OrderID      string
	ExternalID   string
	Outcome      SyncOutcome
	ERPOrderID   string
	CustomerID   string
	Attempts     int
	TotalsValid  bool
	ErrorCode    string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// SyncAttemptRecorder persists audit records.
type SyncAttemptRecorder interface {
	Record(ctx context.Context, attempt *SyncAttempt) error
}
