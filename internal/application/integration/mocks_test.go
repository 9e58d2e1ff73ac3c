package integration

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erp/ordersync/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// MockCustomerDirectory is a mock implementation of CustomerDirectory
type MockCustomerDirectory struct {
	mock.Mock
}

func (m *MockCustomerDirectory) FindStoreCustomerByEmail(ctx context.Context, email string) (*integration.CustomerRecord, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CustomerRecord), args.Error(1)
}

func (m *MockCustomerDirectory) FindParentCompany(ctx context.Context, email, phone string) (*integration.CustomerRecord, error) {
	args := m.Called(ctx, email, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CustomerRecord), args.Error(1)
}

func (m *MockCustomerDirectory) FindByExternalID(ctx context.Context, externalID string) (*integration.CustomerRecord, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CustomerRecord), args.Error(1)
}

func (m *MockCustomerDirectory) CompanyNameExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustomerDirectory) CreateCustomer(ctx context.Context, candidate integration.CustomerCandidate) (string, error) {
	args := m.Called(ctx, candidate)
	return args.String(0), args.Error(1)
}

// MockItemCatalog is a mock implementation of ItemCatalog
type MockItemCatalog struct {
	mock.Mock
}

func (m *MockItemCatalog) LookupItems(ctx context.Context, names []string) (map[string]integration.ERPItem, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]integration.ERPItem), args.Error(1)
}

func (m *MockItemCatalog) GetItem(ctx context.Context, id string) (*integration.ERPItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ERPItem), args.Error(1)
}

// MockSalesOrderGateway is a mock implementation of SalesOrderGateway
type MockSalesOrderGateway struct {
	mock.Mock
}

func (m *MockSalesOrderGateway) CreateSalesOrder(ctx context.Context, draft *integration.SalesOrderDraft) (string, error) {
	args := m.Called(ctx, draft)
	return args.String(0), args.Error(1)
}

// MockSyncStatusChecker is a mock implementation of SyncStatusChecker
type MockSyncStatusChecker struct {
	mock.Mock
}

func (m *MockSyncStatusChecker) CheckBatch(ctx context.Context, orderIDs []string) map[string]integration.SyncStatus {
	args := m.Called(ctx, orderIDs)
	return args.Get(0).(map[string]integration.SyncStatus)
}

// MockSourcePlatform is a mock implementation of SourcePlatform
type MockSourcePlatform struct {
	mock.Mock
}

func (m *MockSourcePlatform) MarkProcessing(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

// MockFailureNotifier is a mock implementation of FailureNotifier
type MockFailureNotifier struct {
	mock.Mock
}

func (m *MockFailureNotifier) NotifyFailure(ctx context.Context, notice integration.FailureNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}

// MockSyncAttemptRecorder is a mock implementation of SyncAttemptRecorder
type MockSyncAttemptRecorder struct {
	mock.Mock
}

func (m *MockSyncAttemptRecorder) Record(ctx context.Context, attempt *integration.SyncAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

// MockClaimStore is a mock implementation of shared.ClaimStore
type MockClaimStore struct {
	mock.Mock
}

func (m *MockClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockClaimStore) Close() error {
	return m.Called().Error(0)
}

// MockSyncMetrics is a mock implementation of SyncMetricsRecorder
type MockSyncMetrics struct {
	mock.Mock
}

func (m *MockSyncMetrics) RecordOutcome(ctx context.Context, outcome integration.SyncOutcome, errorCode string, duration time.Duration) {
	m.Called(ctx, outcome, errorCode, duration)
}

func (m *MockSyncMetrics) RecordTotalsMismatch(ctx context.Context, difference decimal.Decimal) {
	m.Called(ctx, difference)
}

func (m *MockSyncMetrics) RecordItemDowngrade(ctx context.Context, kind integration.LineKind) {
	m.Called(ctx, kind)
}

// ---------------------------------------------------------------------------
// In-memory ERP
// ---------------------------------------------------------------------------

// memoryERP keeps sales orders and customers keyed by external id
type memoryERP struct {
	mu           sync.Mutex
	prefix       string
	orders       map[string]string
	customers    map[string]string
	nextID       int
	createCalls  int
	failCreates  int
	lastDraft    *integration.SalesOrderDraft
	customerHits int
}

func newMemoryERP(prefix string) *memoryERP {
	return &memoryERP{
		prefix:    prefix,
		orders:    map[string]string{},
		customers: map[string]string{},
		nextID:    9000,
	}
}

func (e *memoryERP) CheckBatch(_ context.Context, orderIDs []string) map[string]integration.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]integration.SyncStatus, len(orderIDs))
	for _, id := range orderIDs {
		if erpID, ok := e.orders[integration.ExternalID(e.prefix, id)]; ok {
			out[id] = integration.SyncStatus{Synced: true, ERPInternalID: erpID}
			continue
		}
		out[id] = integration.SyncStatus{}
	}
	return out
}

func (e *memoryERP) CreateSalesOrder(_ context.Context, draft *integration.SalesOrderDraft) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.createCalls++
	e.lastDraft = draft
	if e.failCreates > 0 {
		e.failCreates--
		return "", fmt.Errorf("%w: connection reset", integration.ErrTransport)
	}
	if _, ok := e.orders[draft.ExternalID]; ok {
		return "", fmt.Errorf("%w: %s", integration.ErrDuplicateOrder, draft.ExternalID)
	}
	e.nextID++
	id := strconv.Itoa(e.nextID)
	e.orders[draft.ExternalID] = id
	return id, nil
}

func (e *memoryERP) FindStoreCustomerByEmail(context.Context, string) (*integration.CustomerRecord, error) {
	return nil, nil
}

func (e *memoryERP) FindParentCompany(context.Context, string, string) (*integration.CustomerRecord, error) {
	return nil, nil
}

func (e *memoryERP) FindByExternalID(_ context.Context, externalID string) (*integration.CustomerRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.customers[externalID]; ok {
		e.customerHits++
		return &integration.CustomerRecord{ID: id}, nil
	}
	return nil, nil
}

func (e *memoryERP) CompanyNameExists(context.Context, string) (bool, error) {
	return false, nil
}

func (e *memoryERP) CreateCustomer(_ context.Context, c integration.CustomerCandidate) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := strconv.Itoa(e.nextID)
	e.customers[c.ExternalID] = id
	return id, nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func noSleep(context.Context, time.Duration) error { return nil }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// orderParams returns the parameters of a valid regular order; the example
// order 1057113 totals 8581.99 - 1803.34 = 6778.65
func orderParams() integration.SourceOrderParams {
	return integration.SourceOrderParams{
		ID:            "1057113",
		InvoicePrefix: "INV",
		InvoiceNumber: "1001",
		OrderDate:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		PaymentMethod: "Credit Card",
		Amount:        dec("6778.65"),
		Discount:      dec("1803.34"),
		Items: []integration.LineItem{
			{SKU: "WIDGET-1", Description: "Widget", Quantity: dec("3"), UnitPrice: dec("2500.00"), OptionPrice: dec("27.33")},
			{SKU: "GADGET-9", Description: "Gadget", Quantity: dec("1"), UnitPrice: dec("1000.00")},
		},
		Billing: integration.Address{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Company:   "Analytical Engines",
			Email:     "billing@engines.example",
			Phone:     "555-0100",
		},
		Shipping:        &integration.Address{FirstName: "Charles", LastName: "Babbage"},
		QuestionAnswers: []string{"buyer@engines.example"},
	}
}

func newOrder(t *testing.T, modify ...func(p *integration.SourceOrderParams)) *integration.SourceOrder {
	t.Helper()
	p := orderParams()
	for _, m := range modify {
		m(&p)
	}
	o, err := integration.NewSourceOrder(p)
	require.NoError(t, err)
	return o
}

func dropship(p *integration.SourceOrderParams) {
	p.PaymentMethod = "Dropship - Net 30"
}
