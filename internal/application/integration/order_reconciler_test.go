package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/ordersync/internal/domain/integration"
)

type reconcilerFixture struct {
	erp      *memoryERP
	catalog  *MockItemCatalog
	notifier *MockFailureNotifier
	settings ItemSettings
	cfg      ReconcilerConfig
	deps     ReconcilerDeps
	logger   *zap.Logger
}

func newFixture() *reconcilerFixture {
	erp := newMemoryERP("SHOP")
	catalog := new(MockItemCatalog)
	catalog.On("LookupItems", mock.Anything, mock.Anything).Return(knownItems(), nil).Maybe()
	notifier := new(MockFailureNotifier)
	notifier.On("NotifyFailure", mock.Anything, mock.Anything).Return(nil).Maybe()
	return &reconcilerFixture{
		erp:      erp,
		catalog:  catalog,
		notifier: notifier,
		cfg:      ReconcilerConfig{SourcePrefix: "SHOP", TotalTolerance: integration.DefaultTotalTolerance},
		logger:   zap.NewNop(),
	}
}

func (f *reconcilerFixture) build() *OrderReconciler {
	deps := f.deps
	if deps.StatusChecker == nil {
		deps.StatusChecker = f.erp
	}
	if deps.Orders == nil {
		deps.Orders = f.erp
	}
	deps.Customers = NewCustomerResolver(f.erp, DefaultCustomerPolicy("SHOP"), f.logger)
	deps.Lines = NewLineBuilder(f.catalog, f.settings, f.logger)
	deps.Retry = NewRetryCoordinator(RetryPolicy{MaxAttempts: 3, Delay: time.Second, Sleep: noSleep}, f.notifier, f.logger)
	return NewOrderReconciler(f.cfg, deps, f.logger)
}

func TestOrderReconciler_CreatesOrder(t *testing.T) {
	f := newFixture()
	r := f.build()

	res, err := r.Reconcile(context.Background(), newOrder(t))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, integration.SyncOutcomeCreated, res.Outcome)
	assert.Equal(t, "SHOP_1057113", res.ExternalID)
	assert.Equal(t, "9001", res.CustomerID)
	assert.True(t, res.CustomerCreated)
	assert.Equal(t, "9002", res.ERPOrderID)
	assert.Equal(t, 1, res.Attempts)
	assert.True(t, res.Totals.IsValid)
	assert.Equal(t, "8581.99", res.Totals.ItemsSubtotal.String())
	assert.Equal(t, "6778.65", res.Totals.Calculated.String())
	assert.Empty(t, res.Warnings)

	require.NotNil(t, f.erp.lastDraft)
	assert.Equal(t, "SHOP_1057113", f.erp.lastDraft.ExternalID)
	assert.Equal(t, "9001", f.erp.lastDraft.CustomerID)
}

func TestOrderReconciler_Idempotent(t *testing.T) {
	f := newFixture()
	r := f.build()
	order := newOrder(t)

	first, err := r.Reconcile(context.Background(), order)
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background(), order)
	require.NoError(t, err)

	assert.Equal(t, 1, f.erp.createCalls, "second pass must not create")
	assert.True(t, second.Success)
	assert.True(t, second.AlreadySynced)
	assert.Equal(t, integration.SyncOutcomeAlreadySynced, second.Outcome)
	assert.Equal(t, first.ERPOrderID, second.ERPOrderID)
	assert.False(t, second.CustomerCreated)
	assert.Equal(t, first.CustomerID, second.CustomerID)
}

func TestOrderReconciler_RetryReusesCustomer(t *testing.T) {
	f := newFixture()
	f.erp.failCreates = 1
	r := f.build()

	res, err := r.Reconcile(context.Background(), newOrder(t))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 2, f.erp.createCalls)
	assert.Equal(t, 1, f.erp.customerHits, "customer from the failed attempt matched by external id")
	assert.Len(t, f.erp.customers, 1)
	assert.True(t, res.CustomerCreated)
	assert.Equal(t, integration.SyncOutcomeCreated, res.Outcome)
	f.notifier.AssertNotCalled(t, "NotifyFailure", mock.Anything, mock.Anything)
}

func TestOrderReconciler_RetriesExhausted(t *testing.T) {
	f := newFixture()
	f.erp.failCreates = 5
	r := f.build()

	res, err := r.Reconcile(context.Background(), newOrder(t))
	require.Error(t, err)

	assert.ErrorIs(t, err, integration.ErrTransport)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, integration.CodeTransport, res.ErrorCode)
	assert.Equal(t, integration.SyncOutcomeFailed, res.Outcome)
	f.notifier.AssertNumberOfCalls(t, "NotifyFailure", 1)
}

func TestOrderReconciler_DuplicateResolvedByRecheck(t *testing.T) {
	f := newFixture()
	status := new(MockSyncStatusChecker)
	status.On("CheckBatch", mock.Anything, []string{"1057113"}).
		Return(map[string]integration.SyncStatus{"1057113": {}}).Once()
	status.On("CheckBatch", mock.Anything, []string{"1057113"}).
		Return(map[string]integration.SyncStatus{"1057113": {Synced: true, ERPInternalID: "777"}}).Once()
	orders := new(MockSalesOrderGateway)
	orders.On("CreateSalesOrder", mock.Anything, mock.Anything).
		Return("", integration.ErrDuplicateOrder).Once()
	f.deps.StatusChecker = status
	f.deps.Orders = orders
	r := f.build()

	res, err := r.Reconcile(context.Background(), newOrder(t))
	require.NoError(t, err)

	assert.True(t, res.AlreadySynced)
	assert.Equal(t, "777", res.ERPOrderID)
	status.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestOrderReconciler_DuplicateWithoutMatch(t *testing.T) {
	f := newFixture()
	status := new(MockSyncStatusChecker)
	status.On("CheckBatch", mock.Anything, mock.Anything).
		Return(map[string]integration.SyncStatus{"1057113": {}})
	orders := new(MockSalesOrderGateway)
	orders.On("CreateSalesOrder", mock.Anything, mock.Anything).Return("", integration.ErrDuplicateOrder)
	f.deps.StatusChecker = status
	f.deps.Orders = orders
	r := f.build()

	res, err := r.Reconcile(context.Background(), newOrder(t))
	require.Error(t, err)

	assert.Equal(t, integration.CodeDuplicateOrder, res.ErrorCode)
	assert.Equal(t, 1, res.Attempts, "duplicates are not retried")
	orders.AssertNumberOfCalls(t, "CreateSalesOrder", 1)
}

func TestOrderReconciler_StatusErrorStillCreates(t *testing.T) {
	f := newFixture()
	status := new(MockSyncStatusChecker)
	status.On("CheckBatch", mock.Anything, mock.Anything).
		Return(map[string]integration.SyncStatus{"1057113": {Error: "HTTP 503"}})
	f.deps.StatusChecker = status
	r := f.build()

	res, err := r.Reconcile(context.Background(), newOrder(t))
	require.NoError(t, err)
	assert.Equal(t, integration.SyncOutcomeCreated, res.Outcome)
	assert.Equal(t, 1, f.erp.createCalls)
}

func TestOrderReconciler_TotalsMismatchWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newFixture()
	f.logger = zap.New(core)
	metrics := new(MockSyncMetrics)
	metrics.On("RecordTotalsMismatch", mock.Anything, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.String() == "-78.65"
	})).Once()
	metrics.On("RecordOutcome", mock.Anything, integration.SyncOutcomeCreated, "", mock.Anything).Once()
	f.deps.Metrics = metrics
	r := f.build()

	order := newOrder(t, func(p *integration.SourceOrderParams) { p.Amount = dec("6700.00") })
	res, err := r.Reconcile(context.Background(), order)
	require.NoError(t, err)

	assert.True(t, res.Success, "mismatch does not block creation")
	assert.False(t, res.Totals.IsValid)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "6700.00")
	assert.Contains(t, res.Warnings[0], "6778.65")

	entries := logs.FilterMessage("Order total does not match its parts").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "1057113", fields["order_id"])
	assert.NotEmpty(t, fields["run_id"])
	metrics.AssertExpectations(t)
}

func TestOrderReconciler_ZeroToleranceRequiresExactTotal(t *testing.T) {
	order := newOrder(t, func(p *integration.SourceOrderParams) { p.Amount = dec("6778.66") })

	f := newFixture()
	res, err := f.build().Reconcile(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, res.Totals.IsValid, "a cent is within the default tolerance")
	assert.Empty(t, res.Warnings)

	f = newFixture()
	f.cfg.TotalTolerance = decimal.Zero
	res, err = f.build().Reconcile(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Totals.IsValid)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "0.01")
}

func TestOrderReconciler_ItemDowngradeStillCreates(t *testing.T) {
	f := newFixture()
	f.catalog.On("GetItem", mock.Anything, "203").Return(&integration.ERPItem{ID: "203", IsInactive: true}, nil)
	f.settings = ItemSettings{Discount: ChargeLineSetting{AsLine: true, ItemID: "203"}}
	metrics := new(MockSyncMetrics)
	metrics.On("RecordItemDowngrade", mock.Anything, integration.LineKindDiscount).Once()
	metrics.On("RecordOutcome", mock.Anything, integration.SyncOutcomeCreated, "", mock.Anything).Once()
	f.deps.Metrics = metrics
	r := f.build()

	res, err := r.Reconcile(context.Background(), newOrder(t))
	require.NoError(t, err)

	assert.Equal(t, integration.SyncOutcomeCreated, res.Outcome)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "inactive")
	assert.Equal(t, "1803.34", f.erp.lastDraft.FoldedDiscount.String())
	metrics.AssertExpectations(t)
}

func TestOrderReconciler_SharedLineBuilderKeepsMetricsApart(t *testing.T) {
	catalog := new(MockItemCatalog)
	catalog.On("LookupItems", mock.Anything, mock.Anything).Return(knownItems(), nil)
	catalog.On("GetItem", mock.Anything, "203").Return(&integration.ERPItem{ID: "203", IsInactive: true}, nil)
	lines := NewLineBuilder(catalog, ItemSettings{Discount: ChargeLineSetting{AsLine: true, ItemID: "203"}}, nil)

	build := func(metrics *MockSyncMetrics) *OrderReconciler {
		erp := newMemoryERP("SHOP")
		return NewOrderReconciler(ReconcilerConfig{SourcePrefix: "SHOP", TotalTolerance: integration.DefaultTotalTolerance}, ReconcilerDeps{
			StatusChecker: erp,
			Orders:        erp,
			Customers:     NewCustomerResolver(erp, DefaultCustomerPolicy("SHOP"), nil),
			Lines:         lines,
			Metrics:       metrics,
		}, nil)
	}
	first := new(MockSyncMetrics)
	first.On("RecordItemDowngrade", mock.Anything, integration.LineKindDiscount).Once()
	first.On("RecordOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Once()
	second := new(MockSyncMetrics)
	second.On("RecordOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()

	r1 := build(first)
	build(second)

	_, err := r1.Reconcile(context.Background(), newOrder(t))
	require.NoError(t, err)

	first.AssertExpectations(t)
	second.AssertNotCalled(t, "RecordItemDowngrade", mock.Anything, mock.Anything)
}

func TestOrderReconciler_ValidationFailure(t *testing.T) {
	f := newFixture()
	catalog := new(MockItemCatalog)
	catalog.On("LookupItems", mock.Anything, mock.Anything).Return(map[string]integration.ERPItem{}, nil)
	f.catalog = catalog
	r := f.build()

	res, err := r.Reconcile(context.Background(), newOrder(t))
	require.Error(t, err)

	var verr *integration.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, integration.CodeValidation, res.ErrorCode)
	assert.Equal(t, 1, res.Attempts)
	assert.Zero(t, f.erp.createCalls)
	f.notifier.AssertNumberOfCalls(t, "NotifyFailure", 1)
}

func TestOrderReconciler_Claims(t *testing.T) {
	t.Run("held elsewhere", func(t *testing.T) {
		f := newFixture()
		claims := new(MockClaimStore)
		claims.On("Claim", mock.Anything, "ordersync:claim:SHOP_1057113", 10*time.Minute).Return(false, nil)
		f.deps.Claims = claims
		r := f.build()

		res, err := r.Reconcile(context.Background(), newOrder(t))
		assert.ErrorIs(t, err, integration.ErrOrderClaimed)
		assert.Equal(t, integration.CodeOrderClaimed, res.ErrorCode)
		assert.Zero(t, f.erp.createCalls)
		claims.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("acquired and released", func(t *testing.T) {
		f := newFixture()
		claims := new(MockClaimStore)
		claims.On("Claim", mock.Anything, "ordersync:claim:SHOP_1057113", mock.Anything).Return(true, nil)
		claims.On("Release", mock.Anything, "ordersync:claim:SHOP_1057113").Return(nil).Once()
		f.deps.Claims = claims
		r := f.build()

		_, err := r.Reconcile(context.Background(), newOrder(t))
		require.NoError(t, err)
		claims.AssertExpectations(t)
	})

	t.Run("store unavailable", func(t *testing.T) {
		f := newFixture()
		claims := new(MockClaimStore)
		claims.On("Claim", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
		f.deps.Claims = claims
		r := f.build()

		res, err := r.Reconcile(context.Background(), newOrder(t))
		require.NoError(t, err)
		assert.Equal(t, integration.SyncOutcomeCreated, res.Outcome)
	})
}

func TestOrderReconciler_RecordsAttempt(t *testing.T) {
	f := newFixture()
	recorder := new(MockSyncAttemptRecorder)
	recorder.On("Record", mock.Anything, mock.MatchedBy(func(a *integration.SyncAttempt) bool {
		return a.OrderID == "1057113" &&
			a.ExternalID == "SHOP_1057113" &&
			a.Outcome == integration.SyncOutcomeCreated &&
			a.ERPOrderID == "9002" &&
			a.Attempts == 1 &&
			a.TotalsValid &&
			!a.FinishedAt.Before(a.StartedAt)
	})).Return(errors.New("db unavailable")).Once()
	f.deps.Recorder = recorder
	r := f.build()

	res, err := r.Reconcile(context.Background(), newOrder(t))
	require.NoError(t, err, "recorder failures are not reconcile failures")
	assert.True(t, res.Success)
	recorder.AssertExpectations(t)
}

func TestOrderReconciler_MarkProcessing(t *testing.T) {
	f := newFixture()
	f.cfg.MarkProcessing = true
	source := new(MockSourcePlatform)
	source.On("MarkProcessing", mock.Anything, "1057113").Return(integration.ErrSourcePlatformUnavailable).Once()
	f.deps.Source = source
	r := f.build()

	res, err := r.Reconcile(context.Background(), newOrder(t))
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "storefront status not updated")
	source.AssertExpectations(t)
}

func TestOrderReconciler_Batch(t *testing.T) {
	f := newFixture()
	f.erp.orders["SHOP_1000"] = "5000"
	r := f.build()

	synced := newOrder(t, func(p *integration.SourceOrderParams) { p.ID = "1000" })
	fresh := newOrder(t)
	broken := newOrder(t, func(p *integration.SourceOrderParams) {
		p.ID = "1001"
		p.Items = []integration.LineItem{{SKU: "NOPE", Quantity: dec("1"), UnitPrice: dec("6778.65")}}
		p.Discount = dec("0")
	})

	batch := r.ReconcileBatch(context.Background(), []*integration.SourceOrder{synced, fresh, broken})

	assert.NotEmpty(t, batch.RunID)
	assert.Equal(t, 3, batch.Total)
	assert.Equal(t, 1, batch.AlreadySynced)
	assert.Equal(t, 1, batch.Created)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, integration.BatchStatusPartial, batch.Status)
	require.Len(t, batch.Results, 3)
	assert.Equal(t, "5000", batch.Results[0].ERPOrderID)
	assert.Empty(t, batch.Results[0].CustomerID, "synced orders skip customer resolution")
	assert.Equal(t, integration.CodeValidation, batch.Results[2].ErrorCode)
	assert.Equal(t, 1, f.erp.createCalls)
}

func TestOrderReconciler_BatchRepeatedOrder(t *testing.T) {
	f := newFixture()
	r := f.build()
	order := newOrder(t)

	batch := r.ReconcileBatch(context.Background(), []*integration.SourceOrder{order, order})

	require.Len(t, batch.Results, 2)
	assert.Equal(t, 1, f.erp.createCalls, "repeat must be re-checked, not created")
	assert.Equal(t, integration.SyncOutcomeCreated, batch.Results[0].Outcome)
	assert.Equal(t, integration.SyncOutcomeAlreadySynced, batch.Results[1].Outcome)
	assert.Equal(t, batch.Results[0].ERPOrderID, batch.Results[1].ERPOrderID)
	assert.Equal(t, 1, batch.Created)
	assert.Equal(t, 1, batch.AlreadySynced)
	assert.Equal(t, integration.BatchStatusSuccess, batch.Status)
}

func TestOrderReconciler_BatchCancelled(t *testing.T) {
	f := newFixture()
	r := f.build()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := r.ReconcileBatch(ctx, []*integration.SourceOrder{newOrder(t)})

	assert.Equal(t, integration.BatchStatusFailed, batch.Status)
	assert.ErrorIs(t, batch.Results[0].Err, context.Canceled)
	assert.Zero(t, f.erp.createCalls)
}
