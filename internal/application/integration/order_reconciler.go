package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/logger"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

// SyncMetricsRecorder receives reconciliation measurements
type SyncMetricsRecorder interface {
	RecordOutcome(ctx context.Context, outcome integration.SyncOutcome, errorCode string, duration time.Duration)
	RecordTotalsMismatch(ctx context.Context, difference decimal.Decimal)
	RecordItemDowngrade(ctx context.Context, kind integration.LineKind)
}

// ReconcilerConfig holds reconciliation settings
type ReconcilerConfig struct {
	// SourcePrefix builds the "<prefix>_<orderId>" correlation key
	SourcePrefix string
	// TotalTolerance is the absolute tolerance for total validation; zero
	// requires an exact match
	TotalTolerance decimal.Decimal
	// MarkProcessing updates the storefront status after a successful create
	MarkProcessing bool
	// ClaimTTL bounds how long an order claim is held
	ClaimTTL time.Duration
}

// ReconcilerDeps are the collaborators of an OrderReconciler.
// Source, Recorder, Claims and Metrics are optional.
type ReconcilerDeps struct {
	StatusChecker integration.SyncStatusChecker
	Customers     *CustomerResolver
	Lines         *LineBuilder
	Orders        integration.SalesOrderGateway
	Retry         *RetryCoordinator
	Source        integration.SourcePlatform
	Recorder      integration.SyncAttemptRecorder
	Claims        shared.ClaimStore
	Metrics       SyncMetricsRecorder
}

// OrderReconciler creates at most one ERP sales order per source order.
//
// The ERP is checked for the order's external id before every create, so
// reconciling the same order again returns the existing ERP id. The check is
// read-then-write; a duplicate-key rejection from the ERP is resolved by
// re-reading the status.
type OrderReconciler struct {
	cfg    ReconcilerConfig
	deps   ReconcilerDeps
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderReconciler creates a new order reconciler
func NewOrderReconciler(cfg ReconcilerConfig, deps ReconcilerDeps, zl *zap.Logger) *OrderReconciler {
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = shared.DefaultClaimConfig().TTL
	}
	if deps.Retry == nil {
		deps.Retry = NewRetryCoordinator(DefaultRetryPolicy(), nil, zl)
	}
	if zl == nil {
		zl = zap.NewNop()
	}
	return &OrderReconciler{
		cfg:    cfg,
		deps:   deps,
		logger: zl,
		now:    time.Now,
	}
}

// Reconcile brings one source order into the ERP. The returned result is always
// non-nil; err is set when the order could not be reconciled.
func (r *OrderReconciler) Reconcile(ctx context.Context, order *integration.SourceOrder) (*ReconcileResult, error) {
	runID := uuid.New()
	ctx, _ = logger.WithRunID(ctx, r.logger, runID.String())
	return r.reconcile(ctx, order, runID, nil)
}

// ReconcileBatch reconciles orders one after another. One bulk status query runs
// first; orders already in the ERP are reported without further calls. An order
// listed more than once is re-checked against the ERP for every repeat.
func (r *OrderReconciler) ReconcileBatch(ctx context.Context, orders []*integration.SourceOrder) *BatchResult {
	runID := uuid.New()
	ctx, log := logger.WithRunID(ctx, r.logger, runID.String())
	batch := &BatchResult{
		RunID:     runID.String(),
		StartedAt: r.now(),
		Results:   make([]*ReconcileResult, 0, len(orders)),
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID()
	}
	statuses := r.deps.StatusChecker.CheckBatch(ctx, ids)

	log.Info("Starting reconcile batch", zap.Int("orders", len(orders)))

	handled := make(map[string]bool, len(orders))
	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			res := &ReconcileResult{
				OrderID:    order.ID(),
				ExternalID: order.ExternalID(r.cfg.SourcePrefix),
				Outcome:    integration.SyncOutcomeFailed,
				ErrorCode:  integration.CodeInternal,
				Error:      err.Error(),
				Err:        err,
			}
			batch.add(res)
			continue
		}

		// the snapshot predates any create made earlier in this batch
		var known *integration.SyncStatus
		if st, ok := statuses[order.ID()]; ok && !handled[order.ID()] {
			known = &st
		}
		handled[order.ID()] = true
		res, _ := r.reconcile(ctx, order, runID, known)
		batch.add(res)
	}

	batch.FinishedAt = r.now()
	batch.Status = integration.BatchStatusFor(batch.Created+batch.AlreadySynced, batch.Failed)

	log.Info("Reconcile batch completed",
		zap.String("status", batch.Status.String()),
		zap.Int("created", batch.Created),
		zap.Int("already_synced", batch.AlreadySynced),
		zap.Int("failed", batch.Failed),
		zap.Duration("duration", batch.FinishedAt.Sub(batch.StartedAt)),
	)
	return batch
}

func (r *OrderReconciler) reconcile(ctx context.Context, order *integration.SourceOrder, runID uuid.UUID, known *integration.SyncStatus) (*ReconcileResult, error) {
	start := r.now()
	externalID := order.ExternalID(r.cfg.SourcePrefix)

	ctx, span := telemetry.StartServiceSpan(ctx, "order_reconciler", "reconcile",
		telemetry.WithAttribute("order.id", order.ID()),
		telemetry.WithAttribute("order.external_id", externalID),
	)
	defer span.End()
	ctx, log := logger.WithOrderID(ctx, logger.WithTraceContext(ctx, logger.FromContext(ctx)), order.ID())

	result := &ReconcileResult{
		OrderID:    order.ID(),
		ExternalID: externalID,
		Outcome:    integration.SyncOutcomeFailed,
	}

	totals := integration.ValidateTotals(order, r.cfg.TotalTolerance)
	result.Totals = ToTotalsSummary(totals)
	var baseWarnings []string
	if !totals.IsValid {
		log.Warn("Order total does not match its parts",
			zap.String("stated", totals.Stated.String()),
			zap.String("calculated", totals.Calculated.String()),
			zap.String("difference", totals.Difference.String()),
			zap.String("tolerance", totals.Tolerance.String()),
		)
		baseWarnings = append(baseWarnings, fmt.Sprintf("stated total %s differs from calculated total %s by %s",
			totals.Stated.StringFixed(2), totals.Calculated.StringFixed(2), totals.Difference.StringFixed(2)))
		if r.deps.Metrics != nil {
			r.deps.Metrics.RecordTotalsMismatch(ctx, totals.Difference)
		}
	}
	result.Warnings = baseWarnings

	if r.deps.Claims != nil {
		key := claimKey(externalID)
		claimed, err := r.deps.Claims.Claim(ctx, key, r.cfg.ClaimTTL)
		switch {
		case err != nil:
			log.Warn("Order claim unavailable, continuing without it", zap.Error(err))
		case !claimed:
			err := fmt.Errorf("%w: %s", integration.ErrOrderClaimed, externalID)
			return r.finish(ctx, log, span, result, runID, start, err)
		default:
			defer func() {
				if err := r.deps.Claims.Release(context.WithoutCancel(ctx), key); err != nil {
					log.Warn("Failed to release order claim", zap.Error(err))
				}
			}()
		}
	}

	outcome := r.deps.Retry.WithRetry(ctx, order.ID(), externalID, func(ctx context.Context, attempt int) error {
		var pre *integration.SyncStatus
		if attempt == 1 {
			pre = known
		}
		result.Warnings = baseWarnings
		return r.attempt(ctx, log, order, externalID, pre, result)
	})
	result.Attempts = outcome.Attempts

	return r.finish(ctx, log, span, result, runID, start, outcome.Err)
}

// attempt runs one full pass: customer, status check, lines, create
func (r *OrderReconciler) attempt(
	ctx context.Context,
	log *zap.Logger,
	order *integration.SourceOrder,
	externalID string,
	known *integration.SyncStatus,
	result *ReconcileResult,
) error {
	if known != nil && known.Synced {
		markSynced(result, *known)
		return nil
	}

	resolution, err := r.deps.Customers.Resolve(ctx, order)
	if err != nil {
		return err
	}
	result.CustomerID = resolution.CustomerID
	result.CustomerCreated = result.CustomerCreated || resolution.Created

	status := r.checkStatus(ctx, order.ID(), known)
	if status.Synced {
		markSynced(result, status)
		log.Info("Order already in ERP", zap.String("erp_order_id", status.ERPInternalID))
		return nil
	}
	if status.Error != "" {
		log.Warn("Sync status unknown, relying on ERP external id uniqueness", zap.String("error", status.Error))
	}

	built, err := r.deps.Lines.Build(ctx, order, resolution.CustomerID, externalID)
	if err != nil {
		return err
	}
	result.Warnings = append(append([]string(nil), result.Warnings...), built.Warnings...)
	if r.deps.Metrics != nil {
		for _, kind := range built.Downgraded {
			r.deps.Metrics.RecordItemDowngrade(ctx, kind)
		}
	}

	id, err := r.deps.Orders.CreateSalesOrder(ctx, built.Draft)
	if errors.Is(err, integration.ErrDuplicateOrder) {
		recheck := r.checkStatus(ctx, order.ID(), nil)
		telemetry.AddEvent(telemetry.SpanFromContext(ctx), "duplicate_recheck", "synced", recheck.Synced)
		if recheck.Synced {
			markSynced(result, recheck)
			log.Info("ERP reported duplicate; order already exists", zap.String("erp_order_id", recheck.ERPInternalID))
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}

	result.Success = true
	result.ERPOrderID = id
	result.Outcome = integration.SyncOutcomeCreated
	log.Info("Created ERP sales order",
		zap.String("erp_order_id", id),
		zap.String("customer_id", resolution.CustomerID),
		zap.Bool("customer_created", resolution.Created),
	)

	if r.cfg.MarkProcessing && r.deps.Source != nil {
		if err := r.deps.Source.MarkProcessing(ctx, order.ID()); err != nil {
			log.Warn("Failed to mark storefront order processing", zap.Error(err))
			result.Warnings = append(result.Warnings, "storefront status not updated: "+err.Error())
		}
	}
	return nil
}

func (r *OrderReconciler) checkStatus(ctx context.Context, orderID string, known *integration.SyncStatus) integration.SyncStatus {
	if known != nil && known.Error == "" {
		return *known
	}
	return r.deps.StatusChecker.CheckBatch(ctx, []string{orderID})[orderID]
}

func (r *OrderReconciler) finish(
	ctx context.Context,
	log *zap.Logger,
	span trace.Span,
	result *ReconcileResult,
	runID uuid.UUID,
	start time.Time,
	err error,
) (*ReconcileResult, error) {
	finished := r.now()
	result.Duration = finished.Sub(start)

	if err != nil {
		result.Success = false
		result.Outcome = integration.SyncOutcomeFailed
		result.Err = err
		result.ErrorCode = integration.ErrorCode(err)
		result.Error = err.Error()
		telemetry.RecordError(span, err)
	} else {
		telemetry.SetOK(span)
	}
	telemetry.SetAttributes(span,
		"sync.outcome", string(result.Outcome),
		"sync.attempts", result.Attempts,
		"sync.totals_difference", result.Totals.Difference,
	)

	if r.deps.Metrics != nil {
		r.deps.Metrics.RecordOutcome(ctx, result.Outcome, result.ErrorCode, result.Duration)
	}

	if r.deps.Recorder != nil {
		attempt := &integration.SyncAttempt{
			ID:           uuid.New(),
			RunID:        runID,
			OrderID:      result.OrderID,
			ExternalID:   result.ExternalID,
			Outcome:      result.Outcome,
			ERPOrderID:   result.ERPOrderID,
			CustomerID:   result.CustomerID,
			Attempts:     result.Attempts,
			TotalsValid:  result.Totals.IsValid,
			ErrorCode:    result.ErrorCode,
			ErrorMessage: result.Error,
			StartedAt:    start,
			FinishedAt:   finished,
		}
		if recErr := r.deps.Recorder.Record(context.WithoutCancel(ctx), attempt); recErr != nil {
			log.Warn("Failed to record sync attempt", zap.Error(recErr))
		}
	}

	if err != nil {
		return result, err
	}
	return result, nil
}

func markSynced(result *ReconcileResult, status integration.SyncStatus) {
	result.Success = true
	result.AlreadySynced = true
	result.ERPOrderID = status.ERPInternalID
	result.Outcome = integration.SyncOutcomeAlreadySynced
}

func claimKey(externalID string) string {
	return "ordersync:claim:" + externalID
}
