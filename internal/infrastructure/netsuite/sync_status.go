package netsuite

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
)

const createdAtLayout = "2006-01-02 15:04:05"

// SyncStatusResolver determines which source orders already have an ERP sales order.
// The ERP is the only source of truth; nothing is cached between calls.
type SyncStatusResolver struct {
	querier      Querier
	sourcePrefix string
	chunkSize    int
	logger       *zap.Logger
}

// NewSyncStatusResolver creates a resolver. sourcePrefix is the external id prefix
// ("SHOP" in "SHOP_1001"); chunkSize bounds the ids per query.
func NewSyncStatusResolver(querier Querier, sourcePrefix string, chunkSize int, logger *zap.Logger) *SyncStatusResolver {
	if chunkSize <= 0 {
		chunkSize = defaultStatusChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncStatusResolver{
		querier:      querier,
		sourcePrefix: sourcePrefix,
		chunkSize:    chunkSize,
		logger:       logger,
	}
}

// BuildSyncStatusQuery returns the SuiteQL query for a set of external ids
func BuildSyncStatusQuery(externalIDs []string) string {
	return "SELECT t.id, t.tranid, BUILTIN.DF(t.status) AS status, t.foreigntotal AS total, " +
		"t.trandate, TO_CHAR(t.createddate, 'YYYY-MM-DD HH24:MI:SS') AS createdat, t.externalid " +
		"FROM transaction t WHERE t.type = 'SalesOrd' AND t.externalid IN (" + QuoteList(externalIDs) + ")"
}

// CheckBatch returns a status for every requested order id. It never fails as a whole:
// when a query fails, every id in that chunk is reported unsynced with the error message.
func (r *SyncStatusResolver) CheckBatch(ctx context.Context, orderIDs []string) map[string]integration.SyncStatus {
	ids := uniqueNonEmpty(orderIDs)
	result := make(map[string]integration.SyncStatus, len(ids))

	for _, part := range chunk(ids, r.chunkSize) {
		byExternalID := make(map[string]string, len(part))
		externalIDs := make([]string, len(part))
		for i, id := range part {
			ext := integration.ExternalID(r.sourcePrefix, id)
			externalIDs[i] = ext
			byExternalID[strings.ToUpper(ext)] = id
			result[id] = integration.SyncStatus{Synced: false}
		}

		rows, err := r.querier.RunQuery(ctx, BuildSyncStatusQuery(externalIDs))
		if err != nil {
			r.logger.Warn("Sync status query failed",
				zap.Int("order_count", len(part)),
				zap.Error(err),
			)
			for _, id := range part {
				result[id] = integration.SyncStatus{Synced: false, Error: err.Error()}
			}
			continue
		}

		for _, row := range rows {
			id, ok := byExternalID[strings.ToUpper(row.String("externalid"))]
			if !ok {
				continue
			}
			result[id] = statusFromRow(row)
		}
	}

	return result
}

// Check returns the status of a single order
func (r *SyncStatusResolver) Check(ctx context.Context, orderID string) integration.SyncStatus {
	return r.CheckBatch(ctx, []string{orderID})[orderID]
}

func statusFromRow(row Row) integration.SyncStatus {
	status := integration.SyncStatus{
		Synced:        true,
		ERPInternalID: row.String("id"),
		ERPDisplayID:  row.String("tranid"),
		ERPStatus:     row.String("status"),
		ERPTotal:      row.Decimal("total"),
	}
	if ts, err := time.Parse(createdAtLayout, row.String("createdat")); err == nil {
		status.SyncedAt = &ts
	}
	return status
}

var _ integration.SyncStatusChecker = (*SyncStatusResolver)(nil)
