package netsuite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSyncStatusQuery(t *testing.T) {
	q := BuildSyncStatusQuery([]string{"SHOP_A", "SHOP_O'B"})
	assert.Contains(t, q, "FROM transaction t WHERE t.type = 'SalesOrd'")
	assert.Contains(t, q, "t.externalid IN ('SHOP_A', 'SHOP_O''B')")
	assert.Contains(t, q, "BUILTIN.DF(t.status) AS status")
}

func TestSyncStatusResolver_CheckBatch(t *testing.T) {
	api := &stubAPI{runQuery: func(q string) ([]Row, error) {
		return []Row{{
			"id":         "9001",
			"tranid":     "SO-100",
			"status":     "Pending Fulfillment",
			"total":      "6778.65",
			"createdat":  "2024-03-01 10:15:00",
			"externalid": "SHOP_B",
		}}, nil
	}}
	resolver := NewSyncStatusResolver(api, "SHOP", 500, nil)

	result := resolver.CheckBatch(context.Background(), []string{"A", "B", "C"})

	require.Len(t, api.queries, 1, "one query per batch")
	assert.Contains(t, api.queries[0], "'SHOP_A', 'SHOP_B', 'SHOP_C'")
	require.Len(t, result, 3)
	assert.False(t, result["A"].Synced)
	assert.False(t, result["C"].Synced)
	assert.Empty(t, result["A"].Error)

	b := result["B"]
	assert.True(t, b.Synced)
	assert.Equal(t, "9001", b.ERPInternalID)
	assert.Equal(t, "SO-100", b.ERPDisplayID)
	assert.Equal(t, "Pending Fulfillment", b.ERPStatus)
	assert.Equal(t, "6778.65", b.ERPTotal.String())
	require.NotNil(t, b.SyncedAt)
	assert.Equal(t, 2024, b.SyncedAt.Year())
}

func TestSyncStatusResolver_QueryFailureMarksChunk(t *testing.T) {
	api := &stubAPI{runQuery: func(q string) ([]Row, error) {
		return nil, errors.New("connection reset")
	}}
	resolver := NewSyncStatusResolver(api, "SHOP", 0, nil)

	result := resolver.CheckBatch(context.Background(), []string{"A", "B"})

	for _, id := range []string{"A", "B"} {
		assert.False(t, result[id].Synced)
		assert.Equal(t, "connection reset", result[id].Error)
	}
}

func TestSyncStatusResolver_Chunking(t *testing.T) {
	api := &stubAPI{runQuery: func(q string) ([]Row, error) {
		if strings.Contains(q, "SHOP_4") {
			return nil, errors.New("boom")
		}
		return []Row{{"id": "1", "externalid": "shop_1"}}, nil
	}}
	resolver := NewSyncStatusResolver(api, "SHOP", 2, nil)

	ids := make([]string, 0, 5)
	for i := 1; i <= 5; i++ {
		ids = append(ids, fmt.Sprint(i))
	}
	result := resolver.CheckBatch(context.Background(), append(ids, "1", ""))

	assert.Len(t, api.queries, 3)
	assert.Len(t, result, 5)
	assert.True(t, result["1"].Synced, "external id match is case-insensitive")
	assert.False(t, result["2"].Synced)
	assert.Equal(t, "boom", result["3"].Error)
	assert.Equal(t, "boom", result["4"].Error)
	assert.Empty(t, result["5"].Error)
}

func TestSyncStatusResolver_Check(t *testing.T) {
	api := &stubAPI{runQuery: func(q string) ([]Row, error) {
		return []Row{{"id": "77", "externalid": "SHOP_X"}}, nil
	}}
	resolver := NewSyncStatusResolver(api, "SHOP", 500, nil)

	status := resolver.Check(context.Background(), "X")
	assert.True(t, status.Synced)
	assert.Equal(t, "77", status.ERPInternalID)
	assert.Nil(t, status.SyncedAt)
}

func TestSyncStatusResolver_EmptyInput(t *testing.T) {
	api := &stubAPI{}
	resolver := NewSyncStatusResolver(api, "SHOP", 500, nil)

	assert.Empty(t, resolver.CheckBatch(context.Background(), nil))
	assert.Empty(t, api.queries)
}
