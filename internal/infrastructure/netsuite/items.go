package netsuite

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/erp/ordersync/internal/domain/integration"
)

const itemColumns = "i.id, i.itemid, i.itemtype, i.subtype, i.isinactive"

// ErrInvalidItemID indicates an item internal id that is not numeric
var ErrInvalidItemID = errors.New("netsuite: invalid item id format")

// Catalog implements integration.ItemCatalog
type Catalog struct {
	api Querier
}

// NewCatalog creates an item catalog
func NewCatalog(api Querier) *Catalog {
	return &Catalog{api: api}
}

// validateNumericID validates that an internal id contains only digits
func validateNumericID(id string) error {
	if id == "" {
		return ErrInvalidItemID
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidItemID, id)
	}
	return nil
}

// LookupItems resolves item names with one IN query. Unknown names are absent from the map.
func (c *Catalog) LookupItems(ctx context.Context, names []string) (map[string]integration.ERPItem, error) {
	names = uniqueNonEmpty(names)
	result := make(map[string]integration.ERPItem, len(names))
	if len(names) == 0 {
		return result, nil
	}

	q := "SELECT " + itemColumns + " FROM item i WHERE i.itemid IN (" + QuoteList(names) + ")"
	rows, err := c.api.RunQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		item := itemFromRow(row)
		if existing, ok := result[item.ItemID]; ok && !existing.IsInactive {
			continue
		}
		result[item.ItemID] = item
	}
	return result, nil
}

// GetItem returns the item with the given internal id, or nil when it does not exist
func (c *Catalog) GetItem(ctx context.Context, id string) (*integration.ERPItem, error) {
	if err := validateNumericID(id); err != nil {
		return nil, err
	}
	rows, err := c.api.RunQuery(ctx, "SELECT "+itemColumns+" FROM item i WHERE i.id = "+id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	item := itemFromRow(rows[0])
	return &item, nil
}

func itemFromRow(row Row) integration.ERPItem {
	return integration.ERPItem{
		ID:         row.String("id"),
		ItemID:     row.String("itemid"),
		ItemType:   row.String("itemtype"),
		SubType:    row.String("subtype"),
		IsInactive: row.Bool("isinactive"),
	}
}

var _ integration.ItemCatalog = (*Catalog)(nil)
