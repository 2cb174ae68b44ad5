package reconcile

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

var two = decimal.NewFromInt(2)

// reconstructLines folds a group's rows into one line per item, in first-seen order.
//
// A persisted quantity always wins. Otherwise an item seen on several rows comes from the
// one-row-per-unit era and its quantity is the row count. A single row whose price is an
// integer multiple (≥2) of the item's current unit price is assumed to be a merged line;
// that quantity is a guess and the line is marked estimated.
func reconstructLines(rows []OrderRow, prices map[uuid.UUID]money.Amount) []Line {
	var order []uuid.UUID
	byItem := make(map[uuid.UUID][]OrderRow)
	for _, row := range rows {
		if _, seen := byItem[row.ItemID]; !seen {
			order = append(order, row.ItemID)
		}
		byItem[row.ItemID] = append(byItem[row.ItemID], row)
	}

	lines := make([]Line, 0, len(order))
	for _, itemID := range order {
		members := byItem[itemID]
		line := Line{ItemID: itemID, ItemName: members[0].ItemName, Total: money.Zero}
		persisted, hasPersisted := 0, false
		for _, row := range members {
			line.OrderIDs = append(line.OrderIDs, row.ID)
			line.Total = line.Total.Add(row.Price)
			if row.Quantity != nil && *row.Quantity > 0 {
				persisted += *row.Quantity
				hasPersisted = true
			} else {
				persisted++
			}
		}
		line.Total = money.Round2(line.Total)

		switch {
		case hasPersisted:
			line.Quantity = persisted
		case len(members) > 1:
			line.Quantity = len(members)
		default:
			line.Quantity = 1
			if q, ok := inferQuantity(line.Total, prices[itemID]); ok {
				line.Quantity = q
				line.Estimated = true
			}
		}
		line.UnitPrice = money.Round2(line.Total.Div(decimal.NewFromInt(int64(line.Quantity))))
		lines = append(lines, line)
	}
	return lines
}

// inferQuantity reports q when price ≈ q × unit within half a cent and q ≥ 2.
func inferQuantity(price, unit money.Amount) (int, bool) {
	if !unit.IsPositive() || !price.IsPositive() {
		return 0, false
	}
	q := price.Div(unit).Round(0)
	if q.LessThan(two) {
		return 0, false
	}
	if !money.WithinHalfCent(price, unit.Mul(q)) {
		return 0, false
	}
	return int(q.IntPart()), true
}
