package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/money"
)

// LineItem is a single cart line.
type LineItem struct {
	ProductID  uuid.UUID     `json:"productId"`
	Name       string        `json:"name"`
	UnitPrice  money.Amount  `json:"unitPrice"`
	SalePrice  *money.Amount `json:"salePrice,omitempty"`
	Quantity   int           `json:"quantity"`
	VariantKey string        `json:"variantKey,omitempty"`
}

// OnSale reports whether a sale price below the unit price is set.
func (li LineItem) OnSale() bool {
	return li.SalePrice != nil && !li.SalePrice.IsNegative() && li.SalePrice.LessThan(li.UnitPrice)
}

// EffectiveUnitPrice is the sale price when on sale, otherwise the unit price.
func (li LineItem) EffectiveUnitPrice() money.Amount {
	if li.OnSale() {
		return *li.SalePrice
	}
	return li.UnitPrice
}

// LineTotal is effective unit price × quantity, unrounded.
func (li LineItem) LineTotal() money.Amount {
	return li.EffectiveUnitPrice().Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Validate rejects lines that cannot be priced.
func (li LineItem) Validate() error {
	if li.ProductID == uuid.Nil {
		return common.Validation("line item product id is required")
	}
	if li.Quantity < 1 {
		return common.Validationf("line item %s quantity must be at least 1", li.ProductID)
	}
	if li.UnitPrice.IsNegative() {
		return common.Validationf("line item %s unit price must not be negative", li.ProductID)
	}
	if li.SalePrice != nil && li.SalePrice.IsNegative() {
		return common.Validationf("line item %s sale price must not be negative", li.ProductID)
	}
	return nil
}

type lineKey struct {
	product uuid.UUID
	variant string
}

// Ledger holds the cart lines used as pricing input. The zero value is an empty cart.
type Ledger struct {
	lines []LineItem
}

// NewLedger builds a ledger from items, merging duplicates.
func NewLedger(items ...LineItem) (Ledger, error) {
	var l Ledger
	for _, it := range items {
		if err := l.Add(it); err != nil {
			return Ledger{}, err
		}
	}
	return l, nil
}

// Add appends a line or increases the quantity of the line with the same product and variant.
func (l *Ledger) Add(item LineItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	key := lineKey{item.ProductID, item.VariantKey}
	for i := range l.lines {
		if (lineKey{l.lines[i].ProductID, l.lines[i].VariantKey}) == key {
			l.lines[i].Quantity += item.Quantity
			return nil
		}
	}
	l.lines = append(l.lines, item)
	return nil
}

// SetQuantity overwrites the quantity of an existing line. A quantity below 1 removes the line.
func (l *Ledger) SetQuantity(productID uuid.UUID, variantKey string, qty int) bool {
	key := lineKey{productID, variantKey}
	for i := range l.lines {
		if (lineKey{l.lines[i].ProductID, l.lines[i].VariantKey}) != key {
			continue
		}
		if qty < 1 {
			l.lines = append(l.lines[:i], l.lines[i+1:]...)
			return true
		}
		l.lines[i].Quantity = qty
		return true
	}
	return false
}

// Remove drops the line for productID and variantKey.
func (l *Ledger) Remove(productID uuid.UUID, variantKey string) bool {
	return l.SetQuantity(productID, variantKey, 0)
}

// Lines returns a copy of the ledger lines.
func (l Ledger) Lines() []LineItem {
	out := make([]LineItem, len(l.lines))
	copy(out, l.lines)
	return out
}

// IsEmpty reports whether the ledger has no lines.
func (l Ledger) IsEmpty() bool { return len(l.lines) == 0 }

// ProductIDs returns the set of products present regardless of variant.
func (l Ledger) ProductIDs() map[uuid.UUID]struct{} {
	ids := make(map[uuid.UUID]struct{}, len(l.lines))
	for _, li := range l.lines {
		ids[li.ProductID] = struct{}{}
	}
	return ids
}

// Subtotal is round2(Σ effective unit price × quantity).
func (l Ledger) Subtotal() money.Amount {
	sum := money.Zero
	for _, li := range l.lines {
		sum = sum.Add(li.LineTotal())
	}
	return money.Round2(sum)
}
