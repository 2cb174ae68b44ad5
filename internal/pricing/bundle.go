package pricing

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/money"
)

var maxBundlePercentage = decimal.NewFromInt(100)

// BundleDeal unlocks a percentage discount once every member product is in the cart.
type BundleDeal struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	ProductIDs         []uuid.UUID     `json:"productIds"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	Active             bool            `json:"active"`
}

// Validate checks the bundle definition.
func (b BundleDeal) Validate() error {
	if len(b.members()) < 2 {
		return common.Validationf("bundle %s needs at least two distinct products", b.ID)
	}
	if !b.DiscountPercentage.IsPositive() || b.DiscountPercentage.GreaterThan(maxBundlePercentage) {
		return common.Validationf("bundle %s percentage must be in (0,100]", b.ID)
	}
	return nil
}

func (b BundleDeal) members() map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(b.ProductIDs))
	for _, id := range b.ProductIDs {
		set[id] = struct{}{}
	}
	return set
}

// AppliedDiscount is a satisfied bundle and its discount. It is derived per computation.
type AppliedDiscount struct {
	BundleID   uuid.UUID       `json:"bundleId"`
	Name       string          `json:"name"`
	Amount     money.Amount    `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// IncompleteBundle is a bundle with some but not all members in the cart.
type IncompleteBundle struct {
	Bundle  BundleDeal  `json:"bundle"`
	Present []uuid.UUID `json:"present"`
	Missing []uuid.UUID `json:"missing"`
}

// FindApplicableBundles returns a discount for each active bundle fully present in the ledger.
// Satisfied bundles stack; a product in two bundles counts towards both.
func FindApplicableBundles(l Ledger, bundles []BundleDeal) []AppliedDiscount {
	present := l.ProductIDs()
	var out []AppliedDiscount
	for _, b := range bundles {
		if !b.Active || b.Validate() != nil {
			continue
		}
		members := b.members()
		if !containsAll(present, members) {
			continue
		}
		total := money.Zero
		for _, li := range l.lines {
			if _, ok := members[li.ProductID]; ok {
				total = total.Add(li.LineTotal())
			}
		}
		out = append(out, AppliedDiscount{
			BundleID:   b.ID,
			Name:       b.Name,
			Amount:     money.Percent(total, b.DiscountPercentage),
			Percentage: b.DiscountPercentage,
		})
	}
	return out
}

// IncompleteBundles lists active bundles with at least one but not every member present.
func IncompleteBundles(l Ledger, bundles []BundleDeal) []IncompleteBundle {
	present := l.ProductIDs()
	var out []IncompleteBundle
	for _, b := range bundles {
		if !b.Active || b.Validate() != nil {
			continue
		}
		var have, missing []uuid.UUID
		for id := range b.members() {
			if _, ok := present[id]; ok {
				have = append(have, id)
			} else {
				missing = append(missing, id)
			}
		}
		if len(have) == 0 || len(missing) == 0 {
			continue
		}
		sortIDs(have)
		sortIDs(missing)
		out = append(out, IncompleteBundle{Bundle: b, Present: have, Missing: missing})
	}
	return out
}

func containsAll(set, members map[uuid.UUID]struct{}) bool {
	for id := range members {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
