package pricing

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/noah-isme/toko-pricing/internal/giftcard"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/promo"
)

// DefaultShippingFee is the flat fee charged on a non-empty cart.
var DefaultShippingFee = money.MustParse("4.00")

// Quote is the full input of a price computation. Promo and GiftCard are the
// currently applied selections and may be nil.
type Quote struct {
	Ledger   Ledger
	Bundles  []BundleDeal
	Promo    *promo.Snapshot
	GiftCard *giftcard.Card
	Now      time.Time
}

// Breakdown is the staged result of a price computation.
type Breakdown struct {
	Subtotal                 money.Amount      `json:"subtotal"`
	BundleDiscounts          []AppliedDiscount `json:"bundleDiscounts"`
	BundleDiscount           money.Amount      `json:"bundleDiscount"`
	AfterBundles             money.Amount      `json:"afterBundles"`
	PromoCode                string            `json:"promoCode,omitempty"`
	PromoDiscount            money.Amount      `json:"promoDiscount"`
	PromoRejection           string            `json:"promoRejection,omitempty"`
	AfterPromo               money.Amount      `json:"afterPromo"`
	GiftCardCode             string            `json:"giftCardCode,omitempty"`
	GiftCardAmount           money.Amount      `json:"giftCardAmount"`
	GiftCardRemainingBalance money.Amount      `json:"giftCardRemainingBalance"`
	GiftCardRejection        string            `json:"giftCardRejection,omitempty"`
	Total                    money.Amount      `json:"total"`
	Shipping                 money.Amount      `json:"shipping"`
	FinalTotal               money.Amount      `json:"finalTotal"`
}

// Aggregator composes bundles, promo and gift card into a payable total.
type Aggregator struct {
	ShippingFee money.Amount
}

// NewAggregator returns an aggregator charging fee per non-empty order.
func NewAggregator(fee money.Amount) Aggregator {
	return Aggregator{ShippingFee: fee}
}

// Total computes the breakdown in a fixed order, rounding every stage before the next.
// It has no side effects; calling it twice with the same quote yields the same result.
func (a Aggregator) Total(q Quote) (Breakdown, error) {
	b := Breakdown{
		Subtotal:                 q.Ledger.Subtotal(),
		BundleDiscounts:          FindApplicableBundles(q.Ledger, q.Bundles),
		BundleDiscount:           money.Zero,
		PromoDiscount:            money.Zero,
		GiftCardAmount:           money.Zero,
		GiftCardRemainingBalance: money.Zero,
		Shipping:                 money.Zero,
	}
	if b.BundleDiscounts == nil {
		b.BundleDiscounts = []AppliedDiscount{}
	}

	for _, d := range b.BundleDiscounts {
		b.BundleDiscount = b.BundleDiscount.Add(money.Round2(d.Amount))
	}
	// stacked bundles on shared products may add up past 100%; the list stays as matched
	b.BundleDiscount = money.Min(b.BundleDiscount, b.Subtotal)
	b.AfterBundles = b.Subtotal.Sub(b.BundleDiscount)

	if q.Promo != nil {
		b.PromoCode = q.Promo.Code.Code
		if err := q.Promo.Code.Check(b.AfterBundles, q.Promo.UsedByUser, q.Now); err != nil {
			b.PromoRejection = promo.Reason(err)
		} else {
			b.PromoDiscount = q.Promo.Code.Discount(b.AfterBundles)
		}
	}
	if b.PromoDiscount.GreaterThan(b.AfterBundles) {
		return Breakdown{}, errors.AssertionFailedf("promo discount %s exceeds base %s", b.PromoDiscount, b.AfterBundles)
	}
	b.AfterPromo = money.Round2(b.AfterBundles.Sub(b.PromoDiscount))

	if q.GiftCard != nil {
		b.GiftCardCode = q.GiftCard.Code
		b.GiftCardRemainingBalance = q.GiftCard.CurrentBalance
		if err := q.GiftCard.Check(q.Now); err != nil {
			b.GiftCardRejection = giftcard.Reason(err)
		} else {
			b.GiftCardAmount = money.Round2(q.GiftCard.UsableAmount(b.AfterPromo))
			b.GiftCardRemainingBalance = q.GiftCard.CurrentBalance.Sub(b.GiftCardAmount)
		}
	}
	b.Total = b.AfterPromo.Sub(b.GiftCardAmount)
	if b.Total.IsNegative() {
		return Breakdown{}, errors.AssertionFailedf("negative total %s", b.Total)
	}

	if !q.Ledger.IsEmpty() {
		b.Shipping = money.Round2(a.ShippingFee)
	}
	b.FinalTotal = b.Total.Add(b.Shipping)
	return b, nil
}

// SettlementLine is one entry of the flat list sent to the payment processor.
type SettlementLine struct {
	Name      string       `json:"name"`
	UnitPrice money.Amount `json:"unitPrice"`
	Quantity  int          `json:"quantity"`
}

// SettlementLines flattens the ledger into processor lines plus a shipping line.
// Discounts are already folded into the breakdown; the processor applies none.
func SettlementLines(l Ledger, b Breakdown) []SettlementLine {
	lines := make([]SettlementLine, 0, len(l.lines)+1)
	for _, li := range l.lines {
		name := li.Name
		if name == "" {
			name = li.ProductID.String()
		}
		lines = append(lines, SettlementLine{Name: name, UnitPrice: money.Round2(li.EffectiveUnitPrice()), Quantity: li.Quantity})
	}
	if b.Shipping.IsPositive() {
		lines = append(lines, SettlementLine{Name: "Shipping", UnitPrice: b.Shipping, Quantity: 1})
	}
	return lines
}
