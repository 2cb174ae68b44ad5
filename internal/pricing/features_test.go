package pricing_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/giftcard"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/promo"
)

type pricingFeature struct {
	products map[string]uuid.UUID
	ledger   pricing.Ledger
	bundles  []pricing.BundleDeal
	promo    *promo.Snapshot
	card     *giftcard.Card
	result   pricing.Breakdown
}

func (f *pricingFeature) reset() {
	*f = pricingFeature{products: map[string]uuid.UUID{}}
}

func (f *pricingFeature) product(name string) uuid.UUID {
	id, ok := f.products[name]
	if !ok {
		id = uuid.New()
		f.products[name] = id
	}
	return id
}

func (f *pricingFeature) aProductPricedWithQuantity(name, price string, qty int) error {
	amount, err := money.Parse(price)
	if err != nil {
		return err
	}
	return f.ledger.Add(pricing.LineItem{ProductID: f.product(name), Name: name, UnitPrice: amount, Quantity: qty})
}

func (f *pricingFeature) aBundleAtPercent(members string, pct int) error {
	var ids []uuid.UUID
	for _, name := range strings.Split(members, ",") {
		ids = append(ids, f.product(strings.TrimSpace(name)))
	}
	f.bundles = append(f.bundles, pricing.BundleDeal{
		ID:                 uuid.New(),
		Name:               members,
		ProductIDs:         ids,
		DiscountPercentage: decimal.NewFromInt(int64(pct)),
		Active:             true,
	})
	return nil
}

func (f *pricingFeature) aFixedPromoWorth(code, value string) error {
	amount, err := money.Parse(value)
	if err != nil {
		return err
	}
	f.promo = &promo.Snapshot{Code: promo.Code{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  promo.DiscountFixed,
		DiscountValue: amount,
		Active:        true,
	}}
	return nil
}

func (f *pricingFeature) aFixedPromoWorthValidBetween(code, value, from, to string) error {
	if err := f.aFixedPromoWorth(code, value); err != nil {
		return err
	}
	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return err
	}
	end, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return err
	}
	f.promo.Code.StartDate = &start
	f.promo.Code.ExpirationDate = &end
	return nil
}

func (f *pricingFeature) aGiftCardWithBalance(code, balance string) error {
	amount, err := money.Parse(balance)
	if err != nil {
		return err
	}
	f.card = &giftcard.Card{Code: code, InitialAmount: amount, CurrentBalance: amount, Active: true}
	return nil
}

func (f *pricingFeature) priceAt(now time.Time) error {
	b, err := pricing.NewAggregator(pricing.DefaultShippingFee).Total(pricing.Quote{
		Ledger:   f.ledger,
		Bundles:  f.bundles,
		Promo:    f.promo,
		GiftCard: f.card,
		Now:      now,
	})
	if err != nil {
		return err
	}
	f.result = b
	return nil
}

func (f *pricingFeature) theOrderIsPriced() error {
	return f.priceAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
}

func (f *pricingFeature) theOrderIsPricedAt(at string) error {
	now, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return err
	}
	return f.priceAt(now)
}

func (f *pricingFeature) theFieldIs(field, want string) error {
	values := map[string]money.Amount{
		"subtotal":                 f.result.Subtotal,
		"bundleDiscount":           f.result.BundleDiscount,
		"afterBundles":             f.result.AfterBundles,
		"promoDiscount":            f.result.PromoDiscount,
		"afterPromo":               f.result.AfterPromo,
		"giftCardAmount":           f.result.GiftCardAmount,
		"giftCardRemainingBalance": f.result.GiftCardRemainingBalance,
		"total":                    f.result.Total,
		"shipping":                 f.result.Shipping,
		"finalTotal":               f.result.FinalTotal,
	}
	got, ok := values[field]
	if !ok {
		return fmt.Errorf("unknown breakdown field %q", field)
	}
	if money.Format(got) != want {
		return fmt.Errorf("expected %s to be %s, got %s", field, want, money.Format(got))
	}
	return nil
}

func (f *pricingFeature) thePromoIsRejectedAs(reason string) error {
	if f.result.PromoRejection != reason {
		return fmt.Errorf("expected promo rejection %q, got %q", reason, f.result.PromoRejection)
	}
	return nil
}

func initializePricingScenario(ctx *godog.ScenarioContext) {
	f := &pricingFeature{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		f.reset()
		return ctx, nil
	})

	ctx.Step(`^a product "([^"]*)" priced ([\d.]+) with quantity (\d+)$`, f.aProductPricedWithQuantity)
	ctx.Step(`^a bundle of "([^"]*)" at (\d+) percent$`, f.aBundleAtPercent)
	ctx.Step(`^a fixed promo "([^"]*)" worth ([\d.]+)$`, f.aFixedPromoWorth)
	ctx.Step(`^a fixed promo "([^"]*)" worth ([\d.]+) valid from "([^"]*)" to "([^"]*)"$`, f.aFixedPromoWorthValidBetween)
	ctx.Step(`^a gift card "([^"]*)" with balance ([\d.]+)$`, f.aGiftCardWithBalance)

	ctx.Step(`^the order is priced$`, f.theOrderIsPriced)
	ctx.Step(`^the order is priced at "([^"]*)"$`, f.theOrderIsPricedAt)

	ctx.Step(`^the "([^"]*)" is ([\d.]+)$`, f.theFieldIs)
	ctx.Step(`^the promo is rejected as "([^"]*)"$`, f.thePromoIsRejectedAs)
}

func TestPricingFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializePricingScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/pricing.feature"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
