package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/money"
)

func bundle(pct int64, ids ...uuid.UUID) BundleDeal {
	return BundleDeal{ID: uuid.New(), Name: "deal", ProductIDs: ids, DiscountPercentage: decimal.NewFromInt(pct), Active: true}
}

func TestBundleRequiresEveryMember(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	deal := bundle(10, a, b)

	onlyA, err := NewLedger(line(a, "10", 2))
	require.NoError(t, err)
	require.Empty(t, FindApplicableBundles(onlyA, []BundleDeal{deal}))

	both, err := NewLedger(line(a, "10", 2), line(b, "20", 1))
	require.NoError(t, err)
	applied := FindApplicableBundles(both, []BundleDeal{deal})
	require.Len(t, applied, 1)
	require.True(t, applied[0].Amount.IsPositive())
	require.Equal(t, "4.00", money.Format(applied[0].Amount))
}

func TestBundleIgnoresVariantsAndInactiveDeals(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	red := line(a, "10", 1)
	red.VariantKey = "red"
	l, err := NewLedger(red, line(b, "10", 1))
	require.NoError(t, err)

	inactive := bundle(50, a, b)
	inactive.Active = false
	applied := FindApplicableBundles(l, []BundleDeal{bundle(10, a, b), inactive})
	require.Len(t, applied, 1)
	require.Equal(t, "2.00", money.Format(applied[0].Amount))
}

func TestOverlappingBundlesStack(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	l, err := NewLedger(line(a, "10", 1), line(b, "10", 1), line(c, "10", 1))
	require.NoError(t, err)

	applied := FindApplicableBundles(l, []BundleDeal{bundle(10, a, b), bundle(10, b, c)})
	require.Len(t, applied, 2)
	require.Equal(t, "2.00", money.Format(applied[0].Amount))
	require.Equal(t, "2.00", money.Format(applied[1].Amount))
}

func TestBundleDiscountMonotonicInPercentage(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	l, err := NewLedger(line(a, "3.33", 3), line(b, "0.07", 1))
	require.NoError(t, err)

	prev := money.Zero
	for pct := int64(1); pct <= 100; pct++ {
		applied := FindApplicableBundles(l, []BundleDeal{bundle(pct, a, b)})
		require.Len(t, applied, 1)
		require.True(t, applied[0].Amount.GreaterThanOrEqual(prev), "pct %d", pct)
		prev = applied[0].Amount
	}
}

func TestIncompleteBundles(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	l, err := NewLedger(line(a, "10", 1))
	require.NoError(t, err)

	partial := bundle(10, a, b)
	untouched := bundle(10, b, c)
	got := IncompleteBundles(l, []BundleDeal{partial, untouched})
	require.Len(t, got, 1)
	require.Equal(t, partial.ID, got[0].Bundle.ID)
	require.Equal(t, []uuid.UUID{a}, got[0].Present)
	require.Equal(t, []uuid.UUID{b}, got[0].Missing)
}

func TestBundleValidate(t *testing.T) {
	a := uuid.New()
	require.Error(t, bundle(10, a, a).Validate())
	require.Error(t, bundle(0, a, uuid.New()).Validate())
	require.Error(t, bundle(101, a, uuid.New()).Validate())
	require.NoError(t, bundle(100, a, uuid.New()).Validate())
}
