package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/money"
)

func line(id uuid.UUID, price string, qty int) LineItem {
	return LineItem{ProductID: id, UnitPrice: money.MustParse(price), Quantity: qty}
}

func TestEffectiveUnitPriceUsesSaleOnlyWhenLower(t *testing.T) {
	id := uuid.New()
	sale := money.MustParse("7.50")
	li := line(id, "10", 1)
	li.SalePrice = &sale
	require.True(t, li.OnSale())
	require.Equal(t, "7.50", money.Format(li.EffectiveUnitPrice()))

	higher := money.MustParse("12")
	li.SalePrice = &higher
	require.False(t, li.OnSale())
	require.Equal(t, "10.00", money.Format(li.EffectiveUnitPrice()))
}

func TestLedgerAddMergesSameVariant(t *testing.T) {
	a := uuid.New()
	var l Ledger
	require.NoError(t, l.Add(line(a, "10", 1)))
	require.NoError(t, l.Add(line(a, "10", 2)))
	red := line(a, "10", 1)
	red.VariantKey = "red"
	require.NoError(t, l.Add(red))

	lines := l.Lines()
	require.Len(t, lines, 2)
	require.Equal(t, 3, lines[0].Quantity)
	require.Len(t, l.ProductIDs(), 1)
}

func TestLedgerRejectsInvalidLines(t *testing.T) {
	var l Ledger
	err := l.Add(line(uuid.New(), "10", 0))
	require.ErrorIs(t, err, common.ErrValidation)
	err = l.Add(LineItem{UnitPrice: money.MustParse("1"), Quantity: 1})
	require.ErrorIs(t, err, common.ErrValidation)
	require.True(t, l.IsEmpty())
}

func TestLedgerSetQuantityAndRemove(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	l, err := NewLedger(line(a, "10", 2), line(b, "20", 1))
	require.NoError(t, err)

	require.True(t, l.SetQuantity(a, "", 5))
	require.Equal(t, "70.00", money.Format(l.Subtotal()))

	require.True(t, l.Remove(b, ""))
	require.False(t, l.Remove(b, ""))
	require.Equal(t, "50.00", money.Format(l.Subtotal()))

	require.True(t, l.SetQuantity(a, "", 0))
	require.True(t, l.IsEmpty())
}

func TestLedgerSubtotalRounds(t *testing.T) {
	l, err := NewLedger(line(uuid.New(), "0.335", 3))
	require.NoError(t, err)
	// 1.005 rounds half away from zero.
	require.Equal(t, "1.01", money.Format(l.Subtotal()))
}
