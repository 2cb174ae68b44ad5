package giftcard

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/money"
)

type stubQueries struct {
	cards map[string]Card
}

func (s *stubQueries) GetGiftCardByCode(ctx context.Context, code string) (Card, error) {
	card, ok := s.cards[code]
	if !ok {
		return Card{}, pgx.ErrNoRows
	}
	return card, nil
}

func (s *stubQueries) GetGiftCardByCodeForUpdate(ctx context.Context, code string) (Card, error) {
	return s.GetGiftCardByCode(ctx, code)
}

func (s *stubQueries) DebitGiftCard(ctx context.Context, code string, amount money.Amount) (Card, error) {
	card := s.cards[code]
	card.CurrentBalance = card.CurrentBalance.Sub(amount)
	s.cards[code] = card
	return card, nil
}

func newCard(balance string) Card {
	return Card{
		Code:           "GIFT100",
		InitialAmount:  money.MustParse("100"),
		CurrentBalance: money.MustParse(balance),
		ExpiresAt:      time.Now().Add(24 * time.Hour),
		Active:         true,
	}
}

func TestUsableAmount(t *testing.T) {
	card := newCard("100")
	require.Equal(t, "31.00", money.Format(card.UsableAmount(money.MustParse("31"))))
	require.Equal(t, "69.00", money.Format(card.RemainingBalanceAfterUse(money.MustParse("31"))))
	require.Equal(t, "100.00", money.Format(card.UsableAmount(money.MustParse("250"))))
	require.Equal(t, "0.00", money.Format(card.UsableAmount(money.MustParse("250").Neg())))
	require.Equal(t, "100.00", money.Format(card.RemainingBalanceAfterUse(money.MustParse("250").Neg())))
}

func TestCheck(t *testing.T) {
	now := time.Now()
	card := newCard("10")
	require.NoError(t, card.Check(now))

	inactive := card
	inactive.Active = false
	require.ErrorIs(t, inactive.Check(now), ErrInactive)

	expired := card
	expired.ExpiresAt = now.Add(-time.Minute)
	require.ErrorIs(t, expired.Check(now), ErrExpired)

	empty := newCard("0")
	require.ErrorIs(t, empty.Check(now), ErrZeroBalance)
	require.True(t, errors.Is(empty.Check(now), common.ErrState))
}

func TestApplyIsSideEffectFree(t *testing.T) {
	q := &stubQueries{cards: map[string]Card{"GIFT100": newCard("100")}}
	svc := &Service{Q: q}

	for i := 0; i < 3; i++ {
		card, err := svc.Apply(context.Background(), " gift100 ")
		require.NoError(t, err)
		require.Equal(t, "100.00", money.Format(card.CurrentBalance))
	}
	_, err := svc.Apply(context.Background(), "NOPE")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Apply(context.Background(), "")
	require.ErrorIs(t, err, ErrMalformedCode)
}

func TestDebit(t *testing.T) {
	q := &stubQueries{cards: map[string]Card{"GIFT100": newCard("40")}}
	card, err := Debit(context.Background(), q, "GIFT100", money.MustParse("31"), time.Now())
	require.NoError(t, err)
	require.Equal(t, "9.00", money.Format(card.CurrentBalance))

	_, err = Debit(context.Background(), q, "GIFT100", money.MustParse("10"), time.Now())
	require.ErrorIs(t, err, ErrInsufficientBalance)

	card, err = Debit(context.Background(), q, "GIFT100", money.Zero, time.Now())
	require.NoError(t, err)
	require.Empty(t, card.Code)
}

func TestValidateBalance(t *testing.T) {
	require.NoError(t, newCard("100").ValidateBalance())
	require.Error(t, newCard("100.01").ValidateBalance())
	negative := newCard("0")
	negative.CurrentBalance = money.MustParse("1").Neg()
	require.Error(t, negative.ValidateBalance())
}
