package giftcard

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/obs"
)

// Querier captures the store lookups used during preview.
type Querier interface {
	GetGiftCardByCode(ctx context.Context, code string) (Card, error)
}

// DebitQuerier is the transactional subset used at settlement.
type DebitQuerier interface {
	GetGiftCardByCodeForUpdate(ctx context.Context, code string) (Card, error)
	DebitGiftCard(ctx context.Context, code string, amount money.Amount) (Card, error)
}

// Service resolves gift cards for checkout previews.
type Service struct {
	Q   Querier
	Now func() time.Time
}

// Apply looks the card up and verifies it can be used. It never changes the balance.
func (s *Service) Apply(ctx context.Context, code string) (Card, error) {
	card, err := s.apply(ctx, code)
	if obs.GiftCardApplicationsTotal != nil {
		obs.GiftCardApplicationsTotal.WithLabelValues(Reason(err)).Inc()
	}
	return card, err
}

func (s *Service) apply(ctx context.Context, code string) (Card, error) {
	if s == nil || s.Q == nil {
		return Card{}, errors.New("gift card service not configured")
	}
	normalized, err := NormalizeCode(code)
	if err != nil {
		return Card{}, err
	}
	card, err := s.Q.GetGiftCardByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, ErrNotFound
		}
		return Card{}, errors.Wrap(err, "load gift card")
	}
	if err := card.Check(s.now()); err != nil {
		return Card{}, err
	}
	return card, nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Debit decrements the card balance at settlement inside the caller's transaction.
func Debit(ctx context.Context, q DebitQuerier, code string, amount money.Amount, now time.Time) (Card, error) {
	if !amount.IsPositive() {
		return Card{}, nil
	}
	card, err := Lock(ctx, q, code, now)
	if err != nil {
		return Card{}, err
	}
	if card.CurrentBalance.LessThan(amount) {
		return Card{}, ErrInsufficientBalance
	}
	updated, err := q.DebitGiftCard(ctx, card.Code, amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, ErrInsufficientBalance
		}
		return Card{}, errors.Wrap(err, "debit gift card")
	}
	return updated, nil
}

// Lock loads the card under a row lock and verifies it is usable at now.
func Lock(ctx context.Context, q DebitQuerier, code string, now time.Time) (Card, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return Card{}, err
	}
	card, err := q.GetGiftCardByCodeForUpdate(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, ErrNotFound
		}
		return Card{}, errors.Wrap(err, "lock gift card")
	}
	if err := card.Check(now); err != nil {
		return Card{}, err
	}
	return card, nil
}

// Reason returns a stable machine readable reason for a gift card error.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedCode):
		return "malformed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInactive):
		return "inactive"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrZeroBalance):
		return "zero_balance"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return "error"
	}
}
