package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/toko-pricing/internal/giftcard"
	"github.com/noah-isme/toko-pricing/internal/money"
)

const giftCardColumns = `code, initial_amount, current_balance, expires_at, active`

func scanGiftCard(row pgx.Row) (giftcard.Card, error) {
	var (
		c                giftcard.Card
		initial, balance pgtype.Numeric
		expires          pgtype.Timestamptz
	)
	if err := row.Scan(&c.Code, &initial, &balance, &expires, &c.Active); err != nil {
		return giftcard.Card{}, err
	}
	var err error
	if c.InitialAmount, err = fromNumeric(initial); err != nil {
		return giftcard.Card{}, err
	}
	if c.CurrentBalance, err = fromNumeric(balance); err != nil {
		return giftcard.Card{}, err
	}
	if expires.Valid {
		c.ExpiresAt = expires.Time
	}
	return c, nil
}

// GetGiftCardByCode loads a gift card by exact code.
func (q *Queries) GetGiftCardByCode(ctx context.Context, code string) (giftcard.Card, error) {
	return scanGiftCard(q.db.QueryRow(ctx, `SELECT `+giftCardColumns+` FROM gift_cards WHERE code = $1`, code))
}

// GetGiftCardByCodeForUpdate loads and row-locks a gift card for settlement.
func (q *Queries) GetGiftCardByCodeForUpdate(ctx context.Context, code string) (giftcard.Card, error) {
	return scanGiftCard(q.db.QueryRow(ctx, `SELECT `+giftCardColumns+` FROM gift_cards WHERE code = $1 FOR UPDATE`, code))
}

// DebitGiftCard subtracts amount from the balance. No row is returned when the balance
// would go negative.
func (q *Queries) DebitGiftCard(ctx context.Context, code string, amount money.Amount) (giftcard.Card, error) {
	return scanGiftCard(q.db.QueryRow(ctx,
		`UPDATE gift_cards SET current_balance = current_balance - $2
		 WHERE code = $1 AND current_balance >= $2
		 RETURNING `+giftCardColumns,
		code, toNumeric(amount),
	))
}
