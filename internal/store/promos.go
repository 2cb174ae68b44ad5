package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/toko-pricing/internal/promo"
)

const promoColumns = `id, code, discount_type, discount_value, minimum_purchase, max_uses, current_uses,
	single_use_per_user, start_date, expiration_date, active`

func scanPromo(row pgx.Row) (promo.Code, error) {
	var (
		id             pgtype.UUID
		c              promo.Code
		kind           string
		value, minimum pgtype.Numeric
		maxUses        pgtype.Int4
		start, end     pgtype.Timestamptz
	)
	if err := row.Scan(&id, &c.Code, &kind, &value, &minimum, &maxUses, &c.CurrentUses, &c.SingleUsePerUser, &start, &end, &c.Active); err != nil {
		return promo.Code{}, err
	}
	var err error
	if c.DiscountValue, err = fromNumeric(value); err != nil {
		return promo.Code{}, err
	}
	if c.MinimumPurchase, err = fromNumeric(minimum); err != nil {
		return promo.Code{}, err
	}
	c.ID = fromUUID(id)
	c.DiscountType = promo.DiscountType(kind)
	if maxUses.Valid {
		v := maxUses.Int32
		c.MaxUses = &v
	}
	c.StartDate = fromTimestamptz(start)
	c.ExpirationDate = fromTimestamptz(end)
	return c, nil
}

// GetPromoByCode loads a promo code, matching case-insensitively.
func (q *Queries) GetPromoByCode(ctx context.Context, code string) (promo.Code, error) {
	return scanPromo(q.db.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE upper(code) = upper($1)`, code))
}

// GetPromoByCodeForUpdate loads and row-locks a promo code for redemption.
func (q *Queries) GetPromoByCodeForUpdate(ctx context.Context, code string) (promo.Code, error) {
	return scanPromo(q.db.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE upper(code) = upper($1) FOR UPDATE`, code))
}

// HasPromoRedemption reports whether userID has already redeemed promoID.
func (q *Queries) HasPromoRedemption(ctx context.Context, promoID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM promo_redemptions WHERE promo_id = $1 AND user_id = $2)`,
		toUUID(promoID), toUUID(userID),
	).Scan(&exists)
	return exists, err
}

// InsertPromoRedemption records a committed promo use.
func (q *Queries) InsertPromoRedemption(ctx context.Context, r promo.Redemption) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO promo_redemptions (promo_id, user_id, order_id, amount) VALUES ($1, $2, $3, $4)`,
		toUUID(r.PromoID), toUUID(r.UserID), toUUID(r.OrderID), toNumeric(r.Amount),
	)
	return err
}

// IncrementPromoUses bumps current_uses unless the cap has been reached. It reports
// whether a row was updated.
func (q *Queries) IncrementPromoUses(ctx context.Context, promoID uuid.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE promo_codes SET current_uses = current_uses + 1
		 WHERE id = $1 AND (max_uses IS NULL OR current_uses < max_uses)`,
		toUUID(promoID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetPromoActive toggles the active flag and returns the updated code.
func (q *Queries) SetPromoActive(ctx context.Context, code string, active bool) (promo.Code, error) {
	return scanPromo(q.db.QueryRow(ctx,
		`UPDATE promo_codes SET active = $2 WHERE upper(code) = upper($1) RETURNING `+promoColumns,
		code, active,
	))
}
