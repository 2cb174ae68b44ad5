package store

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

func toUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}

func fromUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return uuid.UUID(id.Bytes)
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func toNumeric(d money.Amount) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) (money.Amount, error) {
	if !n.Valid {
		return money.Zero, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return money.Zero, errors.New("store: non-finite numeric")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

func fromNullableNumeric(n pgtype.Numeric) (*money.Amount, error) {
	if !n.Valid {
		return nil, nil
	}
	d, err := fromNumeric(n)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil || t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromTimestamptz(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
