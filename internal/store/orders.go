package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/reconcile"
)

// ListOrderRows returns order rows matching filter ordered by creation time.
func (q *Queries) ListOrderRows(ctx context.Context, filter reconcile.Filter) ([]reconcile.OrderRow, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, "created_at >= $"+strconv.Itoa(len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, "created_at < $"+strconv.Itoa(len(args)))
	}
	sql := `SELECT id, user_id, item_id, item_name, price, quantity, status, created_at FROM orders`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY created_at, id"

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reconcile.OrderRow
	for rows.Next() {
		var (
			id, user, item pgtype.UUID
			r              reconcile.OrderRow
			price          pgtype.Numeric
			qty            pgtype.Int4
			status         string
			created        pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &user, &item, &r.ItemName, &price, &qty, &status, &created); err != nil {
			return nil, err
		}
		if r.Price, err = fromNumeric(price); err != nil {
			return nil, err
		}
		r.ID, r.UserID, r.ItemID = fromUUID(id), fromUUID(user), fromUUID(item)
		r.Status = reconcile.RowStatus(status)
		r.CreatedAt = created.Time
		if qty.Valid {
			v := int(qty.Int32)
			r.Quantity = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CurrentUnitPrices returns today's list price for each known item.
func (q *Queries) CurrentUnitPrices(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]money.Amount, error) {
	out := make(map[uuid.UUID]money.Amount, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	rows, err := q.db.Query(ctx, `SELECT id, unit_price FROM products WHERE id = ANY($1::uuid[])`, uuidStrings(itemIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id    pgtype.UUID
			price pgtype.Numeric
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, err
		}
		amount, err := fromNumeric(price)
		if err != nil {
			return nil, err
		}
		out[fromUUID(id)] = amount
	}
	return out, rows.Err()
}

// DisplayNames maps user ids to display names. Users without a name are omitted.
func (q *Queries) DisplayNames(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT id, display_name FROM users WHERE id = ANY($1::uuid[]) AND display_name <> ''`,
		uuidStrings(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   pgtype.UUID
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[fromUUID(id)] = name
	}
	return out, rows.Err()
}

// InsertOrderRows persists one row per committed line, quantity included.
func (q *Queries) InsertOrderRows(ctx context.Context, rows []reconcile.OrderRow) error {
	for _, r := range rows {
		var qty pgtype.Int4
		if r.Quantity != nil {
			qty = pgtype.Int4{Int32: int32(*r.Quantity), Valid: true}
		}
		if _, err := q.db.Exec(ctx,
			`INSERT INTO orders (id, user_id, item_id, item_name, price, quantity, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			toUUID(r.ID), toUUID(r.UserID), toUUID(r.ItemID), r.ItemName, toNumeric(r.Price), qty,
			string(r.Status), toTimestamptz(&r.CreatedAt),
		); err != nil {
			return err
		}
	}
	return nil
}
