package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/toko-pricing/internal/checkout"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// ListActiveBundles returns active bundle deals with their member products.
func (q *Queries) ListActiveBundles(ctx context.Context) ([]pricing.BundleDeal, error) {
	rows, err := q.db.Query(ctx,
		`SELECT b.id, b.name, b.discount_percentage, b.active, array_agg(bp.product_id::text ORDER BY bp.product_id)
		 FROM bundle_deals b
		 JOIN bundle_products bp ON bp.bundle_id = b.id
		 WHERE b.active
		 GROUP BY b.id, b.name, b.discount_percentage, b.active
		 ORDER BY b.name, b.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.BundleDeal
	for rows.Next() {
		var (
			id      pgtype.UUID
			b       pricing.BundleDeal
			pct     pgtype.Numeric
			members []string
		)
		if err := rows.Scan(&id, &b.Name, &pct, &b.Active, &members); err != nil {
			return nil, err
		}
		if b.DiscountPercentage, err = fromNumeric(pct); err != nil {
			return nil, err
		}
		b.ID = fromUUID(id)
		for _, m := range members {
			pid, err := uuid.Parse(m)
			if err != nil {
				return nil, err
			}
			b.ProductIDs = append(b.ProductIDs, pid)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListProductsByIDs returns the active products among ids.
func (q *Queries) ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]checkout.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT id, name, unit_price, sale_price FROM products WHERE active AND id = ANY($1::uuid[])`,
		uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []checkout.Product
	for rows.Next() {
		var (
			id         pgtype.UUID
			p          checkout.Product
			unit, sale pgtype.Numeric
		)
		if err := rows.Scan(&id, &p.Name, &unit, &sale); err != nil {
			return nil, err
		}
		p.ID = fromUUID(id)
		if p.UnitPrice, err = fromNumeric(unit); err != nil {
			return nil, err
		}
		if p.SalePrice, err = fromNullableNumeric(sale); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
