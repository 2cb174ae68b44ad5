package checkout

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/giftcard"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/promo"
	"github.com/noah-isme/toko-pricing/internal/reconcile"
)

// Settlement is the payload handed to the payment processor. Lines sum to the
// pre-discount subtotal plus shipping; the processor receives the discount as one figure.
type Settlement struct {
	Currency      string                   `json:"currency"`
	Lines         []pricing.SettlementLine `json:"lines"`
	DiscountTotal money.Amount             `json:"discountTotal"`
	AmountDue     money.Amount             `json:"amountDue"`
}

// SettlementRequest flattens a priced cart for the payment processor.
func (s *Service) SettlementRequest(b pricing.Breakdown, l pricing.Ledger) Settlement {
	discount := b.BundleDiscount.Add(b.PromoDiscount).Add(b.GiftCardAmount)
	return Settlement{
		Currency:      s.Currency,
		Lines:         pricing.SettlementLines(l, b),
		DiscountTotal: money.Round2(discount),
		AmountDue:     b.FinalTotal,
	}
}

// Settle prices the request and returns the processor payload together with the quote.
func (s *Service) Settle(ctx context.Context, req QuoteRequest) (Quote, Settlement, error) {
	q, err := s.Quote(ctx, req)
	if err != nil {
		return Quote{}, Settlement{}, err
	}
	ledger, err := pricing.NewLedger(q.Lines...)
	if err != nil {
		return Quote{}, Settlement{}, err
	}
	return q, s.SettlementRequest(q.Breakdown, ledger), nil
}

// CommitRequest finalises a paid cart. ExpectedTotal, when set, must match the recomputed
// final total so a price change between payment and commit is detected.
type CommitRequest struct {
	QuoteRequest
	OrderID       uuid.UUID     `json:"orderId"`
	ExpectedTotal *money.Amount `json:"expectedTotal,omitempty"`
}

// CommitResult is what a successful commit recorded.
type CommitResult struct {
	OrderID    uuid.UUID            `json:"orderId"`
	Breakdown  pricing.Breakdown    `json:"breakdown"`
	Redemption *promo.Redemption    `json:"redemption,omitempty"`
	GiftCard   *giftcard.Card       `json:"giftCard,omitempty"`
	Rows       []reconcile.OrderRow `json:"rows"`
}

// Commit re-prices the cart under row locks, redeems the promo, debits the gift card and
// writes the order rows, all in one transaction. Unlike Quote, any promo or gift card
// problem fails the commit.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (CommitResult, error) {
	if s == nil || s.InTx == nil {
		return CommitResult{}, errors.New("checkout service not configured")
	}
	if req.UserID == uuid.Nil {
		return CommitResult{}, ErrUserRequired
	}
	if req.OrderID == uuid.Nil {
		req.OrderID = uuid.New()
	}
	now := s.now()

	var res CommitResult
	err := s.InTx(ctx, func(q CommitQuerier) error {
		ledger, err := buildLedger(ctx, q, req.Items)
		if err != nil {
			return err
		}
		bundles, err := q.ListActiveBundles(ctx)
		if err != nil {
			return errors.Wrap(err, "list active bundles")
		}
		in := pricing.Quote{Ledger: ledger, Bundles: bundles, Now: now}
		if req.PromoCode != "" {
			snap, err := promo.LockSnapshot(ctx, q, req.PromoCode, req.UserID)
			if err != nil {
				return err
			}
			in.Promo = &snap
		}
		if req.GiftCardCode != "" {
			card, err := giftcard.Lock(ctx, q, req.GiftCardCode, now)
			if err != nil {
				return err
			}
			in.GiftCard = &card
		}

		b, err := s.total(in)
		if err != nil {
			return err
		}
		if in.Promo != nil {
			if err := in.Promo.Code.Check(b.AfterBundles, in.Promo.UsedByUser, now); err != nil {
				return err
			}
		}
		if req.ExpectedTotal != nil && !money.Round2(*req.ExpectedTotal).Equal(b.FinalTotal) {
			return errors.WithDetailf(ErrTotalChanged, "expected %s, got %s", money.Format(*req.ExpectedTotal), money.Format(b.FinalTotal))
		}

		res = CommitResult{OrderID: req.OrderID, Breakdown: b}
		if in.Promo != nil {
			r, err := promo.Redeem(ctx, q, req.PromoCode, b.AfterBundles, req.UserID, req.OrderID, now)
			if err != nil {
				return err
			}
			res.Redemption = &r
		}
		if in.GiftCard != nil && b.GiftCardAmount.IsPositive() {
			card, err := giftcard.Debit(ctx, q, req.GiftCardCode, b.GiftCardAmount, now)
			if err != nil {
				return err
			}
			res.GiftCard = &card
		}

		res.Rows = orderRows(req.UserID, ledger, now)
		if err := q.InsertOrderRows(ctx, res.Rows); err != nil {
			return errors.Wrap(err, "insert order rows")
		}
		return nil
	})
	if err != nil {
		return CommitResult{}, err
	}
	s.Logger.Info().
		Str("order_id", res.OrderID.String()).
		Str("final_total", money.Format(res.Breakdown.FinalTotal)).
		Int("rows", len(res.Rows)).
		Msg("checkout committed")
	return res, nil
}

func orderRows(userID uuid.UUID, l pricing.Ledger, now time.Time) []reconcile.OrderRow {
	lines := l.Lines()
	rows := make([]reconcile.OrderRow, 0, len(lines))
	for _, li := range lines {
		qty := li.Quantity
		rows = append(rows, reconcile.OrderRow{
			ID:        uuid.New(),
			UserID:    userID,
			ItemID:    li.ProductID,
			ItemName:  li.Name,
			Price:     money.Round2(li.LineTotal()),
			Quantity:  &qty,
			Status:    reconcile.RowCompleted,
			CreatedAt: now,
		})
	}
	return rows
}
