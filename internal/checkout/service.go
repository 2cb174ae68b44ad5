package checkout

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/cache"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/giftcard"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/promo"
	"github.com/noah-isme/toko-pricing/internal/reconcile"
)

var (
	// ErrEmptyCart is returned when a request has no items.
	ErrEmptyCart = common.Validation("cart is empty")
	// ErrProductNotFound is returned when an item references an unknown or inactive product.
	ErrProductNotFound = common.NewNotFoundError("product not found")
	// ErrTotalChanged is returned by Commit when the recomputed total differs from the quoted one.
	ErrTotalChanged = common.NewStateError("order total changed since quote")
	// ErrUserRequired is returned by Commit when no caller identity was supplied.
	ErrUserRequired = common.Validation("user id is required")
)

// Product is the catalogue data needed to price a line.
type Product struct {
	ID        uuid.UUID
	Name      string
	UnitPrice money.Amount
	SalePrice *money.Amount
}

// Item is a requested cart line.
type Item struct {
	ProductID  uuid.UUID `json:"productId" validate:"required"`
	Quantity   int       `json:"quantity" validate:"min=1,max=999"`
	VariantKey string    `json:"variantKey,omitempty" validate:"max=64"`
}

// QuoteRequest is a cart plus its current promo and gift card selection.
type QuoteRequest struct {
	UserID uuid.UUID `json:"userId"`
	Items  []Item    `json:"items" validate:"required,min=1,max=200,dive"`
	Selection
}

// Quote is a priced cart.
type Quote struct {
	Lines     []pricing.LineItem         `json:"lines"`
	Breakdown pricing.Breakdown          `json:"breakdown"`
	Upsell    []pricing.IncompleteBundle `json:"upsell"`
}

// CatalogQuerier loads the pricing inputs.
type CatalogQuerier interface {
	ListActiveBundles(ctx context.Context) ([]pricing.BundleDeal, error)
	ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
}

// CommitQuerier is the transactional store surface used by Commit.
type CommitQuerier interface {
	CatalogQuerier
	promo.RedeemQuerier
	giftcard.DebitQuerier
	InsertOrderRows(ctx context.Context, rows []reconcile.OrderRow) error
}

// TxRunner runs fn inside a database transaction.
type TxRunner func(ctx context.Context, fn func(CommitQuerier) error) error

// Service prices carts and settles them.
type Service struct {
	Q          CatalogQuerier
	Promos     *promo.Service
	Cards      *giftcard.Service
	Aggregator pricing.Aggregator
	Bundles    *cache.JSON
	InTx       TxRunner
	Currency   string
	Now        func() time.Time
	Logger     zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Quote prices the cart with the current selection. Promo and gift card problems are
// reported on the breakdown rather than failing the quote.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if s == nil || s.Q == nil {
		return Quote{}, errors.New("checkout service not configured")
	}
	ledger, err := buildLedger(ctx, s.Q, req.Items)
	if err != nil {
		return Quote{}, err
	}
	bundles, err := s.activeBundles(ctx)
	if err != nil {
		return Quote{}, err
	}
	now := s.now()
	in := pricing.Quote{Ledger: ledger, Bundles: bundles, Now: now}

	var promoRejection, cardRejection string
	if req.PromoCode != "" && s.Promos != nil {
		snap, err := s.Promos.Lookup(ctx, req.PromoCode, req.UserID)
		switch {
		case err == nil:
			in.Promo = &snap
		case isUserFacing(err):
			promoRejection = promo.Reason(err)
		default:
			return Quote{}, err
		}
	}
	if req.GiftCardCode != "" && s.Cards != nil {
		card, err := s.Cards.Apply(ctx, req.GiftCardCode)
		switch {
		case err == nil:
			in.GiftCard = &card
		case isUserFacing(err):
			cardRejection = giftcard.Reason(err)
		default:
			return Quote{}, err
		}
	}

	b, err := s.total(in)
	if err != nil {
		return Quote{}, err
	}
	if promoRejection != "" {
		b.PromoCode, b.PromoRejection = req.PromoCode, promoRejection
	}
	if cardRejection != "" {
		b.GiftCardCode, b.GiftCardRejection = req.GiftCardCode, cardRejection
	}
	return Quote{Lines: ledger.Lines(), Breakdown: b, Upsell: upsell(ledger, bundles)}, nil
}

func (s *Service) total(in pricing.Quote) (pricing.Breakdown, error) {
	b, err := s.Aggregator.Total(in)
	result := "ok"
	switch {
	case errors.IsAssertionFailure(err):
		result = "invariant"
		s.Logger.Error().Err(err).Msg("pricing invariant violated")
	case err != nil:
		result = "error"
	}
	if obs.PricingQuotesTotal != nil {
		obs.PricingQuotesTotal.WithLabelValues(result).Inc()
	}
	return b, err
}

func (s *Service) activeBundles(ctx context.Context) ([]pricing.BundleDeal, error) {
	key := cache.KeyActiveBundles()
	var bundles []pricing.BundleDeal
	hit, err := s.Bundles.Get(ctx, key, &bundles)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("read bundle cache")
	}
	if hit {
		return bundles, nil
	}
	bundles, err = s.Q.ListActiveBundles(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active bundles")
	}
	if err := s.Bundles.Set(ctx, key, bundles); err != nil {
		s.Logger.Warn().Err(err).Msg("write bundle cache")
	}
	return bundles, nil
}

func buildLedger(ctx context.Context, q CatalogQuerier, items []Item) (pricing.Ledger, error) {
	if len(items) == 0 {
		return pricing.Ledger{}, ErrEmptyCart
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := q.ListProductsByIDs(ctx, ids)
	if err != nil {
		return pricing.Ledger{}, errors.Wrap(err, "load products")
	}
	byID := make(map[uuid.UUID]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	var ledger pricing.Ledger
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			return pricing.Ledger{}, errors.WithDetailf(ErrProductNotFound, "product %s", it.ProductID)
		}
		if err := ledger.Add(pricing.LineItem{
			ProductID:  p.ID,
			Name:       p.Name,
			UnitPrice:  p.UnitPrice,
			SalePrice:  p.SalePrice,
			Quantity:   it.Quantity,
			VariantKey: it.VariantKey,
		}); err != nil {
			return pricing.Ledger{}, err
		}
	}
	return ledger, nil
}

func upsell(l pricing.Ledger, bundles []pricing.BundleDeal) []pricing.IncompleteBundle {
	out := pricing.IncompleteBundles(l, bundles)
	if out == nil {
		return []pricing.IncompleteBundle{}
	}
	return out
}

func isUserFacing(err error) bool {
	return errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrState)
}
