package promo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/obs"
)

// Querier captures the store methods required by the promo service.
type Querier interface {
	GetPromoByCode(ctx context.Context, code string) (Code, error)
	HasPromoRedemption(ctx context.Context, promoID, userID uuid.UUID) (bool, error)
	SetPromoActive(ctx context.Context, code string, active bool) (Code, error)
}

// RedeemQuerier is the transactional subset used when a checkout is committed.
type RedeemQuerier interface {
	GetPromoByCodeForUpdate(ctx context.Context, code string) (Code, error)
	HasPromoRedemption(ctx context.Context, promoID, userID uuid.UUID) (bool, error)
	InsertPromoRedemption(ctx context.Context, r Redemption) error
	IncrementPromoUses(ctx context.Context, promoID uuid.UUID) (bool, error)
}

// Redemption records a committed use of a promo code.
type Redemption struct {
	PromoID uuid.UUID    `json:"promoId"`
	UserID  uuid.UUID    `json:"userId"`
	OrderID uuid.UUID    `json:"orderId"`
	Amount  money.Amount `json:"amount"`
}

// Result is the outcome of a successful validation.
type Result struct {
	Code     Code         `json:"code"`
	Discount money.Amount `json:"discount"`
}

// Service resolves promo codes from the store and validates them.
type Service struct {
	Q      Querier
	Now    func() time.Time
	Logger *zerolog.Logger
}

// Validate resolves code and runs the full ordered check list against subtotalAfterBundles.
func (s *Service) Validate(ctx context.Context, code string, subtotalAfterBundles money.Amount, userID uuid.UUID, now time.Time) (Result, error) {
	snap, err := s.Lookup(ctx, code, userID)
	if err != nil {
		s.observe(code, err)
		return Result{}, err
	}
	if err := snap.Code.Check(subtotalAfterBundles, snap.UsedByUser, now); err != nil {
		s.observe(code, err)
		return Result{}, err
	}
	s.observe(code, nil)
	return Result{Code: snap.Code, Discount: snap.Code.Discount(subtotalAfterBundles)}, nil
}

// Lookup loads the code together with the caller's redemption history without validating it.
func (s *Service) Lookup(ctx context.Context, code string, userID uuid.UUID) (Snapshot, error) {
	if s == nil || s.Q == nil {
		return Snapshot{}, errors.New("promo service not configured")
	}
	normalized, err := NormalizeCode(code)
	if err != nil {
		return Snapshot{}, err
	}
	c, err := s.Q.GetPromoByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, errors.Wrap(err, "load promo code")
	}
	snap := Snapshot{Code: c, UserID: userID}
	if c.SingleUsePerUser && userID != uuid.Nil {
		used, err := s.Q.HasPromoRedemption(ctx, c.ID, userID)
		if err != nil {
			return Snapshot{}, errors.Wrap(err, "load promo redemptions")
		}
		snap.UsedByUser = used
	}
	return snap, nil
}

// SetActive toggles the operator controlled active flag.
func (s *Service) SetActive(ctx context.Context, code string, active bool) (Code, error) {
	if s == nil || s.Q == nil {
		return Code{}, errors.New("promo service not configured")
	}
	normalized, err := NormalizeCode(code)
	if err != nil {
		return Code{}, err
	}
	c, err := s.Q.SetPromoActive(ctx, normalized, active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Code{}, ErrNotFound
		}
		return Code{}, errors.Wrap(err, "update promo code")
	}
	return c, nil
}

// Clock returns the service clock.
func (s *Service) Clock() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) observe(code string, err error) {
	result := "ok"
	if err != nil {
		result = Reason(err)
	}
	if obs.PromoValidationsTotal != nil {
		obs.PromoValidationsTotal.WithLabelValues(result).Inc()
	}
	if err != nil && s.Logger != nil {
		s.Logger.Debug().Str("code", code).Str("reason", result).Msg("promo code rejected")
	}
}

// LockSnapshot loads the code under a row lock together with the caller's redemption
// history. It must run inside the caller's transaction.
func LockSnapshot(ctx context.Context, q RedeemQuerier, code string, userID uuid.UUID) (Snapshot, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return Snapshot{}, err
	}
	c, err := q.GetPromoByCodeForUpdate(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, errors.Wrap(err, "lock promo code")
	}
	snap := Snapshot{Code: c, UserID: userID}
	if c.SingleUsePerUser && userID != uuid.Nil {
		if snap.UsedByUser, err = q.HasPromoRedemption(ctx, c.ID, userID); err != nil {
			return Snapshot{}, errors.Wrap(err, "load promo redemptions")
		}
	}
	return snap, nil
}

// Redeem records a committed use of the promo code inside the caller's transaction. The code is
// re-validated under a row lock so concurrent checkouts cannot overshoot the usage caps.
func Redeem(ctx context.Context, q RedeemQuerier, code string, base money.Amount, userID, orderID uuid.UUID, now time.Time) (Redemption, error) {
	snap, err := LockSnapshot(ctx, q, code, userID)
	if err != nil {
		return Redemption{}, err
	}
	c := snap.Code
	if err := c.Check(base, snap.UsedByUser, now); err != nil {
		return Redemption{}, err
	}
	r := Redemption{PromoID: c.ID, UserID: userID, OrderID: orderID, Amount: c.Discount(base)}
	if err := q.InsertPromoRedemption(ctx, r); err != nil {
		return Redemption{}, errors.Wrap(err, "insert promo redemption")
	}
	ok, err := q.IncrementPromoUses(ctx, c.ID)
	if err != nil {
		return Redemption{}, errors.Wrap(err, "increment promo uses")
	}
	if !ok {
		return Redemption{}, ErrExhausted
	}
	return r, nil
}
