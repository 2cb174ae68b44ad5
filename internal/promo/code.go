package promo

import (
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/money"
)

// DiscountType selects how a promo code reduces the order.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the post-bundle subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount, capped at the post-bundle subtotal.
	DiscountFixed DiscountType = "fixed"
)

const maxCodeLength = 64

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)

var (
	// ErrMalformedCode is returned for codes rejected before lookup.
	ErrMalformedCode = common.Validation("promo code malformed")
	// ErrNotFound is returned when no promo code matches.
	ErrNotFound = common.NewNotFoundError("promo code not found")
	// ErrInactive is returned when the promo code was switched off by an operator.
	ErrInactive = common.NewStateError("promo code inactive")
	// ErrNotYetValid is returned before the promo start date.
	ErrNotYetValid = common.NewStateError("promo code not yet valid")
	// ErrExpired is returned after the promo expiration date.
	ErrExpired = common.NewStateError("promo code expired")
	// ErrBelowMinimum indicates the order does not reach the minimum purchase amount.
	ErrBelowMinimum = common.NewStateError("promo code minimum purchase not met")
	// ErrExhausted indicates the global redemption cap was reached.
	ErrExhausted = common.NewStateError("promo code usage limit reached")
	// ErrAlreadyUsed indicates a single-use promo code was already redeemed by the user.
	ErrAlreadyUsed = common.NewStateError("promo code already used by this user")
)

// Code is an operator issued promo code.
type Code struct {
	ID               uuid.UUID       `json:"id"`
	Code             string          `json:"code"`
	DiscountType     DiscountType    `json:"discountType"`
	DiscountValue    decimal.Decimal `json:"discountValue"`
	MinimumPurchase  money.Amount    `json:"minimumPurchaseAmount"`
	MaxUses          *int32          `json:"maxUses,omitempty"`
	CurrentUses      int32           `json:"currentUses"`
	SingleUsePerUser bool            `json:"singleUsePerUser"`
	StartDate        *time.Time      `json:"startDate,omitempty"`
	ExpirationDate   *time.Time      `json:"expirationDate,omitempty"`
	Active           bool            `json:"active"`
}

// Snapshot pairs a resolved promo code with the caller's redemption history.
type Snapshot struct {
	Code       Code
	UserID     uuid.UUID
	UsedByUser bool
}

// NormalizeCode canonicalises user input. Lookups are case-insensitive so codes are upper-cased.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" || len(code) > maxCodeLength || !codePattern.MatchString(code) {
		return "", ErrMalformedCode
	}
	return code, nil
}

// Check validates the code against base (the post-bundle subtotal). Existence is the caller's
// concern; the remaining checks run in a fixed order and the first failure wins.
func (c Code) Check(base money.Amount, usedByUser bool, now time.Time) error {
	if !c.Active {
		return ErrInactive
	}
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return ErrNotYetValid
	}
	if c.ExpirationDate != nil && now.After(*c.ExpirationDate) {
		return ErrExpired
	}
	if base.LessThan(c.MinimumPurchase) {
		return ErrBelowMinimum
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return ErrExhausted
	}
	if c.SingleUsePerUser && usedByUser {
		return ErrAlreadyUsed
	}
	return nil
}

// Discount computes the reduction for base. Fixed amounts are clamped to base.
func (c Code) Discount(base money.Amount) money.Amount {
	base = money.Max(base, money.Zero)
	switch c.DiscountType {
	case DiscountPercentage:
		return money.Min(money.Percent(base, c.DiscountValue), base)
	case DiscountFixed:
		return money.Min(money.Round2(c.DiscountValue), base)
	default:
		return money.Zero
	}
}

// ValidateDefinition checks operator input for a promo code definition.
func (c Code) ValidateDefinition() error {
	if _, err := NormalizeCode(c.Code); err != nil {
		return err
	}
	switch c.DiscountType {
	case DiscountPercentage:
		if !c.DiscountValue.IsPositive() || c.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return common.Validation("percentage discount must be in (0,100]")
		}
	case DiscountFixed:
		if !c.DiscountValue.IsPositive() {
			return common.Validation("fixed discount must be positive")
		}
	default:
		return common.Validationf("unknown discount type %q", c.DiscountType)
	}
	if c.MinimumPurchase.IsNegative() {
		return common.Validation("minimum purchase must not be negative")
	}
	if c.MaxUses != nil && *c.MaxUses < 0 {
		return common.Validation("max uses must not be negative")
	}
	if c.StartDate != nil && c.ExpirationDate != nil && c.ExpirationDate.Before(*c.StartDate) {
		return common.Validation("expiration date precedes start date")
	}
	return nil
}

// Reason returns a stable machine readable reason for a promo error.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedCode):
		return "malformed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInactive):
		return "inactive"
	case errors.Is(err, ErrNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrBelowMinimum):
		return "below_minimum"
	case errors.Is(err, ErrExhausted):
		return "exhausted"
	case errors.Is(err, ErrAlreadyUsed):
		return "already_used"
	default:
		return "error"
	}
}
