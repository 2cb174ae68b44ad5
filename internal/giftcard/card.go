package giftcard

import (
	"strings"
	"time"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/money"
)

var (
	// ErrMalformedCode is returned for codes rejected before lookup.
	ErrMalformedCode = common.Validation("gift card code malformed")
	// ErrNotFound is returned when no gift card matches.
	ErrNotFound = common.NewNotFoundError("gift card not found")
	// ErrInactive is returned for disabled cards.
	ErrInactive = common.NewStateError("gift card inactive")
	// ErrExpired is returned for cards past their expiry.
	ErrExpired = common.NewStateError("gift card expired")
	// ErrZeroBalance is returned for cards with nothing left to spend.
	ErrZeroBalance = common.NewStateError("gift card has no remaining balance")
	// ErrInsufficientBalance is returned when a settlement debit exceeds the current balance.
	ErrInsufficientBalance = common.NewStateError("gift card balance insufficient")
)

// Card is a prepaid balance redeemable against an order total.
type Card struct {
	Code           string       `json:"code"`
	InitialAmount  money.Amount `json:"initialAmount"`
	CurrentBalance money.Amount `json:"currentBalance"`
	ExpiresAt      time.Time    `json:"expiresAt"`
	Active         bool         `json:"active"`
}

// NormalizeCode trims and upper-cases a card code.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" || len(code) > 64 || strings.ContainsAny(code, " \t\r\n") {
		return "", ErrMalformedCode
	}
	return code, nil
}

// Check reports whether the card can be applied at now.
func (c Card) Check(now time.Time) error {
	if !c.Active {
		return ErrInactive
	}
	if !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt) {
		return ErrExpired
	}
	if !c.CurrentBalance.IsPositive() {
		return ErrZeroBalance
	}
	return nil
}

// UsableAmount is min(currentBalance, max(remainingTotal, 0)).
func (c Card) UsableAmount(remainingTotal money.Amount) money.Amount {
	return money.Min(money.Max(c.CurrentBalance, money.Zero), money.Max(remainingTotal, money.Zero))
}

// RemainingBalanceAfterUse is the balance left once UsableAmount(remainingTotal) is spent.
func (c Card) RemainingBalanceAfterUse(remainingTotal money.Amount) money.Amount {
	return c.CurrentBalance.Sub(c.UsableAmount(remainingTotal))
}

// ValidateBalance checks 0 ≤ currentBalance ≤ initialAmount.
func (c Card) ValidateBalance() error {
	if c.CurrentBalance.IsNegative() || c.CurrentBalance.GreaterThan(c.InitialAmount) {
		return common.Validationf("gift card balance %s outside [0, %s]", money.Format(c.CurrentBalance), money.Format(c.InitialAmount))
	}
	return nil
}
