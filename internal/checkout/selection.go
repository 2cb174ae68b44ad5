package checkout

import (
	"github.com/noah-isme/toko-pricing/internal/giftcard"
	"github.com/noah-isme/toko-pricing/internal/promo"
)

// Selection is the promo code and gift card currently applied to a cart. At most one
// promo is held; applying another replaces it.
type Selection struct {
	PromoCode    string `json:"promoCode,omitempty"`
	GiftCardCode string `json:"giftCardCode,omitempty"`
}

// ApplyPromo replaces the current promo code.
func (s *Selection) ApplyPromo(code string) error {
	normalized, err := promo.NormalizeCode(code)
	if err != nil {
		return err
	}
	s.PromoCode = normalized
	return nil
}

// RemovePromo clears the promo code.
func (s *Selection) RemovePromo() { s.PromoCode = "" }

// ApplyGiftCard replaces the current gift card.
func (s *Selection) ApplyGiftCard(code string) error {
	normalized, err := giftcard.NormalizeCode(code)
	if err != nil {
		return err
	}
	s.GiftCardCode = normalized
	return nil
}

// RemoveGiftCard clears the gift card.
func (s *Selection) RemoveGiftCard() { s.GiftCardCode = "" }

// normalize re-applies decoded codes so payload input goes through the same checks as ApplyPromo
// and ApplyGiftCard. Malformed codes are rejected before any lookup.
func (s *Selection) normalize() error {
	raw := *s
	*s = Selection{}
	if raw.PromoCode != "" {
		if err := s.ApplyPromo(raw.PromoCode); err != nil {
			return err
		}
	}
	if raw.GiftCardCode != "" {
		if err := s.ApplyGiftCard(raw.GiftCardCode); err != nil {
			return err
		}
	}
	return nil
}
