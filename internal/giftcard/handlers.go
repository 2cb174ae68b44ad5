package giftcard

import (
	"net/http"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/money"
)

// Handler exposes gift card endpoints.
type Handler struct {
	Svc *Service
}

type applyRequest struct {
	Code           string        `json:"code" validate:"required,max=64"`
	RemainingTotal *money.Amount `json:"remainingTotal,omitempty"`
}

// Apply previews a card: its balance and, when a remaining total is given, how much of it
// the card would cover. The balance is not changed.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "GIFTCARD_NOT_CONFIGURED", "gift card service not configured", nil)
		return
	}
	var req applyRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if req.RemainingTotal != nil && req.RemainingTotal.IsNegative() {
		common.WriteError(w, common.Validation("remaining total must not be negative"))
		return
	}
	card, err := h.Svc.Apply(r.Context(), req.Code)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	resp := map[string]any{
		"code":    card.Code,
		"balance": card.CurrentBalance,
	}
	if req.RemainingTotal != nil {
		remaining := money.Round2(*req.RemainingTotal)
		resp["usableAmount"] = card.UsableAmount(remaining)
		resp["remainingBalance"] = card.RemainingBalanceAfterUse(remaining)
	}
	common.Data(w, http.StatusOK, resp)
}
