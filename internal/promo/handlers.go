package promo

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/money"
)

// Handler exposes promo code endpoints.
type Handler struct {
	Svc *Service
}

type validateRequest struct {
	Code     string       `json:"code" validate:"required,max=64"`
	Subtotal money.Amount `json:"subtotal"`
	UserID   uuid.UUID    `json:"userId"`
}

type activeRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// Validate checks a code against a post-bundle subtotal without redeeming it.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PROMO_NOT_CONFIGURED", "promo service not configured", nil)
		return
	}
	var req validateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if req.Subtotal.IsNegative() {
		common.WriteError(w, common.Validation("subtotal must not be negative"))
		return
	}
	if raw, ok := common.UserID(r.Context()); ok {
		if id, err := uuid.Parse(raw); err == nil {
			req.UserID = id
		}
	}
	res, err := h.Svc.Validate(r.Context(), req.Code, money.Round2(req.Subtotal), req.UserID, h.Svc.Clock())
	if err != nil {
		if isRejection(err) {
			common.Data(w, http.StatusOK, map[string]any{
				"valid":  false,
				"reason": Reason(err),
			})
			return
		}
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"valid":    true,
		"code":     res.Code.Code,
		"discount": res.Discount,
	})
}

// SetActive toggles a code on or off.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PROMO_NOT_CONFIGURED", "promo service not configured", nil)
		return
	}
	var req activeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.SetActive(r.Context(), strings.TrimSpace(chi.URLParam(r, "code")), *req.Active)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, c)
}

// isRejection reports whether err is a per-code outcome rather than a failure of the request.
func isRejection(err error) bool {
	return errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrState)
}
