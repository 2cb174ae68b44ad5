package checkout

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/common"
)

// Handler exposes the checkout endpoints.
type Handler struct {
	Svc *Service
}

// Quote prices a cart with its current promo and gift card selection.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := resolveUser(r, &req.UserID); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := req.Selection.normalize(); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.Quote(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Settlement returns the flat payload for the payment processor.
func (h *Handler) Settlement(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := resolveUser(r, &req.UserID); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := req.Selection.normalize(); err != nil {
		common.WriteError(w, err)
		return
	}
	quote, settlement, err := h.Svc.Settle(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"breakdown":  quote.Breakdown,
		"settlement": settlement,
	})
}

// Commit finalises a paid cart.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := resolveUser(r, &req.UserID); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := req.Selection.normalize(); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.Commit(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, out)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "CHECKOUT_NOT_CONFIGURED", "checkout service not configured", nil)
		return false
	}
	if err := common.DecodeJSON(r, dst); err != nil {
		common.WriteError(w, err)
		return false
	}
	return true
}

// resolveUser prefers the gateway supplied identity over the payload.
func resolveUser(r *http.Request, dst *uuid.UUID) error {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return common.Validation("invalid user id")
	}
	*dst = id
	return nil
}
