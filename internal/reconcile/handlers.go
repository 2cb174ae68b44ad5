package reconcile

import (
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/toko-pricing/internal/common"
)

// Handler exposes reconciliation report endpoints.
type Handler struct {
	Svc   *Service
	Tasks Enqueuer
}

// OrderGroups returns the reconciled order groups as JSON, or CSV with ?format=csv.
func (h *Handler) OrderGroups(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "REPORT_NOT_CONFIGURED", "report service not configured", nil)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	report, err := h.Svc.OrderGroups(r.Context(), filter)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="order-groups.csv"`)
		w.WriteHeader(http.StatusOK)
		if err := WriteCSV(w, report); err != nil {
			h.Svc.Logger.Error().Err(err).Msg("write order groups csv")
		}
		return
	}
	common.Data(w, http.StatusOK, report)
}

// Refresh enqueues a background recomputation of the report.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	info, err := EnqueueRefresh(r.Context(), h.Tasks, filter)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	resp := map[string]any{"queued": info != nil}
	if info != nil {
		resp["taskId"] = info.ID
	}
	common.Data(w, http.StatusAccepted, resp)
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{Status: RowStatus(strings.ToLower(strings.TrimSpace(q.Get("status"))))}
	var err error
	if raw := q.Get("from"); raw != "" {
		if filter.From, err = time.Parse(time.RFC3339, raw); err != nil {
			return Filter{}, common.Validation("invalid from date")
		}
	}
	if raw := q.Get("to"); raw != "" {
		if filter.To, err = time.Parse(time.RFC3339, raw); err != nil {
			return Filter{}, common.Validation("invalid to date")
		}
	}
	return filter, filter.Validate()
}
