package analytics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/offer"
)

// Handler serves the admin reporting endpoints.
type Handler struct {
	Svc *Service
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// dateRange reads from/to query params, defaulting to the last 30 days.
// The to bound is exclusive at day granularity.
func (h *Handler) dateRange(r *http.Request) (time.Time, time.Time) {
	now := h.now().UTC()
	to := now.AddDate(0, 0, 1).Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -30)
	if parsed := offer.ParseBound(r.URL.Query().Get("from")); parsed != nil {
		from = *parsed
	}
	if parsed := offer.ParseBound(r.URL.Query().Get("to")); parsed != nil {
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to
}

// Sales handles GET /api/v1/admin/analytics/sales.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	from, to := h.dateRange(r)
	rows, err := h.Svc.SalesDaily(r.Context(), from, to)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	if rows == nil {
		rows = []DailySales{}
	}
	common.JSONData(w, http.StatusOK, rows)
}

// TopItems handles GET /api/v1/admin/analytics/top-items.
func (h *Handler) TopItems(w http.ResponseWriter, r *http.Request) {
	from, to := h.dateRange(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.Svc.TopItems(r.Context(), from, to, limit)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	if rows == nil {
		rows = []TopItem{}
	}
	common.JSONData(w, http.StatusOK, rows)
}

// Overview handles GET /api/v1/admin/analytics/overview.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	from, to := h.dateRange(r)
	ov, err := h.Svc.Overview(r.Context(), from, to)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, ov)
}
