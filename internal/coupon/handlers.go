package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/discount"
	"github.com/noah-isme/backend-promo/internal/money"
	"github.com/noah-isme/backend-promo/internal/offer"
)

// Handler exposes coupon preview and administrative coupon management.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type couponPayload struct {
	Code              string       `json:"code" validate:"required,min=3,max=64"`
	Kind              string       `json:"kind" validate:"omitempty,oneof=percent fixed_amount"`
	Value             money.Amount `json:"value" validate:"gte=0"`
	PercentBps        int64        `json:"percentBps" validate:"gte=0,lte=10000"`
	Cap               money.Amount `json:"cap" validate:"gte=0"`
	MinPurchase       money.Amount `json:"minPurchase" validate:"gte=0"`
	IsActive          *bool        `json:"isActive"`
	ValidFrom         string       `json:"validFrom"`
	ValidUntil        string       `json:"validUntil"`
	UsageLimit        *int32       `json:"usageLimit" validate:"omitempty,gte=0"`
	RestrictedItemIDs []string     `json:"restrictedItemIds" validate:"omitempty,dive,uuid"`
}

type previewRequest struct {
	Code  string        `json:"code" validate:"required"`
	Items []previewItem `json:"items" validate:"required,min=1,dive"`
}

type previewItem struct {
	ItemID   string       `json:"itemId" validate:"required,uuid"`
	Subtotal money.Amount `json:"subtotal" validate:"gte=0"`
}

// CouponView is the admin-facing coupon payload.
type CouponView struct {
	Code              string        `json:"code"`
	Kind              discount.Kind `json:"kind"`
	Value             money.Amount  `json:"value"`
	PercentBps        int64         `json:"percentBps"`
	Cap               money.Amount  `json:"cap,omitempty"`
	MinPurchase       money.Amount  `json:"minPurchase"`
	IsActive          bool          `json:"isActive"`
	ValidFrom         *string       `json:"validFrom,omitempty"`
	ValidUntil        *string       `json:"validUntil,omitempty"`
	UsageLimit        *int32        `json:"usageLimit,omitempty"`
	TimesUsed         int32         `json:"timesUsed"`
	RestrictedItemIDs []uuid.UUID   `json:"restrictedItemIds,omitempty"`
	Status            offer.Status  `json:"status"`
}

func (h *Handler) view(rec Record) CouponView {
	v := CouponView{
		Code:              rec.Code,
		Kind:              rec.Rule.Kind,
		Value:             rec.Rule.Value,
		PercentBps:        rec.Rule.PercentBps,
		Cap:               rec.Rule.Cap,
		MinPurchase:       rec.MinPurchase,
		IsActive:          rec.IsActive,
		UsageLimit:        rec.UsageLimit,
		TimesUsed:         rec.TimesUsed,
		RestrictedItemIDs: rec.RestrictedItemIDs,
		Status:            rec.Status(h.Svc.now()),
	}
	if rec.ValidFrom != nil {
		s := rec.ValidFrom.Format("2006-01-02")
		v.ValidFrom = &s
	}
	if rec.ValidUntil != nil {
		s := rec.ValidUntil.Format("2006-01-02")
		v.ValidUntil = &s
	}
	return v
}

func (p couponPayload) toRecord(id uuid.UUID) (Record, error) {
	kind, err := discount.ParseKind(p.Kind)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		ID: id,
		Definition: Definition{
			Code: NormalizeCode(p.Code),
			Rule: discount.Rule{
				Kind:       kind,
				Value:      p.Value,
				PercentBps: p.PercentBps,
				Cap:        p.Cap,
			},
			MinPurchase: p.MinPurchase,
			IsActive:    true,
			ValidFrom:   offer.ParseBound(p.ValidFrom),
			ValidUntil:  offer.ParseBound(p.ValidUntil),
			UsageLimit:  p.UsageLimit,
		},
	}
	if p.IsActive != nil {
		rec.IsActive = *p.IsActive
	}
	for _, raw := range p.RestrictedItemIDs {
		itemID, err := uuid.Parse(raw)
		if err != nil {
			return Record{}, err
		}
		rec.RestrictedItemIDs = append(rec.RestrictedItemIDs, itemID)
	}
	return rec, nil
}

// Preview handles POST /api/v1/coupons/preview. It evaluates a coupon against
// the given selected lines without mutating any state.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid preview request", nil)
		return
	}
	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		id, err := uuid.Parse(it.ItemID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
			return
		}
		items = append(items, Item{ItemID: id, Subtotal: it.Subtotal})
	}
	result, err := h.Svc.Preview(r.Context(), req.Code, items)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, result)
}

// List handles GET /api/v1/admin/coupons.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Svc.Store.List(r.Context())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	views := make([]CouponView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, h.view(rec))
	}
	common.JSONData(w, http.StatusOK, views)
}

// Create handles POST /api/v1/admin/coupons.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid coupon definition", nil)
		return
	}
	rec, err := payload.toRecord(uuid.New())
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if err := h.Svc.Store.Create(r.Context(), rec); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, h.view(rec))
}

// Update handles PUT /api/v1/admin/coupons/{code}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.Code = code
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid coupon definition", nil)
		return
	}
	rec, err := payload.toRecord(uuid.Nil)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if err := h.Svc.Store.Update(r.Context(), rec); err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONAppError(w, err)
		return
	}
	updated, err := h.Svc.Store.GetByCode(r.Context(), rec.Code)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, h.view(updated))
}

// Delete handles DELETE /api/v1/admin/coupons/{code}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if err := h.Svc.Store.Delete(r.Context(), code); err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
