package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/common"
)

// Handler wires the session cart to HTTP.
type Handler struct {
	Svc *Service
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, status int, c Cart) {
	view, err := h.Svc.Totals(r.Context(), c)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, status, view)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidInput) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	common.JSONAppError(w, err)
}

func cartID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// Create handles POST /api/v1/carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusCreated, c)
}

// Get handles GET /api/v1/carts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	c, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// AddItem handles POST /api/v1/carts/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	var payload struct {
		ItemID string `json:"itemId"`
		Qty    int    `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	itemID, err := uuid.Parse(payload.ItemID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	if payload.Qty == 0 {
		payload.Qty = 1
	}
	c, err := h.Svc.AddItem(r.Context(), id, itemID, payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// AddCombo handles POST /api/v1/carts/{id}/combos.
func (h *Handler) AddCombo(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	var payload struct {
		ComboID string `json:"comboId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	comboID, err := uuid.Parse(payload.ComboID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid combo id", nil)
		return
	}
	c, err := h.Svc.AddCombo(r.Context(), id, comboID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// UpdateLine handles PATCH /api/v1/carts/{id}/items/{lineId}.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	lineID, err := uuid.Parse(chi.URLParam(r, "lineId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid line id", nil)
		return
	}
	var payload struct {
		Qty      *int  `json:"qty"`
		Selected *bool `json:"selected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	c, err := h.Svc.UpdateLine(r.Context(), id, lineID, payload.Qty, payload.Selected)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// RemoveLine handles DELETE /api/v1/carts/{id}/items/{lineId}.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	lineID, err := uuid.Parse(chi.URLParam(r, "lineId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid line id", nil)
		return
	}
	c, err := h.Svc.RemoveLine(r.Context(), id, lineID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// ApplyCoupon handles POST /api/v1/carts/{id}/coupon.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	c, err := h.Svc.ApplyCoupon(r.Context(), id, payload.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}

// RemoveCoupon handles DELETE /api/v1/carts/{id}/coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := cartID(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return
	}
	c, err := h.Svc.RemoveCoupon(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCart(w, r, http.StatusOK, c)
}
