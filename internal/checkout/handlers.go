package checkout

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/common"
)

// Handler wires checkout to HTTP.
type Handler struct {
	Svc *Service
}

type checkoutRequest struct {
	CartID string `json:"cartId"`
}

func (h *Handler) parseCartID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.CartID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return uuid.Nil, false
	}
	return id, true
}

// Preview handles POST /api/v1/checkout/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.parseCartID(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.Preview(r.Context(), cartID)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// Place handles POST /api/v1/checkout.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.parseCartID(w, r)
	if !ok {
		return
	}
	o, err := h.Svc.PlaceOrder(r.Context(), cartID)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, o)
}
