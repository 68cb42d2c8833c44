package combo

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/discount"
	"github.com/noah-isme/backend-promo/internal/money"
	"github.com/noah-isme/backend-promo/internal/offer"
)

// Handler exposes public combo reads and administrative combo management.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type linePayload struct {
	ItemID string `json:"itemId" validate:"required,uuid"`
	Qty    int    `json:"qty" validate:"required,gt=0"`
}

type definitionPayload struct {
	Title      string        `json:"title" validate:"required,min=2,max=200"`
	Kind       string        `json:"kind" validate:"omitempty,oneof=percent fixed_amount"`
	Value      money.Amount  `json:"value" validate:"gte=0"`
	PercentBps int64         `json:"percentBps" validate:"gte=0,lte=10000"`
	Cap        money.Amount  `json:"cap" validate:"gte=0"`
	IsActive   *bool         `json:"isActive"`
	StartDate  string        `json:"startDate"`
	EndDate    string        `json:"endDate"`
	Lines      []linePayload `json:"lines" validate:"required,min=1,dive"`
}

func (p definitionPayload) toDefinition(id uuid.UUID) (Definition, error) {
	kind, err := discount.ParseKind(p.Kind)
	if err != nil {
		return Definition{}, err
	}
	def := Definition{
		ID:    id,
		Title: p.Title,
		Rule: discount.Rule{
			Kind:       kind,
			Value:      p.Value,
			PercentBps: p.PercentBps,
			Cap:        p.Cap,
		},
		IsActive:  true,
		StartDate: offer.ParseBound(p.StartDate),
		EndDate:   offer.ParseBound(p.EndDate),
	}
	if p.IsActive != nil {
		def.IsActive = *p.IsActive
	}
	for _, line := range p.Lines {
		itemID, err := uuid.Parse(line.ItemID)
		if err != nil {
			return Definition{}, err
		}
		def.Lines = append(def.Lines, Line{ItemID: itemID, Qty: line.Qty})
	}
	return def, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (definitionPayload, bool) {
	var payload definitionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return payload, false
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid combo definition", validationDetails(err))
		return payload, false
	}
	return payload, true
}

func validationDetails(err error) any {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// List handles GET /api/v1/combos.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.Svc.List(r.Context())
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	if views == nil {
		views = []View{}
	}
	common.JSONData(w, http.StatusOK, views)
}

// Detail handles GET /api/v1/combos/{id}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid combo id", nil)
		return
	}
	view, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// Create handles POST /api/v1/admin/combos.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	def, err := payload.toDefinition(uuid.New())
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	view, err := h.Svc.Create(r.Context(), def)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_ITEM", "combo references unknown items", nil)
			return
		}
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, view)
}

// Update handles PUT /api/v1/admin/combos/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid combo id", nil)
		return
	}
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	def, err := payload.toDefinition(id)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	view, err := h.Svc.Update(r.Context(), def)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// Delete handles DELETE /api/v1/admin/combos/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid combo id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		common.JSONAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles POST /api/v1/admin/combos/preview. It prices a definition
// against the live catalog without persisting anything.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	def, err := payload.toDefinition(uuid.Nil)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	priced, err := h.Svc.Preview(r.Context(), def)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, priced)
}
