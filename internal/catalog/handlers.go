package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/common"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	Service *Service
}

// List handles GET /api/v1/items with filters and pagination.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	params := ListParams{
		Query:   strings.TrimSpace(r.URL.Query().Get("q")),
		InStock: r.URL.Query().Get("inStock") == "true",
		Page:    page,
		Limit:   perPage,
	}
	items, total, err := h.Service.List(r.Context(), params)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	if items == nil {
		items = []Item{}
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Detail handles GET /api/v1/items/{id}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	item, err := h.Service.Lookup(r.Context(), id)
	if err != nil {
		common.JSONAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, item)
}
