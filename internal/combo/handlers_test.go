package combo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newComboRouter(t *testing.T, snapshots staticSnapshots) (*chi.Mux, *fakeComboStore) {
	t.Helper()
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	svc, store := newComboService(t, snapshots, now)
	h := &Handler{Svc: svc, Validate: validator.New()}
	r := chi.NewRouter()
	r.Get("/api/v1/combos", h.List)
	r.Get("/api/v1/combos/{id}", h.Detail)
	r.Post("/api/v1/admin/combos", h.Create)
	r.Post("/api/v1/admin/combos/preview", h.Preview)
	r.Put("/api/v1/admin/combos/{id}", h.Update)
	r.Delete("/api/v1/admin/combos/{id}", h.Delete)
	return r, store
}

func TestCreateComboValidation(t *testing.T) {
	router, _ := newComboRouter(t, staticSnapshots{})

	body := `{"title":"x","lines":[]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/combos", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "VALIDATION", resp.Error.Code)
}

func TestCreateAndFetchCombo(t *testing.T) {
	itemID := uuid.New()
	router, _ := newComboRouter(t, staticSnapshots{itemID: {BasePrice: 50000, Stock: 3}})

	body := `{
		"title": "Weekend bundle",
		"kind": "percent",
		"percentBps": 1500,
		"lines": [{"itemId": "` + itemID.String() + `", "qty": 2}]
	}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/combos", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)

	var created struct {
		Data View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, "Weekend bundle", created.Data.Title)
	require.EqualValues(t, 100000, created.Data.Pricing.BundleSubtotal)
	require.EqualValues(t, 15000, created.Data.Pricing.BundleDiscount)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/combos/"+created.Data.ID.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	itemID := uuid.New()
	router, store := newComboRouter(t, staticSnapshots{itemID: {BasePrice: 20000, Stock: 1}})

	body := `{
		"title": "Draft bundle",
		"kind": "fixed_amount",
		"value": 3000,
		"lines": [{"itemId": "` + itemID.String() + `", "qty": 1}]
	}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/combos/preview", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, store.defs)

	var resp struct {
		Data PricingResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.EqualValues(t, 3000, resp.Data.BundleDiscount)
	require.EqualValues(t, 17000, resp.Data.BundleDiscountedTotal)
}

func TestDeleteComboNotFound(t *testing.T) {
	router, _ := newComboRouter(t, staticSnapshots{})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/combos/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
