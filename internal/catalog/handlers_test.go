package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*chi.Mux, *fakeStore) {
	t.Helper()
	svc, store := newTestService(t)
	h := &Handler{Service: svc}
	r := chi.NewRouter()
	r.Get("/api/v1/items", h.List)
	r.Get("/api/v1/items/{id}", h.Detail)
	return r, store
}

func TestListItemsEnvelope(t *testing.T) {
	router, store := newTestRouter(t)
	id := uuid.New()
	store.items[id] = Item{ID: id, Title: "Kettle", BasePrice: 189900, IsActive: true, Stock: 2}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/items", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "1", rr.Header().Get("X-Total-Count"))

	var body struct {
		Data       []Item `json:"data"`
		Pagination struct {
			Page       int `json:"page"`
			PerPage    int `json:"per_page"`
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "Kettle", body.Data[0].Title)
	require.Equal(t, 1, body.Pagination.TotalItems)
}

func TestItemDetailBadID(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/items/not-a-uuid", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestItemDetailNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/items/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)
}
