package coupon

import (
	"context"
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

func newCouponRouter(t *testing.T) (*chi.Mux, *fakeCouponStore) {
	t.Helper()
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	svc, store := newCouponService(now)
	h := &Handler{Svc: svc, Validate: validator.New()}
	r := chi.NewRouter()
	r.Post("/api/v1/coupons/preview", h.Preview)
	r.Get("/api/v1/admin/coupons", h.List)
	r.Post("/api/v1/admin/coupons", h.Create)
	r.Put("/api/v1/admin/coupons/{code}", h.Update)
	r.Delete("/api/v1/admin/coupons/{code}", h.Delete)
	return r, store
}

func TestCreateCouponAndPreview(t *testing.T) {
	router, _ := newCouponRouter(t)

	create := `{
		"code": "welcome10",
		"kind": "percent",
		"percentBps": 1000,
		"minPurchase": 50000
	}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/coupons", strings.NewReader(create)))
	require.Equal(t, http.StatusCreated, rr.Code)

	var created struct {
		Data CouponView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, "WELCOME10", created.Data.Code)
	require.Equal(t, "active", string(created.Data.Status))

	preview := `{
		"code": "WELCOME10",
		"items": [{"itemId": "` + uuid.NewString() + `", "subtotal": 60000}]
	}`
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/coupons/preview", strings.NewReader(preview)))
	require.Equal(t, http.StatusOK, rr.Code)

	var previewed struct {
		Data Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &previewed))
	require.EqualValues(t, 6000, previewed.Data.Discount)
}

func TestPreviewBelowMinimumIsUnprocessable(t *testing.T) {
	router, store := newCouponRouter(t)
	rec := fixedCoupon("MIN", 1000)
	rec.MinPurchase = 100000
	require.NoError(t, store.Create(context.Background(), rec))

	body := `{
		"code": "MIN",
		"items": [{"itemId": "` + uuid.NewString() + `", "subtotal": 500}]
	}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/coupons/preview", strings.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Required int64 `json:"required"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "COUPON_BELOW_MINIMUM", resp.Error.Code)
	require.EqualValues(t, 100000, resp.Error.Details.Required)
}

func TestDeleteCoupon(t *testing.T) {
	router, store := newCouponRouter(t)
	require.NoError(t, store.Create(context.Background(), fixedCoupon("GONE", 100)))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/coupons/GONE", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/coupons/GONE", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
