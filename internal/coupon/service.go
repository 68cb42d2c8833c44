package coupon

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/money"
	"github.com/noah-isme/backend-promo/internal/obs"
)

type store interface {
	GetByCode(ctx context.Context, code string) (Record, error)
	GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Create(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	Delete(ctx context.Context, code string) error
	InsertUsage(ctx context.Context, tx pgx.Tx, couponID, orderID uuid.UUID, amount int64) (bool, error)
	IncrementTimesUsed(ctx context.Context, tx pgx.Tx, couponID uuid.UUID) error
}

// Service encapsulates coupon evaluation and settlement behaviour.
type Service struct {
	Store  store
	Logger zerolog.Logger
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// NormalizeCode canonicalises a coupon code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Preview performs a dry-run evaluation for the given selected cart lines.
// Nothing is mutated; the same coupon previews identically until the clock or
// the cart moves.
func (s *Service) Preview(ctx context.Context, code string, items []Item) (Result, error) {
	trimmed := NormalizeCode(code)
	if trimmed == "" {
		return Result{}, common.BadRequest("coupon code is required", nil)
	}
	rec, err := s.Store.GetByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			recordValidation("unknown_code")
			return Result{}, common.NotFound("coupon not found", err)
		}
		return Result{}, err
	}
	result, err := Evaluate(rec.Definition, s.now(), items)
	if err != nil {
		recordValidation(resultLabel(err))
		return Result{}, AsAppError(err)
	}
	recordValidation("ok")
	return result, nil
}

// Definition loads a coupon definition by code for revalidation at pricing time.
func (s *Service) Definition(ctx context.Context, code string) (Definition, error) {
	rec, err := s.Store.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return Definition{}, common.NotFound("coupon not found", err)
		}
		return Definition{}, err
	}
	return rec.Definition, nil
}

// Settle records coupon usage for a placed order inside the caller's
// transaction. Replays for the same order are absorbed without double
// counting.
func (s *Service) Settle(ctx context.Context, tx pgx.Tx, code string, orderID uuid.UUID, amount money.Amount) error {
	trimmed := NormalizeCode(code)
	if trimmed == "" || orderID == uuid.Nil || amount <= 0 {
		return nil
	}
	rec, err := s.Store.GetByCodeForUpdate(ctx, tx, trimmed)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil
		}
		return err
	}
	inserted, err := s.Store.InsertUsage(ctx, tx, rec.ID, orderID, amount)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	return s.Store.IncrementTimesUsed(ctx, tx, rec.ID)
}

// AsAppError maps engine errors onto API error responses. Eligibility
// failures are expected outcomes and come back as 422s.
func AsAppError(err error) error {
	var below *BelowMinimumError
	switch {
	case errors.Is(err, ErrNotActive):
		return common.Unprocessable("COUPON_NOT_ACTIVE", "coupon not active or expired", nil)
	case errors.Is(err, ErrUsageLimitExceeded):
		return common.Unprocessable("COUPON_USAGE_LIMIT", "coupon usage limit exceeded", nil)
	case errors.Is(err, ErrNotApplicable):
		return common.Unprocessable("COUPON_NOT_APPLICABLE", "coupon not applicable to any cart item", nil)
	case errors.As(err, &below):
		return common.Unprocessable("COUPON_BELOW_MINIMUM", below.Error(), map[string]any{
			"required": below.Required,
		})
	default:
		return &common.AppError{Code: "INTERNAL", Message: "coupon evaluation failed", HTTPStatus: http.StatusInternalServerError, Err: err}
	}
}

func resultLabel(err error) string {
	var below *BelowMinimumError
	switch {
	case errors.Is(err, ErrNotActive):
		return "not_active"
	case errors.Is(err, ErrUsageLimitExceeded):
		return "usage_limit"
	case errors.Is(err, ErrNotApplicable):
		return "not_applicable"
	case errors.As(err, &below):
		return "below_minimum"
	default:
		return "error"
	}
}

func recordValidation(result string) {
	if obs.CouponValidationTotal == nil {
		return
	}
	obs.CouponValidationTotal.WithLabelValues(result).Inc()
}
