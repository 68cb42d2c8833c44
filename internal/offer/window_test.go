package offer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-promo/internal/offer"
)

func date(value string) *time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestClassifyInsideWindow(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	got := offer.Classify(true, date("2024-01-01"), date("2024-01-31"), now)
	require.Equal(t, offer.StatusActive, got)
}

func TestClassifyUpcoming(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	got := offer.Classify(true, date("2024-02-01"), nil, now)
	require.Equal(t, offer.StatusUpcoming, got)
}

func TestClassifyDeactivationWinsOverDates(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	got := offer.Classify(false, date("2024-01-01"), date("2099-01-01"), now)
	require.Equal(t, offer.StatusExpired, got)
}

func TestClassifyNoDatesMirrorsActiveFlag(t *testing.T) {
	now := time.Now()
	require.Equal(t, offer.StatusActive, offer.Classify(true, nil, nil, now))
	require.Equal(t, offer.StatusExpired, offer.Classify(false, nil, nil, now))
}

func TestClassifyDayGranularity(t *testing.T) {
	// The end date counts to the last instant of its calendar day.
	now := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)
	require.Equal(t, offer.StatusActive, offer.Classify(true, date("2024-01-01"), date("2024-01-31"), now))

	next := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, offer.StatusExpired, offer.Classify(true, date("2024-01-01"), date("2024-01-31"), next))
}

func TestClassifyStringsMalformedDatesDegrade(t *testing.T) {
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	// Garbage bounds behave like absent bounds instead of erroring out.
	require.Equal(t, offer.StatusActive, offer.ClassifyStrings(true, "not-a-date", "also-bad", now))
	require.Equal(t, offer.StatusUpcoming, offer.ClassifyStrings(true, "2024-02-01", "garbage", now))
}

func TestParseBound(t *testing.T) {
	require.Nil(t, offer.ParseBound(""))
	require.Nil(t, offer.ParseBound("31/01/2024"))
	require.NotNil(t, offer.ParseBound("2024-01-31"))
	require.NotNil(t, offer.ParseBound("2024-01-31T10:00:00Z"))
}
