package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/logger"
)

type stubHistory struct {
	prices []float64
	err    error

	gotName  string
	gotLimit int
	gotSince time.Time
}

func (s *stubHistory) RecentSoldPrices(_ context.Context, name string, _ domain.Platform, since time.Time, limit int) ([]float64, error) {
	s.gotName = name
	s.gotSince = since
	s.gotLimit = limit
	return s.prices, s.err
}

func TestReconcile_MedianOddSample(t *testing.T) {
	history := &stubHistory{prices: []float64{300, 100, 200}}
	r := New(history, Config{}, logger.NewNop())

	verified, err := r.Reconcile(context.Background(), "iphone 13", domain.PlatformEBay)

	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.Equal(t, 200.0, verified.Value)
	assert.Equal(t, SourceSoldHistory, verified.Source)
}

func TestReconcile_MedianEvenSample(t *testing.T) {
	history := &stubHistory{prices: []float64{100, 200, 300, 400}}
	r := New(history, Config{}, logger.NewNop())

	verified, err := r.Reconcile(context.Background(), "iphone 13", domain.PlatformEBay)

	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.Equal(t, 250.0, verified.Value)
}

func TestReconcile_InsufficientSampleIsNotAnError(t *testing.T) {
	history := &stubHistory{prices: []float64{100, 200}}
	r := New(history, Config{MinSamples: 3}, logger.NewNop())

	verified, err := r.Reconcile(context.Background(), "obscure item", domain.PlatformCraigslist)

	require.NoError(t, err)
	assert.Nil(t, verified)
}

func TestReconcile_MinSamplesTunable(t *testing.T) {
	history := &stubHistory{prices: []float64{150}}
	r := New(history, Config{MinSamples: 1}, logger.NewNop())

	verified, err := r.Reconcile(context.Background(), "item", domain.PlatformEBay)

	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.Equal(t, 150.0, verified.Value)
}

func TestReconcile_PropagatesLookupError(t *testing.T) {
	history := &stubHistory{err: errors.New("db down")}
	r := New(history, Config{}, logger.NewNop())

	_, err := r.Reconcile(context.Background(), "item", domain.PlatformEBay)

	assert.Error(t, err)
}

func TestReconcile_WindowAndLimit(t *testing.T) {
	history := &stubHistory{}
	r := New(history, Config{Window: 30 * 24 * time.Hour, MaxSamples: 10}, logger.NewNop())
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	_, err := r.Reconcile(context.Background(), "item", domain.PlatformEBay)

	require.NoError(t, err)
	assert.Equal(t, now.Add(-30*24*time.Hour), history.gotSince)
	assert.Equal(t, 10, history.gotLimit)
	assert.Equal(t, "item", history.gotName)
}

func TestApply_SetsVerifiedFields(t *testing.T) {
	history := &stubHistory{prices: []float64{400, 400, 400}}
	r := New(history, Config{}, logger.NewNop())

	l := &domain.Listing{Title: "GPU", Platform: domain.PlatformEBay, AskingPrice: 300}
	l.DiscountPercent = 10

	r.Apply(context.Background(), l)

	require.NotNil(t, l.VerifiedValue)
	assert.Equal(t, 400.0, *l.VerifiedValue)
	require.NotNil(t, l.VerifiedSource)
	assert.Equal(t, SourceSoldHistory, *l.VerifiedSource)
	require.NotNil(t, l.TrueDiscountPercent)
	assert.Equal(t, 25.0, *l.TrueDiscountPercent)
	assert.Equal(t, 25.0, l.EffectiveDiscount())
}

func TestApply_OverpricedClampsDiscountToZero(t *testing.T) {
	history := &stubHistory{prices: []float64{100, 100, 100}}
	r := New(history, Config{}, logger.NewNop())

	l := &domain.Listing{Title: "GPU", Platform: domain.PlatformEBay, AskingPrice: 300}
	r.Apply(context.Background(), l)

	require.NotNil(t, l.TrueDiscountPercent)
	assert.Zero(t, *l.TrueDiscountPercent)
}

func TestApply_NoHistoryLeavesHeuristic(t *testing.T) {
	history := &stubHistory{}
	r := New(history, Config{}, logger.NewNop())

	l := &domain.Listing{Title: "novel thing", Platform: domain.PlatformEBay, AskingPrice: 50}
	l.DiscountPercent = 33

	r.Apply(context.Background(), l)

	assert.Nil(t, l.VerifiedValue)
	assert.Equal(t, 33.0, l.EffectiveDiscount())
}

func TestApply_LookupFailureIsSwallowed(t *testing.T) {
	history := &stubHistory{err: errors.New("db down")}
	r := New(history, Config{}, logger.NewNop())

	l := &domain.Listing{Title: "thing", Platform: domain.PlatformEBay, AskingPrice: 50}
	assert.NotPanics(t, func() { r.Apply(context.Background(), l) })
	assert.Nil(t, l.VerifiedValue)
}
