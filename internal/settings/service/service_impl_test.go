package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/smallbiznis/detailflow/internal/settings/domain"
	"github.com/smallbiznis/detailflow/internal/settings/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type memoryCache struct {
	value   *domain.Settings
	failGet bool
	sets    int
}

func (m *memoryCache) Get(context.Context) (*domain.Settings, error) {
	if m.failGet {
		return nil, errors.New("redis down")
	}
	return m.value, nil
}

func (m *memoryCache) Set(_ context.Context, s domain.Settings) error {
	m.sets++
	m.value = &s
	return nil
}

func (m *memoryCache) Invalidate(context.Context) error {
	m.value = nil
	return nil
}

type brokenRepo struct{}

func (brokenRepo) Find(context.Context, *gorm.DB) (*domain.Settings, error) {
	return nil, errors.New("connection refused")
}

func (brokenRepo) Upsert(context.Context, *gorm.DB, *domain.Settings) error {
	return errors.New("connection refused")
}

func pct(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertRate(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(pct(want)), "want %s, got %s", want, got)
}

func newSettingsService(t *testing.T, repo domain.Repository, cache domain.Cache) domain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Settings{}))

	p := Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Repo:     repo,
		Defaults: config.NewStaticReferralDefaults(config.DefaultReferralDefaults()),
	}
	if cache != nil {
		p.Cache = cache
	}
	return New(p)
}

func TestGetFallsBackToDefaults(t *testing.T) {
	svc := newSettingsService(t, repository.Provide(), nil)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assertRate(t, "20", got.ReferralRateL1)
	assertRate(t, "10", got.ReferralRateL2)
	assertRate(t, "5", got.ReferralRateL3)
	assertRate(t, "18", got.GSTRate)
	assert.Equal(t, int64(10), got.DefaultDiscount)
}

func TestUpdateThenGet(t *testing.T) {
	cache := &memoryCache{}
	svc := newSettingsService(t, repository.Provide(), cache)

	_, err := svc.Update(context.Background(), domain.UpdateSettingsRequest{
		ReferralRateL1: pct("15"), ReferralRateL2: pct("7.5"), ReferralRateL3: pct("2"), GSTRate: pct("9.2"), DefaultDiscount: 0,
	})
	require.NoError(t, err)
	assert.Nil(t, cache.value)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assertRate(t, "7.5", got.ReferralRateL2)
	assertRate(t, "9.2", got.GSTRate)
	assert.Equal(t, 1, cache.sets)

	// second update overwrites the same row
	_, err = svc.Update(context.Background(), domain.UpdateSettingsRequest{
		ReferralRateL1: pct("25"), ReferralRateL2: pct("10"), ReferralRateL3: pct("5"), GSTRate: pct("18"), DefaultDiscount: 50,
	})
	require.NoError(t, err)
	got, err = svc.Get(context.Background())
	require.NoError(t, err)
	assertRate(t, "25", got.ReferralRateL1)
	assert.Equal(t, int64(50), got.DefaultDiscount)
}

func TestUpdateValidation(t *testing.T) {
	svc := newSettingsService(t, repository.Provide(), nil)

	_, err := svc.Update(context.Background(), domain.UpdateSettingsRequest{ReferralRateL1: pct("100.01")})
	assert.ErrorIs(t, err, domain.ErrInvalidReferralRate)

	_, err = svc.Update(context.Background(), domain.UpdateSettingsRequest{GSTRate: pct("-1")})
	assert.ErrorIs(t, err, domain.ErrInvalidGSTRate)

	_, err = svc.Update(context.Background(), domain.UpdateSettingsRequest{DefaultDiscount: -5})
	assert.ErrorIs(t, err, domain.ErrInvalidDiscount)
}

func TestGetIgnoresCacheFailure(t *testing.T) {
	svc := newSettingsService(t, repository.Provide(), &memoryCache{failGet: true})

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assertRate(t, "20", got.ReferralRateL1)
}

func TestGetSurfacesStorageFailure(t *testing.T) {
	svc := newSettingsService(t, brokenRepo{}, nil)

	_, err := svc.Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read settings")
}
