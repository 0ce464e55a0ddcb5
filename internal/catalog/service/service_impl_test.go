package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/detailflow/internal/catalog/domain"
	"github.com/smallbiznis/detailflow/internal/catalog/repository"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ServiceItem{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreateDerivesCodeFromName(t *testing.T) {
	svc := newTestService(t)

	item, err := svc.Create(context.Background(), domain.CreateRequest{Name: "Ceramic Coating (Full)", Price: 15000})
	require.NoError(t, err)
	assert.Equal(t, "ceramic-coating-full", item.Code)

	items, err := svc.List(context.Background(), domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(15000), items[0].Price)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{Name: "Foam Wash", Price: 500})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), domain.CreateRequest{Name: "foam wash", Price: 600})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(context.Background(), domain.CreateRequest{Name: "Wash", Price: -5})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	item, err := svc.Create(context.Background(), domain.CreateRequest{Name: "Wax", Price: 800})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), item.ID.String()))
	assert.ErrorIs(t, svc.Delete(context.Background(), item.ID.String()), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), "abc"), domain.ErrInvalidID)
}
