package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/detailflow/internal/customer/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func captureQuerySQL(t *testing.T, db *gorm.DB) *[]string {
	t.Helper()
	var statements []string
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:capture_sql", func(tx *gorm.DB) {
		statements = append(statements, tx.Statement.SQL.String())
	}))
	return &statements
}

func TestLockByIDLocksRowOnPostgres(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 user=detailflow dbname=detailflow sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	statements := captureQuerySQL(t, db)

	repo := Provide()
	_, err = repo.LockByID(context.Background(), db, 42)
	require.NoError(t, err)
	_, err = repo.FindByID(context.Background(), db, 42)
	require.NoError(t, err)

	require.Len(t, *statements, 2)
	assert.Contains(t, (*statements)[0], `FROM "customers"`)
	assert.Contains(t, (*statements)[0], "FOR UPDATE")
	assert.NotContains(t, (*statements)[1], "FOR UPDATE")
}

func TestLockByIDReadsRowOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Customer{}))

	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	repo := Provide()
	require.NoError(t, repo.Insert(context.Background(), db, &domain.Customer{ID: 7, Name: "Asha", Mobile: "9876543210", CreatedAt: now, UpdatedAt: now}))
	statements := captureQuerySQL(t, db)

	var got *domain.Customer
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		got, err = repo.LockByID(context.Background(), tx, 7)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Asha", got.Name)
	require.Len(t, *statements, 1)
	assert.NotContains(t, (*statements)[0], "FOR UPDATE")

	missing, err := repo.LockByID(context.Background(), db, 8)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
