package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB) (*Settings, error)
	Upsert(ctx context.Context, db *gorm.DB, settings *Settings) error
}

// Cache is an optional read-through cache in front of the settings row.
type Cache interface {
	Get(ctx context.Context) (*Settings, error)
	Set(ctx context.Context, settings Settings) error
	Invalidate(ctx context.Context) error
}
