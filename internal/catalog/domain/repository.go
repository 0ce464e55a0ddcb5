package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, item *ServiceItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ServiceItem, error)
	FindAll(ctx context.Context, db *gorm.DB, name string) ([]ServiceItem, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
