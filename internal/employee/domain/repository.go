package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, employee *Employee) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Employee, error)
	List(ctx context.Context, db *gorm.DB, filter ListEmployeeFilter) ([]*Employee, error)
	UpdateRecruiter(ctx context.Context, db *gorm.DB, employee *Employee) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
