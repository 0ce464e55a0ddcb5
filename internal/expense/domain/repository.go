package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListExpenseFilter struct {
	Category Category
	From     *time.Time
	To       *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, expense *Expense) error
	List(ctx context.Context, db *gorm.DB, filter ListExpenseFilter) ([]*Expense, error)
	// Sum totals amounts with SpentOn in [from, to).
	Sum(ctx context.Context, db *gorm.DB, from, to time.Time) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
