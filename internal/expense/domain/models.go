package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Category string

const (
	CategoryRent        Category = "RENT"
	CategorySalary      Category = "SALARY"
	CategoryInventory   Category = "INVENTORY"
	CategoryUtilities   Category = "UTILITIES"
	CategoryMaintenance Category = "MAINTENANCE"
	CategoryOther       Category = "OTHER"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryRent, CategorySalary, CategoryInventory, CategoryUtilities, CategoryMaintenance, CategoryOther:
		return true
	}
	return false
}

// Expense is an operating cost. SpentOn is a calendar date stored at midnight UTC.
type Expense struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	Title     string        `gorm:"not null" json:"title"`
	Amount    int64         `gorm:"not null" json:"amount"`
	Category  Category      `gorm:"not null;index" json:"category"`
	SpentOn   time.Time     `gorm:"not null;index" json:"spent_on"`
	Notes     string        `json:"notes,omitempty"`
	CreatedBy *snowflake.ID `json:"created_by,omitempty"`
	CreatedAt time.Time     `gorm:"not null" json:"created_at"`
}
