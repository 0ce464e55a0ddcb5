package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ServiceItem is a priced entry of the workshop's service menu. Job items copy
// the name and price; later catalog edits never reach existing jobs.
type ServiceItem struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	Code        string       `json:"code" gorm:"type:text;not null;uniqueIndex:ux_service_items_code"`
	Name        string       `json:"name" gorm:"type:text;not null"`
	Price       int64        `json:"price" gorm:"not null"`
	Description *string      `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

func (ServiceItem) TableName() string { return "service_items" }
