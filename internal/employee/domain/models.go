package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Employee is a staff member. CommissionRate is the percentage earned on
// their own labor; RecruiterCommission is what ReferredByEmployeeID earns on it.
type Employee struct {
	ID                   snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name                 string          `gorm:"not null" json:"name"`
	Role                 Role            `gorm:"not null" json:"role"`
	Phone                string          `gorm:"not null" json:"phone"`
	Email                string          `json:"email,omitempty"`
	CommissionRate       decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"commission_rate"`
	ReferredByEmployeeID *snowflake.ID   `gorm:"column:referred_by_employee_id;index" json:"referred_by_employee_id,omitempty"`
	RecruiterCommission  decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"recruiter_commission"`
	CreatedAt            time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"not null" json:"updated_at"`
}
