package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ReferralSource string

const (
	ReferralSourceNone     ReferralSource = "NONE"
	ReferralSourceCustomer ReferralSource = "CUSTOMER"
	ReferralSourceStaff    ReferralSource = "STAFF"
)

type FuelType string

const (
	FuelPetrol   FuelType = "PETROL"
	FuelDiesel   FuelType = "DIESEL"
	FuelElectric FuelType = "ELECTRIC"
	FuelHybrid   FuelType = "HYBRID"
	FuelCNG      FuelType = "CNG"
)

func (f FuelType) Valid() bool {
	switch f {
	case FuelPetrol, FuelDiesel, FuelElectric, FuelHybrid, FuelCNG:
		return true
	}
	return false
}

// Customer is a workshop client. At most one of ReferredByCustomerID and
// ReferringEmployeeID is set.
type Customer struct {
	ID                   snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name                 string        `gorm:"not null" json:"name"`
	Mobile               string        `gorm:"not null;index" json:"mobile"`
	Email                string        `gorm:"column:email" json:"email,omitempty"`
	Notes                string        `gorm:"column:notes" json:"notes,omitempty"`
	ReferredByCustomerID *snowflake.ID `gorm:"column:referred_by_customer_id;index" json:"referred_by_customer_id,omitempty"`
	ReferringEmployeeID  *snowflake.ID `gorm:"column:referring_employee_id;index" json:"referring_employee_id,omitempty"`
	CreatedBy            *snowflake.ID `gorm:"column:created_by" json:"created_by,omitempty"`
	CreatedAt            time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time     `gorm:"not null" json:"updated_at"`
}

// ReferralSource reports which kind of parent the customer has.
func (c Customer) ReferralSource() ReferralSource {
	switch {
	case c.ReferredByCustomerID != nil:
		return ReferralSourceCustomer
	case c.ReferringEmployeeID != nil:
		return ReferralSourceStaff
	default:
		return ReferralSourceNone
	}
}

type Vehicle struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID      snowflake.ID `gorm:"not null;index" json:"customer_id"`
	RegNumber       string       `gorm:"not null;index" json:"reg_number"`
	Model           string       `gorm:"not null" json:"model"`
	Color           string       `json:"color,omitempty"`
	FuelType        FuelType     `gorm:"not null" json:"fuel_type"`
	LastServiceDate *time.Time   `json:"last_service_date,omitempty"`
	NextServiceDue  *time.Time   `json:"next_service_due,omitempty"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

// NormalizeRegNumber upper-cases a registration number and drops inner spaces.
func NormalizeRegNumber(value string) string {
	return strings.ToUpper(strings.Join(strings.Fields(value), ""))
}

var mobilePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// NormalizeMobile drops spaces and dashes and reports whether what is left
// looks like a phone number.
func NormalizeMobile(value string) (string, bool) {
	mobile := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(value))
	return mobile, mobilePattern.MatchString(mobile)
}
