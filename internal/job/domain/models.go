package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/detailflow/internal/referral"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Open reports whether the job can still be edited, started, completed or cancelled.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusInProgress
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// OpenStatuses are the statuses a job may leave through completion or cancellation.
var OpenStatuses = []Status{StatusPending, StatusInProgress}

type PaymentMode string

const (
	PaymentCash   PaymentMode = "CASH"
	PaymentUPI    PaymentMode = "UPI"
	PaymentCard   PaymentMode = "CARD"
	PaymentOnline PaymentMode = "ONLINE"
	PaymentUnpaid PaymentMode = "UNPAID"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentUPI, PaymentCard, PaymentOnline, PaymentUnpaid:
		return true
	}
	return false
}

// Item is a line on a job card with the price captured when it was added.
type Item struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	JobID       snowflake.ID `gorm:"not null;index" json:"-"`
	Position    int          `gorm:"not null" json:"-"`
	ServiceName string       `gorm:"not null" json:"service_name"`
	PriceAtTime int64        `gorm:"not null" json:"price_at_time"`
}

func (Item) TableName() string {
	return "job_items"
}

type Job struct {
	ID                       snowflake.ID                `gorm:"primaryKey" json:"id"`
	CustomerID               snowflake.ID                `gorm:"not null;index" json:"customer_id"`
	VehicleID                snowflake.ID                `gorm:"not null;index" json:"vehicle_id"`
	AssignedEmployeeID       *snowflake.ID               `gorm:"index" json:"assigned_employee_id,omitempty"`
	Status                   Status                      `gorm:"not null;index" json:"status"`
	PaymentMode              *PaymentMode                `json:"payment_mode,omitempty"`
	Items                    []Item                      `gorm:"foreignKey:JobID" json:"items"`
	CustomServiceCharge      int64                       `gorm:"not null;default:0" json:"custom_service_charge"`
	CustomServiceDescription string                      `json:"custom_service_description,omitempty"`
	Discount                 int64                       `gorm:"not null;default:0" json:"discount"`
	GSTEnabled               bool                        `gorm:"column:gst_enabled;not null" json:"gst_enabled"`
	GSTRateSnap              decimal.Decimal             `gorm:"column:gst_rate_snap;type:decimal(7,4);not null" json:"gst_rate_snap"`
	TotalAmount              int64                       `gorm:"not null" json:"total_amount"`
	ReferralCommissions      referral.Snapshot           `json:"referral_commissions"`
	Notes                    string                      `json:"notes,omitempty"`
	Images                   datatypes.JSONSlice[string] `json:"images,omitempty"`
	CreatedBy                *snowflake.ID               `json:"created_by,omitempty"`
	CreatedAt                time.Time                   `gorm:"not null;index" json:"created_at"`
	UpdatedAt                time.Time                   `gorm:"not null" json:"updated_at"`
	StartedAt                *time.Time                  `json:"started_at,omitempty"`
	CompletedAt              *time.Time                  `gorm:"index" json:"completed_at,omitempty"`
	CancelledAt              *time.Time                  `json:"cancelled_at,omitempty"`
}

// LaborTotal is the sum of line item prices. The custom charge, discount and
// GST are not labor.
func (j Job) LaborTotal() int64 {
	var total int64
	for _, item := range j.Items {
		total += item.PriceAtTime
	}
	return total
}

// ServiceRevenue is labor plus the custom service charge.
func (j Job) ServiceRevenue() int64 {
	return j.LaborTotal() + j.CustomServiceCharge
}

// Totals is the invoice breakdown of a job card.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Taxable  int64 `json:"taxable"`
	GST      int64 `json:"gst"`
	Total    int64 `json:"total"`
}

// ComputeTotals prices a job: subtotal is items plus the custom charge, the
// discount never takes the taxable amount below zero, and GST is rounded to
// whole units.
func ComputeTotals(items []Item, customCharge, discount int64, gstEnabled bool, gstRate decimal.Decimal) Totals {
	var subtotal int64
	for _, item := range items {
		subtotal += item.PriceAtTime
	}
	subtotal += customCharge

	taxable := subtotal - discount
	if taxable < 0 {
		taxable = 0
	}

	var gst int64
	if gstEnabled {
		gst = referral.PercentOf(taxable, gstRate)
	}
	return Totals{Subtotal: subtotal, Taxable: taxable, GST: gst, Total: taxable + gst}
}
