package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/detailflow/internal/referral"
)

// GlobalID is the key of the single settings row.
const GlobalID = "global"

type Settings struct {
	ID              string          `gorm:"primaryKey" json:"-"`
	ReferralRateL1  decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"referral_rate_l1"`
	ReferralRateL2  decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"referral_rate_l2"`
	ReferralRateL3  decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"referral_rate_l3"`
	GSTRate         decimal.Decimal `gorm:"column:gst_rate;type:decimal(7,4);not null" json:"gst_rate"`
	DefaultDiscount int64           `gorm:"not null" json:"default_discount"`
	UpdatedBy       *string         `json:"updated_by,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Rates returns the tier percentages in level order.
func (s Settings) Rates() referral.Rates {
	return referral.Rates{s.ReferralRateL1, s.ReferralRateL2, s.ReferralRateL3}
}
