package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// RangeRequest selects completed jobs with completed_at in [Start, End).
// Zero values default to the last 30 days.
type RangeRequest struct {
	Start time.Time
	End   time.Time
}

type SeriesPoint struct {
	Period string `json:"period"`
	Value  int64  `json:"value"`
}

type SummaryResponse struct {
	Start               time.Time        `json:"start"`
	End                 time.Time        `json:"end"`
	JobsCompleted       int              `json:"jobs_completed"`
	Revenue             int64            `json:"revenue"`
	Expenses            int64            `json:"expenses"`
	LaborCommissions    int64            `json:"labor_commissions"`
	ReferralCommissions int64            `json:"referral_commissions"`
	NetProfit           int64            `json:"net_profit"`
	ByPaymentMode       map[string]int64 `json:"by_payment_mode"`
	Series              []SeriesPoint    `json:"series"`
}

// Payout is what one beneficiary is owed across the snapshots in range.
type Payout struct {
	BeneficiaryKind   string `json:"beneficiary_kind"`
	BeneficiaryID     string `json:"beneficiary_id"`
	Name              string `json:"name"`
	Records           int    `json:"records"`
	CustomerReferral  int64  `json:"customer_referral"`
	StaffAcquisition  int64  `json:"staff_acquisition"`
	RecruitmentReward int64  `json:"recruitment_reward"`
	Total             int64  `json:"total"`
}

type StaffPerformance struct {
	EmployeeID     string          `json:"employee_id"`
	Name           string          `json:"name"`
	Role           string          `json:"role"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	JobsCompleted  int             `json:"jobs_completed"`
	LaborRevenue   int64           `json:"labor_revenue"`
	Commission     int64           `json:"commission"`
}

type Service interface {
	Summary(context.Context, RangeRequest) (SummaryResponse, error)
	Payouts(context.Context, RangeRequest) ([]Payout, error)
	StaffPerformance(context.Context, RangeRequest) ([]StaffPerformance, error)
	// Export renders summary, payouts and staff performance as an XLSX workbook.
	Export(context.Context, RangeRequest) ([]byte, error)
}

var (
	ErrInvalidRange = errors.New("invalid_range")
)
