package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type UpdateSettingsRequest struct {
	ReferralRateL1  decimal.Decimal
	ReferralRateL2  decimal.Decimal
	ReferralRateL3  decimal.Decimal
	GSTRate         decimal.Decimal
	DefaultDiscount int64
}

type Service interface {
	// Get returns the stored settings, or the configured defaults when no row
	// exists. Storage failures are returned, never papered over.
	Get(context.Context) (Settings, error)
	Update(context.Context, UpdateSettingsRequest) (Settings, error)
}

var (
	ErrInvalidReferralRate = errors.New("invalid_referral_rate")
	ErrInvalidGSTRate      = errors.New("invalid_gst_rate")
	ErrInvalidDiscount     = errors.New("invalid_default_discount")
)
