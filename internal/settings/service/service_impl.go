package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/config"
	obscontext "github.com/smallbiznis/detailflow/internal/observability/context"
	"github.com/smallbiznis/detailflow/internal/referral"
	"github.com/smallbiznis/detailflow/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	Defaults *config.ReferralDefaultsHolder
	Cache    domain.Cache        `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	defaults *config.ReferralDefaultsHolder
	cache    domain.Cache
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("settings.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		defaults: p.Defaults,
		cache:    p.Cache,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Settings, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn("settings cache read failed", zap.Error(err))
		} else if cached != nil {
			return *cached, nil
		}
	}

	stored, err := s.repo.Find(ctx, s.db)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("read settings: %w", err)
	}

	var settings domain.Settings
	if stored != nil {
		settings = *stored
	} else {
		settings = s.fallback()
	}

	if s.cache != nil && stored != nil {
		if err := s.cache.Set(ctx, settings); err != nil {
			s.log.Warn("settings cache write failed", zap.Error(err))
		}
	}
	return settings, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateSettingsRequest) (domain.Settings, error) {
	for _, rate := range []decimal.Decimal{req.ReferralRateL1, req.ReferralRateL2, req.ReferralRateL3} {
		if !referral.ValidPercent(rate) {
			return domain.Settings{}, domain.ErrInvalidReferralRate
		}
	}
	if !referral.ValidPercent(req.GSTRate) {
		return domain.Settings{}, domain.ErrInvalidGSTRate
	}
	if req.DefaultDiscount < 0 {
		return domain.Settings{}, domain.ErrInvalidDiscount
	}

	settings := domain.Settings{
		ID:              domain.GlobalID,
		ReferralRateL1:  req.ReferralRateL1,
		ReferralRateL2:  req.ReferralRateL2,
		ReferralRateL3:  req.ReferralRateL3,
		GSTRate:         req.GSTRate,
		DefaultDiscount: req.DefaultDiscount,
		UpdatedAt:       s.clock.Now(),
	}
	if _, actorID := obscontext.ActorFromContext(ctx); actorID != "" {
		settings.UpdatedBy = &actorID
	}

	if err := s.repo.Upsert(ctx, s.db, &settings); err != nil {
		return domain.Settings{}, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn("settings cache invalidate failed", zap.Error(err))
		}
	}

	if s.auditSvc != nil {
		targetID := domain.GlobalID
		_ = s.auditSvc.AuditLog(ctx, "settings.update", auditdomain.TargetSettings, &targetID, map[string]any{
			"referral_rate_l1": settings.ReferralRateL1,
			"referral_rate_l2": settings.ReferralRateL2,
			"referral_rate_l3": settings.ReferralRateL3,
			"gst_rate":         settings.GSTRate,
			"default_discount": settings.DefaultDiscount,
		})
	}

	return settings, nil
}

func (s *Service) fallback() domain.Settings {
	d := s.defaults.Get()
	return domain.Settings{
		ID:              domain.GlobalID,
		ReferralRateL1:  decimal.NewFromFloat(d.RateL1),
		ReferralRateL2:  decimal.NewFromFloat(d.RateL2),
		ReferralRateL3:  decimal.NewFromFloat(d.RateL3),
		GSTRate:         decimal.NewFromFloat(d.GSTRate),
		DefaultDiscount: d.DefaultDiscount,
	}
}
