package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	"github.com/smallbiznis/detailflow/internal/catalog/domain"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	clock    clock.Clock
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.ServiceItem, error) {
	return s.repo.FindAll(ctx, s.db, req.Name)
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.ServiceItem, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Price < 0 {
		return nil, domain.ErrInvalidPrice
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = name
	}
	code = slug.Make(code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	var description *string
	if req.Description != nil {
		if trimmed := strings.TrimSpace(*req.Description); trimmed != "" {
			description = &trimmed
		}
	}

	now := s.clock.Now()
	item := &domain.ServiceItem{
		ID:          s.genID.Generate(),
		Code:        code,
		Name:        name,
		Price:       req.Price,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, s.db, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateCode
		}
		return nil, err
	}

	s.audit(ctx, "service.create", item.ID, map[string]any{
		"code":  item.Code,
		"price": item.Price,
	})
	return item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	itemID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || itemID == 0 {
		return domain.ErrInvalidID
	}

	deleted, err := s.repo.Delete(ctx, s.db, itemID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}

	s.audit(ctx, "service.delete", itemID, nil)
	return nil
}

func (s *Service) audit(ctx context.Context, action string, id snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := id.String()
	if err := s.auditSvc.AuditLog(ctx, action, auditdomain.TargetService, &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}
