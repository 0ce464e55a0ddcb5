package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/expense/domain"
	obscontext "github.com/smallbiznis/detailflow/internal/observability/context"
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
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("expense.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateExpenseRequest) (domain.Expense, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Expense{}, domain.ErrInvalidTitle
	}
	if req.Amount <= 0 {
		return domain.Expense{}, domain.ErrInvalidAmount
	}
	category := domain.Category(strings.ToUpper(strings.TrimSpace(req.Category)))
	if category == "" {
		category = domain.CategoryOther
	}
	if !category.Valid() {
		return domain.Expense{}, domain.ErrInvalidCategory
	}

	now := s.clock.Now()
	spentOn := truncateDay(now)
	if raw := strings.TrimSpace(req.SpentOn); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return domain.Expense{}, domain.ErrInvalidDate
		}
		spentOn = parsed
	}

	expense := domain.Expense{
		ID:        s.genID.Generate(),
		Title:     title,
		Amount:    req.Amount,
		Category:  category,
		SpentOn:   spentOn,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
	}
	if _, actorID := obscontext.ActorFromContext(ctx); actorID != "" {
		if id, err := snowflake.ParseString(actorID); err == nil && id != 0 {
			expense.CreatedBy = &id
		}
	}

	if err := s.repo.Insert(ctx, s.db, &expense); err != nil {
		return domain.Expense{}, err
	}

	s.audit(ctx, "expense.create", expense.ID, map[string]any{
		"amount":   expense.Amount,
		"category": string(expense.Category),
	})
	return expense, nil
}

func (s *Service) List(ctx context.Context, req domain.ListExpenseRequest) ([]domain.Expense, error) {
	filter := domain.ListExpenseFilter{}
	if raw := strings.TrimSpace(req.Category); raw != "" {
		filter.Category = domain.Category(strings.ToUpper(raw))
		if !filter.Category.Valid() {
			return nil, domain.ErrInvalidCategory
		}
	}
	if raw := strings.TrimSpace(req.From); raw != "" {
		from, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, domain.ErrInvalidDate
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(req.To); raw != "" {
		to, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, domain.ErrInvalidDate
		}
		// inclusive end date
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, domain.ErrInvalidDateRange
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	expenses := make([]domain.Expense, 0, len(items))
	for _, item := range items {
		if item != nil {
			expenses = append(expenses, *item)
		}
	}
	return expenses, nil
}

func (s *Service) Total(ctx context.Context, from, to time.Time) (int64, error) {
	if !from.Before(to) {
		return 0, domain.ErrInvalidDateRange
	}
	return s.repo.Sum(ctx, s.db, from.UTC(), to.UTC())
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return domain.ErrInvalidID
	}
	deleted, err := s.repo.Delete(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	s.audit(ctx, "expense.delete", id, nil)
	return nil
}

func (s *Service) audit(ctx context.Context, action string, id snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := id.String()
	if err := s.auditSvc.AuditLog(ctx, action, auditdomain.TargetExpense, &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
