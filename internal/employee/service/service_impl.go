package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/employee/domain"
	"github.com/smallbiznis/detailflow/internal/referral"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

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
		log:      p.Log.Named("employee.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateEmployeeRequest) (domain.Employee, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Employee{}, domain.ErrInvalidName
	}
	role := domain.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	if role == "" {
		role = domain.RoleStaff
	}
	if !role.Valid() {
		return domain.Employee{}, domain.ErrInvalidRole
	}
	phone := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(req.Phone))
	if !phonePattern.MatchString(phone) {
		return domain.Employee{}, domain.ErrInvalidPhone
	}
	if !referral.ValidPercent(req.CommissionRate) {
		return domain.Employee{}, domain.ErrInvalidRate
	}

	now := s.clock.Now()
	employee := domain.Employee{
		ID:             s.genID.Generate(),
		Name:           name,
		Role:           role,
		Phone:          phone,
		Email:          strings.TrimSpace(req.Email),
		CommissionRate: req.CommissionRate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.applyRecruiter(ctx, &employee, req.RecruiterID, req.RecruiterCommission); err != nil {
		return domain.Employee{}, err
	}

	if err := s.repo.Insert(ctx, s.db, &employee); err != nil {
		return domain.Employee{}, err
	}

	s.audit(ctx, "employee.create", employee.ID, map[string]any{
		"name":            employee.Name,
		"role":            string(employee.Role),
		"commission_rate": employee.CommissionRate,
	})
	return employee, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListEmployeeFilter) ([]domain.Employee, error) {
	if filter.Role != "" {
		filter.Role = domain.Role(strings.ToUpper(string(filter.Role)))
		if !filter.Role.Valid() {
			return nil, domain.ErrInvalidRole
		}
	}
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	employees := make([]domain.Employee, 0, len(items))
	for _, item := range items {
		if item != nil {
			employees = append(employees, *item)
		}
	}
	return employees, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Employee, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Employee{}, err
	}
	employee, err := s.load(ctx, id)
	if err != nil {
		return domain.Employee{}, err
	}
	return *employee, nil
}

func (s *Service) UpdateRecruiter(ctx context.Context, req domain.UpdateRecruiterRequest) (domain.Employee, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.Employee{}, err
	}
	employee, err := s.load(ctx, id)
	if err != nil {
		return domain.Employee{}, err
	}

	if err := s.applyRecruiter(ctx, employee, req.RecruiterID, req.RecruiterCommission); err != nil {
		return domain.Employee{}, err
	}
	employee.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateRecruiter(ctx, s.db, employee); err != nil {
		return domain.Employee{}, err
	}

	metadata := map[string]any{"recruiter_commission": employee.RecruiterCommission}
	if employee.ReferredByEmployeeID != nil {
		metadata["recruiter_id"] = employee.ReferredByEmployeeID.String()
	}
	s.audit(ctx, "employee.update_recruiter", employee.ID, metadata)
	return *employee, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	s.audit(ctx, "employee.delete", id, nil)
	return nil
}

// applyRecruiter sets or clears the recruiter of employee. A blank recruiterID
// clears the link and the override rate with it.
func (s *Service) applyRecruiter(ctx context.Context, employee *domain.Employee, recruiterID string, rate decimal.Decimal) error {
	if strings.TrimSpace(recruiterID) == "" {
		employee.ReferredByEmployeeID = nil
		employee.RecruiterCommission = decimal.Zero
		return nil
	}
	if !referral.ValidPercent(rate) {
		return domain.ErrInvalidRecruiterRate
	}
	id, err := parseID(recruiterID)
	if err != nil {
		return err
	}
	if id == employee.ID {
		return domain.ErrSelfRecruitment
	}

	recruiter, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if recruiter == nil {
		return domain.ErrRecruiterNotFound
	}
	cycle, err := s.recruitedBy(ctx, recruiter, employee.ID)
	if err != nil {
		return err
	}
	if cycle {
		return domain.ErrRecruitmentCycle
	}

	employee.ReferredByEmployeeID = &id
	employee.RecruiterCommission = rate
	return nil
}

// recruitedBy reports whether target appears above start in the recruiter chain.
func (s *Service) recruitedBy(ctx context.Context, start *domain.Employee, target snowflake.ID) (bool, error) {
	seen := map[snowflake.ID]struct{}{start.ID: {}}
	current := start
	for current.ReferredByEmployeeID != nil {
		next := *current.ReferredByEmployeeID
		if next == target {
			return true, nil
		}
		if _, ok := seen[next]; ok {
			return false, nil
		}
		seen[next] = struct{}{}

		var err error
		current, err = s.repo.FindByID(ctx, s.db, next)
		if err != nil {
			return false, err
		}
		if current == nil {
			return false, nil
		}
	}
	return false, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*domain.Employee, error) {
	employee, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, domain.ErrNotFound
	}
	return employee, nil
}

func (s *Service) audit(ctx context.Context, action string, id snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := id.String()
	if err := s.auditSvc.AuditLog(ctx, action, auditdomain.TargetEmployee, &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
