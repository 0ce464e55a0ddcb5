package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectCustomer = "customer"
	ObjectEmployee = "employee"
	ObjectCatalog  = "catalog"
	ObjectJob      = "job"
	ObjectSettings = "settings"
	ObjectExpense  = "expense"
	ObjectReport   = "report"
	ObjectAuditLog = "audit_log"
)

const (
	ActionView     = "view"
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionComplete = "complete"
	ActionCancel   = "cancel"
	ActionExport   = "export"
)

const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

type Service interface {
	// Authorize checks whether the employee with role may perform action on object.
	Authorize(ctx context.Context, employeeID string, role string, object string, action string) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, employeeID string, role string, object string, action string) error {
	employeeID = strings.TrimSpace(employeeID)
	role = strings.ToLower(strings.TrimSpace(role))
	if employeeID == "" || role == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("employee:%s", employeeID)
	if err := s.ensureGrouping(subject, "role:"+role); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, employeeID, object, action)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link for subject, replacing a stale
// one when the employee's role changed.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, employeeID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := object
	if err := s.auditSvc.AuditLog(ctx, "authorization.denied", "authorization", &targetID, map[string]any{
		"object":      object,
		"action":      action,
		"employee_id": employeeID,
	}); err != nil {
		s.log.Warn("audit log failed", zap.Error(err))
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:admin", ObjectCustomer, "*"},
		{"role:admin", ObjectEmployee, "*"},
		{"role:admin", ObjectCatalog, "*"},
		{"role:admin", ObjectJob, "*"},
		{"role:admin", ObjectSettings, "*"},
		{"role:admin", ObjectExpense, "*"},
		{"role:admin", ObjectReport, "*"},
		{"role:admin", ObjectAuditLog, "*"},

		{"role:staff", ObjectCustomer, ActionView},
		{"role:staff", ObjectCustomer, ActionCreate},
		{"role:staff", ObjectCustomer, ActionUpdate},
		{"role:staff", ObjectJob, ActionView},
		{"role:staff", ObjectJob, ActionCreate},
		{"role:staff", ObjectJob, ActionUpdate},
		{"role:staff", ObjectJob, ActionComplete},
		{"role:staff", ObjectCatalog, ActionView},
		{"role:staff", ObjectSettings, ActionView},
		{"role:staff", ObjectEmployee, ActionView},
	}
	for _, policy := range policies {
		params := make([]interface{}, 0, len(policy))
		for _, value := range policy {
			params = append(params, value)
		}
		has, err := enforcer.HasPolicy(params...)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(params...); err != nil {
			return err
		}
	}
	return nil
}
