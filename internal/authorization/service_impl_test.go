package authorization

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return NewService(Params{DB: db, Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAdminCanDoEverything(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "1", RoleAdmin, ObjectReport, ActionExport))
	assert.NoError(t, svc.Authorize(ctx, "1", RoleAdmin, ObjectSettings, ActionUpdate))
	assert.NoError(t, svc.Authorize(ctx, "1", RoleAdmin, ObjectJob, ActionCancel))
}

func TestStaffPermissions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "2", RoleStaff, ObjectJob, ActionComplete))
	assert.NoError(t, svc.Authorize(ctx, "2", RoleStaff, ObjectCustomer, ActionCreate))
	assert.NoError(t, svc.Authorize(ctx, "2", RoleStaff, ObjectSettings, ActionView))

	assert.ErrorIs(t, svc.Authorize(ctx, "2", RoleStaff, ObjectSettings, ActionUpdate), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "2", RoleStaff, ObjectReport, ActionView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "2", RoleStaff, ObjectExpense, ActionView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "2", RoleStaff, ObjectAuditLog, ActionView), ErrForbidden)
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, "3", RoleAdmin, ObjectReport, ActionView))
	assert.ErrorIs(t, svc.Authorize(ctx, "3", RoleStaff, ObjectReport, ActionView), ErrForbidden)
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", RoleAdmin, ObjectJob, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "1", RoleAdmin, "", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "1", RoleAdmin, ObjectJob, ""), ErrInvalidAction)
}
