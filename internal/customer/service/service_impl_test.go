package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/customer/domain"
	"github.com/smallbiznis/detailflow/internal/customer/repository"
	employeedomain "github.com/smallbiznis/detailflow/internal/employee/domain"
	employeerepo "github.com/smallbiznis/detailflow/internal/employee/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingAudit struct {
	actions []string
}

func (r *recordingAudit) AuditLog(_ context.Context, action string, _ string, _ *string, _ map[string]any) error {
	r.actions = append(r.actions, action)
	return nil
}

func (r *recordingAudit) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
	audit *recordingAudit
	staff employeedomain.Employee
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Customer{}, &domain.Vehicle{}, &employeedomain.Employee{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	employees := employeerepo.Provide()
	staff := employeedomain.Employee{ID: node.Generate(), Name: "Meena", Role: employeedomain.RoleStaff, Phone: "9000000009", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, employees.Insert(context.Background(), db, &staff))

	audit := &recordingAudit{}
	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.NewFakeClock(now),
		Repo:         repository.Provide(),
		EmployeeRepo: employees,
		AuditSvc:     audit,
	})
	return &fixture{db: db, svc: svc, audit: audit, staff: staff}
}

func (f *fixture) onboard(t *testing.T, name string, ref domain.Referral) domain.Customer {
	t.Helper()
	resp, err := f.svc.Onboard(context.Background(), domain.OnboardRequest{
		Name:     name,
		Mobile:   "98765 43210",
		Referral: ref,
		Vehicle:  domain.VehicleInput{RegNumber: "ka 01 ab 1234", Model: "Creta", FuelType: "diesel"},
	})
	require.NoError(t, err)
	return resp.Customer
}

func TestOnboardCreatesCustomerAndVehicle(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Onboard(context.Background(), domain.OnboardRequest{
		Name:   "  Kiran ",
		Mobile: "+91 98765-43210",
		Vehicle: domain.VehicleInput{
			RegNumber:      "ka 01 ab 1234",
			Model:          "Nexon",
			FuelType:       "electric",
			NextServiceDue: "2025-08-01",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Kiran", resp.Customer.Name)
	assert.Equal(t, "+919876543210", resp.Customer.Mobile)
	assert.Equal(t, domain.ReferralSourceNone, resp.Customer.ReferralSource())
	assert.Equal(t, "KA01AB1234", resp.Vehicle.RegNumber)
	assert.Equal(t, domain.FuelElectric, resp.Vehicle.FuelType)
	assert.Equal(t, resp.Customer.ID, resp.Vehicle.CustomerID)
	require.NotNil(t, resp.Vehicle.NextServiceDue)

	vehicles, err := f.svc.ListVehicles(context.Background(), resp.Customer.ID.String())
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, []string{"customer.create", "vehicle.create"}, f.audit.actions)
}

func TestOnboardRejectsBadVehicleWithoutWriting(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Onboard(context.Background(), domain.OnboardRequest{
		Name:    "Kiran",
		Mobile:  "9876543210",
		Vehicle: domain.VehicleInput{RegNumber: "KA01", Model: "Nexon", FuelType: "steam"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFuelType)

	resp, err := f.svc.List(context.Background(), domain.ListCustomerRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Customers)
}

func TestOnboardValidatesReferral(t *testing.T) {
	f := newFixture(t)
	existing := f.onboard(t, "Asha", domain.Referral{})

	cases := []struct {
		name string
		ref  domain.Referral
		want error
	}{
		{"both parents", domain.Referral{CustomerID: existing.ID.String(), EmployeeID: f.staff.ID.String()}, domain.ErrMultipleReferrers},
		{"unknown customer", domain.Referral{Source: domain.ReferralSourceCustomer, CustomerID: "42"}, domain.ErrReferrerNotFound},
		{"unknown staff", domain.Referral{Source: domain.ReferralSourceStaff, EmployeeID: "42"}, domain.ErrReferrerNotFound},
		{"missing id", domain.Referral{Source: domain.ReferralSourceCustomer}, domain.ErrInvalidReferral},
		{"source mismatch", domain.Referral{Source: domain.ReferralSourceStaff, CustomerID: existing.ID.String()}, domain.ErrInvalidReferral},
		{"unknown source", domain.Referral{Source: "FRIEND"}, domain.ErrInvalidReferral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Onboard(context.Background(), domain.OnboardRequest{
				Name:     "Bala",
				Mobile:   "9876543211",
				Referral: tc.ref,
				Vehicle:  domain.VehicleInput{RegNumber: "KA02", Model: "City"},
			})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOnboardValidatesContact(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Onboard(context.Background(), domain.OnboardRequest{Name: " ", Mobile: "9876543210"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.Onboard(context.Background(), domain.OnboardRequest{Name: "Kiran", Mobile: "call me"})
	assert.ErrorIs(t, err, domain.ErrInvalidMobile)

	_, err = f.svc.Onboard(context.Background(), domain.OnboardRequest{Name: "Kiran", Mobile: "9876543210", Email: "kiran"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestUpdateRejectsSelfReferralAndCycles(t *testing.T) {
	f := newFixture(t)
	a := f.onboard(t, "Asha", domain.Referral{})
	b := f.onboard(t, "Bala", domain.Referral{Source: domain.ReferralSourceCustomer, CustomerID: a.ID.String()})
	c := f.onboard(t, "Chitra", domain.Referral{Source: domain.ReferralSourceCustomer, CustomerID: b.ID.String()})

	_, err := f.svc.Update(context.Background(), domain.UpdateCustomerRequest{
		ID:       a.ID.String(),
		Referral: &domain.Referral{Source: domain.ReferralSourceCustomer, CustomerID: a.ID.String()},
	})
	assert.ErrorIs(t, err, domain.ErrSelfReferral)

	_, err = f.svc.Update(context.Background(), domain.UpdateCustomerRequest{
		ID:       a.ID.String(),
		Referral: &domain.Referral{Source: domain.ReferralSourceCustomer, CustomerID: c.ID.String()},
	})
	assert.ErrorIs(t, err, domain.ErrReferralCycle)

	stored, err := f.svc.GetByID(context.Background(), a.ID.String())
	require.NoError(t, err)
	assert.Nil(t, stored.ReferredByCustomerID)
}

func TestUpdateChecksCycleAndWritesInOneTransaction(t *testing.T) {
	f := newFixture(t)
	a := f.onboard(t, "Asha", domain.Referral{})
	b := f.onboard(t, "Bala", domain.Referral{})
	c := f.onboard(t, "Chitra", domain.Referral{Source: domain.ReferralSourceCustomer, CustomerID: b.ID.String()})

	var pools []gorm.ConnPool
	record := func(tx *gorm.DB) {
		if tx.Statement.Table == "customers" {
			pools = append(pools, tx.Statement.ConnPool)
		}
	}
	require.NoError(t, f.db.Callback().Query().After("gorm:query").Register("test:record_query_pool", record))
	require.NoError(t, f.db.Callback().Update().After("gorm:update").Register("test:record_update_pool", record))
	t.Cleanup(func() {
		_ = f.db.Callback().Query().Remove("test:record_query_pool")
		_ = f.db.Callback().Update().Remove("test:record_update_pool")
	})

	updated, err := f.svc.Update(context.Background(), domain.UpdateCustomerRequest{
		ID:       a.ID.String(),
		Referral: &domain.Referral{Source: domain.ReferralSourceCustomer, CustomerID: c.ID.String()},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ReferredByCustomerID)
	assert.Equal(t, c.ID, *updated.ReferredByCustomerID)

	// lock a, resolve c, walk c and b, then write a
	require.GreaterOrEqual(t, len(pools), 4)
	first, ok := pools[0].(*sql.Tx)
	require.True(t, ok, "customer statements must run inside a transaction")
	for _, pool := range pools {
		assert.Same(t, first, pool)
	}
}

func TestUpdateSwitchesReferralParent(t *testing.T) {
	f := newFixture(t)
	a := f.onboard(t, "Asha", domain.Referral{})
	b := f.onboard(t, "Bala", domain.Referral{Source: domain.ReferralSourceCustomer, CustomerID: a.ID.String()})

	name := "Bala K"
	updated, err := f.svc.Update(context.Background(), domain.UpdateCustomerRequest{
		ID:       b.ID.String(),
		Name:     &name,
		Referral: &domain.Referral{Source: domain.ReferralSourceStaff, EmployeeID: f.staff.ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bala K", updated.Name)
	assert.Nil(t, updated.ReferredByCustomerID)
	require.NotNil(t, updated.ReferringEmployeeID)
	assert.Equal(t, f.staff.ID, *updated.ReferringEmployeeID)

	stored, err := f.svc.GetByID(context.Background(), b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.ReferralSourceStaff, stored.ReferralSource())
}

func TestReferralChainNamesAncestors(t *testing.T) {
	f := newFixture(t)
	a := f.onboard(t, "Asha", domain.Referral{Source: domain.ReferralSourceStaff, EmployeeID: f.staff.ID.String()})
	b := f.onboard(t, "Bala", domain.Referral{Source: domain.ReferralSourceCustomer, CustomerID: a.ID.String()})
	c := f.onboard(t, "Chitra", domain.Referral{Source: domain.ReferralSourceCustomer, CustomerID: b.ID.String()})

	chain, err := f.svc.ReferralChain(context.Background(), c.ID.String())
	require.NoError(t, err)

	assert.Equal(t, []domain.ChainEntry{
		{Level: 1, Kind: "CUSTOMER", ID: b.ID, Name: "Bala"},
		{Level: 2, Kind: "CUSTOMER", ID: a.ID, Name: "Asha"},
		{Level: 3, Kind: "EMPLOYEE", ID: f.staff.ID, Name: "Meena"},
	}, chain)

	_, err = f.svc.ReferralChain(context.Background(), "777")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddVehicleRequiresCustomer(t *testing.T) {
	f := newFixture(t)
	a := f.onboard(t, "Asha", domain.Referral{})

	vehicle, err := f.svc.AddVehicle(context.Background(), domain.AddVehicleRequest{
		CustomerID: a.ID.String(),
		Vehicle:    domain.VehicleInput{RegNumber: "mh 12 xy 9", Model: "Innova", Color: "White"},
	})
	require.NoError(t, err)
	assert.Equal(t, "MH12XY9", vehicle.RegNumber)
	assert.Equal(t, domain.FuelPetrol, vehicle.FuelType)

	_, err = f.svc.AddVehicle(context.Background(), domain.AddVehicleRequest{
		CustomerID: "999",
		Vehicle:    domain.VehicleInput{RegNumber: "X", Model: "Y"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiltersByName(t *testing.T) {
	f := newFixture(t)
	f.onboard(t, "Asha", domain.Referral{})
	f.onboard(t, "Bala", domain.Referral{})

	resp, err := f.svc.List(context.Background(), domain.ListCustomerRequest{Name: "ash"})
	require.NoError(t, err)
	require.Len(t, resp.Customers, 1)
	assert.Equal(t, "Asha", resp.Customers[0].Name)
	assert.False(t, resp.HasMore)
}
