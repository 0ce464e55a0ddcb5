package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/detailflow/internal/clock"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	customerrepo "github.com/smallbiznis/detailflow/internal/customer/repository"
	employeedomain "github.com/smallbiznis/detailflow/internal/employee/domain"
	employeerepo "github.com/smallbiznis/detailflow/internal/employee/repository"
	"github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/internal/job/repository"
	"github.com/smallbiznis/detailflow/internal/referral"
	settingsdomain "github.com/smallbiznis/detailflow/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeSettings struct {
	settings settingsdomain.Settings
	err      error
}

func (f *fakeSettings) Get(context.Context) (settingsdomain.Settings, error) {
	if f.err != nil {
		return settingsdomain.Settings{}, f.err
	}
	return f.settings, nil
}

func (f *fakeSettings) Update(context.Context, settingsdomain.UpdateSettingsRequest) (settingsdomain.Settings, error) {
	return f.settings, nil
}

type heldLocker struct{}

func (heldLocker) TryLock(context.Context, string, time.Duration) (string, bool, error) {
	return "", false, nil
}

func (heldLocker) Release(context.Context, string, string) error { return nil }

type fixture struct {
	db        *gorm.DB
	svc       domain.Service
	settings  *fakeSettings
	customers customerdomain.Repository
	now       time.Time

	grandparent customerdomain.Customer
	parent      customerdomain.Customer
	child       customerdomain.Customer
	vehicle     customerdomain.Vehicle
	ravi        employeedomain.Employee
	arjun       employeedomain.Employee
}

func newFixture(t *testing.T, locker domain.Locker) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&customerdomain.Vehicle{},
		&employeedomain.Employee{},
		&domain.Job{},
		&domain.Item{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		db:        db,
		customers: customerrepo.Provide(),
		now:       time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		settings: &fakeSettings{settings: settingsdomain.Settings{
			ReferralRateL1: decimal.NewFromInt(20),
			ReferralRateL2: decimal.NewFromInt(10),
			ReferralRateL3: decimal.NewFromInt(5),
			GSTRate:        decimal.NewFromInt(18),
		}},
	}
	employees := employeerepo.Provide()
	ctx := context.Background()

	f.ravi = employeedomain.Employee{ID: node.Generate(), Name: "Ravi", Role: employeedomain.RoleStaff, Phone: "9000000001", CreatedAt: f.now, UpdatedAt: f.now}
	require.NoError(t, employees.Insert(ctx, db, &f.ravi))
	f.arjun = employeedomain.Employee{ID: node.Generate(), Name: "Arjun", Role: employeedomain.RoleStaff, Phone: "9000000002", ReferredByEmployeeID: &f.ravi.ID, RecruiterCommission: decimal.NewFromInt(5), CreatedAt: f.now, UpdatedAt: f.now}
	require.NoError(t, employees.Insert(ctx, db, &f.arjun))

	f.grandparent = customerdomain.Customer{ID: node.Generate(), Name: "Asha", Mobile: "9100000001", CreatedAt: f.now, UpdatedAt: f.now}
	require.NoError(t, f.customers.Insert(ctx, db, &f.grandparent))
	f.parent = customerdomain.Customer{ID: node.Generate(), Name: "Bala", Mobile: "9100000002", ReferredByCustomerID: &f.grandparent.ID, CreatedAt: f.now, UpdatedAt: f.now}
	require.NoError(t, f.customers.Insert(ctx, db, &f.parent))
	f.child = customerdomain.Customer{ID: node.Generate(), Name: "Chitra", Mobile: "9100000003", ReferredByCustomerID: &f.parent.ID, CreatedAt: f.now, UpdatedAt: f.now}
	require.NoError(t, f.customers.Insert(ctx, db, &f.child))

	f.vehicle = customerdomain.Vehicle{ID: node.Generate(), CustomerID: f.child.ID, RegNumber: "KA01AB1234", Model: "Swift", FuelType: customerdomain.FuelPetrol, CreatedAt: f.now, UpdatedAt: f.now}
	require.NoError(t, f.customers.InsertVehicle(ctx, db, &f.vehicle))

	p := Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.NewFakeClock(f.now),
		Repo:         repository.Provide(),
		CustomerRepo: f.customers,
		EmployeeRepo: employees,
		SettingsSvc:  f.settings,
	}
	if locker != nil {
		p.Locker = locker
	}
	f.svc = New(p)
	return f
}

func (f *fixture) createJob(t *testing.T, assigned string) domain.Job {
	t.Helper()
	discount := int64(0)
	job, err := f.svc.Create(context.Background(), domain.CreateJobRequest{
		CustomerID:         f.child.ID.String(),
		VehicleID:          f.vehicle.ID.String(),
		AssignedEmployeeID: assigned,
		Items: []domain.ItemInput{
			{ServiceName: "Foam wash", Price: 1200},
			{ServiceName: "Interior vacuum", Price: 800},
			{ServiceName: "  ", Price: 999},
		},
		Discount:   &discount,
		GSTEnabled: true,
	})
	require.NoError(t, err)
	return job
}

func TestCreateComputesTotals(t *testing.T) {
	f := newFixture(t, nil)

	job := f.createJob(t, "")

	assert.Equal(t, domain.StatusPending, job.Status)
	require.Len(t, job.Items, 2)
	assert.Equal(t, int64(2000), job.LaborTotal())
	assert.True(t, job.GSTRateSnap.Equal(decimal.NewFromInt(18)))
	assert.Equal(t, int64(2360), job.TotalAmount)
	assert.Nil(t, job.ReferralCommissions)
}

func TestCreateUsesDefaultDiscount(t *testing.T) {
	f := newFixture(t, nil)
	f.settings.settings.DefaultDiscount = 100

	job, err := f.svc.Create(context.Background(), domain.CreateJobRequest{
		CustomerID: f.child.ID.String(),
		VehicleID:  f.vehicle.ID.String(),
		Items:      []domain.ItemInput{{ServiceName: "Polish", Price: 1100}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), job.Discount)
	assert.Equal(t, int64(1000), job.TotalAmount)
}

func TestCreateRejectsForeignVehicle(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Create(context.Background(), domain.CreateJobRequest{
		CustomerID: f.parent.ID.String(),
		VehicleID:  f.vehicle.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidVehicle)
}

func TestCreateRejectsNegativePrice(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Create(context.Background(), domain.CreateJobRequest{
		CustomerID: f.child.ID.String(),
		VehicleID:  f.vehicle.ID.String(),
		Items:      []domain.ItemInput{{ServiceName: "Wash", Price: -1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidItem)
}

func TestCompleteFreezesReferralSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	job := f.createJob(t, f.arjun.ID.String())

	done, err := f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: job.ID.String(), PaymentMode: "upi"})
	require.NoError(t, err)

	want := referral.Snapshot{
		referral.CustomerReferral{Level: 1, CustomerID: f.parent.ID, Amount: 472},
		referral.CustomerReferral{Level: 2, CustomerID: f.grandparent.ID, Amount: 236},
		referral.RecruitmentReward{EmployeeID: f.ravi.ID, Amount: 100, SourceEmployeeName: "Arjun"},
	}
	assert.Equal(t, domain.StatusCompleted, done.Status)
	require.NotNil(t, done.PaymentMode)
	assert.Equal(t, domain.PaymentUPI, *done.PaymentMode)
	assert.Equal(t, want, done.ReferralCommissions)

	stored, err := f.svc.GetByID(context.Background(), job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, want, stored.ReferralCommissions)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.CompletedAt.Equal(f.now))
}

func TestCompleteUsesRequestPerformerWhenUnassigned(t *testing.T) {
	f := newFixture(t, nil)
	job := f.createJob(t, "")

	done, err := f.svc.Complete(context.Background(), domain.CompleteJobRequest{
		ID:          job.ID.String(),
		PaymentMode: "CASH",
		EmployeeID:  f.arjun.ID.String(),
	})
	require.NoError(t, err)

	require.NotNil(t, done.AssignedEmployeeID)
	assert.Equal(t, f.arjun.ID, *done.AssignedEmployeeID)
	assert.Contains(t, done.ReferralCommissions, referral.Commission(referral.RecruitmentReward{EmployeeID: f.ravi.ID, Amount: 100, SourceEmployeeName: "Arjun"}))
}

func TestCompleteWithoutReferrersStoresEmptySnapshot(t *testing.T) {
	f := newFixture(t, nil)
	node, _ := snowflake.NewNode(2)
	loner := customerdomain.Customer{ID: node.Generate(), Name: "Deepa", Mobile: "9100000004", CreatedAt: f.now, UpdatedAt: f.now}
	require.NoError(t, f.customers.Insert(context.Background(), f.db, &loner))
	car := customerdomain.Vehicle{ID: node.Generate(), CustomerID: loner.ID, RegNumber: "KA02CD5678", Model: "City", FuelType: customerdomain.FuelDiesel, CreatedAt: f.now, UpdatedAt: f.now}
	require.NoError(t, f.customers.InsertVehicle(context.Background(), f.db, &car))

	job, err := f.svc.Create(context.Background(), domain.CreateJobRequest{
		CustomerID: loner.ID.String(),
		VehicleID:  car.ID.String(),
		Items:      []domain.ItemInput{{ServiceName: "Wash", Price: 500}},
	})
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: job.ID.String(), PaymentMode: "CARD"})
	require.NoError(t, err)

	stored, err := f.svc.GetByID(context.Background(), job.ID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.ReferralCommissions)
	assert.Empty(t, stored.ReferralCommissions)
}

func TestCompleteTwiceKeepsFirstSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	job := f.createJob(t, f.arjun.ID.String())

	first, err := f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: job.ID.String(), PaymentMode: "CASH"})
	require.NoError(t, err)

	f.settings.settings.ReferralRateL1 = decimal.NewFromInt(50)
	_, err = f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: job.ID.String(), PaymentMode: "CARD"})
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)

	stored, err := f.svc.GetByID(context.Background(), job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, first.ReferralCommissions, stored.ReferralCommissions)
	require.NotNil(t, stored.PaymentMode)
	assert.Equal(t, domain.PaymentCash, *stored.PaymentMode)
}

func TestCompleteFailsClosedWhenSettingsUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	job := f.createJob(t, "")
	f.settings.err = errors.New("connection refused")

	_, err := f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: job.ID.String(), PaymentMode: "CASH"})
	assert.ErrorIs(t, err, domain.ErrReferralDataUnavailable)

	stored, err := f.svc.GetByID(context.Background(), job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Nil(t, stored.ReferralCommissions)
}

func TestCompleteFailsClosedWhenEmployeesUnreadable(t *testing.T) {
	f := newFixture(t, nil)
	job := f.createJob(t, f.arjun.ID.String())
	require.NoError(t, f.db.Migrator().DropTable(&employeedomain.Employee{}))

	_, err := f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: job.ID.String(), PaymentMode: "CASH"})
	assert.ErrorIs(t, err, domain.ErrReferralDataUnavailable)
	assert.NotErrorIs(t, err, domain.ErrPersistCompletion)

	stored, err := f.svc.GetByID(context.Background(), job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Nil(t, stored.ReferralCommissions)
	assert.Nil(t, stored.CompletedAt)
}

func TestCompleteRollsBackWhenVehicleWriteFails(t *testing.T) {
	f := newFixture(t, nil)
	job := f.createJob(t, f.arjun.ID.String())

	const hook = "test:fail_vehicle_update"
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register(hook, func(tx *gorm.DB) {
		if tx.Statement.Table == "vehicles" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	_, err := f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: job.ID.String(), PaymentMode: "CASH"})
	assert.ErrorIs(t, err, domain.ErrPersistCompletion)
	assert.ErrorContains(t, err, "disk full")

	stored, err := f.svc.GetByID(context.Background(), job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Nil(t, stored.ReferralCommissions)
	assert.Nil(t, stored.PaymentMode)

	vehicle, err := f.customers.FindVehicleByID(context.Background(), f.db, f.vehicle.ID)
	require.NoError(t, err)
	require.NotNil(t, vehicle)
	assert.Nil(t, vehicle.LastServiceDate)

	// once storage recovers the same job completes normally
	require.NoError(t, f.db.Callback().Update().Remove(hook))
	done, err := f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: job.ID.String(), PaymentMode: "CASH"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.NotNil(t, done.ReferralCommissions)
}

func TestCompleteRejectedWhileLockHeld(t *testing.T) {
	f := newFixture(t, heldLocker{})
	job := f.createJob(t, "")

	_, err := f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: job.ID.String(), PaymentMode: "CASH"})
	assert.ErrorIs(t, err, domain.ErrCompletionInProgress)
}

func TestCompleteValidatesInput(t *testing.T) {
	f := newFixture(t, nil)
	job := f.createJob(t, "")

	_, err := f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: job.ID.String(), PaymentMode: "CHEQUE"})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentMode)

	_, err = f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: "nope", PaymentMode: "CASH"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: "12345", PaymentMode: "CASH"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteMarksVehicleServiced(t *testing.T) {
	f := newFixture(t, nil)
	job := f.createJob(t, "")

	_, err := f.svc.Complete(context.Background(), domain.CompleteJobRequest{ID: job.ID.String(), PaymentMode: "CASH"})
	require.NoError(t, err)

	vehicle, err := f.customers.FindVehicleByID(context.Background(), f.db, f.vehicle.ID)
	require.NoError(t, err)
	require.NotNil(t, vehicle)
	require.NotNil(t, vehicle.LastServiceDate)
	assert.True(t, vehicle.LastServiceDate.Equal(f.now))
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	job := f.createJob(t, "")

	started, err := f.svc.Start(ctx, job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, started.Status)

	_, err = f.svc.Start(ctx, job.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	cancelled, err := f.svc.Cancel(ctx, job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	_, err = f.svc.Complete(ctx, domain.CompleteJobRequest{ID: job.ID.String(), PaymentMode: "CASH"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	notes := "late pickup"
	_, err = f.svc.Update(ctx, domain.UpdateJobRequest{ID: job.ID.String(), Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrNotEditable)
}

func TestUpdateRecomputesTotals(t *testing.T) {
	f := newFixture(t, nil)
	job := f.createJob(t, "")

	items := []domain.ItemInput{{ServiceName: "Ceramic coat", Price: 5000}}
	charge := int64(500)
	gst := false
	updated, err := f.svc.Update(context.Background(), domain.UpdateJobRequest{
		ID:                  job.ID.String(),
		Items:               &items,
		CustomServiceCharge: &charge,
		GSTEnabled:          &gst,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5500), updated.TotalAmount)

	stored, err := f.svc.GetByID(context.Background(), job.ID.String())
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Ceramic coat", stored.Items[0].ServiceName)
	assert.Equal(t, int64(5500), stored.TotalAmount)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first := f.createJob(t, "")
	f.createJob(t, "")

	_, err := f.svc.Complete(ctx, domain.CompleteJobRequest{ID: first.ID.String(), PaymentMode: "CASH"})
	require.NoError(t, err)

	resp, err := f.svc.List(ctx, domain.ListJobRequest{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, first.ID, resp.Jobs[0].ID)

	_, err = f.svc.List(ctx, domain.ListJobRequest{Status: "DONE"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
