package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/detailflow/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	employeedomain "github.com/smallbiznis/detailflow/internal/employee/domain"
	expensedomain "github.com/smallbiznis/detailflow/internal/expense/domain"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	settingsdomain "github.com/smallbiznis/detailflow/internal/settings/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded postgres migrations to db.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every table owned by the service, parents first.
func Models() []any {
	return []any{
		&employeedomain.Employee{},
		&customerdomain.Customer{},
		&customerdomain.Vehicle{},
		&catalogdomain.ServiceItem{},
		&jobdomain.Job{},
		&jobdomain.Item{},
		&settingsdomain.Settings{},
		&expensedomain.Expense{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate creates the schema from the gorm models. It backs the mysql and
// sqlite dialects, which the embedded SQL does not target.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
