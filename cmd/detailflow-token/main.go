// Command detailflow-token prints a bearer token for an employee. With
// -bootstrap it first creates an ADMIN employee when the roster is empty.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/internal/auth"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/smallbiznis/detailflow/internal/employee"
	employeedomain "github.com/smallbiznis/detailflow/internal/employee/domain"
	"github.com/smallbiznis/detailflow/internal/migration"
	"github.com/smallbiznis/detailflow/internal/observability"
	"github.com/smallbiznis/detailflow/pkg/db"
	"go.uber.org/fx"
)

type options struct {
	employeeID string
	bootstrap  bool
	name       string
	phone      string
}

func main() {
	var opts options
	flag.StringVar(&opts.employeeID, "employee", "", "employee id to issue the token for")
	flag.BoolVar(&opts.bootstrap, "bootstrap", false, "create an ADMIN employee when none exist")
	flag.StringVar(&opts.name, "name", "Owner", "name of the bootstrap admin")
	flag.StringVar(&opts.phone, "phone", "", "phone of the bootstrap admin")
	flag.Parse()

	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		employee.Module,
		fx.Provide(auth.NewVerifier),
		fx.Supply(opts),
		fx.Invoke(issue),
	)
	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}

func issue(opts options, verifier *auth.Verifier, employees employeedomain.Service) error {
	ctx := context.Background()

	var target employeedomain.Employee
	switch {
	case strings.TrimSpace(opts.employeeID) != "":
		found, err := employees.GetByID(ctx, opts.employeeID)
		if err != nil {
			return fmt.Errorf("load employee: %w", err)
		}
		target = found
	case opts.bootstrap:
		existing, err := employees.List(ctx, employeedomain.ListEmployeeFilter{})
		if err != nil {
			return fmt.Errorf("list employees: %w", err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("bootstrap refused: %d employees already exist, pass -employee", len(existing))
		}
		created, err := employees.Create(ctx, employeedomain.CreateEmployeeRequest{
			Name:  opts.name,
			Role:  string(employeedomain.RoleAdmin),
			Phone: opts.phone,
		})
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		fmt.Fprintf(os.Stderr, "created admin employee %s\n", created.ID)
		target = created
	default:
		return fmt.Errorf("pass -employee <id> or -bootstrap")
	}

	token, err := verifier.Issue(auth.Actor{EmployeeID: target.ID, Role: string(target.Role)})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
