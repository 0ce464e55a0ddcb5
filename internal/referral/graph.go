package referral

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	employeedomain "github.com/smallbiznis/detailflow/internal/employee/domain"
)

// MaxDepth bounds the referral chain walk.
const MaxDepth = 3

// Graph is an id-indexed arena of the customers and employees that take part
// in a referral computation.
type Graph struct {
	customers map[snowflake.ID]customerdomain.Customer
	employees map[snowflake.ID]employeedomain.Employee
}

func NewGraph(customers []customerdomain.Customer, employees []employeedomain.Employee) *Graph {
	g := &Graph{
		customers: make(map[snowflake.ID]customerdomain.Customer, len(customers)),
		employees: make(map[snowflake.ID]employeedomain.Employee, len(employees)),
	}
	for _, c := range customers {
		g.customers[c.ID] = c
	}
	for _, e := range employees {
		g.employees[e.ID] = e
	}
	return g
}

func (g *Graph) Customer(id snowflake.ID) (customerdomain.Customer, bool) {
	if g == nil {
		return customerdomain.Customer{}, false
	}
	c, ok := g.customers[id]
	return c, ok
}

func (g *Graph) Employee(id snowflake.ID) (employeedomain.Employee, bool) {
	if g == nil {
		return employeedomain.Employee{}, false
	}
	e, ok := g.employees[id]
	return e, ok
}

// Source reads referral participants. A missing row is (nil, nil).
type Source interface {
	Customer(ctx context.Context, id snowflake.ID) (*customerdomain.Customer, error)
	Employee(ctx context.Context, id snowflake.ID) (*employeedomain.Employee, error)
}

// LoadGraph fetches everything a snapshot for customerID and performerID can
// touch: the customer, up to MaxDepth ancestors, a terminal referring employee,
// the performer and the performer's recruiter. Read errors are returned as is;
// missing rows are simply left out of the graph.
func LoadGraph(ctx context.Context, src Source, customerID snowflake.ID, performerID *snowflake.ID) (*Graph, error) {
	g := NewGraph(nil, nil)

	loadCustomer := func(id snowflake.ID) (*customerdomain.Customer, error) {
		if c, ok := g.customers[id]; ok {
			return &c, nil
		}
		c, err := src.Customer(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load customer %s: %w", id, err)
		}
		if c != nil {
			g.customers[c.ID] = *c
		}
		return c, nil
	}
	loadEmployee := func(id snowflake.ID) (*employeedomain.Employee, error) {
		if e, ok := g.employees[id]; ok {
			return &e, nil
		}
		e, err := src.Employee(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load employee %s: %w", id, err)
		}
		if e != nil {
			g.employees[e.ID] = *e
		}
		return e, nil
	}

	current, err := loadCustomer(customerID)
	if err != nil {
		return nil, err
	}
	for depth := 0; current != nil && depth < MaxDepth; depth++ {
		switch {
		case current.ReferredByCustomerID != nil:
			current, err = loadCustomer(*current.ReferredByCustomerID)
			if err != nil {
				return nil, err
			}
		case current.ReferringEmployeeID != nil:
			if _, err := loadEmployee(*current.ReferringEmployeeID); err != nil {
				return nil, err
			}
			current = nil
		default:
			current = nil
		}
	}

	if performerID != nil {
		performer, err := loadEmployee(*performerID)
		if err != nil {
			return nil, err
		}
		if performer != nil && performer.ReferredByEmployeeID != nil {
			if _, err := loadEmployee(*performer.ReferredByEmployeeID); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}
