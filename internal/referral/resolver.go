package referral

import (
	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
)

// LinkKind distinguishes customer ancestors from a referring employee.
type LinkKind string

const (
	LinkCustomer LinkKind = "CUSTOMER"
	LinkEmployee LinkKind = "EMPLOYEE"
)

// Link is one resolved ancestor. Level starts at 1 for the direct referrer.
type Link struct {
	Level int
	Kind  LinkKind
	ID    snowflake.ID
}

type parentRef struct {
	kind LinkKind
	id   snowflake.ID
}

func parentOf(c customerdomain.Customer) *parentRef {
	if c.ReferredByCustomerID != nil {
		return &parentRef{kind: LinkCustomer, id: *c.ReferredByCustomerID}
	}
	if c.ReferringEmployeeID != nil {
		return &parentRef{kind: LinkEmployee, id: *c.ReferringEmployeeID}
	}
	return nil
}

// ResolveChain walks up from customerID's referrer for at most MaxDepth steps.
// A customer link continues the walk; an employee link ends it. A reference
// that is not in the graph truncates the chain without a record.
func (g *Graph) ResolveChain(customerID snowflake.ID) []Link {
	start, ok := g.Customer(customerID)
	if !ok {
		return nil
	}

	var links []Link
	next := parentOf(start)
	for i := 0; i < MaxDepth && next != nil; i++ {
		switch next.kind {
		case LinkCustomer:
			c, ok := g.Customer(next.id)
			if !ok {
				return links
			}
			links = append(links, Link{Level: i + 1, Kind: LinkCustomer, ID: c.ID})
			next = parentOf(c)
		case LinkEmployee:
			if _, ok := g.Employee(next.id); !ok {
				return links
			}
			links = append(links, Link{Level: i + 1, Kind: LinkEmployee, ID: next.id})
			return links
		}
	}
	return links
}
