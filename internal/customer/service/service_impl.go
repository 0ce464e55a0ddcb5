package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/customer/domain"
	employeedomain "github.com/smallbiznis/detailflow/internal/employee/domain"
	obscontext "github.com/smallbiznis/detailflow/internal/observability/context"
	"github.com/smallbiznis/detailflow/internal/referral"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	EmployeeRepo employeedomain.Repository
	AuditSvc     auditdomain.Service `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	employeeRepo employeedomain.Repository
	auditSvc     auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("customer.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		employeeRepo: p.EmployeeRepo,
		auditSvc:     p.AuditSvc,
	}
}

// maxAncestry bounds the cycle check walk over stored referral links.
const maxAncestry = 10000

type parent struct {
	customerID *snowflake.ID
	employeeID *snowflake.ID
}

func (s *Service) Onboard(ctx context.Context, req domain.OnboardRequest) (domain.OnboardResponse, error) {
	name, mobile, email, err := validateContact(req.Name, req.Mobile, req.Email)
	if err != nil {
		return domain.OnboardResponse{}, err
	}
	ref, err := s.resolveReferral(ctx, s.db, req.Referral)
	if err != nil {
		return domain.OnboardResponse{}, err
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:                   s.genID.Generate(),
		Name:                 name,
		Mobile:               mobile,
		Email:                email,
		Notes:                strings.TrimSpace(req.Notes),
		ReferredByCustomerID: ref.customerID,
		ReferringEmployeeID:  ref.employeeID,
		CreatedBy:            actorEmployeeID(ctx),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	vehicle, err := s.buildVehicle(customer.ID, req.Vehicle, now)
	if err != nil {
		return domain.OnboardResponse{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &customer); err != nil {
			return err
		}
		return s.repo.InsertVehicle(ctx, tx, &vehicle)
	})
	if err != nil {
		return domain.OnboardResponse{}, err
	}

	s.audit(ctx, "customer.create", auditdomain.TargetCustomer, customer.ID, map[string]any{
		"name":            customer.Name,
		"mobile":          customer.Mobile,
		"referral_source": string(customer.ReferralSource()),
	})
	s.audit(ctx, "vehicle.create", auditdomain.TargetVehicle, vehicle.ID, map[string]any{
		"customer_id": customer.ID.String(),
		"reg_number":  vehicle.RegNumber,
	})
	return domain.OnboardResponse{Customer: customer, Vehicle: vehicle}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.Customer{}, err
	}

	// The customer and every ancestor walked by the cycle check stay locked
	// until the write commits, so two crossing re-parents cannot both pass.
	var customer *domain.Customer
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		customer, err = s.repo.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrNotFound
		}

		name, mobile, email := customer.Name, customer.Mobile, customer.Email
		if req.Name != nil {
			name = *req.Name
		}
		if req.Mobile != nil {
			mobile = *req.Mobile
		}
		if req.Email != nil {
			email = *req.Email
		}
		customer.Name, customer.Mobile, customer.Email, err = validateContact(name, mobile, email)
		if err != nil {
			return err
		}
		if req.Notes != nil {
			customer.Notes = strings.TrimSpace(*req.Notes)
		}

		if req.Referral != nil {
			ref, err := s.resolveReferral(ctx, tx, *req.Referral)
			if err != nil {
				return err
			}
			if ref.customerID != nil {
				if *ref.customerID == customer.ID {
					return domain.ErrSelfReferral
				}
				cycle, err := s.reachesAncestor(ctx, tx, *ref.customerID, customer.ID)
				if err != nil {
					return err
				}
				if cycle {
					return domain.ErrReferralCycle
				}
			}
			customer.ReferredByCustomerID = ref.customerID
			customer.ReferringEmployeeID = ref.employeeID
		}

		customer.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, customer)
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.audit(ctx, "customer.update", auditdomain.TargetCustomer, customer.ID, map[string]any{
		"name":            customer.Name,
		"mobile":          customer.Mobile,
		"referral_source": string(customer.ReferralSource()),
	})
	return *customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	filter := domain.ListCustomerFilter{
		Name:   strings.TrimSpace(req.Name),
		Mobile: strings.TrimSpace(req.Mobile),
	}

	pageSize := pagination.Size(req.PageSize)
	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(customer *domain.Customer) string {
		return pagination.TokenFor(customer.ID.String(), customer.CreatedAt)
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	resp := domain.ListCustomerResponse{Customers: customers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Customer, error) {
	id, err := parseID(rawID, domain.ErrInvalidID)
	if err != nil {
		return domain.Customer{}, err
	}
	customer, err := s.load(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) AddVehicle(ctx context.Context, req domain.AddVehicleRequest) (domain.Vehicle, error) {
	id, err := parseID(req.CustomerID, domain.ErrInvalidID)
	if err != nil {
		return domain.Vehicle{}, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return domain.Vehicle{}, err
	}

	vehicle, err := s.buildVehicle(id, req.Vehicle, s.clock.Now())
	if err != nil {
		return domain.Vehicle{}, err
	}
	if err := s.repo.InsertVehicle(ctx, s.db, &vehicle); err != nil {
		return domain.Vehicle{}, err
	}

	s.audit(ctx, "vehicle.create", auditdomain.TargetVehicle, vehicle.ID, map[string]any{
		"customer_id": id.String(),
		"reg_number":  vehicle.RegNumber,
	})
	return vehicle, nil
}

func (s *Service) ListVehicles(ctx context.Context, rawID string) ([]domain.Vehicle, error) {
	id, err := parseID(rawID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	items, err := s.repo.ListVehicles(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	vehicles := make([]domain.Vehicle, 0, len(items))
	for _, item := range items {
		if item != nil {
			vehicles = append(vehicles, *item)
		}
	}
	return vehicles, nil
}

// ReferralChain previews who would be paid for a job of this customer.
func (s *Service) ReferralChain(ctx context.Context, rawID string) ([]domain.ChainEntry, error) {
	id, err := parseID(rawID, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	graph, err := referral.LoadGraph(ctx, referral.NewRepositorySource(s.db, s.repo, s.employeeRepo), id, nil)
	if err != nil {
		return nil, err
	}
	if _, ok := graph.Customer(id); !ok {
		return nil, domain.ErrNotFound
	}

	links := graph.ResolveChain(id)
	entries := make([]domain.ChainEntry, 0, len(links))
	for _, link := range links {
		entry := domain.ChainEntry{Level: link.Level, Kind: string(link.Kind), ID: link.ID}
		switch link.Kind {
		case referral.LinkCustomer:
			if c, ok := graph.Customer(link.ID); ok {
				entry.Name = c.Name
			}
		case referral.LinkEmployee:
			if e, ok := graph.Employee(link.ID); ok {
				entry.Name = e.Name
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*domain.Customer, error) {
	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	return customer, nil
}

func (s *Service) resolveReferral(ctx context.Context, db *gorm.DB, ref domain.Referral) (parent, error) {
	customerRaw := strings.TrimSpace(ref.CustomerID)
	employeeRaw := strings.TrimSpace(ref.EmployeeID)
	if customerRaw != "" && employeeRaw != "" {
		return parent{}, domain.ErrMultipleReferrers
	}

	source := domain.ReferralSource(strings.ToUpper(strings.TrimSpace(string(ref.Source))))
	if source == "" {
		switch {
		case customerRaw != "":
			source = domain.ReferralSourceCustomer
		case employeeRaw != "":
			source = domain.ReferralSourceStaff
		default:
			source = domain.ReferralSourceNone
		}
	}

	switch source {
	case domain.ReferralSourceNone:
		if customerRaw != "" || employeeRaw != "" {
			return parent{}, domain.ErrInvalidReferral
		}
		return parent{}, nil
	case domain.ReferralSourceCustomer:
		if employeeRaw != "" {
			return parent{}, domain.ErrInvalidReferral
		}
		id, err := parseID(customerRaw, domain.ErrInvalidReferral)
		if err != nil {
			return parent{}, err
		}
		found, err := s.repo.FindByID(ctx, db, id)
		if err != nil {
			return parent{}, err
		}
		if found == nil {
			return parent{}, domain.ErrReferrerNotFound
		}
		return parent{customerID: &id}, nil
	case domain.ReferralSourceStaff:
		if customerRaw != "" {
			return parent{}, domain.ErrInvalidReferral
		}
		id, err := parseID(employeeRaw, domain.ErrInvalidReferral)
		if err != nil {
			return parent{}, err
		}
		found, err := s.employeeRepo.FindByID(ctx, db, id)
		if err != nil {
			return parent{}, err
		}
		if found == nil {
			return parent{}, domain.ErrReferrerNotFound
		}
		return parent{employeeID: &id}, nil
	default:
		return parent{}, domain.ErrInvalidReferral
	}
}

// reachesAncestor reports whether target is start or one of start's
// customer ancestors. Each visited row is locked through db.
func (s *Service) reachesAncestor(ctx context.Context, db *gorm.DB, start, target snowflake.ID) (bool, error) {
	seen := make(map[snowflake.ID]struct{})
	current := start
	for range maxAncestry {
		if current == target {
			return true, nil
		}
		if _, ok := seen[current]; ok {
			return false, nil
		}
		seen[current] = struct{}{}

		c, err := s.repo.LockByID(ctx, db, current)
		if err != nil {
			return false, err
		}
		if c == nil || c.ReferredByCustomerID == nil {
			return false, nil
		}
		current = *c.ReferredByCustomerID
	}
	return false, nil
}

func (s *Service) buildVehicle(customerID snowflake.ID, input domain.VehicleInput, now time.Time) (domain.Vehicle, error) {
	reg := domain.NormalizeRegNumber(input.RegNumber)
	if reg == "" {
		return domain.Vehicle{}, domain.ErrInvalidRegNumber
	}
	model := strings.TrimSpace(input.Model)
	if model == "" {
		return domain.Vehicle{}, domain.ErrInvalidModel
	}
	fuel := domain.FuelType(strings.ToUpper(strings.TrimSpace(input.FuelType)))
	if fuel == "" {
		fuel = domain.FuelPetrol
	}
	if !fuel.Valid() {
		return domain.Vehicle{}, domain.ErrInvalidFuelType
	}

	vehicle := domain.Vehicle{
		ID:         s.genID.Generate(),
		CustomerID: customerID,
		RegNumber:  reg,
		Model:      model,
		Color:      strings.TrimSpace(input.Color),
		FuelType:   fuel,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if due := strings.TrimSpace(input.NextServiceDue); due != "" {
		parsed, err := time.Parse(time.DateOnly, due)
		if err != nil {
			return domain.Vehicle{}, domain.ErrInvalidServiceDue
		}
		vehicle.NextServiceDue = &parsed
	}
	return vehicle, nil
}

func (s *Service) audit(ctx context.Context, action, targetType string, id snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := id.String()
	if err := s.auditSvc.AuditLog(ctx, action, targetType, &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func validateContact(name, mobile, email string) (string, string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", "", domain.ErrInvalidName
	}
	mobile, ok := domain.NormalizeMobile(mobile)
	if !ok {
		return "", "", "", domain.ErrInvalidMobile
	}
	email = strings.TrimSpace(email)
	if email != "" && !strings.Contains(email, "@") {
		return "", "", "", domain.ErrInvalidEmail
	}
	return name, mobile, email, nil
}

func actorEmployeeID(ctx context.Context) *snowflake.ID {
	_, actorID := obscontext.ActorFromContext(ctx)
	id, err := snowflake.ParseString(actorID)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
