package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/internal/clock"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	employeedomain "github.com/smallbiznis/detailflow/internal/employee/domain"
	expensedomain "github.com/smallbiznis/detailflow/internal/expense/domain"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/internal/referral"
	"github.com/smallbiznis/detailflow/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultRangeDays = 30

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	JobRepo      jobdomain.Repository
	CustomerRepo customerdomain.Repository
	EmployeeRepo employeedomain.Repository
	ExpenseSvc   expensedomain.Service
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	jobRepo      jobdomain.Repository
	customerRepo customerdomain.Repository
	employeeRepo employeedomain.Repository
	expenseSvc   expensedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("report.service"),
		clock:        p.Clock,
		jobRepo:      p.JobRepo,
		customerRepo: p.CustomerRepo,
		employeeRepo: p.EmployeeRepo,
		expenseSvc:   p.ExpenseSvc,
	}
}

func (s *Service) Summary(ctx context.Context, req domain.RangeRequest) (domain.SummaryResponse, error) {
	start, end, err := s.normalizeRange(req)
	if err != nil {
		return domain.SummaryResponse{}, err
	}
	jobs, err := s.jobRepo.ListCompleted(ctx, s.db, start, end)
	if err != nil {
		return domain.SummaryResponse{}, err
	}
	employees, err := s.employeesByID(ctx)
	if err != nil {
		return domain.SummaryResponse{}, err
	}
	expenses, err := s.expenseSvc.Total(ctx, start, end)
	if err != nil {
		return domain.SummaryResponse{}, err
	}

	resp := domain.SummaryResponse{
		Start:         start,
		End:           end,
		JobsCompleted: len(jobs),
		Expenses:      expenses,
		ByPaymentMode: map[string]int64{},
	}

	revenueByEmployee := map[snowflake.ID]int64{}
	revenueByDay := map[string]int64{}
	for _, job := range jobs {
		resp.Revenue += job.TotalAmount
		resp.ReferralCommissions += job.ReferralCommissions.Total()
		if job.PaymentMode != nil {
			resp.ByPaymentMode[string(*job.PaymentMode)] += job.TotalAmount
		}
		if job.AssignedEmployeeID != nil {
			revenueByEmployee[*job.AssignedEmployeeID] += job.ServiceRevenue()
		}
		if job.CompletedAt != nil {
			revenueByDay[job.CompletedAt.UTC().Format(time.DateOnly)] += job.TotalAmount
		}
	}
	for id, revenue := range revenueByEmployee {
		if employee, ok := employees[id]; ok {
			resp.LaborCommissions += referral.PercentOf(revenue, employee.CommissionRate)
		}
	}
	resp.NetProfit = resp.Revenue - resp.Expenses - resp.LaborCommissions - resp.ReferralCommissions
	resp.Series = toSeries(revenueByDay)

	return resp, nil
}

func (s *Service) Payouts(ctx context.Context, req domain.RangeRequest) ([]domain.Payout, error) {
	start, end, err := s.normalizeRange(req)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobRepo.ListCompleted(ctx, s.db, start, end)
	if err != nil {
		return nil, err
	}

	payouts := map[referral.Beneficiary]*domain.Payout{}
	var customerIDs []snowflake.ID
	for _, job := range jobs {
		for _, c := range job.ReferralCommissions {
			b := c.Beneficiary()
			p, ok := payouts[b]
			if !ok {
				p = &domain.Payout{BeneficiaryKind: string(b.Kind), BeneficiaryID: b.ID.String()}
				payouts[b] = p
				if b.Kind == referral.BeneficiaryCustomer {
					customerIDs = append(customerIDs, b.ID)
				}
			}
			p.Records++
			p.Total += c.Payout()
			switch c.Type() {
			case referral.TypeCustomerReferral:
				p.CustomerReferral += c.Payout()
			case referral.TypeStaffAcquisition:
				p.StaffAcquisition += c.Payout()
			case referral.TypeRecruitmentReward:
				p.RecruitmentReward += c.Payout()
			}
		}
	}

	employees, err := s.employeesByID(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := s.customerRepo.FindByIDs(ctx, s.db, customerIDs)
	if err != nil {
		return nil, err
	}
	customerNames := make(map[snowflake.ID]string, len(customers))
	for _, c := range customers {
		if c != nil {
			customerNames[c.ID] = c.Name
		}
	}

	out := make([]domain.Payout, 0, len(payouts))
	for b, p := range payouts {
		switch b.Kind {
		case referral.BeneficiaryCustomer:
			p.Name = customerNames[b.ID]
		case referral.BeneficiaryEmployee:
			p.Name = employees[b.ID].Name
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		if out[i].BeneficiaryKind != out[j].BeneficiaryKind {
			return out[i].BeneficiaryKind < out[j].BeneficiaryKind
		}
		return out[i].BeneficiaryID < out[j].BeneficiaryID
	})
	return out, nil
}

func (s *Service) StaffPerformance(ctx context.Context, req domain.RangeRequest) ([]domain.StaffPerformance, error) {
	start, end, err := s.normalizeRange(req)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobRepo.ListCompleted(ctx, s.db, start, end)
	if err != nil {
		return nil, err
	}
	employees, err := s.employeeRepo.List(ctx, s.db, employeedomain.ListEmployeeFilter{})
	if err != nil {
		return nil, err
	}

	type tally struct {
		jobs  int
		labor int64
	}
	tallies := map[snowflake.ID]*tally{}
	for _, job := range jobs {
		if job.AssignedEmployeeID == nil {
			continue
		}
		t, ok := tallies[*job.AssignedEmployeeID]
		if !ok {
			t = &tally{}
			tallies[*job.AssignedEmployeeID] = t
		}
		t.jobs++
		t.labor += job.LaborTotal()
	}

	out := make([]domain.StaffPerformance, 0, len(employees))
	for _, employee := range employees {
		if employee == nil {
			continue
		}
		row := domain.StaffPerformance{
			EmployeeID:     employee.ID.String(),
			Name:           employee.Name,
			Role:           string(employee.Role),
			CommissionRate: employee.CommissionRate,
		}
		if t, ok := tallies[employee.ID]; ok {
			row.JobsCompleted = t.jobs
			row.LaborRevenue = t.labor
			row.Commission = referral.PercentOf(t.labor, employee.CommissionRate)
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LaborRevenue > out[j].LaborRevenue
	})
	return out, nil
}

func (s *Service) employeesByID(ctx context.Context) (map[snowflake.ID]employeedomain.Employee, error) {
	items, err := s.employeeRepo.List(ctx, s.db, employeedomain.ListEmployeeFilter{})
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]employeedomain.Employee, len(items))
	for _, item := range items {
		if item != nil {
			out[item.ID] = *item
		}
	}
	return out, nil
}

func (s *Service) normalizeRange(req domain.RangeRequest) (time.Time, time.Time, error) {
	start, end := req.Start, req.End
	if end.IsZero() {
		end = truncateToDay(s.clock.Now()).AddDate(0, 0, 1)
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -defaultRangeDays)
	}
	start, end = start.UTC(), end.UTC()
	if !start.Before(end) {
		return time.Time{}, time.Time{}, domain.ErrInvalidRange
	}
	return start, end, nil
}

func toSeries(byPeriod map[string]int64) []domain.SeriesPoint {
	series := make([]domain.SeriesPoint, 0, len(byPeriod))
	for period, value := range byPeriod {
		series = append(series, domain.SeriesPoint{Period: period, Value: value})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Period < series[j].Period })
	return series
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
