package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/config"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	employeedomain "github.com/smallbiznis/detailflow/internal/employee/domain"
	"github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/internal/lock"
	obscontext "github.com/smallbiznis/detailflow/internal/observability/context"
	"github.com/smallbiznis/detailflow/internal/observability/metrics"
	"github.com/smallbiznis/detailflow/internal/referral"
	settingsdomain "github.com/smallbiznis/detailflow/internal/settings/domain"
	"github.com/smallbiznis/detailflow/pkg/db"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	EmployeeRepo employeedomain.Repository
	SettingsSvc  settingsdomain.Service
	Defaults     *config.ReferralDefaultsHolder `optional:"true"`
	AuditSvc     auditdomain.Service            `optional:"true"`
	Locker       domain.Locker                  `optional:"true"`
	Metrics      *metrics.Metrics               `optional:"true"`
	Completion   *metrics.CompletionMetrics     `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	employeeRepo employeedomain.Repository
	settingsSvc  settingsdomain.Service
	defaults     *config.ReferralDefaultsHolder
	auditSvc     auditdomain.Service
	locker       domain.Locker
	metrics      *metrics.Metrics
	completion   *metrics.CompletionMetrics
	tracer       trace.Tracer
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("job.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		employeeRepo: p.EmployeeRepo,
		settingsSvc:  p.SettingsSvc,
		defaults:     p.Defaults,
		auditSvc:     p.AuditSvc,
		locker:       p.Locker,
		metrics:      p.Metrics,
		completion:   p.Completion,
		tracer:       otel.Tracer("detailflow/job"),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateJobRequest) (domain.Job, error) {
	customerID, err := parseID(req.CustomerID, domain.ErrInvalidCustomer)
	if err != nil {
		return domain.Job{}, err
	}
	vehicleID, err := parseID(req.VehicleID, domain.ErrInvalidVehicle)
	if err != nil {
		return domain.Job{}, err
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.Job{}, err
	}
	if customer == nil {
		return domain.Job{}, domain.ErrInvalidCustomer
	}
	vehicle, err := s.customerRepo.FindVehicleByID(ctx, s.db, vehicleID)
	if err != nil {
		return domain.Job{}, err
	}
	if vehicle == nil || vehicle.CustomerID != customerID {
		return domain.Job{}, domain.ErrInvalidVehicle
	}

	assigned, err := s.resolveEmployee(ctx, req.AssignedEmployeeID)
	if err != nil {
		return domain.Job{}, err
	}
	if req.CustomServiceCharge < 0 {
		return domain.Job{}, domain.ErrInvalidAmount
	}

	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return domain.Job{}, err
	}
	discount := settings.DefaultDiscount
	if req.Discount != nil {
		discount = *req.Discount
	}
	if discount < 0 {
		return domain.Job{}, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	job := domain.Job{
		ID:                       s.genID.Generate(),
		CustomerID:               customerID,
		VehicleID:                vehicleID,
		AssignedEmployeeID:       assigned,
		Status:                   domain.StatusPending,
		CustomServiceCharge:      req.CustomServiceCharge,
		CustomServiceDescription: strings.TrimSpace(req.CustomServiceDescription),
		Discount:                 discount,
		GSTEnabled:               req.GSTEnabled,
		GSTRateSnap:              settings.GSTRate,
		Notes:                    strings.TrimSpace(req.Notes),
		Images:                   datatypes.JSONSlice[string](cleanImages(req.Images)),
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if creator := s.actorEmployeeID(ctx); creator != nil {
		job.CreatedBy = creator
	}

	job.Items, err = s.buildItems(job.ID, req.Items)
	if err != nil {
		return domain.Job{}, err
	}
	job.TotalAmount = domain.ComputeTotals(job.Items, job.CustomServiceCharge, job.Discount, job.GSTEnabled, job.GSTRateSnap).Total

	if err := s.repo.Insert(ctx, s.db, &job); err != nil {
		if db.IsForeignKeyErr(err) {
			return domain.Job{}, domain.ErrInvalidVehicle
		}
		return domain.Job{}, err
	}

	s.audit(ctx, "job.create", job.ID, map[string]any{
		"customer_id":  job.CustomerID.String(),
		"total_amount": job.TotalAmount,
	})
	return job, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateJobRequest) (domain.Job, error) {
	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.Job{}, err
	}
	job, err := s.load(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if !job.Status.Open() {
		return domain.Job{}, domain.ErrNotEditable
	}

	if req.AssignedEmployeeID != nil {
		job.AssignedEmployeeID, err = s.resolveEmployee(ctx, *req.AssignedEmployeeID)
		if err != nil {
			return domain.Job{}, err
		}
	}
	if req.Items != nil {
		job.Items, err = s.buildItems(job.ID, *req.Items)
		if err != nil {
			return domain.Job{}, err
		}
	}
	if req.CustomServiceCharge != nil {
		if *req.CustomServiceCharge < 0 {
			return domain.Job{}, domain.ErrInvalidAmount
		}
		job.CustomServiceCharge = *req.CustomServiceCharge
	}
	if req.CustomServiceDescription != nil {
		job.CustomServiceDescription = strings.TrimSpace(*req.CustomServiceDescription)
	}
	if req.Discount != nil {
		if *req.Discount < 0 {
			return domain.Job{}, domain.ErrInvalidAmount
		}
		job.Discount = *req.Discount
	}
	if req.GSTEnabled != nil {
		job.GSTEnabled = *req.GSTEnabled
	}
	if req.Notes != nil {
		job.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Images != nil {
		job.Images = datatypes.JSONSlice[string](cleanImages(*req.Images))
	}

	job.TotalAmount = domain.ComputeTotals(job.Items, job.CustomServiceCharge, job.Discount, job.GSTEnabled, job.GSTRateSnap).Total
	job.UpdatedAt = s.clock.Now()

	updated, err := s.repo.UpdateDraft(ctx, s.db, job)
	if err != nil {
		return domain.Job{}, err
	}
	if !updated {
		return domain.Job{}, domain.ErrNotEditable
	}

	s.audit(ctx, "job.update", job.ID, map[string]any{"total_amount": job.TotalAmount})
	return *job, nil
}

func (s *Service) Start(ctx context.Context, rawID string) (domain.Job, error) {
	id, err := parseID(rawID, domain.ErrInvalidID)
	if err != nil {
		return domain.Job{}, err
	}
	now := s.clock.Now()
	if err := s.transition(ctx, id, []domain.Status{domain.StatusPending}, domain.StatusInProgress, map[string]any{
		"started_at": now,
		"updated_at": now,
	}); err != nil {
		return domain.Job{}, err
	}
	s.audit(ctx, "job.start", id, nil)

	job, err := s.load(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	return *job, nil
}

func (s *Service) Cancel(ctx context.Context, rawID string) (domain.Job, error) {
	id, err := parseID(rawID, domain.ErrInvalidID)
	if err != nil {
		return domain.Job{}, err
	}
	now := s.clock.Now()
	if err := s.transition(ctx, id, domain.OpenStatuses, domain.StatusCancelled, map[string]any{
		"cancelled_at": now,
		"updated_at":   now,
	}); err != nil {
		return domain.Job{}, err
	}
	s.audit(ctx, "job.cancel", id, nil)

	job, err := s.load(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	return *job, nil
}

func (s *Service) Complete(ctx context.Context, req domain.CompleteJobRequest) (domain.Job, error) {
	started := time.Now()

	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.Job{}, err
	}
	mode := domain.PaymentMode(strings.ToUpper(strings.TrimSpace(req.PaymentMode)))
	if !mode.Valid() {
		return domain.Job{}, domain.ErrInvalidPaymentMode
	}
	var requestPerformer *snowflake.ID
	if strings.TrimSpace(req.EmployeeID) != "" {
		performer, err := parseID(req.EmployeeID, domain.ErrInvalidEmployee)
		if err != nil {
			return domain.Job{}, err
		}
		requestPerformer = &performer
	}

	ctx, span := s.tracer.Start(ctx, "job.complete", trace.WithAttributes(attribute.String("job.id", id.String())))
	defer span.End()

	job, err := s.complete(ctx, id, mode, requestPerformer)
	outcome := metrics.CompletionOutcomeCompleted
	switch {
	case err == nil:
		span.SetAttributes(attribute.Int("referral.records", len(job.ReferralCommissions)))
	case errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrCompletionInProgress),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNotFound):
		outcome = metrics.CompletionOutcomeRejected
		s.metrics.RecordCompletionRejected(ctx, rejectionReason(err))
	default:
		outcome = metrics.CompletionOutcomeFailed
		s.completion.IncError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "job completion failed")
	}
	s.completion.ObserveCompletion(outcome, time.Since(started))

	if err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

func (s *Service) complete(ctx context.Context, id snowflake.ID, mode domain.PaymentMode, requestPerformer *snowflake.ID) (domain.Job, error) {
	log := s.log.With(zap.String("job_id", id.String()))

	if s.locker != nil {
		key := lock.JobCompletionKey(id.String())
		waitStart := time.Now()
		token, acquired, err := s.locker.TryLock(ctx, key, s.lockTTL())
		s.completion.ObserveLockWait(time.Since(waitStart))
		switch {
		case err != nil:
			// the conditional update below still rejects a second writer
			log.Warn("completion lock unavailable", zap.Error(err))
		case !acquired:
			return domain.Job{}, domain.ErrCompletionInProgress
		default:
			defer func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
					log.Warn("completion lock release failed", zap.Error(err))
				}
			}()
		}
	}

	job, err := s.load(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	switch job.Status {
	case domain.StatusCompleted:
		return domain.Job{}, domain.ErrAlreadyCompleted
	case domain.StatusCancelled:
		return domain.Job{}, domain.ErrInvalidTransition
	}

	performer := job.AssignedEmployeeID
	if performer == nil {
		performer = requestPerformer
	}

	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return domain.Job{}, fmt.Errorf("%w: %w", domain.ErrReferralDataUnavailable, err)
	}
	graph, err := referral.LoadGraph(ctx, referral.NewRepositorySource(s.db, s.customerRepo, s.employeeRepo), job.CustomerID, performer)
	if err != nil {
		return domain.Job{}, fmt.Errorf("%w: %w", domain.ErrReferralDataUnavailable, err)
	}

	snapshot := referral.BuildSnapshot(graph, referral.Input{
		CustomerID:  job.CustomerID,
		PerformerID: performer,
		TotalAmount: job.TotalAmount,
		LaborTotal:  job.LaborTotal(),
	}, settings.Rates())

	now := s.clock.Now()
	completion := domain.Completion{
		PaymentMode:         mode,
		PerformerID:         performer,
		CompletedAt:         now,
		ReferralCommissions: snapshot,
	}

	written := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.Complete(ctx, tx, id, completion)
		if err != nil || !ok {
			return err
		}
		written = true
		return s.customerRepo.MarkVehicleServiced(ctx, tx, job.VehicleID, now)
	})
	if err != nil {
		return domain.Job{}, fmt.Errorf("%w: %w", domain.ErrPersistCompletion, err)
	}
	if !written {
		return domain.Job{}, domain.ErrAlreadyCompleted
	}

	job.Status = domain.StatusCompleted
	job.PaymentMode = &mode
	job.AssignedEmployeeID = performer
	job.CompletedAt = &now
	job.UpdatedAt = now
	job.ReferralCommissions = snapshot

	s.metrics.RecordJobCompleted(ctx, string(mode))
	for _, c := range snapshot {
		s.metrics.RecordReferralCommission(ctx, string(c.Type()), c.LevelLabel(), c.Payout())
	}
	s.completion.ObserveChainLength(snapshot.TierCount())

	s.audit(ctx, "job.complete", id, map[string]any{
		"payment_mode":     string(mode),
		"total_amount":     job.TotalAmount,
		"referral_records": len(snapshot),
		"referral_payout":  snapshot.Total(),
	})
	log.Info("job completed",
		zap.String("payment_mode", string(mode)),
		zap.Int64("total_amount", job.TotalAmount),
		zap.Int("referral_records", len(snapshot)),
		zap.Int64("referral_payout", snapshot.Total()),
	)
	return *job, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Job, error) {
	id, err := parseID(rawID, domain.ErrInvalidID)
	if err != nil {
		return domain.Job{}, err
	}
	job, err := s.load(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	return *job, nil
}

func (s *Service) List(ctx context.Context, req domain.ListJobRequest) (domain.ListJobResponse, error) {
	filter := domain.ListJobFilter{}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		filter.Status = domain.Status(status)
		if !filter.Status.Valid() {
			return domain.ListJobResponse{}, domain.ErrInvalidStatus
		}
	}
	if strings.TrimSpace(req.CustomerID) != "" {
		id, err := parseID(req.CustomerID, domain.ErrInvalidCustomer)
		if err != nil {
			return domain.ListJobResponse{}, err
		}
		filter.CustomerID = &id
	}
	if strings.TrimSpace(req.EmployeeID) != "" {
		id, err := parseID(req.EmployeeID, domain.ErrInvalidEmployee)
		if err != nil {
			return domain.ListJobResponse{}, err
		}
		filter.EmployeeID = &id
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		if _, err := pagination.DecodeCursor(token); err != nil {
			return domain.ListJobResponse{}, domain.ErrInvalidPageToken
		}
	}

	pageSize := pagination.Size(req.PageSize)
	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{PageToken: req.PageToken, PageSize: pageSize})
	if err != nil {
		return domain.ListJobResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(job *domain.Job) string {
		return pagination.TokenFor(job.ID.String(), job.CreatedAt)
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	jobs := make([]domain.Job, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		jobs = append(jobs, *item)
	}

	resp := domain.ListJobResponse{Jobs: jobs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*domain.Job, error) {
	job, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (s *Service) transition(ctx context.Context, id snowflake.ID, from []domain.Status, to domain.Status, fields map[string]any) error {
	ok, err := s.repo.Transition(ctx, s.db, id, from, to, fields)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

func (s *Service) resolveEmployee(ctx context.Context, raw string) (*snowflake.ID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(raw, domain.ErrInvalidEmployee)
	if err != nil {
		return nil, err
	}
	employee, err := s.employeeRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, domain.ErrInvalidEmployee
	}
	return &id, nil
}

func (s *Service) buildItems(jobID snowflake.ID, inputs []domain.ItemInput) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(inputs))
	for _, input := range inputs {
		name := strings.TrimSpace(input.ServiceName)
		if name == "" {
			continue
		}
		if input.Price < 0 {
			return nil, domain.ErrInvalidItem
		}
		items = append(items, domain.Item{
			ID:          s.genID.Generate(),
			JobID:       jobID,
			Position:    len(items),
			ServiceName: name,
			PriceAtTime: input.Price,
		})
	}
	return items, nil
}

func (s *Service) actorEmployeeID(ctx context.Context) *snowflake.ID {
	_, actorID := obscontext.ActorFromContext(ctx)
	if actorID == "" {
		return nil
	}
	id, err := snowflake.ParseString(actorID)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}

func (s *Service) lockTTL() time.Duration {
	return s.defaults.Get().CompletionLock
}

func (s *Service) audit(ctx context.Context, action string, id snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := id.String()
	if err := s.auditSvc.AuditLog(ctx, action, auditdomain.TargetJob, &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, domain.ErrCompletionInProgress):
		return "in_progress"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "invalid_transition"
	}
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, image := range images {
		if trimmed := strings.TrimSpace(image); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
