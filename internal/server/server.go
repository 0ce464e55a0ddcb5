package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/detailflow/internal/audit"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	"github.com/smallbiznis/detailflow/internal/auth"
	"github.com/smallbiznis/detailflow/internal/authorization"
	"github.com/smallbiznis/detailflow/internal/cache"
	"github.com/smallbiznis/detailflow/internal/catalog"
	catalogdomain "github.com/smallbiznis/detailflow/internal/catalog/domain"
	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/smallbiznis/detailflow/internal/customer"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	"github.com/smallbiznis/detailflow/internal/employee"
	employeedomain "github.com/smallbiznis/detailflow/internal/employee/domain"
	"github.com/smallbiznis/detailflow/internal/expense"
	expensedomain "github.com/smallbiznis/detailflow/internal/expense/domain"
	"github.com/smallbiznis/detailflow/internal/job"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/internal/lock"
	"github.com/smallbiznis/detailflow/internal/observability"
	obsmiddleware "github.com/smallbiznis/detailflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/detailflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/detailflow/internal/observability/tracing"
	"github.com/smallbiznis/detailflow/internal/ratelimit"
	"github.com/smallbiznis/detailflow/internal/report"
	reportdomain "github.com/smallbiznis/detailflow/internal/report/domain"
	"github.com/smallbiznis/detailflow/internal/settings"
	settingsdomain "github.com/smallbiznis/detailflow/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	cache.Module,
	lock.Module,
	ratelimit.Module,
	settings.Module,
	customer.Module,
	employee.Module,
	catalog.Module,
	job.Module,
	expense.Module,
	report.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(SetupCORS(cfg))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, cfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	verifier    *auth.Verifier
	authzSvc    authorization.Service
	auditSvc    auditdomain.Service
	customerSvc customerdomain.Service
	employeeSvc employeedomain.Service
	catalogSvc  catalogdomain.Service
	jobSvc      jobdomain.Service
	settingsSvc settingsdomain.Service
	expenseSvc  expensedomain.Service
	reportSvc   reportdomain.Service
	limiter     *ratelimit.APILimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Verifier    *auth.Verifier
	AuthzSvc    authorization.Service
	AuditSvc    auditdomain.Service
	CustomerSvc customerdomain.Service
	EmployeeSvc employeedomain.Service
	CatalogSvc  catalogdomain.Service
	JobSvc      jobdomain.Service
	SettingsSvc settingsdomain.Service
	ExpenseSvc  expensedomain.Service
	ReportSvc   reportdomain.Service
	Limiter     *ratelimit.APILimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		verifier:    p.Verifier,
		authzSvc:    p.AuthzSvc,
		auditSvc:    p.AuditSvc,
		customerSvc: p.CustomerSvc,
		employeeSvc: p.EmployeeSvc,
		catalogSvc:  p.CatalogSvc,
		jobSvc:      p.JobSvc,
		settingsSvc: p.SettingsSvc,
		expenseSvc:  p.ExpenseSvc,
		reportSvc:   p.ReportSvc,
		limiter:     p.Limiter,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired(), s.RateLimit())

	// -------- Customers --------
	api.POST("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionCreate), s.OnboardCustomer)
	api.GET("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.ListCustomers)
	api.GET("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.GetCustomerByID)
	api.PATCH("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionUpdate), s.UpdateCustomer)
	api.POST("/customers/:id/vehicles", s.authorize(authorization.ObjectCustomer, authorization.ActionUpdate), s.AddVehicle)
	api.GET("/customers/:id/vehicles", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.ListVehicles)
	api.GET("/customers/:id/referral-chain", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.GetReferralChain)

	// -------- Employees --------
	api.POST("/employees", s.authorize(authorization.ObjectEmployee, authorization.ActionCreate), s.CreateEmployee)
	api.GET("/employees", s.authorize(authorization.ObjectEmployee, authorization.ActionView), s.ListEmployees)
	api.GET("/employees/:id", s.authorize(authorization.ObjectEmployee, authorization.ActionView), s.GetEmployeeByID)
	api.PATCH("/employees/:id/recruiter", s.authorize(authorization.ObjectEmployee, authorization.ActionUpdate), s.UpdateEmployeeRecruiter)
	api.DELETE("/employees/:id", s.authorize(authorization.ObjectEmployee, authorization.ActionDelete), s.DeleteEmployee)
	api.GET("/employees/:id/performance", s.authorize(authorization.ObjectReport, authorization.ActionView), s.GetEmployeePerformance)

	// -------- Service catalog --------
	api.POST("/services", s.authorize(authorization.ObjectCatalog, authorization.ActionCreate), s.CreateServiceItem)
	api.GET("/services", s.authorize(authorization.ObjectCatalog, authorization.ActionView), s.ListServiceItems)
	api.DELETE("/services/:id", s.authorize(authorization.ObjectCatalog, authorization.ActionDelete), s.DeleteServiceItem)

	// -------- Jobs --------
	api.POST("/jobs", s.authorize(authorization.ObjectJob, authorization.ActionCreate), s.CreateJob)
	api.GET("/jobs", s.authorize(authorization.ObjectJob, authorization.ActionView), s.ListJobs)
	api.GET("/jobs/:id", s.authorize(authorization.ObjectJob, authorization.ActionView), s.GetJobByID)
	api.PATCH("/jobs/:id", s.authorize(authorization.ObjectJob, authorization.ActionUpdate), s.UpdateJob)
	api.POST("/jobs/:id/start", s.authorize(authorization.ObjectJob, authorization.ActionUpdate), s.StartJob)
	api.POST("/jobs/:id/complete", s.authorize(authorization.ObjectJob, authorization.ActionComplete), s.CompleteJob)
	api.POST("/jobs/:id/cancel", s.authorize(authorization.ObjectJob, authorization.ActionCancel), s.CancelJob)

	// -------- Settings --------
	api.GET("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionView), s.GetSettings)
	api.PUT("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionUpdate), s.UpdateSettings)

	// -------- Expenses --------
	api.POST("/expenses", s.authorize(authorization.ObjectExpense, authorization.ActionCreate), s.CreateExpense)
	api.GET("/expenses", s.authorize(authorization.ObjectExpense, authorization.ActionView), s.ListExpenses)
	api.DELETE("/expenses/:id", s.authorize(authorization.ObjectExpense, authorization.ActionDelete), s.DeleteExpense)

	// -------- Reports --------
	api.GET("/reports/summary", s.authorize(authorization.ObjectReport, authorization.ActionView), s.GetReportSummary)
	api.GET("/reports/payouts", s.authorize(authorization.ObjectReport, authorization.ActionView), s.GetReportPayouts)
	api.GET("/reports/staff", s.authorize(authorization.ObjectReport, authorization.ActionView), s.GetReportStaff)
	api.GET("/reports/export.xlsx", s.authorize(authorization.ObjectReport, authorization.ActionExport), s.ExportReport)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
