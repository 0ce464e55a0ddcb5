package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/detailflow/internal/auth"
	"github.com/smallbiznis/detailflow/internal/authorization"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/config"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	settingsdomain "github.com/smallbiznis/detailflow/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuthz struct {
	denied map[string]bool
}

func (f fakeAuthz) Authorize(_ context.Context, _ string, role string, object string, action string) error {
	if f.denied[role+":"+object+":"+action] {
		return authorization.ErrForbidden
	}
	return nil
}

type fakeJobService struct {
	completeReq jobdomain.CompleteJobRequest
	completeErr error
	job         jobdomain.Job
}

func (f *fakeJobService) Create(context.Context, jobdomain.CreateJobRequest) (jobdomain.Job, error) {
	return f.job, nil
}

func (f *fakeJobService) Update(context.Context, jobdomain.UpdateJobRequest) (jobdomain.Job, error) {
	return f.job, nil
}

func (f *fakeJobService) Start(context.Context, string) (jobdomain.Job, error) {
	return f.job, nil
}

func (f *fakeJobService) Complete(_ context.Context, req jobdomain.CompleteJobRequest) (jobdomain.Job, error) {
	f.completeReq = req
	if f.completeErr != nil {
		return jobdomain.Job{}, f.completeErr
	}
	return f.job, nil
}

func (f *fakeJobService) Cancel(context.Context, string) (jobdomain.Job, error) {
	return f.job, nil
}

func (f *fakeJobService) GetByID(context.Context, string) (jobdomain.Job, error) {
	return f.job, nil
}

func (f *fakeJobService) List(context.Context, jobdomain.ListJobRequest) (jobdomain.ListJobResponse, error) {
	return jobdomain.ListJobResponse{Jobs: []jobdomain.Job{f.job}}, nil
}

type fakeCustomerService struct {
	onboardCalls int
	updateErr    error
}

func (f *fakeCustomerService) Onboard(_ context.Context, req customerdomain.OnboardRequest) (customerdomain.OnboardResponse, error) {
	f.onboardCalls++
	return customerdomain.OnboardResponse{Customer: customerdomain.Customer{ID: 10, Name: req.Name}}, nil
}

func (f *fakeCustomerService) Update(context.Context, customerdomain.UpdateCustomerRequest) (customerdomain.Customer, error) {
	return customerdomain.Customer{}, f.updateErr
}

func (f *fakeCustomerService) List(context.Context, customerdomain.ListCustomerRequest) (customerdomain.ListCustomerResponse, error) {
	return customerdomain.ListCustomerResponse{}, nil
}

func (f *fakeCustomerService) GetByID(context.Context, string) (customerdomain.Customer, error) {
	return customerdomain.Customer{}, customerdomain.ErrNotFound
}

func (f *fakeCustomerService) AddVehicle(context.Context, customerdomain.AddVehicleRequest) (customerdomain.Vehicle, error) {
	return customerdomain.Vehicle{}, nil
}

func (f *fakeCustomerService) ListVehicles(context.Context, string) ([]customerdomain.Vehicle, error) {
	return nil, nil
}

func (f *fakeCustomerService) ReferralChain(context.Context, string) ([]customerdomain.ChainEntry, error) {
	return nil, nil
}

type fakeSettingsService struct {
	updates []settingsdomain.UpdateSettingsRequest
}

func (f *fakeSettingsService) Get(context.Context) (settingsdomain.Settings, error) {
	return settingsdomain.Settings{}, nil
}

func (f *fakeSettingsService) Update(_ context.Context, req settingsdomain.UpdateSettingsRequest) (settingsdomain.Settings, error) {
	f.updates = append(f.updates, req)
	return settingsdomain.Settings{GSTRate: req.GSTRate}, nil
}

type testServer struct {
	engine   *gin.Engine
	verifier *auth.Verifier
	jobs     *fakeJobService
	customer *fakeCustomerService
	settings *fakeSettingsService
}

func newTestServer(t *testing.T, authz authorization.Service) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registerValidators()

	verifier, err := auth.NewVerifier(config.Config{
		AuthJWTSecret:   "test-secret",
		AuthJWTIssuer:   "detailflow",
		AuthTokenTTLMin: 60,
	}, clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)), zap.NewNop())
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	ts := &testServer{
		engine:   engine,
		verifier: verifier,
		jobs:     &fakeJobService{job: jobdomain.Job{ID: 42, Status: jobdomain.StatusCompleted}},
		customer: &fakeCustomerService{},
		settings: &fakeSettingsService{},
	}
	NewServer(ServerParams{
		Gin:         engine,
		Verifier:    verifier,
		AuthzSvc:    authz,
		JobSvc:      ts.jobs,
		CustomerSvc: ts.customer,
		SettingsSvc: ts.settings,
	})
	return ts
}

func (ts *testServer) token(t *testing.T, role string) string {
	t.Helper()
	token, err := ts.verifier.Issue(auth.Actor{EmployeeID: snowflake.ID(7), Role: role})
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestAPIRequiresBearerToken(t *testing.T) {
	ts := newTestServer(t, fakeAuthz{})

	rec := ts.do(t, http.MethodGet, "/api/jobs", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)

	rec = ts.do(t, http.MethodGet, "/api/jobs", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCompleteJobPassesRequest(t *testing.T) {
	ts := newTestServer(t, fakeAuthz{})

	rec := ts.do(t, http.MethodPost, "/api/jobs/42/complete", ts.token(t, "STAFF"), map[string]string{
		"payment_mode": "cash",
		"employee_id":  "9",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "42", ts.jobs.completeReq.ID)
	assert.Equal(t, "cash", ts.jobs.completeReq.PaymentMode)
	assert.Equal(t, "9", ts.jobs.completeReq.EmployeeID)
}

func TestCompleteJobRequiresPaymentMode(t *testing.T) {
	ts := newTestServer(t, fakeAuthz{})

	rec := ts.do(t, http.MethodPost, "/api/jobs/42/complete", ts.token(t, "STAFF"), map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "payment_mode", payload.Errors[0].Field)
	assert.Equal(t, "required", payload.Errors[0].Code)
}

func TestCompleteJobErrorStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"already completed", jobdomain.ErrAlreadyCompleted, http.StatusConflict},
		{"lock held", jobdomain.ErrCompletionInProgress, http.StatusConflict},
		{"upstream read", fmt.Errorf("%w: %w", jobdomain.ErrReferralDataUnavailable, errors.New("connection refused")), http.StatusServiceUnavailable},
		{"persist", fmt.Errorf("%w: %w", jobdomain.ErrPersistCompletion, errors.New("disk full")), http.StatusInternalServerError},
		{"missing", jobdomain.ErrNotFound, http.StatusNotFound},
		{"payment mode", jobdomain.ErrInvalidPaymentMode, http.StatusBadRequest},
		{"wrong state", jobdomain.ErrInvalidTransition, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, fakeAuthz{})
			ts.jobs.completeErr = tc.err

			rec := ts.do(t, http.MethodPost, "/api/jobs/42/complete", ts.token(t, "ADMIN"), map[string]string{"payment_mode": "UPI"})
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestConflictMessageCarriesDomainCode(t *testing.T) {
	ts := newTestServer(t, fakeAuthz{})
	ts.jobs.completeErr = jobdomain.ErrAlreadyCompleted

	rec := ts.do(t, http.MethodPost, "/api/jobs/42/complete", ts.token(t, "ADMIN"), map[string]string{"payment_mode": "UPI"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "job_already_completed", decodeError(t, rec).Message)
}

func TestForbiddenActionIsRejectedBeforeHandler(t *testing.T) {
	ts := newTestServer(t, fakeAuthz{denied: map[string]bool{
		"STAFF:job:cancel": true,
	}})

	rec := ts.do(t, http.MethodPost, "/api/jobs/42/cancel", ts.token(t, "STAFF"), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Type)
}

func TestOnboardCustomerValidatesMobile(t *testing.T) {
	ts := newTestServer(t, fakeAuthz{})

	rec := ts.do(t, http.MethodPost, "/api/customers", ts.token(t, "STAFF"), map[string]any{
		"name":    "Asha",
		"mobile":  "call me",
		"vehicle": map[string]string{"reg_number": "KA01AB1234", "model": "Swift"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "mobile", payload.Errors[0].Field)
	assert.Equal(t, 0, ts.customer.onboardCalls)

	rec = ts.do(t, http.MethodPost, "/api/customers", ts.token(t, "STAFF"), map[string]any{
		"name":    "Asha",
		"mobile":  "+91 98450-12345",
		"vehicle": map[string]string{"reg_number": "KA01AB1234", "model": "Swift"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, ts.customer.onboardCalls)
}

func TestUpdateSettingsKeepsExactRates(t *testing.T) {
	ts := newTestServer(t, fakeAuthz{})

	rec := ts.do(t, http.MethodPut, "/api/settings", ts.token(t, "ADMIN"), json.RawMessage(
		`{"referral_rate_l1": 9.2, "referral_rate_l2": "64.6", "referral_rate_l3": 0, "gst_rate": 18, "default_discount": 0}`,
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, ts.settings.updates, 1)
	got := ts.settings.updates[0]
	assert.True(t, got.ReferralRateL1.Equal(decimal.RequireFromString("9.2")), got.ReferralRateL1.String())
	assert.True(t, got.ReferralRateL2.Equal(decimal.RequireFromString("64.6")), got.ReferralRateL2.String())
}

func TestUpdateSettingsRejectsRateOutOfRange(t *testing.T) {
	ts := newTestServer(t, fakeAuthz{})

	rec := ts.do(t, http.MethodPut, "/api/settings", ts.token(t, "ADMIN"), json.RawMessage(
		`{"referral_rate_l1": 20, "referral_rate_l2": 10, "referral_rate_l3": 5, "gst_rate": 100.5}`,
	))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "gst_rate", payload.Errors[0].Field)
	assert.Empty(t, ts.settings.updates)
}

func TestUpdateCustomerCycleIsUnprocessable(t *testing.T) {
	ts := newTestServer(t, fakeAuthz{})
	ts.customer.updateErr = customerdomain.ErrReferralCycle

	rec := ts.do(t, http.MethodPatch, "/api/customers/10", ts.token(t, "ADMIN"), map[string]any{
		"referral": map[string]string{"source": "customer", "customer_id": "11"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "referral_cycle", decodeError(t, rec).Message)
}

func TestGetCustomerNotFound(t *testing.T) {
	ts := newTestServer(t, fakeAuthz{})

	rec := ts.do(t, http.MethodGet, "/api/customers/10", ts.token(t, "STAFF"), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	ts := newTestServer(t, fakeAuthz{})

	rec := ts.do(t, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestParseRangeDateOnlyEnd(t *testing.T) {
	rng, err := parseRange("2026-03-01", "2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), rng.Start)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), rng.End)

	_, err = parseRange("yesterday", "")
	require.Error(t, err)
}
