package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/detailflow/internal/audit/domain"
	"github.com/smallbiznis/detailflow/internal/auth"
	"github.com/smallbiznis/detailflow/internal/authorization"
	catalogdomain "github.com/smallbiznis/detailflow/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	employeedomain "github.com/smallbiznis/detailflow/internal/employee/domain"
	expensedomain "github.com/smallbiznis/detailflow/internal/expense/domain"
	jobdomain "github.com/smallbiznis/detailflow/internal/job/domain"
	reportdomain "github.com/smallbiznis/detailflow/internal/report/domain"
	settingsdomain "github.com/smallbiznis/detailflow/internal/settings/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrRateLimited        = errors.New("rate_limited")
)

var validationErrs = []error{
	ErrInvalidRequest,
	customerdomain.ErrInvalidName,
	customerdomain.ErrInvalidMobile,
	customerdomain.ErrInvalidEmail,
	customerdomain.ErrInvalidID,
	customerdomain.ErrInvalidReferral,
	customerdomain.ErrMultipleReferrers,
	customerdomain.ErrInvalidRegNumber,
	customerdomain.ErrInvalidModel,
	customerdomain.ErrInvalidFuelType,
	customerdomain.ErrInvalidServiceDue,
	employeedomain.ErrInvalidName,
	employeedomain.ErrInvalidRole,
	employeedomain.ErrInvalidPhone,
	employeedomain.ErrInvalidID,
	employeedomain.ErrInvalidRate,
	employeedomain.ErrInvalidRecruiterRate,
	catalogdomain.ErrInvalidCode,
	catalogdomain.ErrInvalidName,
	catalogdomain.ErrInvalidPrice,
	catalogdomain.ErrInvalidID,
	jobdomain.ErrInvalidID,
	jobdomain.ErrInvalidCustomer,
	jobdomain.ErrInvalidVehicle,
	jobdomain.ErrInvalidEmployee,
	jobdomain.ErrInvalidItem,
	jobdomain.ErrInvalidAmount,
	jobdomain.ErrInvalidStatus,
	jobdomain.ErrInvalidPaymentMode,
	jobdomain.ErrInvalidPageToken,
	settingsdomain.ErrInvalidReferralRate,
	settingsdomain.ErrInvalidGSTRate,
	settingsdomain.ErrInvalidDiscount,
	expensedomain.ErrInvalidID,
	expensedomain.ErrInvalidTitle,
	expensedomain.ErrInvalidAmount,
	expensedomain.ErrInvalidCategory,
	expensedomain.ErrInvalidDate,
	expensedomain.ErrInvalidDateRange,
	reportdomain.ErrInvalidRange,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
}

// Requests that are well formed but break a referral or recruitment rule.
var unprocessableErrs = []error{
	customerdomain.ErrSelfReferral,
	customerdomain.ErrReferralCycle,
	customerdomain.ErrReferrerNotFound,
	employeedomain.ErrSelfRecruitment,
	employeedomain.ErrRecruitmentCycle,
	employeedomain.ErrRecruiterNotFound,
}

var conflictErrs = []error{
	ErrConflict,
	catalogdomain.ErrDuplicateCode,
	jobdomain.ErrNotEditable,
	jobdomain.ErrInvalidTransition,
	jobdomain.ErrAlreadyCompleted,
	jobdomain.ErrCompletionInProgress,
}

var notFoundErrs = []error{
	ErrNotFound,
	customerdomain.ErrNotFound,
	employeedomain.ErrNotFound,
	catalogdomain.ErrNotFound,
	jobdomain.ErrNotFound,
	expensedomain.ErrNotFound,
	gorm.ErrRecordNotFound,
}

var unauthorizedErrs = []error{
	ErrUnauthorized,
	auth.ErrMissingToken,
	auth.ErrInvalidToken,
	auth.ErrTokenExpired,
	authorization.ErrInvalidActor,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// bindError turns a gin binding failure into field level validation errors.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}
	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Code:    fe.Tag(),
			Message: "failed " + fe.Tag() + " validation",
		})
	}
	return &ValidationErrors{Errors: out}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isAny(err, validationErrs):
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	case isAny(err, unauthorizedErrs):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isAny(err, notFoundErrs):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isAny(err, conflictErrs):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: domainCode(err),
		}
	case isAny(err, unprocessableErrs):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable_entity",
			Message: domainCode(err),
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, jobdomain.ErrReferralDataUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return payload.Type, "server_error"
	}
	return payload.Type, domainCode(err)
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// domainCode is the leading sentinel text of a possibly wrapped error.
func domainCode(err error) string {
	code, _, _ := strings.Cut(err.Error(), ":")
	return strings.TrimSpace(code)
}

func validationErrorCode(err error) string {
	return domainCode(err)
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "multiple_referrers":
		return "a customer has at most one referrer"
	default:
		return "invalid value"
	}
}
