package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdashboarddomain "github.com/smallbiznis/mensalidade/internal/billingdashboard/domain"
	clientdomain "github.com/smallbiznis/mensalidade/internal/client/domain"
	collectiondomain "github.com/smallbiznis/mensalidade/internal/collection/domain"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
	messagelogdomain "github.com/smallbiznis/mensalidade/internal/messagelog/domain"
	plandomain "github.com/smallbiznis/mensalidade/internal/plan/domain"
	"github.com/smallbiznis/mensalidade/internal/providers/whatsapp"
	subscriptiondomain "github.com/smallbiznis/mensalidade/internal/subscription/domain"
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
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

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

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
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

	if isValidationError(err) {
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
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, whatsapp.ErrNotConfigured):
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

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidRequest,
	clientdomain.ErrInvalidName,
	clientdomain.ErrInvalidPhone,
	clientdomain.ErrInvalidBirthDate,
	clientdomain.ErrInvalidID,
	clientdomain.ErrInvalidMetadata,
	plandomain.ErrInvalidName,
	plandomain.ErrInvalidPrice,
	plandomain.ErrInvalidID,
	installmentdomain.ErrInvalidID,
	installmentdomain.ErrInvalidClient,
	installmentdomain.ErrInvalidAmount,
	installmentdomain.ErrMissingDueDate,
	installmentdomain.ErrInvalidStatus,
	installmentdomain.ErrInvalidSequence,
	installmentdomain.ErrInvalidMetadata,
	subscriptiondomain.ErrInvalidClient,
	subscriptiondomain.ErrInvalidPlan,
	subscriptiondomain.ErrInvalidStartDate,
	subscriptiondomain.ErrInvalidPrice,
	collectiondomain.ErrInvalidID,
	messagelogdomain.ErrInvalidClient,
	messagelogdomain.ErrInvalidPageToken,
	billingdashboarddomain.ErrInvalidPeriod,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, clientdomain.ErrDuplicatePhone),
		errors.Is(err, subscriptiondomain.ErrPlanInactive),
		errors.Is(err, subscriptiondomain.ErrSubscriptionInactive),
		errors.Is(err, collectiondomain.ErrDispatchInProgress),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, clientdomain.ErrDuplicatePhone):
		return "phone already registered"
	case errors.Is(err, subscriptiondomain.ErrPlanInactive):
		return "plan is not active"
	case errors.Is(err, subscriptiondomain.ErrSubscriptionInactive):
		return "subscription is not active"
	case errors.Is(err, collectiondomain.ErrDispatchInProgress):
		return "dispatch already running"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, plandomain.ErrNotFound),
		errors.Is(err, installmentdomain.ErrNotFound),
		errors.Is(err, installmentdomain.ErrClientNotFound),
		errors.Is(err, subscriptiondomain.ErrClientNotFound),
		errors.Is(err, subscriptiondomain.ErrPlanNotFound),
		errors.Is(err, collectiondomain.ErrInstallmentNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if strings.HasPrefix(code, "missing_") {
		return strings.TrimPrefix(code, "missing_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_period":
		return "start must not be after end"
	default:
		return "invalid value"
	}
}
