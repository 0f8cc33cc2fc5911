package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/templatestore/license-service/internal/handler/dto"
	"github.com/templatestore/license-service/internal/ierr"
	"go.uber.org/zap"
)

type errorMapping struct {
	targets []error
	status  int
	code    string
	message string // empty: echo the wrapped error text
}

var errorMappings = []errorMapping{
	{[]error{ierr.ErrValidation}, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{
		[]error{ierr.ErrUnauthorized, ierr.ErrInvalidToken, ierr.ErrTokenParsingFailed, ierr.ErrTokenInvalidClaims},
		http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required or failed.",
	},
	{[]error{ierr.ErrForbidden}, http.StatusForbidden, "FORBIDDEN", "Access denied."},
	{[]error{ierr.ErrNotFound}, http.StatusNotFound, "NOT_FOUND", "The requested resource was not found."},
	{[]error{ierr.ErrConflict}, http.StatusConflict, "CONFLICT", ""},
}

// ErrorHandlerMiddleware renders the last error pushed by a handler. Denials
// keep their own status and reason; everything else goes through the
// sentinel table and falls back to an opaque 500.
func ErrorHandlerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ErrorHandler")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if d, ok := ierr.AsDenial(err); ok {
			log.Info("Request denied", zap.String("reason", string(d.Reason)), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(d.Status, dto.APIErrorResponse{
				Code:    d.Code,
				Message: d.Message,
				Error:   string(d.Reason),
			})
			return
		}

		status, resp := toResponse(err)
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		} else {
			log.Warn("Request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
		}
		c.AbortWithStatusJSON(status, resp)
	}
}

func toResponse(err error) (int, dto.APIErrorResponse) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusBadRequest, dto.APIErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Input validation failed.",
			Details: buildValidationErrors(ve),
		}
	}

	for _, m := range errorMappings {
		for _, target := range m.targets {
			if !errors.Is(err, target) {
				continue
			}
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return m.status, dto.APIErrorResponse{Code: m.code, Message: msg}
		}
	}

	return http.StatusInternalServerError, dto.APIErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "An unexpected error occurred.",
	}
}

func buildValidationErrors(ve validator.ValidationErrors) []dto.FieldError {
	details := make([]dto.FieldError, 0, len(ve))
	for _, fe := range ve {
		details = append(details, dto.FieldError{Field: fe.Field(), Message: validationMessage(fe)})
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", field)
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of [%s]", field, fe.Param())
	case "uuid", "uuid4":
		return fmt.Sprintf("Field '%s' must be a valid UUID", field)
	case "max":
		return fmt.Sprintf("Field '%s' must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed the '%s' rule", field, fe.Tag())
	}
}
