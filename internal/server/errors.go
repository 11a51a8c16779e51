package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	countrydomain "github.com/smallbiznis/countrystat/internal/country/domain"
	"github.com/smallbiznis/countrystat/internal/refresh"
	"github.com/smallbiznis/countrystat/internal/render"
	"github.com/smallbiznis/countrystat/internal/upstream"
	"gorm.io/gorm"
)

// ValidationErrors reports malformed requests field by field.
type ValidationErrors struct {
	Fields map[string]string
}

func (v *ValidationErrors) Error() string {
	return "validation error"
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

var (
	ErrInternal = errors.New("internal_error")
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
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError(field, message string) error {
	return &ValidationErrors{Fields: map[string]string{field: message}}
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error"}
	}

	if details := validationDetails(err); details != nil {
		return http.StatusBadRequest, errorResponse{
			Error:   "Validation failed",
			Details: details,
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorResponse{Error: "Country not found"}
	case errors.Is(err, render.ErrArtifactNotFound):
		return http.StatusNotFound, errorResponse{Error: "Summary image not found"}
	case errors.Is(err, refresh.ErrRefreshInProgress):
		return http.StatusConflict, errorResponse{Error: "Refresh already in progress"}
	case isUpstreamError(err):
		return http.StatusInternalServerError, errorResponse{
			Error:   "Failed to refresh countries",
			Details: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error"}
	}
}

func validationDetails(err error) map[string]string {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr.Fields
	}
	var cErr *countrydomain.ValidationError
	if errors.As(err, &cErr) && cErr.HasErrors() {
		return cErr.Fields
	}
	switch {
	case errors.Is(err, countrydomain.ErrInvalidSort):
		return map[string]string{"sort": "must be one of gdp_asc, gdp_desc, name_asc, name_desc, population_asc, population_desc"}
	case errors.Is(err, countrydomain.ErrValidation):
		return map[string]string{}
	}
	return nil
}

func isNotFoundError(err error) bool {
	return errors.Is(err, countrydomain.ErrNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}

func isUpstreamError(err error) bool {
	return errors.Is(err, upstream.ErrFetch) || errors.Is(err, upstream.ErrFormat)
}

// classifyErrorForLog returns the error type and code attached to request logs.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case validationDetails(err) != nil:
		code := "validation_failed"
		if errors.Is(err, countrydomain.ErrInvalidSort) {
			code = countrydomain.ErrInvalidSort.Error()
		}
		return "validation_error", code
	case isNotFoundError(err):
		return "not_found", countrydomain.ErrNotFound.Error()
	case errors.Is(err, render.ErrArtifactNotFound):
		return "not_found", "summary_not_found"
	case errors.Is(err, refresh.ErrRefreshInProgress):
		return "conflict", refresh.ErrRefreshInProgress.Error()
	case errors.Is(err, upstream.ErrFormat):
		return "upstream_error", upstream.ErrFormat.Error()
	case errors.Is(err, upstream.ErrFetch):
		return "upstream_error", upstream.ErrFetch.Error()
	default:
		return "internal_error", ErrInternal.Error()
	}
}
