package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/karobar/karobar/internal/authclient"
	bomdomain "github.com/karobar/karobar/internal/bom/domain"
	branchdomain "github.com/karobar/karobar/internal/branch/domain"
	companydomain "github.com/karobar/karobar/internal/company/domain"
	fydomain "github.com/karobar/karobar/internal/financialyear/domain"
	quotationdomain "github.com/karobar/karobar/internal/quotation/domain"
	seqdomain "github.com/karobar/karobar/internal/sequence/domain"
	userdomain "github.com/karobar/karobar/internal/user/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
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

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authclient.ErrInvalidToken),
		errors.Is(err, authclient.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, companydomain.ErrAlreadySetup),
		errors.Is(err, fydomain.ErrYearOverlap),
		errors.Is(err, bomdomain.ErrAlreadyApproved),
		errors.Is(err, quotationdomain.ErrInvalidTransition),
		errors.Is(err, quotationdomain.ErrDocumentImmutable),
		errors.Is(err, quotationdomain.ErrYearLocked),
		errors.Is(err, branchdomain.ErrLastBranch):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, seqdomain.ErrStoreUnavailable),
		errors.Is(err, authclient.ErrAuthUnavailable):
		// Transient by contract: the caller may retry the same request.
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "temporarily unavailable, retry the request",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func conflictMessage(err error) string {
	if msg := err.Error(); strings.TrimSpace(msg) != "" {
		return msg
	}
	return "conflict"
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, seqdomain.ErrScopeInvalid),
		errors.Is(err, seqdomain.ErrConstraintViolation),
		errors.Is(err, companydomain.ErrInvalidName),
		errors.Is(err, companydomain.ErrInvalidCurrency),
		errors.Is(err, companydomain.ErrInvalidMonth),
		errors.Is(err, branchdomain.ErrInvalidCompany),
		errors.Is(err, branchdomain.ErrInvalidName),
		errors.Is(err, branchdomain.ErrInvalidState),
		errors.Is(err, fydomain.ErrInvalidCompany),
		errors.Is(err, fydomain.ErrInvalidPeriod),
		errors.Is(err, userdomain.ErrInvalidCompany),
		errors.Is(err, userdomain.ErrInvalidName),
		errors.Is(err, userdomain.ErrInvalidEmail),
		errors.Is(err, quotationdomain.ErrInvalidCustomer),
		errors.Is(err, quotationdomain.ErrInvalidStatus),
		errors.Is(err, bomdomain.ErrInvalidProduct),
		errors.Is(err, bomdomain.ErrInvalidQty),
		errors.Is(err, bomdomain.ErrNotApproved):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, companydomain.ErrNotFound),
		errors.Is(err, branchdomain.ErrNotFound),
		errors.Is(err, fydomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, quotationdomain.ErrNotFound),
		errors.Is(err, bomdomain.ErrNotFound),
		errors.Is(err, seqdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
