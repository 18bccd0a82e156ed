package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"college-records/internal/api/middleware"
	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"
	"college-records/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, APIResponse{Success: true, Message: message, Data: data})
}

// respondError maps the domain error taxonomy onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		dependency *domain.DependencyError
		placement  *domain.PlacementError
		denied     *domain.AccessDeniedError
		noMatch    *domain.NoMatchingOfferingError
		notFound   *domain.NotFoundError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, APIResponse{Message: "Validation failed", Errors: []*domain.ValidationError{validation}})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, APIResponse{Message: conflict.Message, Errors: conflict})
	case errors.As(err, &dependency):
		c.JSON(http.StatusConflict, APIResponse{Message: dependency.Error(), Errors: dependency})
	case errors.As(err, &placement):
		c.JSON(http.StatusUnprocessableEntity, APIResponse{Message: placement.Error(), Errors: placement})
	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, APIResponse{Message: "Access denied", Errors: denied})
	case errors.Is(err, domain.ErrAccessDenied):
		c.JSON(http.StatusForbidden, APIResponse{Message: "Access denied"})
	case errors.As(err, &noMatch):
		c.JSON(http.StatusNotFound, APIResponse{Message: noMatch.Error(), Errors: noMatch})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, APIResponse{Message: notFound.Error(), Errors: notFound})
	case errors.Is(err, user.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, APIResponse{Message: err.Error()})
	default:
		logger.Error("Request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, APIResponse{Message: "Internal server error"})
	}
}

// bindJSON decodes the body into req and writes the error response on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var validation *domain.ValidationError
		if errors.As(err, &validation) {
			respondError(c, err)
			return false
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			respondError(c, domain.NewTypeError(typeErr))
			return false
		}
		c.JSON(http.StatusBadRequest, APIResponse{
			Message: "Invalid request format",
			Errors:  err.Error(),
		})
		return false
	}
	return true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, domain.NewValidationError(name, "must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func principal(c *gin.Context) *user.Principal {
	return middleware.PrincipalFrom(c)
}
