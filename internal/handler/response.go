package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lovealarm/internal/geo"
	"lovealarm/internal/matcher"
	"lovealarm/internal/repository"
	"lovealarm/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, geo.ErrInvalidCoordinate),
		errors.Is(err, matcher.ErrInvalidRadius),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidTargetID),
		errors.Is(err, service.ErrSelfInteraction),
		errors.Is(err, service.ErrMissingRequiredField),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrIncompleteLocation):
		return http.StatusBadRequest

	// The user exists but has never shared a location
	case errors.Is(err, matcher.ErrMissingTargetPosition):
		return http.StatusUnprocessableEntity

	// Conflict errors
	case errors.Is(err, service.ErrUserExists),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
