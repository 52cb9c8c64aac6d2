package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayhub/internal/app/handlers/blocks"
	domainavailability "stayhub/internal/domain/availability"
	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
)

// errBadRequest marks malformed path, query or body input.
var errBadRequest = errors.New("invalid request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, domainavailability.ErrInvalidDateRange),
		errors.Is(err, occupancy.ErrInvalidBeds),
		errors.Is(err, occupancy.ErrPropertyMissing):
		return http.StatusBadRequest
	case errors.Is(err, property.ErrPropertyNotFound),
		errors.Is(err, occupancy.ErrBlockNotFound):
		return http.StatusNotFound
	case errors.Is(err, blocks.ErrInsufficientCapacity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// KnownErrors lists the errors whose identity must survive an idempotent replay.
func KnownErrors() []error {
	return []error{
		domainavailability.ErrInvalidDateRange,
		occupancy.ErrInvalidBeds,
		occupancy.ErrPropertyMissing,
		property.ErrPropertyNotFound,
		occupancy.ErrBlockNotFound,
		blocks.ErrInsufficientCapacity,
	}
}
