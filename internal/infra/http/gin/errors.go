package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	calendarapp "rentcal/internal/app/handlers/calendar"
	occupancyapp "rentcal/internal/app/handlers/occupancy"
	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

var errBadRequest = errors.New("http: bad request")

var badRequestErrors = []error{
	errBadRequest,
	daterange.ErrInvalidRange,
	daterange.ErrMissingDate,
	domainoccupancy.ErrUnknownStatus,
	domainoccupancy.ErrUnknownKind,
	domainoccupancy.ErrPropertyRequired,
	domainoccupancy.ErrTenantRequired,
	calendarapp.ErrInvalidMonth,
	occupancyapp.ErrUnknownAction,
	occupancyapp.ErrOccupancyIDRequired,
}

var conflictErrors = []error{
	domainoccupancy.ErrInvalidTransition,
	domainoccupancy.ErrConcurrentUpdate,
}

// writeError maps application errors onto HTTP responses. Unexpected errors
// are logged and hidden behind a generic 500.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var overlap *occupancyapp.OverlapError
	if errors.As(err, &overlap) {
		report := overlap.Report()
		c.JSON(http.StatusConflict, gin.H{"error": occupancyapp.ErrOverlap.Error(), "overlaps": report})
		return
	}
	if errors.Is(err, domainoccupancy.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
	}
	if logger != nil {
		logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
