package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	calendarapp "rentcal/internal/app/handlers/calendar"
	occupancyapp "rentcal/internal/app/handlers/occupancy"
	"rentcal/internal/app/queries"
	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/infra/ical"
)

type PropertyHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
	// Now supplies the default month for the calendar and the ICS stamp.
	Now func() time.Time
}

func (h PropertyHandler) Overlaps(c *gin.Context) {
	start, err := parseDate("start", c.Query("start"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	end, err := parseDate("end", c.Query("end"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	query := occupancyapp.CheckOverlapsQuery{
		PropertyID: c.Param("id"),
		Start:      start,
		End:        end,
		ExcludeID:  c.Query("exclude"),
	}
	result, err := queries.Ask[occupancyapp.CheckOverlapsQuery, dto.OverlapReport](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) Calendar(c *gin.Context) {
	now := h.now()
	year, err := parseIntParam("year", c.Query("year"), now.Year())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	month, err := parseIntParam("month", c.Query("month"), int(now.Month()))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	query := calendarapp.GetMonthQuery{PropertyID: c.Param("id"), Year: year, Month: month}
	result, err := queries.Ask[calendarapp.GetMonthQuery, dto.MonthCalendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) CalendarICS(c *gin.Context) {
	propertyID := c.Param("id")
	query := occupancyapp.ListOccupanciesQuery{PropertyID: propertyID}
	result, err := queries.Ask[occupancyapp.ListOccupanciesQuery, dto.OccupancyCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	body, err := ical.Export(propertyID, result.Items, h.now())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+propertyID+`.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

func (h PropertyHandler) ListOccupancies(c *gin.Context) {
	from, err := parseDate("from", c.Query("from"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	to, err := parseDate("to", c.Query("to"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	query := occupancyapp.ListOccupanciesQuery{
		PropertyID: c.Param("id"),
		From:       from,
		To:         to,
		Status:     c.Query("status"),
	}
	result, err := queries.Ask[occupancyapp.ListOccupanciesQuery, dto.OccupancyCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type createOccupancyRequest struct {
	Kind         string                 `json:"kind"`
	TenantName   string                 `json:"tenant_name"`
	Start        string                 `json:"start"`
	End          string                 `json:"end"`
	// Status accepts a name or a numeric code.
	Status       domainoccupancy.Status `json:"status"`
	AllowOverlap bool                   `json:"allow_overlap"`
}

func (h PropertyHandler) CreateOccupancy(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req createOccupancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	end, err := parseDate("end", req.End)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := occupancyapp.CreateOccupancyCommand{
		CommandID:       uuid.NewString(),
		PropertyID:      c.Param("id"),
		Kind:            req.Kind,
		TenantName:      req.TenantName,
		Start:           start,
		End:             end,
		Status:          string(req.Status),
		AllowOverlap:    req.AllowOverlap,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[occupancyapp.CreateOccupancyCommand, *occupancyapp.WriteResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h PropertyHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

var _ PropertyHTTP = PropertyHandler{}
