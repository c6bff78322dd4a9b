package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentcal/internal/app/dto"
	tenancyapp "rentcal/internal/app/handlers/tenancy"
	"rentcal/internal/app/queries"
)

type DurationHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h DurationHandler) Calculate(c *gin.Context) {
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
	query := tenancyapp.CalculateDurationQuery{Start: start, End: end}
	result, err := queries.Ask[tenancyapp.CalculateDurationQuery, dto.Duration](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ DurationHTTP = DurationHandler{}
