package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	occupancyapp "rentcal/internal/app/handlers/occupancy"
)

type OccupancyHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type rescheduleRequest struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	AllowOverlap bool   `json:"allow_overlap"`
}

func (h OccupancyHandler) Reschedule(c *gin.Context) {
	var req rescheduleRequest
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
	cmd := occupancyapp.RescheduleOccupancyCommand{
		OccupancyID:  c.Param("id"),
		Start:        start,
		End:          end,
		AllowOverlap: req.AllowOverlap,
	}
	result, err := commands.Dispatch[occupancyapp.RescheduleOccupancyCommand, *occupancyapp.WriteResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h OccupancyHandler) Confirm(c *gin.Context)  { h.transition(c, occupancyapp.ActionConfirm) }
func (h OccupancyHandler) CheckIn(c *gin.Context)  { h.transition(c, occupancyapp.ActionCheckIn) }
func (h OccupancyHandler) Complete(c *gin.Context) { h.transition(c, occupancyapp.ActionComplete) }
func (h OccupancyHandler) Cancel(c *gin.Context)   { h.transition(c, occupancyapp.ActionCancel) }

type transitionRequest struct {
	Reason string `json:"reason"`
}

func (h OccupancyHandler) transition(c *gin.Context, action occupancyapp.Action) {
	var req transitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	cmd := occupancyapp.TransitionOccupancyCommand{
		OccupancyID: c.Param("id"),
		Action:      string(action),
		Reason:      req.Reason,
	}
	result, err := commands.Dispatch[occupancyapp.TransitionOccupancyCommand, dto.Occupancy](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ OccupancyHTTP = OccupancyHandler{}
