package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/registrar-api/internal/service"
	appErrors "github.com/campusworks/registrar-api/pkg/errors"
	"github.com/campusworks/registrar-api/pkg/response"
)

// ScheduleHandler exposes schedule assignment and conflict endpoints.
type ScheduleHandler struct {
	schedules *service.ScheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// Assign godoc
// @Summary Assign an instructor to a section slot
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.AssignInstructorRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /schedule/slots [post]
func (h *ScheduleHandler) Assign(c *gin.Context) {
	var req service.AssignInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.schedules.AssignInstructor(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// InstructorSchedule godoc
// @Summary List an instructor's schedule slots
// @Tags Schedule
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/schedule [get]
func (h *ScheduleHandler) InstructorSchedule(c *gin.Context) {
	instructor, slots, err := h.schedules.ListByInstructor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"instructor": instructor, "slots": slots}, nil)
}

// RoomConflicts godoc
// @Summary Report room double-bookings
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/room-conflicts [get]
func (h *ScheduleHandler) RoomConflicts(c *gin.Context) {
	conflicts, err := h.schedules.RoomDoubleBookings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}
