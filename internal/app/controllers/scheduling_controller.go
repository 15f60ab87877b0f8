package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/app/services"
	"github.com/universys/universyslite/internal/middleware"
)

// SchedulingController handles weekly meetings and room availability
type SchedulingController struct {
	schedulingService services.SchedulingService
}

// NewSchedulingController creates a new SchedulingController
func NewSchedulingController(schedulingService services.SchedulingService) *SchedulingController {
	return &SchedulingController{schedulingService: schedulingService}
}

// AddMeeting books a weekly slot for a section
// @Summary Add a meeting
// @Tags scheduling
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Section ID"
// @Param request body dto.AddMeetingRequest true "Meeting"
// @Success 201 {object} dto.APIResponse{data=dto.MeetingResponse}
// @Failure 409 {object} dto.APIResponse "Room or instructor already booked"
// @Router /sections/{id}/meetings [post]
func (c *SchedulingController) AddMeeting(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	sectionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.AddMeetingRequest
	if !bindJSON(ctx, &req) {
		return
	}

	meeting, err := c.schedulingService.AddMeeting(ctx.Request.Context(), actor, sectionID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, dto.FromMeeting(meeting))
}

// SectionMeetings lists a section's weekly meetings
// @Summary Section meetings
// @Tags scheduling
// @Produce json
// @Param id path int true "Section ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.MeetingResponse}
// @Router /sections/{id}/meetings [get]
func (c *SchedulingController) SectionMeetings(ctx *gin.Context) {
	sectionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	meetings, err := c.schedulingService.SectionMeetings(ctx.Request.Context(), sectionID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, dto.FromMeetings(meetings))
}

// RemoveMeeting frees a booked slot
// @Summary Remove a meeting
// @Tags scheduling
// @Security BearerAuth
// @Param id path int true "Meeting ID"
// @Success 204
// @Router /meetings/{id} [delete]
func (c *SchedulingController) RemoveMeeting(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.schedulingService.RemoveMeeting(ctx.Request.Context(), actor, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// RoomSchedule lists a room's bookings in a term
// @Summary Room schedule
// @Tags scheduling
// @Produce json
// @Param id path int true "Room ID"
// @Param termId query int true "Term ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.MeetingResponse}
// @Router /rooms/{id}/schedule [get]
func (c *SchedulingController) RoomSchedule(ctx *gin.Context) {
	roomID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	termID, err := strconv.ParseInt(ctx.Query("termId"), 10, 64)
	if err != nil || termID <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "termId is required").WithField("termId")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	meetings, err := c.schedulingService.RoomSchedule(ctx.Request.Context(), roomID, termID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, dto.FromMeetings(meetings))
}

// AvailableRooms finds active rooms free in a weekly slot
// @Summary Free rooms
// @Tags scheduling
// @Produce json
// @Param termId query int true "Term ID"
// @Param day query int true "Day of week, 1 is Monday"
// @Param start query string true "HH:MM"
// @Param end query string true "HH:MM"
// @Param minCapacity query int false "Minimum capacity"
// @Success 200 {object} dto.APIResponse{data=[]models.Room}
// @Router /rooms/available [get]
func (c *SchedulingController) AvailableRooms(ctx *gin.Context) {
	var req dto.AvailableRoomsRequest
	if !bindQuery(ctx, &req) {
		return
	}

	rooms, err := c.schedulingService.AvailableRooms(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, rooms)
}
