package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/app/services"
	"github.com/universys/universyslite/internal/middleware"
	"github.com/universys/universyslite/internal/pkg/helpers"
)

// RoomController handles teaching rooms
type RoomController struct {
	roomService services.RoomService
}

// NewRoomController creates a new RoomController
func NewRoomController(roomService services.RoomService) *RoomController {
	return &RoomController{roomService: roomService}
}

// CreateRoom adds a room
// @Summary Create a room
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RoomRequest true "Room data"
// @Success 201 {object} dto.APIResponse{data=models.Room}
// @Router /rooms [post]
func (c *RoomController) CreateRoom(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req dto.RoomRequest
	if !bindJSON(ctx, &req) {
		return
	}

	room, err := c.roomService.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondCreated(ctx, room)
}

// GetRoom returns one room
// @Summary Get a room
// @Tags rooms
// @Produce json
// @Param id path int true "Room ID"
// @Success 200 {object} dto.APIResponse{data=models.Room}
// @Router /rooms/{id} [get]
func (c *RoomController) GetRoom(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	room, err := c.roomService.GetByID(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, room)
}

// ListRooms pages through rooms
// @Summary List rooms
// @Tags rooms
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /rooms [get]
func (c *RoomController) ListRooms(ctx *gin.Context) {
	page := helpers.ParsePaginationParams(ctx)

	rooms, total, err := c.roomService.List(ctx.Request.Context(), page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, helpers.NewPaginatedResponse(rooms, total, page))
}

// UpdateRoom edits a room
// @Summary Update a room
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Param request body dto.RoomRequest true "Room data"
// @Success 200 {object} dto.APIResponse{data=models.Room}
// @Router /rooms/{id} [put]
func (c *RoomController) UpdateRoom(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.RoomRequest
	if !bindJSON(ctx, &req) {
		return
	}

	room, err := c.roomService.Update(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, room)
}

// DeleteRoom removes an unused room
// @Summary Delete a room
// @Tags rooms
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Success 204
// @Router /rooms/{id} [delete]
func (c *RoomController) DeleteRoom(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.roomService.Delete(ctx.Request.Context(), actor, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
