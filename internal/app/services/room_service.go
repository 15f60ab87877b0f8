package services

import (
	"context"
	"strings"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/helpers"
)

// RoomService manages teaching rooms
type RoomService interface {
	Create(ctx context.Context, actor models.Actor, req *dto.RoomRequest) (*models.Room, error)
	GetByID(ctx context.Context, id int64) (*models.Room, error)
	List(ctx context.Context, page helpers.Page) ([]*models.Room, int64, error)
	Update(ctx context.Context, actor models.Actor, id int64, req *dto.RoomRequest) (*models.Room, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
}

type roomStore interface {
	Create(ctx context.Context, rm *models.Room) error
	GetByID(ctx context.Context, id int64) (*models.Room, error)
	List(ctx context.Context, p helpers.Page) ([]*models.Room, int64, error)
	Update(ctx context.Context, rm *models.Room) error
	Delete(ctx context.Context, id int64) error
}

type roomServiceImpl struct {
	rooms roomStore
	tx    Transactor
	audit auditRecorder
}

// NewRoomService creates a new room service
func NewRoomService(rooms roomStore, tx Transactor, audit auditRecorder) RoomService {
	return &roomServiceImpl{rooms: rooms, tx: tx, audit: audit}
}

func buildRoom(req *dto.RoomRequest) (*models.Room, error) {
	building := strings.ToUpper(strings.TrimSpace(req.Building))
	number := strings.TrimSpace(req.Number)
	if building == "" || number == "" {
		return nil, apperrors.NewValidationError("building and number are required")
	}
	if req.Capacity <= 0 {
		return nil, apperrors.NewValidationError("capacity must be greater than zero")
	}
	roomType, err := models.ParseRoomType(req.RoomType)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &models.Room{
		Building: building,
		Number:   number,
		Capacity: req.Capacity,
		RoomType: roomType,
		IsActive: active,
	}, nil
}

// Create adds a room
func (s *roomServiceImpl) Create(ctx context.Context, actor models.Actor, req *dto.RoomRequest) (*models.Room, error) {
	room, err := buildRoom(req)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.rooms.Create(ctx, room); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionCreate, models.EntityRoom, room.ID,
			map[string]interface{}{"room": room.Label(), "capacity": room.Capacity})
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// GetByID returns a room
func (s *roomServiceImpl) GetByID(ctx context.Context, id int64) (*models.Room, error) {
	return s.rooms.GetByID(ctx, id)
}

// List returns a page of rooms
func (s *roomServiceImpl) List(ctx context.Context, page helpers.Page) ([]*models.Room, int64, error) {
	return s.rooms.List(ctx, page)
}

// Update edits a room
func (s *roomServiceImpl) Update(ctx context.Context, actor models.Actor, id int64, req *dto.RoomRequest) (*models.Room, error) {
	room, err := buildRoom(req)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.rooms.GetByID(ctx, id)
		if err != nil {
			return err
		}
		room.ID = existing.ID
		room.CreatedAt = existing.CreatedAt
		if req.IsActive == nil {
			room.IsActive = existing.IsActive
		}
		if err := s.rooms.Update(ctx, room); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionUpdate, models.EntityRoom, id, map[string]interface{}{
			"oldCapacity": existing.Capacity,
			"newCapacity": room.Capacity,
			"isActive":    room.IsActive,
		})
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// Delete removes a room with no meetings
func (s *roomServiceImpl) Delete(ctx context.Context, actor models.Actor, id int64) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.rooms.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.rooms.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionDelete, models.EntityRoom, id,
			map[string]interface{}{"room": existing.Label()})
	})
}
