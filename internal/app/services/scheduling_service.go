package services

import (
	"context"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
)

// SchedulingService books weekly meetings of sections into rooms
type SchedulingService interface {
	AddMeeting(ctx context.Context, actor models.Actor, sectionID int64, req *dto.AddMeetingRequest) (*models.Meeting, error)
	RemoveMeeting(ctx context.Context, actor models.Actor, meetingID int64) error
	SectionMeetings(ctx context.Context, sectionID int64) ([]*models.Meeting, error)
	RoomSchedule(ctx context.Context, roomID, termID int64) ([]*models.Meeting, error)
	AvailableRooms(ctx context.Context, req *dto.AvailableRoomsRequest) ([]*models.Room, error)
}

// meetingLookup lists meetings that may clash with a new one
type meetingLookup interface {
	BySection(ctx context.Context, sectionID int64) ([]*models.Meeting, error)
	ByRoom(ctx context.Context, roomID, termID int64) ([]*models.Meeting, error)
	ByInstructor(ctx context.Context, instructorID, termID int64) ([]*models.Meeting, error)
}

type meetingStore interface {
	meetingLookup
	Create(ctx context.Context, m *models.Meeting) error
	GetByID(ctx context.Context, id int64) (*models.Meeting, error)
	Delete(ctx context.Context, id int64) error
}

type roomFinder interface {
	GetByID(ctx context.Context, id int64) (*models.Room, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Room, error)
	Available(ctx context.Context, termID int64, day, start, end, minCapacity int) ([]*models.Room, error)
}

type sectionLocker interface {
	GetByID(ctx context.Context, id int64) (*models.Section, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Section, error)
}

// instructorLocker serializes schedule changes that involve one instructor
type instructorLocker interface {
	instructorGetter
	GetForUpdate(ctx context.Context, id int64) (*models.Instructor, error)
}

type schedulingServiceImpl struct {
	meetings    meetingStore
	rooms       roomFinder
	sections    sectionLocker
	instructors instructorLocker
	tx          Transactor
	audit       auditRecorder
}

// NewSchedulingService creates a new scheduling service
func NewSchedulingService(meetings meetingStore, rooms roomFinder, sections sectionLocker, instructors instructorLocker, tx Transactor, audit auditRecorder) SchedulingService {
	return &schedulingServiceImpl{meetings: meetings, rooms: rooms, sections: sections, instructors: instructors, tx: tx, audit: audit}
}

// firstOverlap returns the first existing meeting that overlaps any candidate.
// Meetings of skipSection are ignored.
func firstOverlap(candidates, existing []*models.Meeting, skipSection int64) *models.Meeting {
	for _, c := range candidates {
		for _, e := range existing {
			if e.SectionID == skipSection {
				continue
			}
			if c.Overlaps(*e) {
				return e
			}
		}
	}
	return nil
}

func conflictDetails(m *models.Meeting) map[string]interface{} {
	return map[string]interface{}{
		"sectionId": m.SectionID,
		"dayOfWeek": m.DayOfWeek,
		"startTime": models.FormatClock(m.StartMinute),
		"endTime":   models.FormatClock(m.EndMinute),
	}
}

// parseWindow converts HH:MM bounds into a validated half-open interval
func parseWindow(day int, start, end string) (int, int, error) {
	if day < 1 || day > 7 {
		return 0, 0, apperrors.NewValidationError("dayOfWeek must be between 1 (Monday) and 7 (Sunday)")
	}
	from, err := models.ParseClock(start)
	if err != nil {
		return 0, 0, apperrors.NewValidationError(err.Error())
	}
	to, err := models.ParseClock(end)
	if err != nil {
		return 0, 0, apperrors.NewValidationError(err.Error())
	}
	if from >= to {
		return 0, 0, apperrors.ErrInvalidMeetingWindow
	}
	return from, to, nil
}

// AddMeeting books a weekly slot after room and instructor conflict checks
func (s *schedulingServiceImpl) AddMeeting(ctx context.Context, actor models.Actor, sectionID int64, req *dto.AddMeetingRequest) (*models.Meeting, error) {
	start, end, err := parseWindow(req.DayOfWeek, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	meeting := &models.Meeting{
		SectionID:   sectionID,
		RoomID:      req.RoomID,
		DayOfWeek:   req.DayOfWeek,
		StartMinute: start,
		EndMinute:   end,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		section, err := s.sections.GetForUpdate(ctx, sectionID)
		if err != nil {
			return err
		}
		if section.Status == models.SectionStatusCancelled {
			return apperrors.NewCustomError(apperrors.ErrSectionNotOpen, "cancelled sections cannot be scheduled")
		}
		// Lock order is section, room, instructor in every scheduling path.
		room, err := s.rooms.GetForUpdate(ctx, req.RoomID)
		if err != nil {
			return err
		}
		if !room.IsActive {
			return apperrors.ErrRoomInactive
		}
		if room.Capacity < section.Capacity {
			return apperrors.NewCustomError(apperrors.ErrRoomTooSmall, "room capacity is smaller than section capacity").
				WithDetails(map[string]interface{}{"roomCapacity": room.Capacity, "sectionCapacity": section.Capacity})
		}

		candidate := []*models.Meeting{meeting}
		booked, err := s.meetings.ByRoom(ctx, room.ID, section.TermID)
		if err != nil {
			return err
		}
		if clash := firstOverlap(candidate, booked, 0); clash != nil {
			return apperrors.NewCustomError(apperrors.ErrRoomConflict, "room is already booked at this time").
				WithDetails(conflictDetails(clash))
		}
		if section.InstructorID != nil {
			if _, err := s.instructors.GetForUpdate(ctx, *section.InstructorID); err != nil {
				return err
			}
			teaching, err := s.meetings.ByInstructor(ctx, *section.InstructorID, section.TermID)
			if err != nil {
				return err
			}
			if clash := firstOverlap(candidate, teaching, 0); clash != nil {
				return apperrors.NewCustomError(apperrors.ErrInstructorConflict, "instructor already teaches at this time").
					WithDetails(conflictDetails(clash))
			}
		}

		if err := s.meetings.Create(ctx, meeting); err != nil {
			return err
		}
		meeting.TermID = section.TermID
		meeting.RoomLabel = room.Label()
		return s.audit.Record(ctx, actor, models.AuditActionScheduleAdd, models.EntityMeeting, meeting.ID, map[string]interface{}{
			"sectionId": sectionID,
			"room":      room.Label(),
			"dayOfWeek": meeting.DayOfWeek,
			"startTime": req.StartTime,
			"endTime":   req.EndTime,
		})
	})
	if err != nil {
		return nil, err
	}
	return meeting, nil
}

// RemoveMeeting deletes a weekly slot
func (s *schedulingServiceImpl) RemoveMeeting(ctx context.Context, actor models.Actor, meetingID int64) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		meeting, err := s.meetings.GetByID(ctx, meetingID)
		if err != nil {
			return err
		}
		if err := s.meetings.Delete(ctx, meetingID); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionScheduleRemove, models.EntityMeeting, meetingID,
			map[string]interface{}{"sectionId": meeting.SectionID, "roomId": meeting.RoomID})
	})
}

// SectionMeetings lists the weekly slots of a section
func (s *schedulingServiceImpl) SectionMeetings(ctx context.Context, sectionID int64) ([]*models.Meeting, error) {
	if _, err := s.sections.GetByID(ctx, sectionID); err != nil {
		return nil, err
	}
	return s.meetings.BySection(ctx, sectionID)
}

// RoomSchedule lists a room's bookings in a term
func (s *schedulingServiceImpl) RoomSchedule(ctx context.Context, roomID, termID int64) ([]*models.Meeting, error) {
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return nil, err
	}
	return s.meetings.ByRoom(ctx, roomID, termID)
}

// AvailableRooms finds active rooms free for the whole window
func (s *schedulingServiceImpl) AvailableRooms(ctx context.Context, req *dto.AvailableRoomsRequest) ([]*models.Room, error) {
	start, end, err := parseWindow(req.DayOfWeek, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if req.MinCapacity < 0 {
		return nil, apperrors.NewValidationError("minCapacity cannot be negative")
	}
	return s.rooms.Available(ctx, req.TermID, req.DayOfWeek, start, end, req.MinCapacity)
}
