package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/email"
	"github.com/universys/universyslite/internal/pkg/helpers"
)

// SectionService manages course offerings within a term
type SectionService interface {
	Create(ctx context.Context, actor models.Actor, req *dto.CreateSectionRequest) (*models.Section, error)
	GetByID(ctx context.Context, id int64) (*models.Section, error)
	List(ctx context.Context, req *dto.SectionFilterRequest, page helpers.Page) ([]*models.Section, int64, error)
	UpdateCapacity(ctx context.Context, actor models.Actor, id int64, req *dto.UpdateCapacityRequest) (*models.Section, error)
	AssignInstructor(ctx context.Context, actor models.Actor, id, instructorID int64) (*models.Section, error)
	SetStatus(ctx context.Context, actor models.Actor, id int64, status string) (*models.Section, error)
	Cancel(ctx context.Context, actor models.Actor, id int64) (*models.Section, error)
}

type sectionStore interface {
	Create(ctx context.Context, s *models.Section) error
	GetByID(ctx context.Context, id int64) (*models.Section, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Section, error)
	List(ctx context.Context, f models.SectionFilter, p helpers.Page) ([]*models.Section, int64, error)
	Save(ctx context.Context, s *models.Section) error
}

type courseGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Course, error)
}

type termGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Term, error)
}

type instructorGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Instructor, error)
}

// sectionEnrollments is the enrollment storage sections write through
type sectionEnrollments interface {
	waitlistStore
	DropAllActive(ctx context.Context, sectionID int64, at time.Time) (int64, error)
}

// SectionDeps groups the collaborators of the section service
type SectionDeps struct {
	Sections                sectionStore
	Courses                 courseGetter
	Terms                   termGetter
	Instructors             instructorLocker
	Meetings                meetingLookup
	Enrollments             sectionEnrollments
	Students                studentLookup
	Notifier                email.Notifier
	Metrics                 promotionCounter
	Tx                      Transactor
	Audit                   auditRecorder
	DefaultWaitlistCapacity int
}

type sectionServiceImpl struct {
	SectionDeps
	now    Clock
	logger zerolog.Logger
}

// NewSectionService creates a new section service
func NewSectionService(deps SectionDeps, logger zerolog.Logger) SectionService {
	return &sectionServiceImpl{SectionDeps: deps, now: utcNow, logger: logger}
}

// Create opens a new section of an active course
func (s *sectionServiceImpl) Create(ctx context.Context, actor models.Actor, req *dto.CreateSectionRequest) (*models.Section, error) {
	number := strings.TrimSpace(req.SectionNumber)
	if number == "" {
		return nil, apperrors.NewValidationError("section number is required")
	}
	if req.Capacity <= 0 {
		return nil, apperrors.NewValidationError("capacity must be greater than zero")
	}
	waitlist := s.DefaultWaitlistCapacity
	if req.WaitlistCapacity != nil {
		waitlist = *req.WaitlistCapacity
	}
	if waitlist < 0 {
		return nil, apperrors.NewValidationError("waitlist capacity cannot be negative")
	}

	section := &models.Section{
		CourseID:         req.CourseID,
		TermID:           req.TermID,
		SectionNumber:    number,
		InstructorID:     req.InstructorID,
		Capacity:         req.Capacity,
		WaitlistCapacity: waitlist,
		Status:           models.SectionStatusOpen,
	}

	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		course, err := s.Courses.GetByID(ctx, req.CourseID)
		if err != nil {
			return err
		}
		if !course.IsActive {
			return apperrors.ErrCourseInactive
		}
		term, err := s.Terms.GetByID(ctx, req.TermID)
		if err != nil {
			return err
		}
		if req.InstructorID != nil {
			if _, err := s.Instructors.GetByID(ctx, *req.InstructorID); err != nil {
				return err
			}
		}
		if err := s.Sections.Create(ctx, section); err != nil {
			return err
		}
		section.CourseCode = course.Code
		section.CourseTitle = course.Title
		section.Credits = course.Credits
		section.TermCode = term.Code
		return s.Audit.Record(ctx, actor, models.AuditActionCreate, models.EntitySection, section.ID, map[string]interface{}{
			"course":   course.Code,
			"term":     term.Code,
			"section":  number,
			"capacity": section.Capacity,
		})
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

// GetByID returns a section
func (s *sectionServiceImpl) GetByID(ctx context.Context, id int64) (*models.Section, error) {
	return s.Sections.GetByID(ctx, id)
}

// List returns sections filtered by term, course, instructor or status
func (s *sectionServiceImpl) List(ctx context.Context, req *dto.SectionFilterRequest, page helpers.Page) ([]*models.Section, int64, error) {
	filter := models.SectionFilter{TermID: req.TermID, CourseID: req.CourseID, InstructorID: req.InstructorID}
	if req.Status != "" {
		st := models.SectionStatus(strings.ToUpper(req.Status))
		filter.Status = &st
	}
	return s.Sections.List(ctx, filter, page)
}

// UpdateCapacity changes seat limits and promotes waitlisted students into new seats
func (s *sectionServiceImpl) UpdateCapacity(ctx context.Context, actor models.Actor, id int64, req *dto.UpdateCapacityRequest) (*models.Section, error) {
	if req.Capacity <= 0 {
		return nil, apperrors.NewValidationError("capacity must be greater than zero")
	}

	var section *models.Section
	var promoted []*models.Enrollment
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		section, err = s.Sections.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if section.Status == models.SectionStatusCancelled {
			return apperrors.NewCustomError(apperrors.ErrSectionNotOpen, "cancelled sections cannot be resized")
		}
		if req.Capacity < section.EnrolledCount {
			return apperrors.NewCustomError(apperrors.ErrCapacityBelowEnrolled,
				fmt.Sprintf("capacity %d is below the %d students enrolled", req.Capacity, section.EnrolledCount))
		}

		oldCapacity, oldWaitlist := section.Capacity, section.WaitlistCapacity
		section.Capacity = req.Capacity

		promoted, err = promoteWaitlist(ctx, s.Enrollments, section, s.now())
		if err != nil {
			return err
		}

		if req.WaitlistCapacity != nil {
			if *req.WaitlistCapacity < section.WaitlistCount {
				return apperrors.NewCustomError(apperrors.ErrCapacityBelowEnrolled,
					fmt.Sprintf("waitlist capacity %d is below the %d students waiting", *req.WaitlistCapacity, section.WaitlistCount))
			}
			section.WaitlistCapacity = *req.WaitlistCapacity
		}

		if err := s.Sections.Save(ctx, section); err != nil {
			return err
		}
		for _, e := range promoted {
			if err := s.Audit.Record(ctx, actor, models.AuditActionPromote, models.EntityEnrollment, e.ID,
				map[string]interface{}{"sectionId": id, "studentId": e.StudentID}); err != nil {
				return err
			}
		}
		return s.Audit.Record(ctx, actor, models.AuditActionUpdate, models.EntitySection, id, map[string]interface{}{
			"old":      map[string]int{"capacity": oldCapacity, "waitlistCapacity": oldWaitlist},
			"new":      map[string]int{"capacity": section.Capacity, "waitlistCapacity": section.WaitlistCapacity},
			"promoted": len(promoted),
		})
	})
	if err != nil {
		return nil, err
	}

	if len(promoted) > 0 {
		s.Metrics.Promotions(len(promoted))
		s.logger.Info().Int64("sectionID", id).Int("promoted", len(promoted)).Msg("Waitlist promoted after capacity change")
		notifyPromoted(ctx, s.Notifier, s.Students, s.logger, promoted)
	}
	return section, nil
}

// AssignInstructor sets the instructor after checking their weekly schedule
func (s *sectionServiceImpl) AssignInstructor(ctx context.Context, actor models.Actor, id, instructorID int64) (*models.Section, error) {
	var section *models.Section
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		section, err = s.Sections.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if section.Status == models.SectionStatusCancelled {
			return apperrors.NewCustomError(apperrors.ErrSectionNotOpen, "cancelled sections cannot be staffed")
		}
		if _, err := s.Instructors.GetForUpdate(ctx, instructorID); err != nil {
			return err
		}

		own, err := s.Meetings.BySection(ctx, id)
		if err != nil {
			return err
		}
		busy, err := s.Meetings.ByInstructor(ctx, instructorID, section.TermID)
		if err != nil {
			return err
		}
		if clash := firstOverlap(own, busy, id); clash != nil {
			return apperrors.NewCustomError(apperrors.ErrInstructorConflict, "instructor already teaches at this time").
				WithDetails(conflictDetails(clash))
		}

		var previous interface{}
		if section.InstructorID != nil {
			previous = *section.InstructorID
		}
		section.InstructorID = &instructorID
		if err := s.Sections.Save(ctx, section); err != nil {
			return err
		}
		return s.Audit.Record(ctx, actor, models.AuditActionUpdate, models.EntitySection, id,
			map[string]interface{}{"oldInstructorId": previous, "newInstructorId": instructorID})
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

// SetStatus opens or closes a section for registration
func (s *sectionServiceImpl) SetStatus(ctx context.Context, actor models.Actor, id int64, status string) (*models.Section, error) {
	next := models.SectionStatus(strings.ToUpper(strings.TrimSpace(status)))
	if next != models.SectionStatusOpen && next != models.SectionStatusClosed {
		return nil, apperrors.NewValidationError("status must be OPEN or CLOSED")
	}

	var section *models.Section
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		section, err = s.Sections.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if section.Status == models.SectionStatusCancelled {
			return apperrors.NewConflictError("cancelled sections cannot be reopened")
		}
		if section.Status == next {
			return nil
		}
		prev := section.Status
		section.Status = next
		if err := s.Sections.Save(ctx, section); err != nil {
			return err
		}
		return s.Audit.Record(ctx, actor, models.AuditActionStatusChange, models.EntitySection, id,
			map[string]interface{}{"old": prev, "new": next})
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

// Cancel cancels a section and drops every active enrollment in it
func (s *sectionServiceImpl) Cancel(ctx context.Context, actor models.Actor, id int64) (*models.Section, error) {
	var section *models.Section
	var dropped int64
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		section, err = s.Sections.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if section.Status == models.SectionStatusCancelled {
			return nil
		}
		dropped, err = s.Enrollments.DropAllActive(ctx, id, s.now())
		if err != nil {
			return err
		}
		section.Status = models.SectionStatusCancelled
		section.EnrolledCount = 0
		section.WaitlistCount = 0
		if err := s.Sections.Save(ctx, section); err != nil {
			return err
		}
		return s.Audit.Record(ctx, actor, models.AuditActionCancel, models.EntitySection, id,
			map[string]interface{}{"droppedEnrollments": dropped})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("sectionID", id).Int64("dropped", dropped).Msg("Section cancelled")
	return section, nil
}
