package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/email"
	"github.com/universys/universyslite/internal/pkg/metrics"
)

// EnrollmentService registers students into sections and manages waitlists
type EnrollmentService interface {
	Enroll(ctx context.Context, actor models.Actor, req *dto.EnrollRequest) (*models.Enrollment, error)
	Drop(ctx context.Context, actor models.Actor, enrollmentID int64) (*models.Enrollment, error)
	StudentEnrollments(ctx context.Context, actor models.Actor, studentID int64, termID *int64) ([]*models.Enrollment, error)
	SectionRoster(ctx context.Context, actor models.Actor, sectionID int64) ([]*models.Enrollment, error)
}

type enrollmentStore interface {
	waitlistStore
	GetByID(ctx context.Context, id int64) (*models.Enrollment, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Enrollment, error)
	FindByStudentSection(ctx context.Context, studentID, sectionID int64) (*models.Enrollment, error)
	HasActiveForCourse(ctx context.Context, studentID, courseID, termID int64) (bool, error)
	Create(ctx context.Context, e *models.Enrollment) error
	ByStudent(ctx context.Context, studentID int64, termID *int64) ([]*models.Enrollment, error)
	Roster(ctx context.Context, sectionID int64) ([]*models.Enrollment, error)
	GradeRecords(ctx context.Context, studentID int64) ([]models.GradeRecord, error)
	EnrolledCredits(ctx context.Context, studentID, termID int64) (int, error)
}

type sectionWriter interface {
	sectionLocker
	Save(ctx context.Context, s *models.Section) error
}

type prerequisiteLookup interface {
	Prerequisites(ctx context.Context, courseID int64) ([]models.Prerequisite, error)
}

type studentMeetings interface {
	BySection(ctx context.Context, sectionID int64) ([]*models.Meeting, error)
	ByStudent(ctx context.Context, studentID, termID int64) ([]*models.Meeting, error)
}

type studentLocker interface {
	studentLookup
	GetForUpdate(ctx context.Context, id int64) (*models.Student, error)
}

type instructorByUser interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Instructor, error)
}

// enrollmentCounter records enrollment outcomes and promotions
type enrollmentCounter interface {
	promotionCounter
	Enrollment(outcome string)
}

// EnrollmentDeps groups the collaborators of the enrollment service
type EnrollmentDeps struct {
	Enrollments       enrollmentStore
	Sections          sectionWriter
	Students          studentLocker
	Terms             termGetter
	Courses           prerequisiteLookup
	Meetings          studentMeetings
	Instructors       instructorByUser
	Notifier          email.Notifier
	Metrics           enrollmentCounter
	Tx                Transactor
	Audit             auditRecorder
	MaxCreditsPerTerm int
}

type enrollmentServiceImpl struct {
	EnrollmentDeps
	now    Clock
	logger zerolog.Logger
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(deps EnrollmentDeps, logger zerolog.Logger) EnrollmentService {
	return &enrollmentServiceImpl{EnrollmentDeps: deps, now: utcNow, logger: logger}
}

// resolveStudent works out whose enrollment is requested. Students always act for themselves.
func (s *enrollmentServiceImpl) resolveStudent(ctx context.Context, actor models.Actor, requested int64) (int64, error) {
	if actor.Role == models.RoleStudent {
		own, err := s.Students.GetByUserID(ctx, actor.UserID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrStudentNotFound) {
				return 0, apperrors.NewForbiddenError("no student record is linked to this account")
			}
			return 0, err
		}
		if requested != 0 && requested != own.ID {
			return 0, apperrors.NewForbiddenError("students may only enroll themselves")
		}
		return own.ID, nil
	}
	if !actor.Role.IsStaff() {
		return 0, apperrors.NewForbiddenError("only staff or the student may enroll")
	}
	if requested == 0 {
		return 0, apperrors.NewValidationError("studentId is required")
	}
	return requested, nil
}

// Enroll registers a student in a section or places them on its waitlist
func (s *enrollmentServiceImpl) Enroll(ctx context.Context, actor models.Actor, req *dto.EnrollRequest) (*models.Enrollment, error) {
	studentID, err := s.resolveStudent(ctx, actor, req.StudentID)
	if err != nil {
		return nil, err
	}

	var result *models.Enrollment
	err = s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		section, err := s.Sections.GetForUpdate(ctx, req.SectionID)
		if err != nil {
			return err
		}
		now := s.now()

		// Lock order is section then student, the same in every path.
		student, err := s.Students.GetForUpdate(ctx, studentID)
		if err != nil {
			return err
		}
		if student.Status != models.StudentStatusActive {
			return apperrors.ErrStudentNotActive
		}
		if section.Status != models.SectionStatusOpen {
			return apperrors.ErrSectionNotOpen
		}
		term, err := s.Terms.GetByID(ctx, section.TermID)
		if err != nil {
			return err
		}
		if !term.RegistrationOpen(now) {
			return apperrors.ErrRegistrationClosed
		}

		existing, err := s.Enrollments.FindByStudentSection(ctx, studentID, section.ID)
		if err != nil && !apperrors.Is(err, apperrors.ErrEnrollmentNotFound) {
			return err
		}
		if existing != nil && existing.Status != models.EnrollmentStatusDropped {
			return apperrors.ErrAlreadyEnrolled
		}
		taken, err := s.Enrollments.HasActiveForCourse(ctx, studentID, section.CourseID, section.TermID)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.ErrAlreadyEnrolled
		}

		if err := s.checkPrerequisites(ctx, studentID, section.CourseID); err != nil {
			return err
		}
		if err := s.checkSchedule(ctx, studentID, section); err != nil {
			return err
		}

		credits, err := s.Enrollments.EnrolledCredits(ctx, studentID, section.TermID)
		if err != nil {
			return err
		}
		if credits+section.Credits > s.MaxCreditsPerTerm {
			return apperrors.NewCustomError(apperrors.ErrCreditLimitExceeded,
				fmt.Sprintf("enrolling would bring the term to %d credits, the limit is %d", credits+section.Credits, s.MaxCreditsPerTerm)).
				WithDetails(map[string]interface{}{"current": credits, "requested": section.Credits, "limit": s.MaxCreditsPerTerm})
		}

		e := existing
		if e == nil {
			e = &models.Enrollment{StudentID: studentID, SectionID: section.ID}
		}
		e.EnrolledAt = now
		e.DroppedAt = nil
		e.Grade = nil
		e.GradedAt = nil

		action := models.AuditActionEnroll
		switch {
		case section.HasSeat():
			e.Status = models.EnrollmentStatusEnrolled
			e.WaitlistPosition = nil
			section.EnrolledCount++
		case section.HasWaitlistRoom():
			position := section.WaitlistCount + 1
			e.Status = models.EnrollmentStatusWaitlisted
			e.WaitlistPosition = &position
			section.WaitlistCount++
			action = models.AuditActionWaitlist
		default:
			return apperrors.ErrSectionFull
		}

		if existing != nil {
			err = s.Enrollments.Save(ctx, e)
		} else {
			err = s.Enrollments.Create(ctx, e)
		}
		if err != nil {
			return err
		}
		if err := s.Sections.Save(ctx, section); err != nil {
			return err
		}

		meta := map[string]interface{}{"studentId": studentID, "sectionId": section.ID, "status": e.Status}
		if e.WaitlistPosition != nil {
			meta["waitlistPosition"] = *e.WaitlistPosition
		}
		if existing != nil {
			meta["reused"] = true
		}
		if err := s.Audit.Record(ctx, actor, action, models.EntityEnrollment, e.ID, meta); err != nil {
			return err
		}

		result, err = s.Enrollments.GetByID(ctx, e.ID)
		return err
	})
	if err != nil {
		s.Metrics.Enrollment(metrics.OutcomeRejected)
		return nil, err
	}

	if result.Status == models.EnrollmentStatusWaitlisted {
		s.Metrics.Enrollment(metrics.OutcomeWaitlisted)
	} else {
		s.Metrics.Enrollment(metrics.OutcomeEnrolled)
	}
	s.logger.Info().
		Int64("studentID", studentID).
		Int64("sectionID", req.SectionID).
		Str("status", string(result.Status)).
		Msg("Enrollment recorded")
	return result, nil
}

// checkPrerequisites requires a completed attempt meeting each minimum grade
func (s *enrollmentServiceImpl) checkPrerequisites(ctx context.Context, studentID, courseID int64) error {
	prereqs, err := s.Courses.Prerequisites(ctx, courseID)
	if err != nil || len(prereqs) == 0 {
		return err
	}
	records, err := s.Enrollments.GradeRecords(ctx, studentID)
	if err != nil {
		return err
	}
	missing := missingPrerequisites(prereqs, records)
	if len(missing) == 0 {
		return nil
	}
	return apperrors.NewCustomError(apperrors.ErrPrerequisitesNotMet, "course prerequisites are not satisfied").
		WithDetails(map[string]interface{}{"missing": missing})
}

// missingPrerequisites returns the codes of prerequisites no attempt satisfies
func missingPrerequisites(prereqs []models.Prerequisite, records []models.GradeRecord) []string {
	missing := []string{}
	for _, p := range prereqs {
		met := false
		for _, r := range records {
			if r.CourseID == p.PrerequisiteID && r.Grade.Satisfies(p.MinimumGrade) {
				met = true
				break
			}
		}
		if !met {
			missing = append(missing, p.PrerequisiteCode)
		}
	}
	return missing
}

// checkSchedule rejects sections that meet while the student is in class
func (s *enrollmentServiceImpl) checkSchedule(ctx context.Context, studentID int64, section *models.Section) error {
	own, err := s.Meetings.BySection(ctx, section.ID)
	if err != nil || len(own) == 0 {
		return err
	}
	busy, err := s.Meetings.ByStudent(ctx, studentID, section.TermID)
	if err != nil {
		return err
	}
	if clash := firstOverlap(own, busy, section.ID); clash != nil {
		return apperrors.NewCustomError(apperrors.ErrScheduleConflict, "section meets at the same time as another enrolled section").
			WithDetails(conflictDetails(clash))
	}
	return nil
}

// Drop releases a seat or waitlist place and promotes the next waiting student
func (s *enrollmentServiceImpl) Drop(ctx context.Context, actor models.Actor, enrollmentID int64) (*models.Enrollment, error) {
	current, err := s.Enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeStudent(ctx, s.Students, actor, current.StudentID); err != nil {
		return nil, err
	}

	var dropped *models.Enrollment
	var promoted []*models.Enrollment
	err = s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// Section first, matching the lock order of Enroll
		section, err := s.Sections.GetForUpdate(ctx, current.SectionID)
		if err != nil {
			return err
		}
		e, err := s.Enrollments.GetForUpdate(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if !e.Status.IsActive() {
			return apperrors.NewCustomError(apperrors.ErrInvalidEnrollmentState,
				fmt.Sprintf("cannot drop an enrollment that is %s", e.Status))
		}

		now := s.now()
		wasEnrolled := e.Status == models.EnrollmentStatusEnrolled
		if wasEnrolled {
			term, err := s.Terms.GetByID(ctx, section.TermID)
			if err != nil {
				return err
			}
			if !term.DropAllowed(now) {
				return apperrors.ErrDropDeadlinePassed
			}
		}

		position := 0
		if e.WaitlistPosition != nil {
			position = *e.WaitlistPosition
		}
		prevStatus := e.Status
		e.Status = models.EnrollmentStatusDropped
		e.WaitlistPosition = nil
		e.DroppedAt = &now
		if err := s.Enrollments.Save(ctx, e); err != nil {
			return err
		}

		if wasEnrolled {
			section.EnrolledCount--
			promoted, err = promoteWaitlist(ctx, s.Enrollments, section, now)
			if err != nil {
				return err
			}
		} else {
			section.WaitlistCount--
			if err := s.Enrollments.ShiftWaitlist(ctx, section.ID, position); err != nil {
				return err
			}
		}
		if err := s.Sections.Save(ctx, section); err != nil {
			return err
		}

		if err := s.Audit.Record(ctx, actor, models.AuditActionDrop, models.EntityEnrollment, e.ID, map[string]interface{}{
			"studentId": e.StudentID,
			"sectionId": e.SectionID,
			"from":      prevStatus,
		}); err != nil {
			return err
		}
		for _, p := range promoted {
			if err := s.Audit.Record(ctx, actor, models.AuditActionPromote, models.EntityEnrollment, p.ID,
				map[string]interface{}{"sectionId": p.SectionID, "studentId": p.StudentID}); err != nil {
				return err
			}
		}
		dropped = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(promoted) > 0 {
		s.Metrics.Promotions(len(promoted))
		notifyPromoted(ctx, s.Notifier, s.Students, s.logger, promoted)
	}
	s.logger.Info().Int64("enrollmentID", enrollmentID).Int("promoted", len(promoted)).Msg("Enrollment dropped")
	return dropped, nil
}

// StudentEnrollments lists a student's enrollments, optionally within one term
func (s *enrollmentServiceImpl) StudentEnrollments(ctx context.Context, actor models.Actor, studentID int64, termID *int64) ([]*models.Enrollment, error) {
	if err := authorizeStudent(ctx, s.Students, actor, studentID); err != nil {
		return nil, err
	}
	if _, err := s.Students.GetByID(ctx, studentID); err != nil {
		return nil, err
	}
	return s.Enrollments.ByStudent(ctx, studentID, termID)
}

// SectionRoster lists enrolled students followed by the waitlist.
// Staff and the section's instructor may read it.
func (s *enrollmentServiceImpl) SectionRoster(ctx context.Context, actor models.Actor, sectionID int64) ([]*models.Enrollment, error) {
	section, err := s.Sections.GetByID(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if err := authorizeSectionInstructor(ctx, s.Instructors, actor, section); err != nil {
		return nil, err
	}
	return s.Enrollments.Roster(ctx, sectionID)
}

// authorizeSectionInstructor allows staff and the instructor assigned to the section
func authorizeSectionInstructor(ctx context.Context, instructors instructorByUser, actor models.Actor, section *models.Section) error {
	if actor.Role.IsStaff() {
		return nil
	}
	if actor.Role != models.RoleInstructor || section.InstructorID == nil {
		return apperrors.NewForbiddenError("only staff or the section's instructor may do this")
	}
	own, err := instructors.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInstructorNotFound) {
			return apperrors.NewForbiddenError("no instructor record is linked to this account")
		}
		return err
	}
	if own.ID != *section.InstructorID {
		return apperrors.NewForbiddenError("instructors may only act on their own sections")
	}
	return nil
}
