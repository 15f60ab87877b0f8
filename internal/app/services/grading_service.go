package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/cache"
)

// GradingService posts grades and computes transcripts
type GradingService interface {
	PostGrade(ctx context.Context, actor models.Actor, enrollmentID int64, req *dto.PostGradeRequest) (*models.Enrollment, error)
	PostSectionGrades(ctx context.Context, actor models.Actor, sectionID int64, req *dto.SectionGradesRequest) ([]*models.Enrollment, error)
	Transcript(ctx context.Context, actor models.Actor, studentID int64) (*models.Transcript, error)
}

type gradeStore interface {
	GetByID(ctx context.Context, id int64) (*models.Enrollment, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Enrollment, error)
	Save(ctx context.Context, e *models.Enrollment) error
	GradeRecords(ctx context.Context, studentID int64) ([]models.GradeRecord, error)
}

// GradingDeps groups the collaborators of the grading service
type GradingDeps struct {
	Enrollments gradeStore
	Sections    sectionWriter
	Students    studentLookup
	Instructors instructorByUser
	Cache       cache.Cache
	Tx          Transactor
	Audit       auditRecorder
}

type gradingServiceImpl struct {
	GradingDeps
	now    Clock
	logger zerolog.Logger
}

// NewGradingService creates a new grading service
func NewGradingService(deps GradingDeps, logger zerolog.Logger) GradingService {
	return &gradingServiceImpl{GradingDeps: deps, now: utcNow, logger: logger}
}

// goodStandingGPA is the lowest cumulative GPA in good standing
var goodStandingGPA = decimal.RequireFromString("2.00")

// PostGrade records or replaces the grade of one enrollment
func (s *gradingServiceImpl) PostGrade(ctx context.Context, actor models.Actor, enrollmentID int64, req *dto.PostGradeRequest) (*models.Enrollment, error) {
	grade, err := models.ParseGrade(req.Grade)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	current, err := s.Enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}

	var graded *models.Enrollment
	err = s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		section, err := s.Sections.GetForUpdate(ctx, current.SectionID)
		if err != nil {
			return err
		}
		if err := authorizeSectionInstructor(ctx, s.Instructors, actor, section); err != nil {
			return err
		}
		e, err := s.Enrollments.GetForUpdate(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if err := s.applyGrade(ctx, actor, section, e, grade); err != nil {
			return err
		}
		if err := s.Sections.Save(ctx, section); err != nil {
			return err
		}
		graded = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateTranscripts(ctx, graded.StudentID)
	return graded, nil
}

// PostSectionGrades applies a whole grade sheet or nothing
func (s *gradingServiceImpl) PostSectionGrades(ctx context.Context, actor models.Actor, sectionID int64, req *dto.SectionGradesRequest) ([]*models.Enrollment, error) {
	if len(req.Grades) == 0 {
		return nil, apperrors.NewValidationError("grade sheet is empty")
	}
	grades := make([]models.Grade, len(req.Grades))
	seen := make(map[int64]bool, len(req.Grades))
	for i, in := range req.Grades {
		g, err := models.ParseGrade(in.Grade)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("enrollment %d: %v", in.EnrollmentID, err))
		}
		if seen[in.EnrollmentID] {
			return nil, apperrors.NewValidationError(fmt.Sprintf("enrollment %d is listed twice", in.EnrollmentID))
		}
		seen[in.EnrollmentID] = true
		grades[i] = g
	}

	var graded []*models.Enrollment
	err := s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		section, err := s.Sections.GetForUpdate(ctx, sectionID)
		if err != nil {
			return err
		}
		if err := authorizeSectionInstructor(ctx, s.Instructors, actor, section); err != nil {
			return err
		}
		graded = make([]*models.Enrollment, 0, len(req.Grades))
		for i, in := range req.Grades {
			e, err := s.Enrollments.GetForUpdate(ctx, in.EnrollmentID)
			if err != nil {
				return err
			}
			if e.SectionID != sectionID {
				return apperrors.NewValidationError(fmt.Sprintf("enrollment %d does not belong to section %d", e.ID, sectionID))
			}
			if err := s.applyGrade(ctx, actor, section, e, grades[i]); err != nil {
				return err
			}
			graded = append(graded, e)
		}
		return s.Sections.Save(ctx, section)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(graded))
	for _, e := range graded {
		ids = append(ids, e.StudentID)
	}
	s.invalidateTranscripts(ctx, ids...)
	s.logger.Info().Int64("sectionID", sectionID).Int("graded", len(graded)).Msg("Section grade sheet posted")
	return graded, nil
}

// applyGrade completes an enrollment with grade. The section's enrolled count
// follows the row out of ENROLLED; the caller saves the section.
func (s *gradingServiceImpl) applyGrade(ctx context.Context, actor models.Actor, section *models.Section, e *models.Enrollment, grade models.Grade) error {
	switch e.Status {
	case models.EnrollmentStatusEnrolled:
		section.EnrolledCount--
	case models.EnrollmentStatusCompleted:
	default:
		return apperrors.NewCustomError(apperrors.ErrInvalidEnrollmentState,
			fmt.Sprintf("cannot grade an enrollment that is %s", e.Status))
	}

	var old interface{}
	if e.Grade != nil {
		old = *e.Grade
	}
	now := s.now()
	e.Status = models.EnrollmentStatusCompleted
	e.Grade = &grade
	e.GradedAt = &now
	if err := s.Enrollments.Save(ctx, e); err != nil {
		return err
	}
	return s.Audit.Record(ctx, actor, models.AuditActionGrade, models.EntityEnrollment, e.ID, map[string]interface{}{
		"studentId": e.StudentID,
		"sectionId": e.SectionID,
		"oldGrade":  old,
		"newGrade":  grade,
	})
}

func (s *gradingServiceImpl) invalidateTranscripts(ctx context.Context, studentIDs ...int64) {
	keys := make([]string, 0, len(studentIDs))
	for _, id := range studentIDs {
		keys = append(keys, cache.TranscriptKey(id))
	}
	if err := s.Cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn().Err(err).Msg("Transcript cache invalidation failed")
	}
}

// Transcript returns a student's academic record, cached until the next grade change
func (s *gradingServiceImpl) Transcript(ctx context.Context, actor models.Actor, studentID int64) (*models.Transcript, error) {
	if err := authorizeStudent(ctx, s.Students, actor, studentID); err != nil {
		return nil, err
	}

	key := cache.TranscriptKey(studentID)
	var cached models.Transcript
	if err := s.Cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn().Err(err).Str("key", key).Msg("Transcript cache read failed")
	}

	student, err := s.Students.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	records, err := s.Enrollments.GradeRecords(ctx, studentID)
	if err != nil {
		return nil, err
	}
	transcript := BuildTranscript(student, records)

	if err := s.Cache.Set(ctx, key, transcript); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Transcript cache write failed")
	}
	return transcript, nil
}

// gpaTotals accumulates quality points and credits
type gpaTotals struct {
	points     decimal.Decimal
	gpaCredits int
	attempted  int
	earned     int
}

func (t *gpaTotals) add(grade models.Grade, credits int) {
	if grade.CountsInGPA() {
		t.points = t.points.Add(grade.Points().Mul(decimal.NewFromInt(int64(credits))))
		t.gpaCredits += credits
	}
	if completesAttempt(grade) {
		t.attempted += credits
	}
	if grade.EarnsCredit() {
		t.earned += credits
	}
}

func completesAttempt(g models.Grade) bool {
	return g != models.GradeWithdrawn && g != models.GradeIncomplete
}

// gpa is quality points over GPA credits, rounded half-up to 2 places
func (t *gpaTotals) gpa() decimal.Decimal {
	if t.gpaCredits == 0 {
		return decimal.Zero.Round(2)
	}
	return t.points.Div(decimal.NewFromInt(int64(t.gpaCredits))).Round(2)
}

// BuildTranscript groups graded attempts by term and computes GPAs.
// records must be ordered by term start then grading time, as GradeRecords returns them.
// Only the latest attempt of a course counts toward cumulative totals; earlier
// attempts stay in their own term and are flagged as repeated.
func BuildTranscript(student *models.Student, records []models.GradeRecord) *models.Transcript {
	// A W or I does not supersede an earlier completed attempt.
	latest := make(map[int64]int64, len(records))
	for _, r := range records {
		if _, seen := latest[r.CourseID]; seen && !completesAttempt(r.Grade) {
			continue
		}
		latest[r.CourseID] = r.EnrollmentID
	}

	transcript := &models.Transcript{
		StudentID:     student.ID,
		StudentNumber: student.StudentNumber,
		StudentName:   student.FullName(),
		Terms:         []models.TranscriptTerm{},
	}

	var cumulative gpaTotals
	var term *models.TranscriptTerm
	var termTotals gpaTotals
	closeTerm := func() {
		if term == nil {
			return
		}
		term.TermGPA = termTotals.gpa()
		term.CreditsAttempted = termTotals.attempted
		term.CreditsEarned = termTotals.earned
		transcript.Terms = append(transcript.Terms, *term)
	}

	for _, r := range records {
		if term == nil || term.TermID != r.TermID {
			closeTerm()
			term = &models.TranscriptTerm{
				TermID:   r.TermID,
				TermCode: r.TermCode,
				TermName: r.TermName,
				Courses:  []models.TranscriptCourse{},
			}
			termTotals = gpaTotals{}
		}

		repeated := latest[r.CourseID] != r.EnrollmentID
		course := models.TranscriptCourse{
			CourseID:    r.CourseID,
			CourseCode:  r.CourseCode,
			CourseTitle: r.CourseTitle,
			Credits:     r.Credits,
			Grade:       r.Grade,
			Repeated:    repeated,
		}
		if r.Grade.CountsInGPA() {
			points := r.Grade.Points()
			course.Points = &points
		}
		term.Courses = append(term.Courses, course)
		termTotals.add(r.Grade, r.Credits)
		if !repeated {
			cumulative.add(r.Grade, r.Credits)
		}
	}
	closeTerm()

	transcript.CumulativeGPA = cumulative.gpa()
	transcript.TotalCreditsAttempted = cumulative.attempted
	transcript.TotalCreditsEarned = cumulative.earned
	transcript.Standing = standing(cumulative)
	return transcript
}

func standing(t gpaTotals) models.AcademicStanding {
	switch {
	case t.attempted == 0:
		return models.StandingNone
	case t.gpaCredits == 0, t.gpa().GreaterThanOrEqual(goodStandingGPA):
		return models.StandingGood
	default:
		return models.StandingProbation
	}
}
