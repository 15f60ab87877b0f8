package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/dberrors"
	"github.com/universys/universyslite/internal/pkg/logger"
)

var enrollmentColumns = []string{
	"e.id", "e.student_id", "e.section_id", "e.status", "e.waitlist_position", "e.grade",
	"e.enrolled_at", "e.dropped_at", "e.graded_at", "e.updated_at",
	"s.course_id", "c.code", "c.title", "c.credits", "s.term_id", "t.code", "s.section_number",
	"st.first_name || ' ' || st.last_name", "st.student_number",
}

// EnrollmentRepository handles registrations, waitlist order and grades
type EnrollmentRepository struct {
	base
}

// NewEnrollmentRepository creates a new EnrollmentRepository
func NewEnrollmentRepository(db *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{base: newBase(db)}
}

func (r *EnrollmentRepository) selectEnrollments() squirrel.SelectBuilder {
	return r.sb.Select(enrollmentColumns...).
		From("enrollments e").
		Join("sections s ON s.id = e.section_id").
		Join("courses c ON c.id = s.course_id").
		Join("terms t ON t.id = s.term_id").
		Join("students st ON st.id = e.student_id")
}

func scanEnrollment(row rowScanner) (*models.Enrollment, error) {
	var e models.Enrollment
	var grade *string
	err := row.Scan(
		&e.ID, &e.StudentID, &e.SectionID, &e.Status, &e.WaitlistPosition, &grade,
		&e.EnrolledAt, &e.DroppedAt, &e.GradedAt, &e.UpdatedAt,
		&e.CourseID, &e.CourseCode, &e.CourseTitle, &e.Credits, &e.TermID, &e.TermCode, &e.SectionNumber,
		&e.StudentName, &e.StudentNumber,
	)
	if err != nil {
		return nil, err
	}
	if grade != nil {
		g := models.Grade(*grade)
		e.Grade = &g
	}
	return &e, nil
}

func (r *EnrollmentRepository) getOne(ctx context.Context, query squirrel.SelectBuilder) (*models.Enrollment, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get enrollment query: %w", err)
	}
	e, err := scanEnrollment(r.q(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("error retrieving enrollment: %w", err)
	}
	return e, nil
}

func (r *EnrollmentRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Enrollment, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list enrollments query: %w", err)
	}
	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing enrollments: %w", err)
	}
	defer rows.Close()

	out := []*models.Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning enrollment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetByID retrieves an enrollment with its course, term and student context
func (r *EnrollmentRepository) GetByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	return r.getOne(ctx, r.selectEnrollments().Where(squirrel.Eq{"e.id": id}))
}

// GetForUpdate retrieves an enrollment and locks its row
func (r *EnrollmentRepository) GetForUpdate(ctx context.Context, id int64) (*models.Enrollment, error) {
	return r.getOne(ctx, r.selectEnrollments().Where(squirrel.Eq{"e.id": id}).Suffix("FOR UPDATE OF e"))
}

// FindByStudentSection returns the row for a student in a section, whatever its status
func (r *EnrollmentRepository) FindByStudentSection(ctx context.Context, studentID, sectionID int64) (*models.Enrollment, error) {
	return r.getOne(ctx, r.selectEnrollments().Where(squirrel.Eq{"e.student_id": studentID, "e.section_id": sectionID}))
}

// HasActiveForCourse reports whether the student is enrolled or waitlisted in any
// section of courseID during termID
func (r *EnrollmentRepository) HasActiveForCourse(ctx context.Context, studentID, courseID, termID int64) (bool, error) {
	var exists bool
	err := r.q(ctx).QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM enrollments e
			JOIN sections s ON s.id = e.section_id
			WHERE e.student_id = $1 AND s.course_id = $2 AND s.term_id = $3
			  AND e.status IN ('ENROLLED', 'WAITLISTED')
		)`, studentID, courseID, termID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking active enrollment: %w", err)
	}
	return exists, nil
}

// Create inserts an enrollment row
func (r *EnrollmentRepository) Create(ctx context.Context, e *models.Enrollment) error {
	sql, args, err := r.sb.Insert("enrollments").
		Columns("student_id", "section_id", "status", "waitlist_position", "enrolled_at").
		Values(e.StudentID, e.SectionID, e.Status, e.WaitlistPosition, e.EnrolledAt).
		Suffix("RETURNING id, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create enrollment query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&e.ID, &e.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "enrollments_student_section_key") {
			return apperrors.ErrAlreadyEnrolled
		}
		logger.Error().Err(err).Int64("studentID", e.StudentID).Int64("sectionID", e.SectionID).Msg("Error creating enrollment")
		return fmt.Errorf("error creating enrollment: %w", err)
	}
	return nil
}

// Save writes the mutable state of an enrollment
func (r *EnrollmentRepository) Save(ctx context.Context, e *models.Enrollment) error {
	var grade *string
	if e.Grade != nil {
		g := string(*e.Grade)
		grade = &g
	}

	sql, args, err := r.sb.Update("enrollments").
		Set("status", e.Status).
		Set("waitlist_position", e.WaitlistPosition).
		Set("grade", grade).
		Set("enrolled_at", e.EnrolledAt).
		Set("dropped_at", e.DroppedAt).
		Set("graded_at", e.GradedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": e.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build save enrollment query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrEnrollmentNotFound
		}
		return fmt.Errorf("error saving enrollment: %w", err)
	}
	return nil
}

// WaitlistHead returns the waitlisted row with the lowest position, locked
func (r *EnrollmentRepository) WaitlistHead(ctx context.Context, sectionID int64) (*models.Enrollment, error) {
	return r.getOne(ctx, r.selectEnrollments().
		Where(squirrel.Eq{"e.section_id": sectionID, "e.status": models.EnrollmentStatusWaitlisted}).
		OrderBy("e.waitlist_position").
		Limit(1).
		Suffix("FOR UPDATE OF e"))
}

// ShiftWaitlist moves every waitlist position above `after` down by one
func (r *EnrollmentRepository) ShiftWaitlist(ctx context.Context, sectionID int64, after int) error {
	_, err := r.q(ctx).Exec(ctx, `
		UPDATE enrollments
		SET waitlist_position = waitlist_position - 1, updated_at = NOW()
		WHERE section_id = $1 AND status = 'WAITLISTED' AND waitlist_position > $2
	`, sectionID, after)
	if err != nil {
		return fmt.Errorf("error shifting waitlist: %w", err)
	}
	return nil
}

// DropAllActive drops every enrolled or waitlisted row of a section and returns how many changed
func (r *EnrollmentRepository) DropAllActive(ctx context.Context, sectionID int64, at time.Time) (int64, error) {
	tag, err := r.q(ctx).Exec(ctx, `
		UPDATE enrollments
		SET status = 'DROPPED', waitlist_position = NULL, dropped_at = $2, updated_at = NOW()
		WHERE section_id = $1 AND status IN ('ENROLLED', 'WAITLISTED')
	`, sectionID, at)
	if err != nil {
		return 0, fmt.Errorf("error dropping section enrollments: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ByStudent lists a student's enrollments, optionally within one term
func (r *EnrollmentRepository) ByStudent(ctx context.Context, studentID int64, termID *int64) ([]*models.Enrollment, error) {
	query := r.selectEnrollments().Where(squirrel.Eq{"e.student_id": studentID})
	if termID != nil {
		query = query.Where(squirrel.Eq{"s.term_id": *termID})
	}
	return r.list(ctx, query.OrderBy("t.start_date DESC", "c.code"))
}

// Roster lists enrolled students by name followed by the waitlist in position order
func (r *EnrollmentRepository) Roster(ctx context.Context, sectionID int64) ([]*models.Enrollment, error) {
	return r.list(ctx, r.selectEnrollments().
		Where(squirrel.Eq{"e.section_id": sectionID}).
		Where(squirrel.Eq{"e.status": []models.EnrollmentStatus{
			models.EnrollmentStatusEnrolled, models.EnrollmentStatusCompleted, models.EnrollmentStatusWaitlisted,
		}}).
		OrderBy("e.status = 'WAITLISTED'", "e.waitlist_position", "st.last_name", "st.first_name"))
}

// GradeRecords lists every graded attempt of a student with term context
func (r *EnrollmentRepository) GradeRecords(ctx context.Context, studentID int64) ([]models.GradeRecord, error) {
	sql, args, err := r.sb.Select(
		"e.id", "s.course_id", "c.code", "c.title", "c.credits", "e.grade",
		"t.id", "t.code", "t.name", "t.start_date", "e.graded_at",
	).
		From("enrollments e").
		Join("sections s ON s.id = e.section_id").
		Join("courses c ON c.id = s.course_id").
		Join("terms t ON t.id = s.term_id").
		Where(squirrel.Eq{"e.student_id": studentID, "e.status": models.EnrollmentStatusCompleted}).
		Where(squirrel.NotEq{"e.grade": nil}).
		OrderBy("t.start_date", "e.graded_at", "c.code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build grade records query: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing grade records: %w", err)
	}
	defer rows.Close()

	records := []models.GradeRecord{}
	for rows.Next() {
		var rec models.GradeRecord
		var grade string
		var gradedAt *time.Time
		if err := rows.Scan(
			&rec.EnrollmentID, &rec.CourseID, &rec.CourseCode, &rec.CourseTitle, &rec.Credits, &grade,
			&rec.TermID, &rec.TermCode, &rec.TermName, &rec.TermStartDate, &gradedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning grade record: %w", err)
		}
		rec.Grade = models.Grade(grade)
		if gradedAt != nil {
			rec.GradedAt = *gradedAt
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *EnrollmentRepository) sumCredits(ctx context.Context, studentID, termID int64, statuses ...models.EnrollmentStatus) (int, error) {
	sql, args, err := r.sb.Select("COALESCE(SUM(c.credits), 0)").
		From("enrollments e").
		Join("sections s ON s.id = e.section_id").
		Join("courses c ON c.id = s.course_id").
		Where(squirrel.Eq{"e.student_id": studentID, "s.term_id": termID, "e.status": statuses}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build credits query: %w", err)
	}
	var credits int
	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&credits); err != nil {
		return 0, fmt.Errorf("error summing credits: %w", err)
	}
	return credits, nil
}

// EnrolledCredits sums the credits a student currently holds seats for in a term
func (r *EnrollmentRepository) EnrolledCredits(ctx context.Context, studentID, termID int64) (int, error) {
	return r.sumCredits(ctx, studentID, termID, models.EnrollmentStatusEnrolled)
}

// BillableCredits sums enrolled and completed credits of a student in a term
func (r *EnrollmentRepository) BillableCredits(ctx context.Context, studentID, termID int64) (int, error) {
	return r.sumCredits(ctx, studentID, termID, models.EnrollmentStatusEnrolled, models.EnrollmentStatusCompleted)
}
