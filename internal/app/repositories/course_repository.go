package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/dberrors"
	"github.com/universys/universyslite/internal/pkg/helpers"
	"github.com/universys/universyslite/internal/pkg/logger"
)

var courseColumns = []string{
	"id", "department_id", "code", "title", "description", "credits",
	"is_active", "created_at", "updated_at",
}

// CourseRepository handles catalog and prerequisite storage
type CourseRepository struct {
	base
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(db *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{base: newBase(db)}
}

func scanCourse(row rowScanner) (*models.Course, error) {
	var c models.Course
	err := row.Scan(
		&c.ID, &c.DepartmentID, &c.Code, &c.Title, &c.Description, &c.Credits,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func courseWriteError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, "courses_code_key"):
		return apperrors.ErrCourseAlreadyExists
	case dberrors.IsForeignKeyViolation(err):
		return apperrors.ErrDepartmentNotFound
	}
	return nil
}

// Create inserts a course
func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	sql, args, err := r.sb.Insert("courses").
		Columns("department_id", "code", "title", "description", "credits", "is_active").
		Values(c.DepartmentID, c.Code, c.Title, c.Description, c.Credits, c.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create course query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if mapped := courseWriteError(err); mapped != nil {
			return mapped
		}
		logger.Error().Err(err).Str("code", c.Code).Msg("Error creating course")
		return fmt.Errorf("error creating course: %w", err)
	}
	return nil
}

// GetByID retrieves a course by ID without its prerequisites
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	sql, args, err := r.sb.Select(courseColumns...).From("courses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	c, err := scanCourse(r.q(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("error retrieving course: %w", err)
	}
	return c, nil
}

// List returns a filtered page of courses ordered by code
func (r *CourseRepository) List(ctx context.Context, f models.CourseFilter, p helpers.Page) ([]*models.Course, int64, error) {
	where := squirrel.And{}
	if f.DepartmentID != nil {
		where = append(where, squirrel.Eq{"department_id": *f.DepartmentID})
	}
	if f.IsActive != nil {
		where = append(where, squirrel.Eq{"is_active": *f.IsActive})
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		where = append(where, squirrel.Or{
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"title": pattern},
		})
	}

	total, err := r.count(ctx, r.sb.Select("COUNT(*)").From("courses").Where(where))
	if err != nil {
		return nil, 0, err
	}

	sql, args, err := paginate(r.sb.Select(courseColumns...).From("courses").Where(where).OrderBy("code"), p).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list courses query: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing courses: %w", err)
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, total, rows.Err()
}

// Update writes the editable fields of a course
func (r *CourseRepository) Update(ctx context.Context, c *models.Course) error {
	sql, args, err := r.sb.Update("courses").
		Set("code", c.Code).
		Set("title", c.Title).
		Set("description", c.Description).
		Set("credits", c.Credits).
		Set("is_active", c.IsActive).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": c.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update course query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrCourseNotFound
		}
		if mapped := courseWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("error updating course: %w", err)
	}
	return nil
}

// HasSections reports whether any section was ever scheduled for the course
func (r *CourseRepository) HasSections(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.q(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sections WHERE course_id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking course sections: %w", err)
	}
	return exists, nil
}

// Delete removes a course that has no sections and is not a prerequisite
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q(ctx).Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewConflictError("course is referenced by sections or prerequisites")
		}
		return fmt.Errorf("error deleting course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCourseNotFound
	}
	return nil
}

// Prerequisites lists the prerequisites of a course with their codes
func (r *CourseRepository) Prerequisites(ctx context.Context, courseID int64) ([]models.Prerequisite, error) {
	sql, args, err := r.sb.Select("cp.course_id", "cp.prerequisite_id", "c.code", "cp.minimum_grade").
		From("course_prerequisites cp").
		Join("courses c ON c.id = cp.prerequisite_id").
		Where(squirrel.Eq{"cp.course_id": courseID}).
		OrderBy("c.code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build prerequisites query: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing prerequisites: %w", err)
	}
	defer rows.Close()

	prereqs := []models.Prerequisite{}
	for rows.Next() {
		var p models.Prerequisite
		if err := rows.Scan(&p.CourseID, &p.PrerequisiteID, &p.PrerequisiteCode, &p.MinimumGrade); err != nil {
			return nil, fmt.Errorf("error scanning prerequisite: %w", err)
		}
		prereqs = append(prereqs, p)
	}
	return prereqs, rows.Err()
}

// ReplacePrerequisites swaps the prerequisite set of a course. Call it inside a transaction.
func (r *CourseRepository) ReplacePrerequisites(ctx context.Context, courseID int64, prereqs []models.Prerequisite) error {
	if _, err := r.q(ctx).Exec(ctx, `DELETE FROM course_prerequisites WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("error clearing prerequisites: %w", err)
	}
	if len(prereqs) == 0 {
		return nil
	}

	insert := r.sb.Insert("course_prerequisites").Columns("course_id", "prerequisite_id", "minimum_grade")
	for _, p := range prereqs {
		insert = insert.Values(courseID, p.PrerequisiteID, p.MinimumGrade)
	}
	sql, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert prerequisites query: %w", err)
	}
	if _, err := r.q(ctx).Exec(ctx, sql, args...); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrCourseNotFound
		}
		return fmt.Errorf("error inserting prerequisites: %w", err)
	}
	return nil
}

// Requires reports whether courseID lists prerequisiteID as a direct prerequisite
func (r *CourseRepository) Requires(ctx context.Context, courseID, prerequisiteID int64) (bool, error) {
	var exists bool
	err := r.q(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM course_prerequisites WHERE course_id = $1 AND prerequisite_id = $2)`,
		courseID, prerequisiteID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking prerequisite: %w", err)
	}
	return exists, nil
}
