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

var studentColumns = []string{
	"id", "user_id", "student_number", "first_name", "last_name", "email",
	"department_id", "status", "enrollment_date", "created_at", "updated_at",
}

// StudentRepository handles database operations for student records
type StudentRepository struct {
	base
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{base: newBase(db)}
}

func scanStudent(row rowScanner) (*models.Student, error) {
	var s models.Student
	err := row.Scan(
		&s.ID, &s.UserID, &s.StudentNumber, &s.FirstName, &s.LastName, &s.Email,
		&s.DepartmentID, &s.Status, &s.EnrollmentDate, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func studentWriteError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, "students_student_number_key"):
		return apperrors.ErrStudentNumberAlreadyExists
	case dberrors.IsDuplicateConstraintError(err, "students_email_key"):
		return apperrors.ErrEmailAlreadyExists
	case dberrors.IsDuplicateConstraintError(err, "students_user_id_key"):
		return apperrors.NewConflictError("user is already linked to another student")
	case dberrors.IsForeignKeyViolation(err):
		return apperrors.ErrDepartmentNotFound
	}
	return nil
}

// Create inserts a student record
func (r *StudentRepository) Create(ctx context.Context, s *models.Student) error {
	sql, args, err := r.sb.Insert("students").
		Columns("user_id", "student_number", "first_name", "last_name", "email", "department_id", "status", "enrollment_date").
		Values(s.UserID, s.StudentNumber, s.FirstName, s.LastName, s.Email, s.DepartmentID, s.Status, s.EnrollmentDate).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create student query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if mapped := studentWriteError(err); mapped != nil {
			return mapped
		}
		logger.Error().Err(err).Str("studentNumber", s.StudentNumber).Msg("Error creating student")
		return fmt.Errorf("error creating student: %w", err)
	}
	return nil
}

func (r *StudentRepository) getOne(ctx context.Context, where squirrel.Sqlizer, suffix ...string) (*models.Student, error) {
	q := r.sb.Select(studentColumns...).From("students").Where(where)
	for _, sfx := range suffix {
		q = q.Suffix(sfx)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	s, err := scanStudent(r.q(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return s, nil
}

// GetByID retrieves a student by ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetForUpdate retrieves a student and locks the row until the transaction ends
func (r *StudentRepository) GetForUpdate(ctx context.Context, id int64) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, "FOR UPDATE")
}

// GetByUserID retrieves the student linked to a login account
func (r *StudentRepository) GetByUserID(ctx context.Context, userID int64) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"user_id": userID})
}

func studentFilter(f models.StudentFilter) squirrel.And {
	where := squirrel.And{}
	if f.DepartmentID != nil {
		where = append(where, squirrel.Eq{"department_id": *f.DepartmentID})
	}
	if f.Status != nil {
		where = append(where, squirrel.Eq{"status": *f.Status})
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		where = append(where, squirrel.Or{
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"last_name": pattern},
			squirrel.ILike{"email": pattern},
			squirrel.Like{"student_number": pattern},
		})
	}
	return where
}

// List returns a filtered page of students ordered by student number
func (r *StudentRepository) List(ctx context.Context, f models.StudentFilter, p helpers.Page) ([]*models.Student, int64, error) {
	where := studentFilter(f)

	total, err := r.count(ctx, r.sb.Select("COUNT(*)").From("students").Where(where))
	if err != nil {
		return nil, 0, err
	}

	query := r.sb.Select(studentColumns...).From("students").Where(where).OrderBy("student_number")
	sql, args, err := paginate(query, p).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	students := []*models.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning student: %w", err)
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

// Update writes the editable fields of a student
func (r *StudentRepository) Update(ctx context.Context, s *models.Student) error {
	sql, args, err := r.sb.Update("students").
		Set("student_number", s.StudentNumber).
		Set("first_name", s.FirstName).
		Set("last_name", s.LastName).
		Set("email", s.Email).
		Set("department_id", s.DepartmentID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": s.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update student query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrStudentNotFound
		}
		if mapped := studentWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("error updating student: %w", err)
	}
	return nil
}

// UpdateStatus changes the academic status of a student
func (r *StudentRepository) UpdateStatus(ctx context.Context, id int64, status models.StudentStatus) error {
	sql, args, err := r.sb.Update("students").
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update student status query: %w", err)
	}

	tag, err := r.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating student status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}
