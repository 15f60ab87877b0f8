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

var instructorColumns = []string{
	"id", "user_id", "first_name", "last_name", "email", "title",
	"department_id", "created_at", "updated_at",
}

// InstructorRepository handles database operations for instructors
type InstructorRepository struct {
	base
}

// NewInstructorRepository creates a new InstructorRepository
func NewInstructorRepository(db *pgxpool.Pool) *InstructorRepository {
	return &InstructorRepository{base: newBase(db)}
}

func scanInstructor(row rowScanner) (*models.Instructor, error) {
	var i models.Instructor
	err := row.Scan(
		&i.ID, &i.UserID, &i.FirstName, &i.LastName, &i.Email, &i.Title,
		&i.DepartmentID, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func instructorWriteError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, "instructors_email_key"):
		return apperrors.ErrEmailAlreadyExists
	case dberrors.IsDuplicateConstraintError(err, "instructors_user_id_key"):
		return apperrors.NewConflictError("user is already linked to another instructor")
	case dberrors.IsForeignKeyViolation(err):
		return apperrors.ErrDepartmentNotFound
	}
	return nil
}

// Create inserts an instructor
func (r *InstructorRepository) Create(ctx context.Context, i *models.Instructor) error {
	sql, args, err := r.sb.Insert("instructors").
		Columns("user_id", "first_name", "last_name", "email", "title", "department_id").
		Values(i.UserID, i.FirstName, i.LastName, i.Email, i.Title, i.DepartmentID).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create instructor query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt); err != nil {
		if mapped := instructorWriteError(err); mapped != nil {
			return mapped
		}
		logger.Error().Err(err).Str("email", i.Email).Msg("Error creating instructor")
		return fmt.Errorf("error creating instructor: %w", err)
	}
	return nil
}

func (r *InstructorRepository) getOne(ctx context.Context, where squirrel.Sqlizer, suffix ...string) (*models.Instructor, error) {
	q := r.sb.Select(instructorColumns...).From("instructors").Where(where)
	for _, sfx := range suffix {
		q = q.Suffix(sfx)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get instructor query: %w", err)
	}

	i, err := scanInstructor(r.q(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInstructorNotFound
		}
		return nil, fmt.Errorf("error retrieving instructor: %w", err)
	}
	return i, nil
}

// GetByID retrieves an instructor by ID
func (r *InstructorRepository) GetByID(ctx context.Context, id int64) (*models.Instructor, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetForUpdate retrieves an instructor and locks the row until the transaction ends
func (r *InstructorRepository) GetForUpdate(ctx context.Context, id int64) (*models.Instructor, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, "FOR UPDATE")
}

// GetByUserID retrieves the instructor linked to a login account
func (r *InstructorRepository) GetByUserID(ctx context.Context, userID int64) (*models.Instructor, error) {
	return r.getOne(ctx, squirrel.Eq{"user_id": userID})
}

// List returns a page of instructors, optionally restricted to one department
func (r *InstructorRepository) List(ctx context.Context, departmentID *int64, p helpers.Page) ([]*models.Instructor, int64, error) {
	where := squirrel.And{}
	if departmentID != nil {
		where = append(where, squirrel.Eq{"department_id": *departmentID})
	}

	total, err := r.count(ctx, r.sb.Select("COUNT(*)").From("instructors").Where(where))
	if err != nil {
		return nil, 0, err
	}

	query := r.sb.Select(instructorColumns...).From("instructors").Where(where).OrderBy("last_name", "first_name", "id")
	sql, args, err := paginate(query, p).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list instructors query: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing instructors: %w", err)
	}
	defer rows.Close()

	instructors := []*models.Instructor{}
	for rows.Next() {
		i, err := scanInstructor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning instructor: %w", err)
		}
		instructors = append(instructors, i)
	}
	return instructors, total, rows.Err()
}

// Update writes the editable fields of an instructor
func (r *InstructorRepository) Update(ctx context.Context, i *models.Instructor) error {
	sql, args, err := r.sb.Update("instructors").
		Set("first_name", i.FirstName).
		Set("last_name", i.LastName).
		Set("email", i.Email).
		Set("title", i.Title).
		Set("department_id", i.DepartmentID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": i.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update instructor query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&i.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrInstructorNotFound
		}
		if mapped := instructorWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("error updating instructor: %w", err)
	}
	return nil
}

// Delete removes an instructor who teaches no sections
func (r *InstructorRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("instructors").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete instructor query: %w", err)
	}

	tag, err := r.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewConflictError("instructor is assigned to sections")
		}
		return fmt.Errorf("error deleting instructor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInstructorNotFound
	}
	return nil
}
