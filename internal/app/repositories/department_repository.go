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
	"github.com/universys/universyslite/internal/pkg/logger"
)

// DepartmentRepository handles database operations for departments
type DepartmentRepository struct {
	base
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *pgxpool.Pool) *DepartmentRepository {
	return &DepartmentRepository{base: newBase(db)}
}

func departmentWriteError(err error) error {
	if dberrors.IsDuplicateConstraintError(err, "departments_name_key") ||
		dberrors.IsDuplicateConstraintError(err, "departments_code_key") {
		return apperrors.ErrDepartmentAlreadyExists
	}
	return err
}

// Create creates a new department
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	sql, args, err := r.sb.Insert("departments").
		Columns("name", "code").
		Values(department.Name, department.Code).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create department query: %w", err)
	}

	err = r.q(ctx).QueryRow(ctx, sql, args...).Scan(&department.ID, &department.CreatedAt)
	if err != nil {
		if e := departmentWriteError(err); e != err {
			return e
		}
		logger.Error().Err(err).Str("code", department.Code).Msg("Error creating department")
		return fmt.Errorf("error creating department: %w", err)
	}
	return nil
}

// GetByID retrieves a department by ID
func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*models.Department, error) {
	sql, args, err := r.sb.Select("id", "name", "code", "created_at").
		From("departments").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get department query: %w", err)
	}

	var d models.Department
	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&d.ID, &d.Name, &d.Code, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("error retrieving department: %w", err)
	}
	return &d, nil
}

// GetAll retrieves all departments ordered by code
func (r *DepartmentRepository) GetAll(ctx context.Context) ([]*models.Department, error) {
	sql, args, err := r.sb.Select("id", "name", "code", "created_at").
		From("departments").
		OrderBy("code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list departments query: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing departments: %w", err)
	}
	defer rows.Close()

	departments := []*models.Department{}
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.CreatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, &d)
	}
	return departments, rows.Err()
}

// GetByCode retrieves a department by its code
func (r *DepartmentRepository) GetByCode(ctx context.Context, code string) (*models.Department, error) {
	sql, args, err := r.sb.Select("id", "name", "code", "created_at").
		From("departments").
		Where(squirrel.Eq{"code": code}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get department query: %w", err)
	}

	var d models.Department
	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&d.ID, &d.Name, &d.Code, &d.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("error retrieving department: %w", err)
	}
	return &d, nil
}

// Update updates a department
func (r *DepartmentRepository) Update(ctx context.Context, department *models.Department) error {
	sql, args, err := r.sb.Update("departments").
		Set("name", department.Name).
		Set("code", department.Code).
		Where(squirrel.Eq{"id": department.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update department query: %w", err)
	}

	tag, err := r.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if e := departmentWriteError(err); e != err {
			return e
		}
		return fmt.Errorf("error updating department: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDepartmentNotFound
	}
	return nil
}

// Delete deletes a department
func (r *DepartmentRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("departments").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete department query: %w", err)
	}

	tag, err := r.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrDepartmentHasRelations
		}
		return fmt.Errorf("error deleting department: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDepartmentNotFound
	}
	return nil
}

// HasRelations reports whether courses, students or instructors reference the department
func (r *DepartmentRepository) HasRelations(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.q(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM courses WHERE department_id = $1)
		    OR EXISTS(SELECT 1 FROM students WHERE department_id = $1)
		    OR EXISTS(SELECT 1 FROM instructors WHERE department_id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking department relations: %w", err)
	}
	return exists, nil
}
