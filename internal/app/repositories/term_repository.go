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
	"github.com/universys/universyslite/internal/pkg/helpers"
)

var termColumns = []string{
	"id", "code", "name", "start_date", "end_date",
	"registration_start", "registration_end", "drop_deadline", "created_at",
}

// TermRepository handles academic term storage
type TermRepository struct {
	base
}

// NewTermRepository creates a new TermRepository
func NewTermRepository(db *pgxpool.Pool) *TermRepository {
	return &TermRepository{base: newBase(db)}
}

func scanTerm(row rowScanner) (*models.Term, error) {
	var t models.Term
	err := row.Scan(
		&t.ID, &t.Code, &t.Name, &t.StartDate, &t.EndDate,
		&t.RegistrationStart, &t.RegistrationEnd, &t.DropDeadline, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a term
func (r *TermRepository) Create(ctx context.Context, t *models.Term) error {
	sql, args, err := r.sb.Insert("terms").
		Columns("code", "name", "start_date", "end_date", "registration_start", "registration_end", "drop_deadline").
		Values(t.Code, t.Name, t.StartDate, t.EndDate, t.RegistrationStart, t.RegistrationEnd, t.DropDeadline).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create term query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&t.ID, &t.CreatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "terms_code_key") {
			return apperrors.ErrTermAlreadyExists
		}
		return fmt.Errorf("error creating term: %w", err)
	}
	return nil
}

func (r *TermRepository) getOne(ctx context.Context, query squirrel.SelectBuilder) (*models.Term, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get term query: %w", err)
	}

	t, err := scanTerm(r.q(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTermNotFound
		}
		return nil, fmt.Errorf("error retrieving term: %w", err)
	}
	return t, nil
}

// GetByID retrieves a term by ID
func (r *TermRepository) GetByID(ctx context.Context, id int64) (*models.Term, error) {
	return r.getOne(ctx, r.sb.Select(termColumns...).From("terms").Where(squirrel.Eq{"id": id}))
}

// Current returns the term whose dates contain day, preferring the latest start
func (r *TermRepository) Current(ctx context.Context, day time.Time) (*models.Term, error) {
	return r.getOne(ctx, r.sb.Select(termColumns...).From("terms").
		Where(squirrel.LtOrEq{"start_date": day}).
		Where(squirrel.GtOrEq{"end_date": day}).
		OrderBy("start_date DESC").
		Limit(1))
}

// List returns a page of terms, newest first
func (r *TermRepository) List(ctx context.Context, p helpers.Page) ([]*models.Term, int64, error) {
	total, err := r.count(ctx, r.sb.Select("COUNT(*)").From("terms"))
	if err != nil {
		return nil, 0, err
	}

	sql, args, err := paginate(r.sb.Select(termColumns...).From("terms").OrderBy("start_date DESC"), p).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list terms query: %w", err)
	}
	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing terms: %w", err)
	}
	defer rows.Close()

	terms := []*models.Term{}
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning term: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, total, rows.Err()
}

// Update writes every field of a term
func (r *TermRepository) Update(ctx context.Context, t *models.Term) error {
	sql, args, err := r.sb.Update("terms").
		Set("code", t.Code).
		Set("name", t.Name).
		Set("start_date", t.StartDate).
		Set("end_date", t.EndDate).
		Set("registration_start", t.RegistrationStart).
		Set("registration_end", t.RegistrationEnd).
		Set("drop_deadline", t.DropDeadline).
		Where(squirrel.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update term query: %w", err)
	}

	tag, err := r.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "terms_code_key") {
			return apperrors.ErrTermAlreadyExists
		}
		return fmt.Errorf("error updating term: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTermNotFound
	}
	return nil
}

// Count returns how many terms exist
func (r *TermRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, r.sb.Select("COUNT(*)").From("terms"))
}
