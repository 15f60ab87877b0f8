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

var sectionColumns = []string{
	"s.id", "s.course_id", "s.term_id", "s.section_number", "s.instructor_id",
	"s.capacity", "s.enrolled_count", "s.waitlist_capacity", "s.waitlist_count",
	"s.status", "s.created_at", "s.updated_at",
	"c.code", "c.title", "c.credits", "t.code",
}

// SectionRepository handles section storage including seat counters
type SectionRepository struct {
	base
}

// NewSectionRepository creates a new SectionRepository
func NewSectionRepository(db *pgxpool.Pool) *SectionRepository {
	return &SectionRepository{base: newBase(db)}
}

func (r *SectionRepository) selectSections() squirrel.SelectBuilder {
	return r.sb.Select(sectionColumns...).
		From("sections s").
		Join("courses c ON c.id = s.course_id").
		Join("terms t ON t.id = s.term_id")
}

func scanSection(row rowScanner) (*models.Section, error) {
	var s models.Section
	err := row.Scan(
		&s.ID, &s.CourseID, &s.TermID, &s.SectionNumber, &s.InstructorID,
		&s.Capacity, &s.EnrolledCount, &s.WaitlistCapacity, &s.WaitlistCount,
		&s.Status, &s.CreatedAt, &s.UpdatedAt,
		&s.CourseCode, &s.CourseTitle, &s.Credits, &s.TermCode,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a section with zeroed counters
func (r *SectionRepository) Create(ctx context.Context, s *models.Section) error {
	sql, args, err := r.sb.Insert("sections").
		Columns("course_id", "term_id", "section_number", "instructor_id", "capacity", "waitlist_capacity", "status").
		Values(s.CourseID, s.TermID, s.SectionNumber, s.InstructorID, s.Capacity, s.WaitlistCapacity, s.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create section query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "sections_course_term_number_key") {
			return apperrors.ErrSectionAlreadyExists
		}
		logger.Error().Err(err).Int64("courseID", s.CourseID).Int64("termID", s.TermID).Msg("Error creating section")
		return fmt.Errorf("error creating section: %w", err)
	}
	return nil
}

func (r *SectionRepository) getOne(ctx context.Context, query squirrel.SelectBuilder) (*models.Section, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get section query: %w", err)
	}

	s, err := scanSection(r.q(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSectionNotFound
		}
		return nil, fmt.Errorf("error retrieving section: %w", err)
	}
	return s, nil
}

// GetByID retrieves a section by ID
func (r *SectionRepository) GetByID(ctx context.Context, id int64) (*models.Section, error) {
	return r.getOne(ctx, r.selectSections().Where(squirrel.Eq{"s.id": id}))
}

// GetForUpdate retrieves a section and locks its row until the transaction ends
func (r *SectionRepository) GetForUpdate(ctx context.Context, id int64) (*models.Section, error) {
	return r.getOne(ctx, r.selectSections().Where(squirrel.Eq{"s.id": id}).Suffix("FOR UPDATE OF s"))
}

// List returns a filtered page of sections ordered by course code and section number
func (r *SectionRepository) List(ctx context.Context, f models.SectionFilter, p helpers.Page) ([]*models.Section, int64, error) {
	where := squirrel.And{}
	if f.TermID != nil {
		where = append(where, squirrel.Eq{"s.term_id": *f.TermID})
	}
	if f.CourseID != nil {
		where = append(where, squirrel.Eq{"s.course_id": *f.CourseID})
	}
	if f.InstructorID != nil {
		where = append(where, squirrel.Eq{"s.instructor_id": *f.InstructorID})
	}
	if f.Status != nil {
		where = append(where, squirrel.Eq{"s.status": *f.Status})
	}

	total, err := r.count(ctx, r.sb.Select("COUNT(*)").From("sections s").Where(where))
	if err != nil {
		return nil, 0, err
	}

	sql, args, err := paginate(r.selectSections().Where(where).OrderBy("t.start_date DESC", "c.code", "s.section_number"), p).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list sections query: %w", err)
	}
	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing sections: %w", err)
	}
	defer rows.Close()

	sections := []*models.Section{}
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning section: %w", err)
		}
		sections = append(sections, s)
	}
	return sections, total, rows.Err()
}

// Save writes the mutable state of a section: instructor, capacities, counters and status
func (r *SectionRepository) Save(ctx context.Context, s *models.Section) error {
	sql, args, err := r.sb.Update("sections").
		Set("instructor_id", s.InstructorID).
		Set("capacity", s.Capacity).
		Set("waitlist_capacity", s.WaitlistCapacity).
		Set("enrolled_count", s.EnrolledCount).
		Set("waitlist_count", s.WaitlistCount).
		Set("status", s.Status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": s.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build save section query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrSectionNotFound
		}
		logger.Error().Err(err).Int64("sectionID", s.ID).Msg("Error saving section")
		return fmt.Errorf("error saving section: %w", err)
	}
	return nil
}
