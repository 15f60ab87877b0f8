package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/universys/universyslite/internal/db"
	"github.com/universys/universyslite/internal/pkg/helpers"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository       *UserRepository
	TokenRepository      *TokenRepository
	DepartmentRepository *DepartmentRepository
	StudentRepository    *StudentRepository
	InstructorRepository *InstructorRepository
	CourseRepository     *CourseRepository
	TermRepository       *TermRepository
	RoomRepository       *RoomRepository
	SectionRepository    *SectionRepository
	MeetingRepository    *MeetingRepository
	EnrollmentRepository *EnrollmentRepository
	InvoiceRepository    *InvoiceRepository
	AuditRepository      *AuditRepository
}

// NewRepositories initializes all repositories
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:       NewUserRepository(pool),
		TokenRepository:      NewTokenRepository(pool),
		DepartmentRepository: NewDepartmentRepository(pool),
		StudentRepository:    NewStudentRepository(pool),
		InstructorRepository: NewInstructorRepository(pool),
		CourseRepository:     NewCourseRepository(pool),
		TermRepository:       NewTermRepository(pool),
		RoomRepository:       NewRoomRepository(pool),
		SectionRepository:    NewSectionRepository(pool),
		MeetingRepository:    NewMeetingRepository(pool),
		EnrollmentRepository: NewEnrollmentRepository(pool),
		InvoiceRepository:    NewInvoiceRepository(pool),
		AuditRepository:      NewAuditRepository(pool),
	}
}

// base carries the pool and statement builder every repository shares.
type base struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func newBase(pool *pgxpool.Pool) base {
	return base{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// q returns the transaction in ctx or the pool.
func (b base) q(ctx context.Context) db.Querier {
	return db.Conn(ctx, b.db)
}

// count runs SELECT COUNT(*) over the builder's FROM/WHERE.
func (b base) count(ctx context.Context, query squirrel.SelectBuilder) (int64, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int64
	if err := b.q(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return total, nil
}

func paginate(query squirrel.SelectBuilder, p helpers.Page) squirrel.SelectBuilder {
	return query.Limit(p.Limit()).Offset(p.Offset())
}

// likePattern builds a case-insensitive substring pattern with LIKE wildcards escaped.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

// money converts NUMERIC text read back from postgres.
func money(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid numeric value %q: %w", s, err)
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
