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
)

var roomColumns = []string{"r.id", "r.building", "r.number", "r.capacity", "r.room_type", "r.is_active", "r.created_at"}

// RoomRepository handles room storage and availability lookups
type RoomRepository struct {
	base
}

// NewRoomRepository creates a new RoomRepository
func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{base: newBase(db)}
}

func scanRoom(row rowScanner) (*models.Room, error) {
	var rm models.Room
	if err := row.Scan(&rm.ID, &rm.Building, &rm.Number, &rm.Capacity, &rm.RoomType, &rm.IsActive, &rm.CreatedAt); err != nil {
		return nil, err
	}
	return &rm, nil
}

// Create inserts a room
func (r *RoomRepository) Create(ctx context.Context, rm *models.Room) error {
	sql, args, err := r.sb.Insert("rooms").
		Columns("building", "number", "capacity", "room_type", "is_active").
		Values(rm.Building, rm.Number, rm.Capacity, rm.RoomType, rm.IsActive).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create room query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&rm.ID, &rm.CreatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "rooms_building_number_key") {
			return apperrors.ErrRoomAlreadyExists
		}
		return fmt.Errorf("error creating room: %w", err)
	}
	return nil
}

// GetByID retrieves a room by ID
func (r *RoomRepository) GetByID(ctx context.Context, id int64) (*models.Room, error) {
	return r.getOne(ctx, id)
}

// GetForUpdate retrieves a room and locks its row until the transaction ends
func (r *RoomRepository) GetForUpdate(ctx context.Context, id int64) (*models.Room, error) {
	return r.getOne(ctx, id, "FOR UPDATE OF r")
}

func (r *RoomRepository) getOne(ctx context.Context, id int64, suffix ...string) (*models.Room, error) {
	q := r.sb.Select(roomColumns...).From("rooms r").Where(squirrel.Eq{"r.id": id})
	for _, sfx := range suffix {
		q = q.Suffix(sfx)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get room query: %w", err)
	}

	rm, err := scanRoom(r.q(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, fmt.Errorf("error retrieving room: %w", err)
	}
	return rm, nil
}

func (r *RoomRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Room, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list rooms query: %w", err)
	}
	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*models.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning room: %w", err)
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

// List returns a page of rooms ordered by building and number
func (r *RoomRepository) List(ctx context.Context, p helpers.Page) ([]*models.Room, int64, error) {
	total, err := r.count(ctx, r.sb.Select("COUNT(*)").From("rooms r"))
	if err != nil {
		return nil, 0, err
	}
	rooms, err := r.list(ctx, paginate(r.sb.Select(roomColumns...).From("rooms r").OrderBy("r.building", "r.number"), p))
	if err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

// Available returns active rooms of at least minCapacity with no meeting in
// termID overlapping [start, end) on day, smallest first
func (r *RoomRepository) Available(ctx context.Context, termID int64, day, start, end, minCapacity int) ([]*models.Room, error) {
	// Question placeholders; the outer builder renumbers them.
	busy := squirrel.Select("1").
		From("section_meetings m").
		Join("sections s ON s.id = m.section_id").
		Where("m.room_id = r.id").
		Where(squirrel.Eq{"s.term_id": termID, "m.day_of_week": day}).
		Where(squirrel.NotEq{"s.status": models.SectionStatusCancelled}).
		Where(squirrel.Lt{"m.start_minute": end}).
		Where(squirrel.Gt{"m.end_minute": start}).
		Prefix("NOT EXISTS (").
		Suffix(")")

	return r.list(ctx, r.sb.Select(roomColumns...).
		From("rooms r").
		Where(squirrel.Eq{"r.is_active": true}).
		Where(squirrel.GtOrEq{"r.capacity": minCapacity}).
		Where(busy).
		OrderBy("r.capacity", "r.building", "r.number"))
}

// Update writes every field of a room
func (r *RoomRepository) Update(ctx context.Context, rm *models.Room) error {
	sql, args, err := r.sb.Update("rooms").
		Set("building", rm.Building).
		Set("number", rm.Number).
		Set("capacity", rm.Capacity).
		Set("room_type", rm.RoomType).
		Set("is_active", rm.IsActive).
		Where(squirrel.Eq{"id": rm.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update room query: %w", err)
	}

	tag, err := r.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "rooms_building_number_key") {
			return apperrors.ErrRoomAlreadyExists
		}
		return fmt.Errorf("error updating room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRoomNotFound
	}
	return nil
}

// Delete removes a room with no scheduled meetings
func (r *RoomRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q(ctx).Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewConflictError("room has scheduled meetings")
		}
		return fmt.Errorf("error deleting room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRoomNotFound
	}
	return nil
}
