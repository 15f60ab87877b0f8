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
)

var meetingColumns = []string{
	"m.id", "m.section_id", "m.room_id", "m.day_of_week", "m.start_minute", "m.end_minute",
	"s.term_id", "r.building", "r.number",
}

// MeetingRepository handles weekly meeting slots of sections
type MeetingRepository struct {
	base
}

// NewMeetingRepository creates a new MeetingRepository
func NewMeetingRepository(db *pgxpool.Pool) *MeetingRepository {
	return &MeetingRepository{base: newBase(db)}
}

func (r *MeetingRepository) selectMeetings() squirrel.SelectBuilder {
	return r.sb.Select(meetingColumns...).
		From("section_meetings m").
		Join("sections s ON s.id = m.section_id").
		Join("rooms r ON r.id = m.room_id")
}

func scanMeeting(row rowScanner) (*models.Meeting, error) {
	var m models.Meeting
	var building, number string
	err := row.Scan(&m.ID, &m.SectionID, &m.RoomID, &m.DayOfWeek, &m.StartMinute, &m.EndMinute, &m.TermID, &building, &number)
	if err != nil {
		return nil, err
	}
	m.RoomLabel = building + "-" + number
	return &m, nil
}

func (r *MeetingRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Meeting, error) {
	sql, args, err := query.OrderBy("m.day_of_week", "m.start_minute").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build meetings query: %w", err)
	}
	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing meetings: %w", err)
	}
	defer rows.Close()

	meetings := []*models.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// Create inserts a meeting slot
func (r *MeetingRepository) Create(ctx context.Context, m *models.Meeting) error {
	sql, args, err := r.sb.Insert("section_meetings").
		Columns("section_id", "room_id", "day_of_week", "start_minute", "end_minute").
		Values(m.SectionID, m.RoomID, m.DayOfWeek, m.StartMinute, m.EndMinute).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create meeting query: %w", err)
	}
	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&m.ID); err != nil {
		return fmt.Errorf("error creating meeting: %w", err)
	}
	return nil
}

// GetByID retrieves a meeting by ID
func (r *MeetingRepository) GetByID(ctx context.Context, id int64) (*models.Meeting, error) {
	sql, args, err := r.selectMeetings().Where(squirrel.Eq{"m.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get meeting query: %w", err)
	}
	m, err := scanMeeting(r.q(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMeetingNotFound
		}
		return nil, fmt.Errorf("error retrieving meeting: %w", err)
	}
	return m, nil
}

// Delete removes a meeting slot
func (r *MeetingRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q(ctx).Exec(ctx, `DELETE FROM section_meetings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting meeting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMeetingNotFound
	}
	return nil
}

// BySection lists the meetings of one section
func (r *MeetingRepository) BySection(ctx context.Context, sectionID int64) ([]*models.Meeting, error) {
	return r.list(ctx, r.selectMeetings().Where(squirrel.Eq{"m.section_id": sectionID}))
}

// ByRoom lists the meetings held in a room during a term, skipping cancelled sections
func (r *MeetingRepository) ByRoom(ctx context.Context, roomID, termID int64) ([]*models.Meeting, error) {
	return r.list(ctx, r.selectMeetings().
		Where(squirrel.Eq{"m.room_id": roomID, "s.term_id": termID}).
		Where(squirrel.NotEq{"s.status": models.SectionStatusCancelled}))
}

// ByInstructor lists the meetings of every live section an instructor teaches in a term
func (r *MeetingRepository) ByInstructor(ctx context.Context, instructorID, termID int64) ([]*models.Meeting, error) {
	return r.list(ctx, r.selectMeetings().
		Where(squirrel.Eq{"s.instructor_id": instructorID, "s.term_id": termID}).
		Where(squirrel.NotEq{"s.status": models.SectionStatusCancelled}))
}

// ByStudent lists the meetings of the sections a student is enrolled in during a term
func (r *MeetingRepository) ByStudent(ctx context.Context, studentID, termID int64) ([]*models.Meeting, error) {
	return r.list(ctx, r.selectMeetings().
		Join("enrollments e ON e.section_id = s.id").
		Where(squirrel.Eq{
			"e.student_id": studentID,
			"e.status":     models.EnrollmentStatusEnrolled,
			"s.term_id":    termID,
		}))
}
