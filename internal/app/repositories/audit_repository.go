package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/pkg/helpers"
	"github.com/universys/universyslite/internal/pkg/logger"
)

// AuditRepository stores the audit trail
type AuditRepository struct {
	base
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{base: newBase(db)}
}

// Create appends an audit entry. Inside a transaction it commits or rolls back with the mutation.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	var metadata []byte
	if len(entry.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(entry.Metadata); err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
	}

	sql, args, err := r.sb.Insert("audit_logs").
		Columns("user_id", "action", "entity_type", "entity_id", "metadata").
		Values(entry.UserID, entry.Action, entry.EntityType, entry.EntityID, metadata).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create audit query: %w", err)
	}

	if err := r.q(ctx).QueryRow(ctx, sql, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		logger.Error().Err(err).Str("action", entry.Action).Str("entity", entry.EntityType).Msg("Error writing audit log")
		return fmt.Errorf("error writing audit log: %w", err)
	}
	return nil
}

// List returns a filtered page of audit entries, newest first
func (r *AuditRepository) List(ctx context.Context, f models.AuditFilter, p helpers.Page) ([]*models.AuditLog, int64, error) {
	where := squirrel.And{}
	if f.EntityType != "" {
		where = append(where, squirrel.Eq{"entity_type": f.EntityType})
	}
	if f.EntityID != nil {
		where = append(where, squirrel.Eq{"entity_id": *f.EntityID})
	}
	if f.UserID != nil {
		where = append(where, squirrel.Eq{"user_id": *f.UserID})
	}
	if f.Action != "" {
		where = append(where, squirrel.Eq{"action": f.Action})
	}
	if f.From != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		where = append(where, squirrel.Lt{"created_at": *f.To})
	}

	total, err := r.count(ctx, r.sb.Select("COUNT(*)").From("audit_logs").Where(where))
	if err != nil {
		return nil, 0, err
	}

	query := r.sb.Select("id", "user_id", "action", "entity_type", "entity_id", "metadata", "created_at").
		From("audit_logs").
		Where(where).
		OrderBy("created_at DESC", "id DESC")
	sql, args, err := paginate(query, p).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list audit query: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing audit logs: %w", err)
	}
	defer rows.Close()

	entries := []*models.AuditLog{}
	for rows.Next() {
		var e models.AuditLog
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &metadata, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("error scanning audit log: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, 0, fmt.Errorf("error decoding audit metadata: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	return entries, total, rows.Err()
}
