package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/pkg/helpers"
)

// AuditService writes and queries the audit trail
type AuditService interface {
	Record(ctx context.Context, actor models.Actor, action, entityType string, entityID int64, metadata map[string]interface{}) error
	List(ctx context.Context, filter models.AuditFilter, page helpers.Page) ([]*models.AuditLog, int64, error)
}

type auditStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, f models.AuditFilter, p helpers.Page) ([]*models.AuditLog, int64, error)
}

type auditServiceImpl struct {
	store  auditStore
	logger zerolog.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(store auditStore, logger zerolog.Logger) AuditService {
	return &auditServiceImpl{store: store, logger: logger}
}

// Record appends an entry using the transaction in ctx, if any
func (s *auditServiceImpl) Record(ctx context.Context, actor models.Actor, action, entityType string, entityID int64, metadata map[string]interface{}) error {
	entry := &models.AuditLog{
		UserID:     actor.UserIDPtr(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return err
	}
	s.logger.Debug().
		Str("action", action).
		Str("entityType", entityType).
		Int64("entityID", entityID).
		Msg("Audit entry recorded")
	return nil
}

// List returns matching entries newest first
func (s *auditServiceImpl) List(ctx context.Context, filter models.AuditFilter, page helpers.Page) ([]*models.AuditLog, int64, error) {
	return s.store.List(ctx, filter, page)
}
