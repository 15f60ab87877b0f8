package services

import (
	"context"
	"strings"
	"time"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/helpers"
	"github.com/universys/universyslite/internal/pkg/validation"
)

// TermService manages academic terms
type TermService interface {
	Create(ctx context.Context, actor models.Actor, req *dto.TermRequest) (*models.Term, error)
	GetByID(ctx context.Context, id int64) (*models.Term, error)
	Current(ctx context.Context) (*models.Term, error)
	List(ctx context.Context, page helpers.Page) ([]*models.Term, int64, error)
	Update(ctx context.Context, actor models.Actor, id int64, req *dto.TermRequest) (*models.Term, error)
}

type termStore interface {
	Create(ctx context.Context, t *models.Term) error
	GetByID(ctx context.Context, id int64) (*models.Term, error)
	Current(ctx context.Context, day time.Time) (*models.Term, error)
	List(ctx context.Context, p helpers.Page) ([]*models.Term, int64, error)
	Update(ctx context.Context, t *models.Term) error
}

type termServiceImpl struct {
	terms termStore
	tx    Transactor
	audit auditRecorder
	now   Clock
}

// NewTermService creates a new term service
func NewTermService(terms termStore, tx Transactor, audit auditRecorder) TermService {
	return &termServiceImpl{terms: terms, tx: tx, audit: audit, now: utcNow}
}

// buildTerm parses and cross-checks the term calendar
func buildTerm(req *dto.TermRequest) (*models.Term, error) {
	code := validation.NormalizeCode(req.Code)
	if !validation.CompiledPatterns.TermCode.MatchString(code) {
		return nil, apperrors.NewValidationError("term code must look like 2025FA")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name cannot be empty")
	}

	t := &models.Term{Code: code, Name: name}
	for _, d := range []struct {
		field string
		value string
		dst   *time.Time
	}{
		{"startDate", req.StartDate, &t.StartDate},
		{"endDate", req.EndDate, &t.EndDate},
		{"registrationStart", req.RegistrationStart, &t.RegistrationStart},
		{"registrationEnd", req.RegistrationEnd, &t.RegistrationEnd},
		{"dropDeadline", req.DropDeadline, &t.DropDeadline},
	} {
		parsed, err := helpers.ParseDate(d.field, d.value)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		*d.dst = parsed
	}

	switch {
	case !t.StartDate.Before(t.EndDate):
		return nil, apperrors.NewValidationError("startDate must be before endDate")
	case t.RegistrationStart.After(t.RegistrationEnd):
		return nil, apperrors.NewValidationError("registrationStart must not be after registrationEnd")
	case t.RegistrationEnd.After(t.EndDate):
		return nil, apperrors.NewValidationError("registrationEnd must not be after endDate")
	case t.DropDeadline.Before(t.StartDate) || t.DropDeadline.After(t.EndDate):
		return nil, apperrors.NewValidationError("dropDeadline must fall within the term")
	}
	return t, nil
}

// Create adds a term
func (s *termServiceImpl) Create(ctx context.Context, actor models.Actor, req *dto.TermRequest) (*models.Term, error) {
	term, err := buildTerm(req)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.terms.Create(ctx, term); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionCreate, models.EntityTerm, term.ID,
			map[string]interface{}{"code": term.Code})
	})
	if err != nil {
		return nil, err
	}
	return term, nil
}

// GetByID returns a term
func (s *termServiceImpl) GetByID(ctx context.Context, id int64) (*models.Term, error) {
	return s.terms.GetByID(ctx, id)
}

// Current returns the term in session today
func (s *termServiceImpl) Current(ctx context.Context) (*models.Term, error) {
	return s.terms.Current(ctx, helpers.TruncateToDay(s.now()))
}

// List returns terms newest first
func (s *termServiceImpl) List(ctx context.Context, page helpers.Page) ([]*models.Term, int64, error) {
	return s.terms.List(ctx, page)
}

// Update replaces a term's code, name and calendar
func (s *termServiceImpl) Update(ctx context.Context, actor models.Actor, id int64, req *dto.TermRequest) (*models.Term, error) {
	term, err := buildTerm(req)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.terms.GetByID(ctx, id)
		if err != nil {
			return err
		}
		term.ID = existing.ID
		term.CreatedAt = existing.CreatedAt
		if err := s.terms.Update(ctx, term); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionUpdate, models.EntityTerm, id,
			map[string]interface{}{"oldCode": existing.Code, "newCode": term.Code})
	})
	if err != nil {
		return nil, err
	}
	return term, nil
}
