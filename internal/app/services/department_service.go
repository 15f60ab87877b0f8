package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/validation"
)

// DepartmentService handles department-related operations
type DepartmentService interface {
	Create(ctx context.Context, actor models.Actor, req *dto.DepartmentRequest) (*models.Department, error)
	GetByID(ctx context.Context, id int64) (*models.Department, error)
	List(ctx context.Context) ([]*models.Department, error)
	Update(ctx context.Context, actor models.Actor, id int64, req *dto.DepartmentRequest) (*models.Department, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
}

type departmentStore interface {
	Create(ctx context.Context, department *models.Department) error
	GetByID(ctx context.Context, id int64) (*models.Department, error)
	GetAll(ctx context.Context) ([]*models.Department, error)
	Update(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, id int64) error
	HasRelations(ctx context.Context, id int64) (bool, error)
}

type departmentServiceImpl struct {
	departments departmentStore
	tx          Transactor
	audit       auditRecorder
}

// NewDepartmentService creates a new department service instance
func NewDepartmentService(departments departmentStore, tx Transactor, audit auditRecorder) DepartmentService {
	return &departmentServiceImpl{departments: departments, tx: tx, audit: audit}
}

// validateDepartment normalizes and checks the request
func validateDepartment(req *dto.DepartmentRequest) (*models.Department, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", apperrors.ErrValidationFailed)
	}

	// Department code should be alphanumeric and uppercase
	code := validation.NormalizeCode(req.Code)
	if !validation.CompiledPatterns.DepartmentCode.MatchString(code) {
		return nil, fmt.Errorf("%w: code must be 2-10 uppercase letters or digits", apperrors.ErrValidationFailed)
	}
	return &models.Department{Name: name, Code: code}, nil
}

// Create creates a new department
func (s *departmentServiceImpl) Create(ctx context.Context, actor models.Actor, req *dto.DepartmentRequest) (*models.Department, error) {
	department, err := validateDepartment(req)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.departments.Create(ctx, department); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionCreate, models.EntityDepartment, department.ID,
			map[string]interface{}{"code": department.Code})
	})
	if err != nil {
		return nil, err
	}
	return department, nil
}

// GetByID retrieves a department by ID
func (s *departmentServiceImpl) GetByID(ctx context.Context, id int64) (*models.Department, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: department ID must be positive", apperrors.ErrValidationFailed)
	}
	return s.departments.GetByID(ctx, id)
}

// List retrieves all departments
func (s *departmentServiceImpl) List(ctx context.Context) ([]*models.Department, error) {
	return s.departments.GetAll(ctx)
}

// Update renames or recodes a department
func (s *departmentServiceImpl) Update(ctx context.Context, actor models.Actor, id int64, req *dto.DepartmentRequest) (*models.Department, error) {
	department, err := validateDepartment(req)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.departments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		department.ID = existing.ID
		department.CreatedAt = existing.CreatedAt
		if err := s.departments.Update(ctx, department); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionUpdate, models.EntityDepartment, id, map[string]interface{}{
			"old": map[string]interface{}{"name": existing.Name, "code": existing.Code},
			"new": map[string]interface{}{"name": department.Name, "code": department.Code},
		})
	})
	if err != nil {
		return nil, err
	}
	return department, nil
}

// Delete removes a department that nothing references
func (s *departmentServiceImpl) Delete(ctx context.Context, actor models.Actor, id int64) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.departments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		inUse, err := s.departments.HasRelations(ctx, id)
		if err != nil {
			return err
		}
		if inUse {
			return apperrors.ErrDepartmentHasRelations
		}
		if err := s.departments.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionDelete, models.EntityDepartment, id,
			map[string]interface{}{"code": existing.Code})
	})
}
