package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/helpers"
	"github.com/universys/universyslite/internal/pkg/validation"
)

// InstructorService defines the interface for instructor-related operations
type InstructorService interface {
	Create(ctx context.Context, actor models.Actor, req *dto.CreateInstructorRequest) (*models.Instructor, error)
	GetByID(ctx context.Context, id int64) (*models.Instructor, error)
	List(ctx context.Context, departmentID *int64, page helpers.Page) ([]*models.Instructor, int64, error)
	Update(ctx context.Context, actor models.Actor, id int64, req *dto.UpdateInstructorRequest) (*models.Instructor, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
}

type instructorStore interface {
	Create(ctx context.Context, i *models.Instructor) error
	GetByID(ctx context.Context, id int64) (*models.Instructor, error)
	List(ctx context.Context, departmentID *int64, p helpers.Page) ([]*models.Instructor, int64, error)
	Update(ctx context.Context, i *models.Instructor) error
	Delete(ctx context.Context, id int64) error
}

// instructorServiceImpl implements the InstructorService interface
type instructorServiceImpl struct {
	instructors instructorStore
	departments departmentGetter
	users       userGetter
	tx          Transactor
	audit       auditRecorder
}

// NewInstructorService creates a new instructor service instance
func NewInstructorService(
	instructors instructorStore,
	departments departmentGetter,
	users userGetter,
	tx Transactor,
	audit auditRecorder,
) InstructorService {
	return &instructorServiceImpl{
		instructors: instructors,
		departments: departments,
		users:       users,
		tx:          tx,
		audit:       audit,
	}
}

// validateInstructor checks names, email and the academic title
func validateInstructor(first, last, email, title string) error {
	if !validation.IsValidName(first) || !validation.IsValidName(last) {
		return fmt.Errorf("%w: first and last name are required", apperrors.ErrValidationFailed)
	}
	if !validation.IsValidEmail(email) {
		return fmt.Errorf("%w: email is not valid", apperrors.ErrValidationFailed)
	}
	// Letters, spaces, dots and hyphens only
	if !validation.IsValidAcademicTitle(title) {
		return fmt.Errorf("%w: title contains invalid characters or is too long", apperrors.ErrValidationFailed)
	}
	return nil
}

// Create adds an instructor to a department
func (s *instructorServiceImpl) Create(ctx context.Context, actor models.Actor, req *dto.CreateInstructorRequest) (*models.Instructor, error) {
	email := validation.NormalizeEmail(req.Email)
	title := strings.TrimSpace(req.Title)
	if err := validateInstructor(req.FirstName, req.LastName, email, title); err != nil {
		return nil, err
	}

	instructor := &models.Instructor{
		UserID:       req.UserID,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		Title:        title,
		DepartmentID: req.DepartmentID,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.departments.GetByID(ctx, req.DepartmentID); err != nil {
			return err
		}
		if req.UserID != nil {
			user, err := s.users.GetByID(ctx, *req.UserID)
			if err != nil {
				return err
			}
			if user.RoleType != models.RoleInstructor {
				return apperrors.NewValidationError("linked user must have the INSTRUCTOR role")
			}
		}
		if err := s.instructors.Create(ctx, instructor); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionCreate, models.EntityInstructor, instructor.ID,
			map[string]interface{}{"email": instructor.Email})
	})
	if err != nil {
		return nil, err
	}
	return instructor, nil
}

// GetByID retrieves an instructor with its department
func (s *instructorServiceImpl) GetByID(ctx context.Context, id int64) (*models.Instructor, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: instructor ID must be positive", apperrors.ErrValidationFailed)
	}
	instructor, err := s.instructors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dept, err := s.departments.GetByID(ctx, instructor.DepartmentID); err == nil {
		instructor.Department = dept
	}
	return instructor, nil
}

// List returns instructors, optionally of one department
func (s *instructorServiceImpl) List(ctx context.Context, departmentID *int64, page helpers.Page) ([]*models.Instructor, int64, error) {
	return s.instructors.List(ctx, departmentID, page)
}

// Update edits an instructor
func (s *instructorServiceImpl) Update(ctx context.Context, actor models.Actor, id int64, req *dto.UpdateInstructorRequest) (*models.Instructor, error) {
	email := validation.NormalizeEmail(req.Email)
	title := strings.TrimSpace(req.Title)
	if err := validateInstructor(req.FirstName, req.LastName, email, title); err != nil {
		return nil, err
	}

	var instructor *models.Instructor
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		instructor, err = s.instructors.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req.DepartmentID != instructor.DepartmentID {
			if _, err := s.departments.GetByID(ctx, req.DepartmentID); err != nil {
				return err
			}
		}
		oldTitle := instructor.Title
		instructor.FirstName = strings.TrimSpace(req.FirstName)
		instructor.LastName = strings.TrimSpace(req.LastName)
		instructor.Email = email
		instructor.Title = title
		instructor.DepartmentID = req.DepartmentID
		if err := s.instructors.Update(ctx, instructor); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionUpdate, models.EntityInstructor, id,
			map[string]interface{}{"oldTitle": oldTitle, "newTitle": title, "email": email})
	})
	if err != nil {
		return nil, err
	}
	return instructor, nil
}

// Delete removes an instructor that teaches no section
func (s *instructorServiceImpl) Delete(ctx context.Context, actor models.Actor, id int64) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.instructors.GetByID(ctx, id); err != nil {
			return err
		}
		if err := s.instructors.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionDelete, models.EntityInstructor, id, nil)
	})
}
