package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/helpers"
	"github.com/universys/universyslite/internal/pkg/validation"
)

// StudentService manages student records
type StudentService interface {
	Create(ctx context.Context, actor models.Actor, req *dto.CreateStudentRequest) (*models.Student, error)
	GetByID(ctx context.Context, actor models.Actor, id int64) (*models.Student, error)
	Me(ctx context.Context, actor models.Actor) (*models.Student, error)
	List(ctx context.Context, req *dto.StudentFilterRequest, page helpers.Page) ([]*models.Student, int64, error)
	Update(ctx context.Context, actor models.Actor, id int64, req *dto.UpdateStudentRequest) (*models.Student, error)
	ChangeStatus(ctx context.Context, actor models.Actor, id int64, status string) (*models.Student, error)
}

type studentStore interface {
	studentLookup
	Create(ctx context.Context, s *models.Student) error
	List(ctx context.Context, f models.StudentFilter, p helpers.Page) ([]*models.Student, int64, error)
	Update(ctx context.Context, s *models.Student) error
	UpdateStatus(ctx context.Context, id int64, status models.StudentStatus) error
}

type departmentGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Department, error)
}

type userGetter interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type studentServiceImpl struct {
	students    studentStore
	departments departmentGetter
	users       userGetter
	tx          Transactor
	audit       auditRecorder
	now         Clock
	logger      zerolog.Logger
}

// NewStudentService creates a new student service
func NewStudentService(
	students studentStore,
	departments departmentGetter,
	users userGetter,
	tx Transactor,
	audit auditRecorder,
	logger zerolog.Logger,
) StudentService {
	return &studentServiceImpl{
		students:    students,
		departments: departments,
		users:       users,
		tx:          tx,
		audit:       audit,
		now:         utcNow,
		logger:      logger,
	}
}

func validateStudentFields(number, first, last, email string) error {
	if !validation.CompiledPatterns.StudentNumber.MatchString(number) {
		return fmt.Errorf("%w: student number must be exactly 8 digits", apperrors.ErrValidationFailed)
	}
	if !validation.IsValidName(first) || !validation.IsValidName(last) {
		return fmt.Errorf("%w: first and last name are required", apperrors.ErrValidationFailed)
	}
	if !validation.IsValidEmail(email) {
		return fmt.Errorf("%w: email is not valid", apperrors.ErrValidationFailed)
	}
	return nil
}

// Create registers a new student in ACTIVE status
func (s *studentServiceImpl) Create(ctx context.Context, actor models.Actor, req *dto.CreateStudentRequest) (*models.Student, error) {
	number := strings.TrimSpace(req.StudentNumber)
	email := validation.NormalizeEmail(req.Email)
	if err := validateStudentFields(number, req.FirstName, req.LastName, email); err != nil {
		return nil, err
	}

	enrollmentDate := helpers.TruncateToDay(s.now())
	if req.EnrollmentDate != "" {
		d, err := helpers.ParseDate("enrollmentDate", req.EnrollmentDate)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		enrollmentDate = d
	}

	student := &models.Student{
		UserID:         req.UserID,
		StudentNumber:  number,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Email:          email,
		DepartmentID:   req.DepartmentID,
		Status:         models.StudentStatusActive,
		EnrollmentDate: enrollmentDate,
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
			if user.RoleType != models.RoleStudent {
				return apperrors.NewValidationError("linked user must have the STUDENT role")
			}
		}
		if err := s.students.Create(ctx, student); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionCreate, models.EntityStudent, student.ID,
			map[string]interface{}{"studentNumber": student.StudentNumber})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("studentID", student.ID).Str("studentNumber", student.StudentNumber).Msg("Student created")
	return student, nil
}

// GetByID returns a student record the actor may read
func (s *studentServiceImpl) GetByID(ctx context.Context, actor models.Actor, id int64) (*models.Student, error) {
	if err := authorizeStudent(ctx, s.students, actor, id); err != nil {
		return nil, err
	}
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dept, err := s.departments.GetByID(ctx, student.DepartmentID); err == nil {
		student.Department = dept
	}
	return student, nil
}

// Me returns the student record linked to the actor's account
func (s *studentServiceImpl) Me(ctx context.Context, actor models.Actor) (*models.Student, error) {
	student, err := s.students.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if dept, err := s.departments.GetByID(ctx, student.DepartmentID); err == nil {
		student.Department = dept
	}
	return student, nil
}

// List returns a filtered page of students
func (s *studentServiceImpl) List(ctx context.Context, req *dto.StudentFilterRequest, page helpers.Page) ([]*models.Student, int64, error) {
	filter := models.StudentFilter{DepartmentID: req.DepartmentID, Search: req.Search}
	if req.Status != "" {
		st, err := models.ParseStudentStatus(req.Status)
		if err != nil {
			return nil, 0, apperrors.NewValidationError(err.Error())
		}
		filter.Status = &st
	}
	return s.students.List(ctx, filter, page)
}

// Update edits a student's identity fields
func (s *studentServiceImpl) Update(ctx context.Context, actor models.Actor, id int64, req *dto.UpdateStudentRequest) (*models.Student, error) {
	number := strings.TrimSpace(req.StudentNumber)
	email := validation.NormalizeEmail(req.Email)
	if err := validateStudentFields(number, req.FirstName, req.LastName, email); err != nil {
		return nil, err
	}

	var student *models.Student
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		student, err = s.students.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req.DepartmentID != student.DepartmentID {
			if _, err := s.departments.GetByID(ctx, req.DepartmentID); err != nil {
				return err
			}
		}

		old := map[string]interface{}{"studentNumber": student.StudentNumber, "email": student.Email, "departmentId": student.DepartmentID}
		student.StudentNumber = number
		student.FirstName = strings.TrimSpace(req.FirstName)
		student.LastName = strings.TrimSpace(req.LastName)
		student.Email = email
		student.DepartmentID = req.DepartmentID

		if err := s.students.Update(ctx, student); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionUpdate, models.EntityStudent, id, map[string]interface{}{
			"old": old,
			"new": map[string]interface{}{"studentNumber": number, "email": email, "departmentId": req.DepartmentID},
		})
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

// ChangeStatus moves a student to another lifecycle status
func (s *studentServiceImpl) ChangeStatus(ctx context.Context, actor models.Actor, id int64, status string) (*models.Student, error) {
	next, err := models.ParseStudentStatus(status)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	var student *models.Student
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		student, err = s.students.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if student.Status == next {
			return nil
		}
		prev := student.Status
		if err := s.students.UpdateStatus(ctx, id, next); err != nil {
			return err
		}
		student.Status = next
		return s.audit.Record(ctx, actor, models.AuditActionStatusChange, models.EntityStudent, id,
			map[string]interface{}{"old": prev, "new": next})
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}
