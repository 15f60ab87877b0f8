package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/cache"
	"github.com/universys/universyslite/internal/pkg/helpers"
	"github.com/universys/universyslite/internal/pkg/validation"
)

// CourseService manages the course catalog and prerequisites
type CourseService interface {
	Create(ctx context.Context, actor models.Actor, req *dto.CreateCourseRequest) (*models.Course, error)
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context, req *dto.CourseFilterRequest, page helpers.Page) ([]*models.Course, int64, error)
	Update(ctx context.Context, actor models.Actor, id int64, req *dto.UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, actor models.Actor, id int64) (deactivated bool, err error)
	SetPrerequisites(ctx context.Context, actor models.Actor, id int64, req *dto.SetPrerequisitesRequest) ([]models.Prerequisite, error)
}

type courseStore interface {
	Create(ctx context.Context, c *models.Course) error
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context, f models.CourseFilter, p helpers.Page) ([]*models.Course, int64, error)
	Update(ctx context.Context, c *models.Course) error
	HasSections(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	Prerequisites(ctx context.Context, courseID int64) ([]models.Prerequisite, error)
	ReplacePrerequisites(ctx context.Context, courseID int64, prereqs []models.Prerequisite) error
	Requires(ctx context.Context, courseID, prerequisiteID int64) (bool, error)
}

type courseServiceImpl struct {
	courses     courseStore
	departments departmentGetter
	cache       cache.Cache
	tx          Transactor
	audit       auditRecorder
	logger      zerolog.Logger
}

// NewCourseService creates a new course service
func NewCourseService(
	courses courseStore,
	departments departmentGetter,
	c cache.Cache,
	tx Transactor,
	audit auditRecorder,
	logger zerolog.Logger,
) CourseService {
	return &courseServiceImpl{
		courses:     courses,
		departments: departments,
		cache:       c,
		tx:          tx,
		audit:       audit,
		logger:      logger,
	}
}

func validateCourse(code, title string, credits int) error {
	if !validation.CompiledPatterns.CourseCode.MatchString(code) {
		return fmt.Errorf("%w: course code must look like CS101", apperrors.ErrValidationFailed)
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title cannot be empty", apperrors.ErrValidationFailed)
	}
	if credits < 1 || credits > 6 {
		return fmt.Errorf("%w: credits must be between 1 and 6", apperrors.ErrValidationFailed)
	}
	return nil
}

// Create adds an active course to the catalog
func (s *courseServiceImpl) Create(ctx context.Context, actor models.Actor, req *dto.CreateCourseRequest) (*models.Course, error) {
	code := validation.NormalizeCode(req.Code)
	if err := validateCourse(code, req.Title, req.Credits); err != nil {
		return nil, err
	}

	course := &models.Course{
		DepartmentID: req.DepartmentID,
		Code:         code,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Credits:      req.Credits,
		IsActive:     true,
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.departments.GetByID(ctx, req.DepartmentID); err != nil {
			return err
		}
		if err := s.courses.Create(ctx, course); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionCreate, models.EntityCourse, course.ID,
			map[string]interface{}{"code": course.Code, "credits": course.Credits})
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

// GetByID returns a course with its prerequisites, served from cache when possible
func (s *courseServiceImpl) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	key := cache.CourseKey(id)
	var cached models.Course
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn().Err(err).Str("key", key).Msg("Course cache read failed")
	}

	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prereqs, err := s.courses.Prerequisites(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Prerequisites = prereqs

	if err := s.cache.Set(ctx, key, course); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Course cache write failed")
	}
	return course, nil
}

// List returns a filtered page of the catalog
func (s *courseServiceImpl) List(ctx context.Context, req *dto.CourseFilterRequest, page helpers.Page) ([]*models.Course, int64, error) {
	return s.courses.List(ctx, models.CourseFilter{
		DepartmentID: req.DepartmentID,
		IsActive:     req.IsActive,
		Search:       req.Search,
	}, page)
}

// Update edits a course
func (s *courseServiceImpl) Update(ctx context.Context, actor models.Actor, id int64, req *dto.UpdateCourseRequest) (*models.Course, error) {
	code := validation.NormalizeCode(req.Code)
	if err := validateCourse(code, req.Title, req.Credits); err != nil {
		return nil, err
	}

	var course *models.Course
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		course, err = s.courses.GetByID(ctx, id)
		if err != nil {
			return err
		}
		old := map[string]interface{}{"code": course.Code, "credits": course.Credits, "isActive": course.IsActive}

		course.Code = code
		course.Title = strings.TrimSpace(req.Title)
		course.Description = req.Description
		course.Credits = req.Credits
		if req.IsActive != nil {
			course.IsActive = *req.IsActive
		}
		if err := s.courses.Update(ctx, course); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionUpdate, models.EntityCourse, id, map[string]interface{}{
			"old": old,
			"new": map[string]interface{}{"code": course.Code, "credits": course.Credits, "isActive": course.IsActive},
		})
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return course, nil
}

// Delete removes a course, or deactivates it when sections were ever scheduled
func (s *courseServiceImpl) Delete(ctx context.Context, actor models.Actor, id int64) (bool, error) {
	deactivated := false
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		course, err := s.courses.GetByID(ctx, id)
		if err != nil {
			return err
		}
		hasSections, err := s.courses.HasSections(ctx, id)
		if err != nil {
			return err
		}
		if hasSections {
			deactivated = true
			if !course.IsActive {
				return nil
			}
			course.IsActive = false
			if err := s.courses.Update(ctx, course); err != nil {
				return err
			}
			return s.audit.Record(ctx, actor, models.AuditActionStatusChange, models.EntityCourse, id,
				map[string]interface{}{"isActive": false})
		}
		if err := s.courses.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionDelete, models.EntityCourse, id,
			map[string]interface{}{"code": course.Code})
	})
	if err != nil {
		return false, err
	}
	s.invalidate(ctx, id)
	return deactivated, nil
}

// SetPrerequisites replaces the prerequisite set of a course
func (s *courseServiceImpl) SetPrerequisites(ctx context.Context, actor models.Actor, id int64, req *dto.SetPrerequisitesRequest) ([]models.Prerequisite, error) {
	prereqs := make([]models.Prerequisite, 0, len(req.Prerequisites))
	seen := make(map[int64]bool, len(req.Prerequisites))
	for _, in := range req.Prerequisites {
		if in.PrerequisiteID == id {
			return nil, apperrors.NewValidationError("a course cannot require itself")
		}
		if seen[in.PrerequisiteID] {
			return nil, apperrors.NewValidationError(fmt.Sprintf("prerequisite %d is listed twice", in.PrerequisiteID))
		}
		seen[in.PrerequisiteID] = true

		minimum := models.GradeD
		if in.MinimumGrade != "" {
			g, err := models.ParseGPAGrade(in.MinimumGrade)
			if err != nil {
				return nil, apperrors.NewValidationError(err.Error())
			}
			minimum = g
		}
		prereqs = append(prereqs, models.Prerequisite{CourseID: id, PrerequisiteID: in.PrerequisiteID, MinimumGrade: minimum})
	}

	var result []models.Prerequisite
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.courses.GetByID(ctx, id); err != nil {
			return err
		}
		ids := make([]int64, 0, len(prereqs))
		for _, p := range prereqs {
			if _, err := s.courses.GetByID(ctx, p.PrerequisiteID); err != nil {
				return err
			}
			reverse, err := s.courses.Requires(ctx, p.PrerequisiteID, id)
			if err != nil {
				return err
			}
			if reverse {
				return apperrors.NewCustomError(apperrors.ErrCoursePrerequisiteLoop,
					fmt.Sprintf("course %d already requires this course", p.PrerequisiteID))
			}
			ids = append(ids, p.PrerequisiteID)
		}

		if err := s.courses.ReplacePrerequisites(ctx, id, prereqs); err != nil {
			return err
		}
		var err error
		result, err = s.courses.Prerequisites(ctx, id)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, models.AuditActionSetPrereqs, models.EntityCourse, id,
			map[string]interface{}{"prerequisiteIds": ids})
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return result, nil
}

func (s *courseServiceImpl) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Delete(ctx, cache.CourseKey(id)); err != nil {
		s.logger.Warn().Err(err).Int64("courseID", id).Msg("Course cache invalidation failed")
	}
}
