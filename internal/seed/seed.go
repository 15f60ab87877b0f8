package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/repositories"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/auth"
)

// Options controls the bootstrap administrator account.
type Options struct {
	AdminEmail    string
	AdminPassword string
}

var defaultDepartments = []models.Department{
	{Name: "Computer Science", Code: "CS"},
	{Name: "Mathematics", Code: "MATH"},
	{Name: "Physics", Code: "PHYS"},
}

// CreateDefaultData creates default departments, the bootstrap admin and a
// first term if they don't exist. It is safe to run repeatedly.
func CreateDefaultData(ctx context.Context, repos *repositories.Repositories, opts Options, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (Departments/Admin/Term)...")
	var finalErr error // collect errors without stopping the process

	for _, d := range defaultDepartments {
		dept := d
		_, err := repos.DepartmentRepository.GetByCode(ctx, dept.Code)
		switch {
		case err == nil:
			lgr.Debug().Str("code", dept.Code).Msg("Department already exists")
		case errors.Is(err, apperrors.ErrDepartmentNotFound):
			if err := repos.DepartmentRepository.Create(ctx, &dept); err != nil && !errors.Is(err, apperrors.ErrDepartmentAlreadyExists) {
				lgr.Error().Err(err).Str("code", dept.Code).Msg("Error creating department")
				finalErr = errors.Join(finalErr, err)
				continue
			}
			lgr.Info().Str("code", dept.Code).Msg("Default department created")
		default:
			lgr.Error().Err(err).Str("code", dept.Code).Msg("Error looking up department")
			finalErr = errors.Join(finalErr, err)
		}
	}

	if err := ensureAdmin(ctx, repos.UserRepository, opts, lgr); err != nil {
		finalErr = errors.Join(finalErr, err)
	}

	if err := ensureTerm(ctx, repos.TermRepository, time.Now().UTC(), lgr); err != nil {
		finalErr = errors.Join(finalErr, err)
	}

	if finalErr != nil {
		lgr.Warn().Err(finalErr).Msg("Default data creation finished with errors")
	} else {
		lgr.Info().Msg("Default data check/creation completed")
	}
	return finalErr
}

func ensureAdmin(ctx context.Context, users *repositories.UserRepository, opts Options, lgr zerolog.Logger) error {
	_, err := users.GetByEmail(ctx, opts.AdminEmail)
	if err == nil {
		lgr.Debug().Str("email", opts.AdminEmail).Msg("Admin user already exists")
		return nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		lgr.Error().Err(err).Msg("Error looking up admin user")
		return err
	}
	if opts.AdminPassword == "" {
		lgr.Warn().Str("email", opts.AdminEmail).Msg("No admin password configured, skipping admin creation")
		return nil
	}

	hashed, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := &models.User{
		Email:     opts.AdminEmail,
		Password:  hashed,
		FirstName: "System",
		LastName:  "Administrator",
		RoleType:  models.RoleAdmin,
		IsActive:  true,
	}
	if err := users.Create(ctx, admin); err != nil && !errors.Is(err, apperrors.ErrEmailAlreadyExists) {
		lgr.Error().Err(err).Msg("Error creating admin user")
		return err
	}
	lgr.Info().Str("email", opts.AdminEmail).Msg("Admin user created")
	return nil
}

// ensureTerm opens a term whose registration window covers now, so a fresh
// install can register students immediately.
func ensureTerm(ctx context.Context, terms *repositories.TermRepository, now time.Time, lgr zerolog.Logger) error {
	count, err := terms.Count(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Error counting terms")
		return err
	}
	if count > 0 {
		return nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, 14)
	term := &models.Term{
		Code:              fmt.Sprintf("%d%s", start.Year(), seasonCode(start.Month())),
		Name:              fmt.Sprintf("%s %d", seasonName(start.Month()), start.Year()),
		StartDate:         start,
		EndDate:           start.AddDate(0, 4, 0),
		RegistrationStart: today,
		RegistrationEnd:   start.AddDate(0, 0, 7),
		DropDeadline:      start.AddDate(0, 0, 28),
	}
	if err := terms.Create(ctx, term); err != nil {
		lgr.Error().Err(err).Msg("Error creating default term")
		return err
	}
	lgr.Info().Str("code", term.Code).Msg("Default term created")
	return nil
}

func seasonCode(m time.Month) string {
	switch {
	case m <= time.May:
		return "SP"
	case m <= time.July:
		return "SU"
	default:
		return "FA"
	}
}

func seasonName(m time.Month) string {
	switch seasonCode(m) {
	case "SP":
		return "Spring"
	case "SU":
		return "Summer"
	default:
		return "Fall"
	}
}
