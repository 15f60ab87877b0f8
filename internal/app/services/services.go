package services

import (
	"context"
	"time"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/pkg/apperrors"
)

// Services defined in this package:
// - AuthService: login, token rotation and account creation
// - DepartmentService, StudentService, InstructorService: academic records
// - CourseService, TermService, RoomService: catalog and facilities
// - SectionService, SchedulingService: offerings and their weekly meetings
// - EnrollmentService: registration, waitlists and drops
// - GradingService: grade posting and transcripts
// - BillingService: tuition invoices and payments
// - AuditService: the audit trail every mutation writes to

// Transactor runs fn inside one database transaction carried by ctx.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock returns the current time; tests replace it.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// auditRecorder is the slice of AuditService other services write through.
type auditRecorder interface {
	Record(ctx context.Context, actor models.Actor, action, entityType string, entityID int64, metadata map[string]interface{}) error
}

// studentLookup resolves the student record behind a login account.
type studentLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Student, error)
}

// authorizeStudent allows staff everywhere and a student only on their own record.
func authorizeStudent(ctx context.Context, students studentLookup, actor models.Actor, studentID int64) error {
	if actor.Role.IsStaff() {
		return nil
	}
	if actor.Role != models.RoleStudent {
		return apperrors.NewForbiddenError("only staff or the student may access this record")
	}
	own, err := students.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrStudentNotFound) {
			return apperrors.NewForbiddenError("no student record is linked to this account")
		}
		return err
	}
	if own.ID != studentID {
		return apperrors.NewForbiddenError("students may only access their own record")
	}
	return nil
}
