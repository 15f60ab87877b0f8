package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/email"
)

// waitlistStore is the enrollment storage needed to move students off a waitlist.
type waitlistStore interface {
	WaitlistHead(ctx context.Context, sectionID int64) (*models.Enrollment, error)
	Save(ctx context.Context, e *models.Enrollment) error
	ShiftWaitlist(ctx context.Context, sectionID int64, after int) error
}

// promotionCounter records promotions for metrics.
type promotionCounter interface {
	Promotions(n int)
}

// promoteWaitlist fills free seats of a locked section from the head of its
// waitlist. The section counters are updated in memory; the caller saves it.
func promoteWaitlist(ctx context.Context, store waitlistStore, section *models.Section, now time.Time) ([]*models.Enrollment, error) {
	var promoted []*models.Enrollment
	for section.HasSeat() && section.WaitlistCount > 0 {
		head, err := store.WaitlistHead(ctx, section.ID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrEnrollmentNotFound) {
				break
			}
			return nil, err
		}

		position := 0
		if head.WaitlistPosition != nil {
			position = *head.WaitlistPosition
		}
		head.Status = models.EnrollmentStatusEnrolled
		head.WaitlistPosition = nil
		head.EnrolledAt = now
		if err := store.Save(ctx, head); err != nil {
			return nil, err
		}
		if err := store.ShiftWaitlist(ctx, section.ID, position); err != nil {
			return nil, err
		}

		section.EnrolledCount++
		section.WaitlistCount--
		promoted = append(promoted, head)
	}
	return promoted, nil
}

// notifyPromoted emails promoted students. Failures are logged, never returned:
// the promotion has already been committed.
func notifyPromoted(ctx context.Context, notifier email.Notifier, students studentLookup, logger zerolog.Logger, promoted []*models.Enrollment) {
	for _, e := range promoted {
		student, err := students.GetByID(ctx, e.StudentID)
		if err != nil {
			logger.Warn().Err(err).Int64("studentID", e.StudentID).Msg("Could not load promoted student for notification")
			continue
		}
		err = notifier.SendWaitlistPromotion(email.WaitlistPromotion{
			ToEmail:       student.Email,
			ToName:        student.FullName(),
			CourseCode:    e.CourseCode,
			CourseTitle:   e.CourseTitle,
			SectionNumber: e.SectionNumber,
			TermCode:      e.TermCode,
		})
		if err != nil {
			logger.Warn().Err(err).Int64("enrollmentID", e.ID).Msg("Failed to send waitlist promotion email")
		}
	}
}
