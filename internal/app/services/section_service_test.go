package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
)

func (c *campus) sectionService() *sectionServiceImpl {
	svc := NewSectionService(SectionDeps{
		Sections:                c.sections,
		Courses:                 c.courses,
		Terms:                   c.terms,
		Instructors:             c.instructors,
		Meetings:                c.meetings,
		Enrollments:             c.enrollments,
		Students:                c.students,
		Notifier:                c.notifier,
		Metrics:                 c.metrics,
		Tx:                      c.tx,
		Audit:                   c.audit,
		DefaultWaitlistCapacity: 5,
	}, zerolog.Nop()).(*sectionServiceImpl)
	svc.now = fixedClock
	return svc
}

func TestCreateSection(t *testing.T) {
	c := newCampus()
	svc := c.sectionService()
	ctx := context.Background()

	s, err := svc.Create(ctx, staff, &dto.CreateSectionRequest{CourseID: 1, TermID: 1, SectionNumber: " 002 ", Capacity: 30})
	require.NoError(t, err)
	assert.Equal(t, "002", s.SectionNumber)
	assert.Equal(t, 5, s.WaitlistCapacity)
	assert.Equal(t, models.SectionStatusOpen, s.Status)
	assert.Equal(t, "CS101", s.CourseCode)
	assert.Equal(t, testTermCode, s.TermCode)

	c.courses.rows[3].IsActive = false
	_, err = svc.Create(ctx, staff, &dto.CreateSectionRequest{CourseID: 3, TermID: 1, SectionNumber: "002", Capacity: 30})
	assert.True(t, apperrors.Is(err, apperrors.ErrCourseInactive))

	_, err = svc.Create(ctx, staff, &dto.CreateSectionRequest{CourseID: 1, TermID: 1, SectionNumber: "003", Capacity: 30, WaitlistCapacity: intp(-1)})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed))

	_, err = svc.Create(ctx, staff, &dto.CreateSectionRequest{CourseID: 1, TermID: 1, SectionNumber: "003", Capacity: 30, InstructorID: int64p(404)})
	assert.True(t, apperrors.Is(err, apperrors.ErrInstructorNotFound))
}

func TestUpdateCapacity_PromotesIntoNewSeats(t *testing.T) {
	c := newCampus()
	c.fill(1, 1, 2)
	c.students.add(models.Student{ID: 4, StudentNumber: "20250004", Email: "kat@student.test"})
	c.waitlist(1, 3, 4)
	c.notifier.On("SendWaitlistPromotion", mock.Anything).Return(nil).Once()
	svc := c.sectionService()

	s, err := svc.UpdateCapacity(context.Background(), staff, 1, &dto.UpdateCapacityRequest{Capacity: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, s.EnrolledCount)
	assert.Equal(t, 1, s.WaitlistCount)
	assert.Equal(t, models.EnrollmentStatusEnrolled, c.enrollments.rows[3].Status)
	assert.Equal(t, 1, *c.enrollments.rows[4].WaitlistPosition)
	assert.Equal(t, 1, c.metrics.promotions)
	assert.Equal(t, []string{models.AuditActionPromote, models.AuditActionUpdate}, c.audit.actions())
	c.notifier.AssertExpectations(t)
}

func TestUpdateCapacity_Rejections(t *testing.T) {
	c := newCampus()
	c.fill(1, 1, 2)
	c.waitlist(1, 3)
	svc := c.sectionService()
	ctx := context.Background()

	_, err := svc.UpdateCapacity(ctx, staff, 1, &dto.UpdateCapacityRequest{Capacity: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrCapacityBelowEnrolled))

	_, err = svc.UpdateCapacity(ctx, staff, 1, &dto.UpdateCapacityRequest{Capacity: 2, WaitlistCapacity: intp(0)})
	assert.True(t, apperrors.Is(err, apperrors.ErrCapacityBelowEnrolled))

	_, err = svc.UpdateCapacity(ctx, staff, 1, &dto.UpdateCapacityRequest{Capacity: 0})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed))

	assert.Equal(t, 2, c.sections.rows[1].Capacity)
	assert.Equal(t, 2, c.sections.rows[1].WaitlistCapacity)
}

func TestAssignInstructor_RejectsClash(t *testing.T) {
	c := newCampus()
	c.sections.rows[3].InstructorID = int64p(7)
	c.meetings.add(models.Meeting{SectionID: 3, RoomID: 1, DayOfWeek: 2, StartMinute: 600, EndMinute: 690})
	c.meetings.add(models.Meeting{SectionID: 2, RoomID: 2, DayOfWeek: 2, StartMinute: 660, EndMinute: 720})
	svc := c.sectionService()

	_, err := svc.AssignInstructor(context.Background(), staff, 2, 7)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInstructorConflict))
	assert.Equal(t, int64(3), apperrors.DetailsOf(err)["sectionId"])
	assert.Nil(t, c.sections.rows[2].InstructorID)

	c.instructors.rows[8] = &models.Instructor{ID: 8}
	c.locks.taken = nil
	s, err := svc.AssignInstructor(context.Background(), staff, 2, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(8), *s.InstructorID)
	assert.Equal(t, []string{"section:2", "instructor:8"}, c.locks.taken)
}

func TestSetStatus(t *testing.T) {
	c := newCampus()
	svc := c.sectionService()
	ctx := context.Background()

	s, err := svc.SetStatus(ctx, staff, 1, "closed")
	require.NoError(t, err)
	assert.Equal(t, models.SectionStatusClosed, s.Status)

	_, err = svc.SetStatus(ctx, staff, 1, "CANCELLED")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed))

	c.sections.rows[2].Status = models.SectionStatusCancelled
	_, err = svc.SetStatus(ctx, staff, 2, "OPEN")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestCancelSection_DropsEveryone(t *testing.T) {
	c := newCampus()
	c.fill(1, 1, 2)
	c.waitlist(1, 3)
	svc := c.sectionService()

	s, err := svc.Cancel(context.Background(), staff, 1)
	require.NoError(t, err)

	assert.Equal(t, models.SectionStatusCancelled, s.Status)
	assert.Zero(t, s.EnrolledCount)
	assert.Zero(t, s.WaitlistCount)
	for _, e := range c.enrollments.rows {
		assert.Equal(t, models.EnrollmentStatusDropped, e.Status)
		assert.Nil(t, e.WaitlistPosition)
	}
	assert.Equal(t, int64(3), c.audit.entries[0].Metadata["droppedEnrollments"])

	// cancelling twice is a no-op
	_, err = svc.Cancel(context.Background(), staff, 1)
	require.NoError(t, err)
	assert.Len(t, c.audit.entries, 1)

	_, err = c.enrollmentService().Enroll(context.Background(), studentActor(10), &dto.EnrollRequest{SectionID: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrSectionNotOpen))
}
