package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/email"
	"github.com/universys/universyslite/internal/pkg/metrics"
)

type campus struct {
	students    *fakeStudents
	terms       *fakeTerms
	courses     *fakeCourses
	sections    *fakeSections
	enrollments *fakeEnrollments
	meetings    *fakeMeetings
	instructors *fakeInstructors
	notifier    *mockNotifier
	metrics     *fakeMetrics
	audit       *fakeAudit
	tx          *fakeTx
	locks       *lockLog
}

// newCampus builds one open term with three courses:
// section 1 is CS101 (4 credits, 2 seats, 2 waitlist places),
// section 2 is CS201 (requires CS101 with C or better),
// section 3 is MATH101 (6 credits).
func newCampus() *campus {
	c := &campus{
		students:    newFakeStudents(),
		terms:       newFakeTerms(),
		courses:     newFakeCourses(),
		instructors: &fakeInstructors{rows: map[int64]*models.Instructor{}},
		notifier:    &mockNotifier{},
		metrics:     newFakeMetrics(),
		audit:       &fakeAudit{},
		tx:          &fakeTx{},
	}
	c.sections = newFakeSections(c.courses)
	c.locks = &lockLog{}
	c.students.locks = c.locks
	c.sections.locks = c.locks
	c.instructors.locks = c.locks
	c.enrollments = newFakeEnrollments(c.sections)
	c.meetings = newFakeMeetings(c.sections, c.enrollments)

	c.students.add(models.Student{ID: 1, UserID: int64p(10), StudentNumber: "20250001", FirstName: "Ada", LastName: "Lovelace", Email: "ada@student.test"})
	c.students.add(models.Student{ID: 2, UserID: int64p(11), StudentNumber: "20250002", FirstName: "Alan", LastName: "Turing", Email: "alan@student.test"})
	c.students.add(models.Student{ID: 3, UserID: int64p(12), StudentNumber: "20250003", FirstName: "Grace", LastName: "Hopper", Email: "grace@student.test"})
	c.terms.add(openTerm(1))

	c.courses.add(models.Course{ID: 1, Code: "CS101", Title: "Intro to Programming", Credits: 4, IsActive: true})
	c.courses.add(models.Course{ID: 2, Code: "CS201", Title: "Data Structures", Credits: 4, IsActive: true})
	c.courses.add(models.Course{ID: 3, Code: "MATH101", Title: "Calculus", Credits: 6, IsActive: true})
	c.courses.prereqs[2] = []models.Prerequisite{{CourseID: 2, PrerequisiteID: 1, MinimumGrade: models.GradeC}}

	c.instructors.rows[7] = &models.Instructor{ID: 7, UserID: int64p(70), FirstName: "Barbara", LastName: "Liskov"}
	c.sections.add(models.Section{ID: 1, CourseID: 1, TermID: 1, SectionNumber: "001", InstructorID: int64p(7), Capacity: 2, WaitlistCapacity: 2})
	c.sections.add(models.Section{ID: 2, CourseID: 2, TermID: 1, SectionNumber: "001", Capacity: 10})
	c.sections.add(models.Section{ID: 3, CourseID: 3, TermID: 1, SectionNumber: "001", Capacity: 10})
	return c
}

func (c *campus) enrollmentService() *enrollmentServiceImpl {
	svc := NewEnrollmentService(EnrollmentDeps{
		Enrollments:       c.enrollments,
		Sections:          c.sections,
		Students:          c.students,
		Terms:             c.terms,
		Courses:           c.courses,
		Meetings:          c.meetings,
		Instructors:       c.instructors,
		Notifier:          c.notifier,
		Metrics:           c.metrics,
		Tx:                c.tx,
		Audit:             c.audit,
		MaxCreditsPerTerm: 8,
	}, zerolog.Nop()).(*enrollmentServiceImpl)
	svc.now = fixedClock
	return svc
}

func studentActor(userID int64) models.Actor {
	return models.Actor{UserID: userID, Role: models.RoleStudent}
}

// fill seats every given student in section as ENROLLED.
func (c *campus) fill(sectionID int64, studentIDs ...int64) {
	for _, id := range studentIDs {
		c.enrollments.seed(models.Enrollment{StudentID: id, SectionID: sectionID, Status: models.EnrollmentStatusEnrolled})
		c.sections.rows[sectionID].EnrolledCount++
	}
}

func (c *campus) waitlist(sectionID int64, studentIDs ...int64) {
	for _, id := range studentIDs {
		s := c.sections.rows[sectionID]
		s.WaitlistCount++
		c.enrollments.seed(models.Enrollment{StudentID: id, SectionID: sectionID, Status: models.EnrollmentStatusWaitlisted, WaitlistPosition: intp(s.WaitlistCount)})
	}
}

func TestEnroll_TakesFreeSeat(t *testing.T) {
	c := newCampus()
	svc := c.enrollmentService()

	e, err := svc.Enroll(context.Background(), studentActor(10), &dto.EnrollRequest{SectionID: 1})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusEnrolled, e.Status)
	assert.Equal(t, int64(1), e.StudentID)
	assert.Nil(t, e.WaitlistPosition)
	assert.Equal(t, "CS101", e.CourseCode)
	assert.Equal(t, 1, c.sections.rows[1].EnrolledCount)
	assert.Equal(t, 1, c.metrics.outcomes[metrics.OutcomeEnrolled])
	assert.Equal(t, []string{models.AuditActionEnroll}, c.audit.actions())
}

func TestEnroll_LocksSectionThenStudent(t *testing.T) {
	c := newCampus()
	svc := c.enrollmentService()

	_, err := svc.Enroll(context.Background(), staff, &dto.EnrollRequest{SectionID: 3, StudentID: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"section:3", "student:2"}, c.locks.taken)

	// a rejected request still serializes on the student
	c.locks.taken = nil
	_, err = svc.Enroll(context.Background(), staff, &dto.EnrollRequest{SectionID: 1, StudentID: 2})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCreditLimitExceeded), "got %v", err)
	assert.Equal(t, []string{"section:1", "student:2"}, c.locks.taken)
}

func TestEnroll_WaitlistsWhenSeatsAreTaken(t *testing.T) {
	c := newCampus()
	c.fill(1, 2, 3)
	svc := c.enrollmentService()

	e, err := svc.Enroll(context.Background(), studentActor(10), &dto.EnrollRequest{SectionID: 1})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusWaitlisted, e.Status)
	require.NotNil(t, e.WaitlistPosition)
	assert.Equal(t, 1, *e.WaitlistPosition)
	assert.Equal(t, 2, c.sections.rows[1].EnrolledCount)
	assert.Equal(t, 1, c.sections.rows[1].WaitlistCount)
	assert.Equal(t, 1, c.metrics.outcomes[metrics.OutcomeWaitlisted])
	assert.Equal(t, []string{models.AuditActionWaitlist}, c.audit.actions())
}

func TestEnroll_StaffEnrollsNamedStudent(t *testing.T) {
	c := newCampus()
	svc := c.enrollmentService()

	e, err := svc.Enroll(context.Background(), staff, &dto.EnrollRequest{StudentID: 3, SectionID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.StudentID)

	_, err = svc.Enroll(context.Background(), staff, &dto.EnrollRequest{SectionID: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed))
}

func TestEnroll_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		arrange func(c *campus, svc *enrollmentServiceImpl)
		req     dto.EnrollRequest
		want    error
	}{
		{
			name:    "student not active",
			arrange: func(c *campus, _ *enrollmentServiceImpl) { c.students.rows[1].Status = models.StudentStatusSuspended },
			req:     dto.EnrollRequest{SectionID: 1},
			want:    apperrors.ErrStudentNotActive,
		},
		{
			name:    "section closed",
			arrange: func(c *campus, _ *enrollmentServiceImpl) { c.sections.rows[1].Status = models.SectionStatusClosed },
			req:     dto.EnrollRequest{SectionID: 1},
			want:    apperrors.ErrSectionNotOpen,
		},
		{
			name: "registration window over",
			arrange: func(_ *campus, svc *enrollmentServiceImpl) {
				svc.now = func() time.Time { return time.Date(2025, 9, 11, 0, 0, 1, 0, time.UTC) }
			},
			req:  dto.EnrollRequest{SectionID: 1},
			want: apperrors.ErrRegistrationClosed,
		},
		{
			name:    "already in section",
			arrange: func(c *campus, _ *enrollmentServiceImpl) { c.fill(1, 1) },
			req:     dto.EnrollRequest{SectionID: 1},
			want:    apperrors.ErrAlreadyEnrolled,
		},
		{
			name: "same course in another section",
			arrange: func(c *campus, _ *enrollmentServiceImpl) {
				c.sections.add(models.Section{ID: 4, CourseID: 1, TermID: 1, SectionNumber: "002", Capacity: 5})
				c.fill(4, 1)
			},
			req:  dto.EnrollRequest{SectionID: 1},
			want: apperrors.ErrAlreadyEnrolled,
		},
		{
			name:    "prerequisite missing",
			arrange: func(*campus, *enrollmentServiceImpl) {},
			req:     dto.EnrollRequest{SectionID: 2},
			want:    apperrors.ErrPrerequisitesNotMet,
		},
		{
			name: "prerequisite grade too low",
			arrange: func(c *campus, _ *enrollmentServiceImpl) {
				c.enrollments.records[1] = []models.GradeRecord{{CourseID: 1, CourseCode: "CS101", Grade: models.GradeD}}
			},
			req:  dto.EnrollRequest{SectionID: 2},
			want: apperrors.ErrPrerequisitesNotMet,
		},
		{
			name: "schedule conflict",
			arrange: func(c *campus, svc *enrollmentServiceImpl) {
				svc.MaxCreditsPerTerm = 20
				c.fill(3, 1)
				c.meetings.add(models.Meeting{SectionID: 3, RoomID: 1, DayOfWeek: 1, StartMinute: 540, EndMinute: 600})
				c.meetings.add(models.Meeting{SectionID: 1, RoomID: 2, DayOfWeek: 1, StartMinute: 570, EndMinute: 630})
			},
			req:  dto.EnrollRequest{SectionID: 1},
			want: apperrors.ErrScheduleConflict,
		},
		{
			name:    "credit limit",
			arrange: func(c *campus, _ *enrollmentServiceImpl) { c.fill(3, 1) },
			req:     dto.EnrollRequest{SectionID: 1},
			want:    apperrors.ErrCreditLimitExceeded,
		},
		{
			name: "section and waitlist full",
			arrange: func(c *campus, _ *enrollmentServiceImpl) {
				c.fill(1, 2, 3)
				c.sections.rows[1].WaitlistCapacity = 0
			},
			req:  dto.EnrollRequest{SectionID: 1},
			want: apperrors.ErrSectionFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCampus()
			svc := c.enrollmentService()
			tt.arrange(c, svc)
			before := *c.sections.rows[tt.req.SectionID]

			_, err := svc.Enroll(context.Background(), studentActor(10), &tt.req)

			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, before.EnrolledCount, c.sections.rows[tt.req.SectionID].EnrolledCount)
			assert.Equal(t, before.WaitlistCount, c.sections.rows[tt.req.SectionID].WaitlistCount)
			assert.Equal(t, 1, c.metrics.outcomes[metrics.OutcomeRejected])
		})
	}
}

func TestEnroll_MissingPrerequisiteDetails(t *testing.T) {
	c := newCampus()
	svc := c.enrollmentService()

	_, err := svc.Enroll(context.Background(), studentActor(10), &dto.EnrollRequest{SectionID: 2})
	require.Error(t, err)
	assert.Equal(t, []string{"CS101"}, apperrors.DetailsOf(err)["missing"])
}

func TestEnroll_PrerequisiteSatisfiedByPassOrHigherGrade(t *testing.T) {
	for _, g := range []models.Grade{models.GradeC, models.GradeA, models.GradePass} {
		t.Run(string(g), func(t *testing.T) {
			c := newCampus()
			c.enrollments.records[1] = []models.GradeRecord{{CourseID: 1, CourseCode: "CS101", Grade: g}}
			svc := c.enrollmentService()

			e, err := svc.Enroll(context.Background(), studentActor(10), &dto.EnrollRequest{SectionID: 2})
			require.NoError(t, err)
			assert.Equal(t, models.EnrollmentStatusEnrolled, e.Status)
		})
	}
}

func TestEnroll_BackToBackMeetingsDoNotConflict(t *testing.T) {
	c := newCampus()
	c.fill(3, 1)
	c.meetings.add(models.Meeting{SectionID: 3, RoomID: 1, DayOfWeek: 1, StartMinute: 540, EndMinute: 600})
	c.meetings.add(models.Meeting{SectionID: 1, RoomID: 2, DayOfWeek: 1, StartMinute: 600, EndMinute: 660})
	svc := c.enrollmentService()
	svc.MaxCreditsPerTerm = 20

	_, err := svc.Enroll(context.Background(), studentActor(10), &dto.EnrollRequest{SectionID: 1})
	assert.NoError(t, err)
}

func TestEnroll_ReusesDroppedRow(t *testing.T) {
	c := newCampus()
	dropped := c.enrollments.seed(models.Enrollment{StudentID: 1, SectionID: 1, Status: models.EnrollmentStatusDropped, DroppedAt: &fixedNow})
	svc := c.enrollmentService()

	e, err := svc.Enroll(context.Background(), studentActor(10), &dto.EnrollRequest{SectionID: 1})
	require.NoError(t, err)

	assert.Equal(t, dropped.ID, e.ID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, e.Status)
	assert.Nil(t, e.DroppedAt)
	assert.Len(t, c.enrollments.rows, 1)
	assert.Equal(t, true, c.audit.entries[0].Metadata["reused"])
}

func TestEnroll_StudentsOnlyEnrollThemselves(t *testing.T) {
	c := newCampus()
	svc := c.enrollmentService()

	_, err := svc.Enroll(context.Background(), studentActor(10), &dto.EnrollRequest{StudentID: 2, SectionID: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrPermissionDenied))

	_, err = svc.Enroll(context.Background(), studentActor(99), &dto.EnrollRequest{SectionID: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrPermissionDenied))

	_, err = svc.Enroll(context.Background(), models.Actor{UserID: 70, Role: models.RoleInstructor}, &dto.EnrollRequest{StudentID: 1, SectionID: 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrPermissionDenied))
	assert.Empty(t, c.enrollments.rows)
}

func TestDrop_PromotesWaitlistHead(t *testing.T) {
	c := newCampus()
	c.sections.rows[1].Capacity = 1
	c.fill(1, 1)
	c.waitlist(1, 2, 3)
	svc := c.enrollmentService()
	c.notifier.On("SendWaitlistPromotion", mock.MatchedBy(func(m email.WaitlistPromotion) bool {
		return m.ToEmail == "alan@student.test" && m.CourseCode == "CS101" && m.TermCode == testTermCode
	})).Return(nil).Once()

	dropped, err := svc.Drop(context.Background(), studentActor(10), 1)
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusDropped, dropped.Status)
	require.NotNil(t, dropped.DroppedAt)

	promoted := c.enrollments.rows[2]
	assert.Equal(t, models.EnrollmentStatusEnrolled, promoted.Status)
	assert.Nil(t, promoted.WaitlistPosition)

	remaining := c.enrollments.rows[3]
	require.NotNil(t, remaining.WaitlistPosition)
	assert.Equal(t, 1, *remaining.WaitlistPosition)

	section := c.sections.rows[1]
	assert.Equal(t, 1, section.EnrolledCount)
	assert.Equal(t, 1, section.WaitlistCount)
	assert.Equal(t, 1, c.metrics.promotions)
	assert.Equal(t, []string{models.AuditActionDrop, models.AuditActionPromote}, c.audit.actions())
	c.notifier.AssertExpectations(t)
}

func TestDrop_NotificationFailureDoesNotFailDrop(t *testing.T) {
	c := newCampus()
	c.sections.rows[1].Capacity = 1
	c.fill(1, 1)
	c.waitlist(1, 2)
	c.notifier.On("SendWaitlistPromotion", mock.Anything).Return(assert.AnError)
	svc := c.enrollmentService()

	_, err := svc.Drop(context.Background(), staff, 1)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusEnrolled, c.enrollments.rows[2].Status)
}

func TestDrop_WaitlistedRowClosesGap(t *testing.T) {
	c := newCampus()
	c.fill(1, 1, 2)
	c.students.add(models.Student{ID: 4, UserID: int64p(13), StudentNumber: "20250004", Email: "kat@student.test"})
	c.waitlist(1, 3, 4)
	svc := c.enrollmentService()

	// dropped past the deadline: waitlist places can always be released
	svc.now = func() time.Time { return time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC) }
	_, err := svc.Drop(context.Background(), studentActor(12), 3)
	require.NoError(t, err)

	assert.Equal(t, 1, *c.enrollments.rows[4].WaitlistPosition)
	assert.Equal(t, 2, c.sections.rows[1].EnrolledCount)
	assert.Equal(t, 1, c.sections.rows[1].WaitlistCount)
	assert.Zero(t, c.metrics.promotions)
}

func TestDrop_Rejections(t *testing.T) {
	c := newCampus()
	c.fill(1, 1)
	c.enrollments.seed(models.Enrollment{ID: 9, StudentID: 2, SectionID: 1, Status: models.EnrollmentStatusDropped})
	svc := c.enrollmentService()
	ctx := context.Background()

	_, err := svc.Drop(ctx, studentActor(11), 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrPermissionDenied), "other student")

	_, err = svc.Drop(ctx, staff, 9)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidEnrollmentState), "already dropped")

	svc.now = func() time.Time { return time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC) }
	_, err = svc.Drop(ctx, staff, 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrDropDeadlinePassed))
	assert.Equal(t, models.EnrollmentStatusEnrolled, c.enrollments.rows[1].Status)

	_, err = svc.Drop(ctx, staff, 404)
	assert.True(t, apperrors.Is(err, apperrors.ErrEnrollmentNotFound))
}

func TestDrop_OnDeadlineDayIsAllowed(t *testing.T) {
	c := newCampus()
	c.fill(1, 1)
	svc := c.enrollmentService()
	svc.now = func() time.Time { return time.Date(2025, 10, 1, 23, 59, 0, 0, time.UTC) }

	_, err := svc.Drop(context.Background(), staff, 1)
	assert.NoError(t, err)
	assert.Zero(t, c.sections.rows[1].EnrolledCount)
}

func TestSectionRoster_Authorization(t *testing.T) {
	c := newCampus()
	c.fill(1, 1, 2)
	c.instructors.rows[8] = &models.Instructor{ID: 8, UserID: int64p(80)}
	svc := c.enrollmentService()
	ctx := context.Background()

	roster, err := svc.SectionRoster(ctx, models.Actor{UserID: 70, Role: models.RoleInstructor}, 1)
	require.NoError(t, err)
	assert.Len(t, roster, 2)

	_, err = svc.SectionRoster(ctx, models.Actor{UserID: 80, Role: models.RoleInstructor}, 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrPermissionDenied))

	_, err = svc.SectionRoster(ctx, studentActor(10), 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrPermissionDenied))
}

func TestStudentEnrollments_FiltersByTerm(t *testing.T) {
	c := newCampus()
	c.terms.add(models.Term{ID: 2, Code: "2026SP"})
	c.sections.add(models.Section{ID: 5, CourseID: 3, TermID: 2, SectionNumber: "001", Capacity: 5})
	c.fill(1, 1)
	c.fill(5, 1)
	svc := c.enrollmentService()

	all, err := svc.StudentEnrollments(context.Background(), studentActor(10), 1, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	fall, err := svc.StudentEnrollments(context.Background(), studentActor(10), 1, int64p(1))
	require.NoError(t, err)
	require.Len(t, fall, 1)
	assert.Equal(t, "CS101", fall[0].CourseCode)
}
