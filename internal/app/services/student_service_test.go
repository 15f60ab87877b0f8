package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
)

func newStudentFixture() (*fakeStudents, *fakeAudit, *studentServiceImpl) {
	students := newFakeStudents()
	departments := &fakeDepartments{rows: map[int64]*models.Department{1: {ID: 1, Code: "CS", Name: "Computer Science"}}}
	users := newFakeUsers()
	users.rows[10] = &models.User{ID: 10, Email: "ada@student.test", RoleType: models.RoleStudent}
	users.rows[20] = &models.User{ID: 20, Email: "turing@universys.test", RoleType: models.RoleInstructor}
	audit := &fakeAudit{}
	svc := NewStudentService(students, departments, users, &fakeTx{}, audit, zerolog.Nop()).(*studentServiceImpl)
	svc.now = fixedClock
	return students, audit, svc
}

func TestCreateStudent(t *testing.T) {
	_, audit, svc := newStudentFixture()
	ctx := context.Background()

	s, err := svc.Create(ctx, staff, &dto.CreateStudentRequest{
		StudentNumber: "20250001", FirstName: " Ada ", LastName: "Lovelace", Email: "Ada@Student.Test", DepartmentID: 1, UserID: int64p(10),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", s.FirstName)
	assert.Equal(t, "ada@student.test", s.Email)
	assert.Equal(t, models.StudentStatusActive, s.Status)
	assert.Equal(t, "2025-08-20", s.EnrollmentDate.Format("2006-01-02"))
	assert.Equal(t, []string{models.AuditActionCreate}, audit.actions())

	_, err = svc.Create(ctx, staff, &dto.CreateStudentRequest{
		StudentNumber: "20250001", FirstName: "Dup", LastName: "Number", Email: "dup@student.test", DepartmentID: 1,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrStudentNumberAlreadyExists))

	_, err = svc.Create(ctx, staff, &dto.CreateStudentRequest{
		StudentNumber: "20250002", FirstName: "Alan", LastName: "Turing", Email: "alan@student.test", DepartmentID: 1, UserID: int64p(20),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed), "linked user is not a student")

	_, err = svc.Create(ctx, staff, &dto.CreateStudentRequest{
		StudentNumber: "2025", FirstName: "Short", LastName: "Number", Email: "short@student.test", DepartmentID: 1,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed))
}

func TestStudentAccess(t *testing.T) {
	students, _, svc := newStudentFixture()
	students.add(models.Student{ID: 1, UserID: int64p(10), StudentNumber: "20250001", DepartmentID: 1})
	students.add(models.Student{ID: 2, StudentNumber: "20250002", DepartmentID: 1})
	ctx := context.Background()

	me, err := svc.Me(ctx, studentActor(10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), me.ID)
	require.NotNil(t, me.Department)
	assert.Equal(t, "CS", me.Department.Code)

	_, err = svc.GetByID(ctx, studentActor(10), 2)
	assert.True(t, apperrors.Is(err, apperrors.ErrPermissionDenied))

	_, err = svc.GetByID(ctx, models.Actor{UserID: 20, Role: models.RoleInstructor}, 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrPermissionDenied))

	got, err := svc.GetByID(ctx, staff, 2)
	require.NoError(t, err)
	assert.Equal(t, "20250002", got.StudentNumber)
}

func TestChangeStudentStatus(t *testing.T) {
	students, audit, svc := newStudentFixture()
	students.add(models.Student{ID: 1, StudentNumber: "20250001", DepartmentID: 1})
	ctx := context.Background()

	s, err := svc.ChangeStatus(ctx, staff, 1, "suspended")
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusSuspended, s.Status)
	assert.Equal(t, models.StudentStatusSuspended, students.rows[1].Status)

	_, err = svc.ChangeStatus(ctx, staff, 1, "SUSPENDED")
	require.NoError(t, err)
	assert.Len(t, audit.entries, 1, "no-op change is not audited")

	_, err = svc.ChangeStatus(ctx, staff, 1, "EXPELLED")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed))

	list, total, err := svc.List(ctx, &dto.StudentFilterRequest{Status: "suspended"}, defaultTestPage)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)
}
