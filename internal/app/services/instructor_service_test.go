package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/helpers"
)

type instructorFixture struct {
	instructors *fakeInstructors
	users       *fakeUsers
	audit       *fakeAudit
	svc         InstructorService
}

func newInstructorFixture() *instructorFixture {
	f := &instructorFixture{
		instructors: &fakeInstructors{rows: map[int64]*models.Instructor{}},
		users:       newFakeUsers(),
		audit:       &fakeAudit{},
	}
	departments := &fakeDepartments{rows: map[int64]*models.Department{
		1: {ID: 1, Code: "CS", Name: "Computer Science"},
		2: {ID: 2, Code: "MATH", Name: "Mathematics"},
	}}
	f.users.rows[50] = &models.User{ID: 50, Email: "liskov@universys.test", RoleType: models.RoleInstructor}
	f.users.rows[51] = &models.User{ID: 51, Email: "ada@student.test", RoleType: models.RoleStudent}
	f.svc = NewInstructorService(f.instructors, departments, f.users, &fakeTx{}, f.audit)
	return f
}

func validInstructorRequest() dto.CreateInstructorRequest {
	return dto.CreateInstructorRequest{
		FirstName:    "Barbara",
		LastName:     "Liskov",
		Email:        " Liskov@Universys.TEST ",
		Title:        "Institute Prof.",
		DepartmentID: 1,
	}
}

func TestValidateInstructor_Title(t *testing.T) {
	tests := []struct {
		name  string
		title string
		ok    bool
	}{
		{"plain", "Professor", true},
		{"dots and spaces", "Asst. Prof.", true},
		{"hyphenated", "Teaching-Fellow", true},
		{"non ascii letters", "Profesör Doktor", true},
		{"exactly one hundred", strings.Repeat("a", 100), true},
		{"one hundred and one", strings.Repeat("a", 101), false},
		{"digits", "Professor 2", false},
		{"comma", "Professor, Emeritus", false},
		{"parentheses", "Lecturer (Adjunct)", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateInstructor("Barbara", "Liskov", "liskov@universys.test", tt.title)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed), "got %v", err)
			}
		})
	}
}

func TestValidateInstructor_NamesAndEmail(t *testing.T) {
	assert.Error(t, validateInstructor(" ", "Liskov", "liskov@universys.test", "Professor"))
	assert.Error(t, validateInstructor("Barbara", "", "liskov@universys.test", "Professor"))
	assert.Error(t, validateInstructor("Barbara", "Liskov", "not-an-email", "Professor"))
}

func TestInstructorService_Create(t *testing.T) {
	f := newInstructorFixture()
	req := validInstructorRequest()

	i, err := f.svc.Create(context.Background(), staff, &req)
	require.NoError(t, err)
	assert.Equal(t, "liskov@universys.test", i.Email)
	assert.Equal(t, "Institute Prof.", i.Title)
	assert.Equal(t, []string{models.AuditActionCreate}, f.audit.actions())

	_, err = f.svc.Create(context.Background(), staff, &req)
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestInstructorService_CreateRejections(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *dto.CreateInstructorRequest)
		want   error
	}{
		{"bad title", func(r *dto.CreateInstructorRequest) { r.Title = "Prof. #1" }, apperrors.ErrValidationFailed},
		{"unknown department", func(r *dto.CreateInstructorRequest) { r.DepartmentID = 9 }, apperrors.ErrDepartmentNotFound},
		{"unknown user", func(r *dto.CreateInstructorRequest) { r.UserID = int64p(99) }, apperrors.ErrUserNotFound},
		{"user is a student", func(r *dto.CreateInstructorRequest) { r.UserID = int64p(51) }, apperrors.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newInstructorFixture()
			req := validInstructorRequest()
			tt.modify(&req)

			_, err := f.svc.Create(context.Background(), staff, &req)
			assert.True(t, apperrors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, f.instructors.rows)
			assert.Empty(t, f.audit.entries)
		})
	}
}

func TestInstructorService_UpdateListDelete(t *testing.T) {
	f := newInstructorFixture()
	ctx := context.Background()
	req := validInstructorRequest()
	req.UserID = int64p(50)
	created, err := f.svc.Create(ctx, staff, &req)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, staff, created.ID, &dto.UpdateInstructorRequest{
		FirstName:    "Barbara",
		LastName:     "Liskov",
		Email:        "liskov@universys.test",
		Title:        "Professor Emerita",
		DepartmentID: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.DepartmentID)
	assert.Equal(t, "Institute Prof.", f.audit.entries[1].Metadata["oldTitle"])

	_, err = f.svc.Update(ctx, staff, created.ID, &dto.UpdateInstructorRequest{
		FirstName: "Barbara", LastName: "Liskov", Email: "liskov@universys.test", Title: "Professor", DepartmentID: 7,
	})
	assert.ErrorIs(t, err, apperrors.ErrDepartmentNotFound)

	math := int64(2)
	list, total, err := f.svc.List(ctx, &math, helpers.Page{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, created.ID, list[0].ID)

	got, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Department)
	assert.Equal(t, "MATH", got.Department.Code)

	require.NoError(t, f.svc.Delete(ctx, staff, created.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, staff, created.ID), apperrors.ErrInstructorNotFound)
	_, err = f.svc.GetByID(ctx, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}
