package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
)

func newDepartmentFixture() (*fakeDepartments, *fakeAudit, DepartmentService) {
	departments := &fakeDepartments{
		rows:  map[int64]*models.Department{1: {ID: 1, Code: "CS", Name: "Computer Science"}},
		inUse: map[int64]bool{},
	}
	audit := &fakeAudit{}
	return departments, audit, NewDepartmentService(departments, &fakeTx{}, audit)
}

func TestValidateDepartment(t *testing.T) {
	d, err := validateDepartment(&dto.DepartmentRequest{Name: "  Mathematics ", Code: " math2 "})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", d.Name)
	assert.Equal(t, "MATH2", d.Code)

	tests := []struct {
		name string
		req  dto.DepartmentRequest
	}{
		{"blank name", dto.DepartmentRequest{Name: "   ", Code: "MATH"}},
		{"one letter code", dto.DepartmentRequest{Name: "Math", Code: "M"}},
		{"code too long", dto.DepartmentRequest{Name: "Math", Code: "MATHEMATICS"}},
		{"code with hyphen", dto.DepartmentRequest{Name: "Math", Code: "MA-TH"}},
		{"code with space", dto.DepartmentRequest{Name: "Math", Code: "MA TH"}},
		{"code with accent", dto.DepartmentRequest{Name: "Math", Code: "MÄTH"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateDepartment(&tt.req)
			assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed), "got %v", err)
		})
	}
}

func TestDepartmentService_CreateAndUpdate(t *testing.T) {
	departments, audit, svc := newDepartmentFixture()
	ctx := context.Background()

	d, err := svc.Create(ctx, staff, &dto.DepartmentRequest{Name: "Physics", Code: "phys"})
	require.NoError(t, err)
	assert.Equal(t, "PHYS", d.Code)
	assert.Equal(t, "PHYS", departments.rows[d.ID].Code)

	_, err = svc.Create(ctx, staff, &dto.DepartmentRequest{Name: "Applied Physics", Code: "PHYS"})
	assert.ErrorIs(t, err, apperrors.ErrDepartmentAlreadyExists)

	updated, err := svc.Update(ctx, staff, d.ID, &dto.DepartmentRequest{Name: "Physics and Astronomy", Code: "PHYS"})
	require.NoError(t, err)
	assert.Equal(t, d.ID, updated.ID)
	assert.Equal(t, "Physics and Astronomy", departments.rows[d.ID].Name)

	_, err = svc.Update(ctx, staff, 404, &dto.DepartmentRequest{Name: "Nowhere", Code: "NOPE"})
	assert.ErrorIs(t, err, apperrors.ErrDepartmentNotFound)

	assert.Equal(t, []string{models.AuditActionCreate, models.AuditActionUpdate}, audit.actions())
	assert.Equal(t, map[string]interface{}{"name": "Physics", "code": "PHYS"}, audit.entries[1].Metadata["old"])
}

func TestDepartmentService_Delete(t *testing.T) {
	tests := []struct {
		name   string
		id     int64
		inUse  bool
		want   error
		remain bool
	}{
		{"unused", 1, false, nil, false},
		{"still referenced", 1, true, apperrors.ErrDepartmentHasRelations, true},
		{"missing", 404, false, apperrors.ErrDepartmentNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			departments, audit, svc := newDepartmentFixture()
			departments.inUse[1] = tt.inUse

			err := svc.Delete(context.Background(), staff, tt.id)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				assert.Empty(t, audit.entries)
			} else {
				require.NoError(t, err)
				assert.Equal(t, []string{models.AuditActionDelete}, audit.actions())
			}
			_, stillThere := departments.rows[1]
			assert.Equal(t, tt.remain, stillThere)
		})
	}
}

func TestDepartmentService_GetByIDRejectsNonPositive(t *testing.T) {
	_, _, svc := newDepartmentFixture()

	_, err := svc.GetByID(context.Background(), 0)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	d, err := svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "CS", d.Code)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
