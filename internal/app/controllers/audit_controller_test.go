package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
)

func TestAuditFilter_DayWindowIsHalfOpen(t *testing.T) {
	entity := int64(12)
	filter, err := auditFilter(&dto.AuditFilterRequest{
		EntityType: "section",
		EntityID:   &entity,
		From:       "2025-09-01",
		To:         "2025-09-01",
	})
	require.NoError(t, err)

	assert.Equal(t, "section", filter.EntityType)
	assert.Equal(t, &entity, filter.EntityID)
	require.NotNil(t, filter.From)
	require.NotNil(t, filter.To)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), *filter.From)
	assert.Equal(t, time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC), *filter.To)
}

func TestAuditFilter_OpenEnded(t *testing.T) {
	filter, err := auditFilter(&dto.AuditFilterRequest{To: "2025-12-31"})
	require.NoError(t, err)
	assert.Nil(t, filter.From)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *filter.To)
}

func TestAuditFilter_Rejects(t *testing.T) {
	tests := map[string]dto.AuditFilterRequest{
		"reversed": {From: "2025-09-10", To: "2025-09-01"},
		"garbage":  {From: "yesterday"},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := auditFilter(&req)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
		})
	}
}
