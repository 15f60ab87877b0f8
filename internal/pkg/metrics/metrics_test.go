package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Enrollment(OutcomeEnrolled)
	m.Enrollment(OutcomeEnrolled)
	m.Enrollment(OutcomeRejected)
	m.Promotions(3)
	m.Promotions(0)
	m.Payment()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EnrollmentOutcomes.WithLabelValues(OutcomeEnrolled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrollmentOutcomes.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.WaitlistPromotions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsRecorded))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Enrollment(OutcomeWaitlisted)
		m.Promotions(1)
		m.Payment()
		m.Invoice()
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Invoice()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "universys_invoices_generated_total 1")
}
