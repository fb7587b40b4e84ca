package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/metrics"
)

func TestRecordOracleCallNormalizesOutcome(t *testing.T) {
	before := testutil.ToFloat64(metrics.OracleCallsTotal.WithLabelValues("assess", "other"))
	metrics.RecordOracleCall("assess", "some-unbounded-error-string")
	after := testutil.ToFloat64(metrics.OracleCallsTotal.WithLabelValues("assess", "other"))
	assert.Equal(t, before+1, after)
}

func TestRecordIntelligenceSkipsZero(t *testing.T) {
	before := testutil.ToFloat64(metrics.IntelligenceItemsTotal.WithLabelValues("upi_id"))
	metrics.RecordIntelligence("upi_id", 0)
	metrics.RecordIntelligence("upi_id", 2)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.IntelligenceItemsTotal.WithLabelValues("upi_id")))
}

func TestRecordGuardrailRejectionPerReason(t *testing.T) {
	before := testutil.ToFloat64(metrics.GuardrailRejectionsTotal.WithLabelValues("ai_disclosure"))
	metrics.RecordGuardrailRejection([]string{"ai_disclosure", "too_long"})
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.GuardrailRejectionsTotal.WithLabelValues("ai_disclosure")))
}

func TestPromhttpExposure(t *testing.T) {
	metrics.RecordCallback("delivered")

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `honeypot_callbacks_total{outcome="delivered"}`))
}
