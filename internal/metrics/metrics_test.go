package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAnomaly(t *testing.T) {
	before := testutil.ToFloat64(AnomaliesDetected.WithLabelValues("movement", "critical"))
	RecordAnomaly("movement", "critical")
	after := testutil.ToFloat64(AnomaliesDetected.WithLabelValues("movement", "critical"))
	assert.Equal(t, before+1, after)
}

func TestRecordScore(t *testing.T) {
	RecordScore("tourist-metrics-test", "danger", 35.5)
	assert.Equal(t, 35.5, testutil.ToFloat64(SafetyScoreValue.WithLabelValues("tourist-metrics-test")))

	before := testutil.ToFloat64(SafetyStatusTotal.WithLabelValues("danger"))
	RecordScore("tourist-metrics-test", "danger", 30)
	assert.Equal(t, before+1, testutil.ToFloat64(SafetyStatusTotal.WithLabelValues("danger")))
}

func TestRecordFixRejected(t *testing.T) {
	before := testutil.ToFloat64(FixesRejected.WithLabelValues("stale_timestamp"))
	RecordFixRejected("stale_timestamp")
	assert.Equal(t, before+1, testutil.ToFloat64(FixesRejected.WithLabelValues("stale_timestamp")))
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/tourists/{id}/fixes", "202"))
	RecordAPIRequest("POST", "/api/v1/tourists/{id}/fixes", "202", 5*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/tourists/{id}/fixes", "202"))
	assert.Equal(t, before+1, after)
}
