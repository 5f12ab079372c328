package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetState(t *testing.T) {
	all := []string{"disconnected", "connected", "loggedIn", "verified"}
	SetState("verified", all...)
	assert.Equal(t, 1.0, testutil.ToFloat64(SessionState.WithLabelValues("verified")))
	assert.Equal(t, 0.0, testutil.ToFloat64(SessionState.WithLabelValues("disconnected")))

	SetState("disconnected", all...)
	assert.Equal(t, 0.0, testutil.ToFloat64(SessionState.WithLabelValues("verified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(SessionState.WithLabelValues("disconnected")))
}

func TestHandler(t *testing.T) {
	ConnectsTotal.Inc()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sagebot_aprsis_connects_total")
}
