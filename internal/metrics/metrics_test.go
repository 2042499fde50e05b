package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAndIncrements(t *testing.T) {
	r := New()
	require.NotNil(t, r)

	r.ResolverLayerHits.WithLabelValues("cache").Inc()
	r.GateEvaluations.WithLabelValues("alignment", "pass").Inc()
	r.GateOutcomes.WithLabelValues("ALLOWED").Inc()
	r.ScanEligible.Set(3)
	r.ScanTotal.WithLabelValues("signal").Inc()
	r.AnalysisDuration.WithLabelValues("1D").Observe(1.5)
	r.CriticalConflicts.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "marketagent_resolver_layer_hits_total")
}
