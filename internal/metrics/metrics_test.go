package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns the value of the sample of name whose labels include all
// of want.
func gathered(t *testing.T, m *Metrics, name string, want map[string]string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			matched := 0
			for _, lp := range metric.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched != len(want) {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	return 0
}

func TestBlockCounters(t *testing.T) {
	m := New()
	m.IncBlock("address", OutcomeSuccess)
	m.IncBlock("address", OutcomeSuccess)
	m.AddBlocks("address", OutcomeSkip, 3)
	m.AddBlocks("address", OutcomeFail, 0)

	assert.Equal(t, 2.0, gathered(t, m, "homestyle_blocks_total", map[string]string{"operation": "address", "outcome": OutcomeSuccess}))
	assert.Equal(t, 3.0, gathered(t, m, "homestyle_blocks_total", map[string]string{"operation": "address", "outcome": OutcomeSkip}))
	assert.Equal(t, 0.0, gathered(t, m, "homestyle_blocks_total", map[string]string{"operation": "address", "outcome": OutcomeFail}))
}

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun("drive", 2*time.Second, false)
	assert.Equal(t, 0.0, gathered(t, m, "homestyle_last_run_success", map[string]string{"operation": "drive"}))
	m.ObserveRun("drive", time.Second, true)
	assert.Equal(t, 1.0, gathered(t, m, "homestyle_last_run_success", map[string]string{"operation": "drive"}))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncBlock("x", OutcomeFail)
	m.AddBlocks("x", OutcomeFail, 2)
	m.IncCall("kakao")
	m.ObserveRun("x", time.Second, true)
	assert.NoError(t, m.Push("http://unused", "job"))
}

func TestPush(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.IncCall("kakao")
	require.NoError(t, m.Push(srv.URL, "homestyle_sync"))
	assert.Equal(t, "/metrics/job/homestyle_sync", path)

	assert.NoError(t, m.Push("", "homestyle_sync"))
}
