package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shoaibashk/GaugeLink/internal/acm"
	"github.com/Shoaibashk/GaugeLink/internal/acm/acmtest"
	"github.com/Shoaibashk/GaugeLink/internal/poll"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservePressureAndStatus(t *testing.T) {
	e := NewExporter()

	e.Observe(poll.Sample{Controller: "acm1000", Variable: poll.VarPressure, Channel: 2, Value: 101325.0})
	e.Observe(poll.Sample{Controller: "acm1000", Variable: poll.VarChannelStatus, Channel: 2, Value: acm.StatusOver})
	e.Observe(poll.Sample{Controller: "acm1000", Variable: poll.VarEnabled, Channel: 2, Value: acm.EnableOn})

	assert.InDelta(t, 101325.0, testutil.ToFloat64(e.pressure.WithLabelValues("acm1000", "2")), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.status.WithLabelValues("acm1000", "2", "over")))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.status.WithLabelValues("acm1000", "2", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.enabled.WithLabelValues("acm1000", "2")))

	e.Observe(poll.Sample{Controller: "acm1000", Variable: poll.VarChannelStatus, Channel: 2, Value: acm.StatusOK})
	assert.Equal(t, 0.0, testutil.ToFloat64(e.status.WithLabelValues("acm1000", "2", "over")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.status.WithLabelValues("acm1000", "2", "ok")))
}

func TestObserveErrorCountsAndKeepsLastValue(t *testing.T) {
	e := NewExporter()

	e.Observe(poll.Sample{Controller: "acm1000", Variable: poll.VarPressure, Channel: 1, Value: 5.0})
	e.Observe(poll.Sample{Controller: "acm1000", Variable: poll.VarPressure, Channel: 1, Err: "timeout"})
	e.Observe(poll.Sample{Controller: "acm1000", Variable: poll.VarPressure, Channel: 3, Err: "timeout"})

	assert.Equal(t, 2.0, testutil.ToFloat64(e.pollErrors.WithLabelValues("acm1000", poll.VarPressure)))
	assert.Equal(t, 5.0, testutil.ToFloat64(e.pressure.WithLabelValues("acm1000", "1")))
}

func TestRegisterController(t *testing.T) {
	sim := acmtest.New()
	sim.Reject["TID"] = true
	dev, err := acm.Open(sim)
	require.NoError(t, err)
	_, err = dev.GaugeKinds()
	require.Error(t, err)

	e := NewExporter()
	require.NoError(t, e.RegisterController("acm1000", dev.Metrics()))
	assert.Error(t, e.RegisterController("acm1000", dev.Metrics()))

	expected := `
# HELP gaugelink_rejections_total Commands answered with NAK.
# TYPE gaugelink_rejections_total counter
gaugelink_rejections_total{controller="acm1000"} 1
`
	require.NoError(t, testutil.GatherAndCompare(e.Registry(), strings.NewReader(expected), "gaugelink_rejections_total"))

	expected = `
# HELP gaugelink_commands_total Command frames written.
# TYPE gaugelink_commands_total counter
gaugelink_commands_total{controller="acm1000"} 2
`
	require.NoError(t, testutil.GatherAndCompare(e.Registry(), strings.NewReader(expected), "gaugelink_commands_total"))
}

func TestServerEndpoints(t *testing.T) {
	e := NewExporter()
	e.Observe(poll.Sample{Controller: "acm1000", Variable: poll.VarPressure, Channel: 1, Value: 100000.0})

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	readings := func() []poll.Sample {
		return []poll.Sample{{Controller: "acm1000", Variable: poll.VarPressure, Channel: 1, Value: 100000.0, Time: now}}
	}

	srv := NewServer("127.0.0.1:0", "/metrics", e, readings, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		path     string
		wantBody string
	}{
		{"/health", "OK"},
		{"/metrics", `gaugelink_pressure_pascals{channel="1",controller="acm1000"} 100000`},
		{"/readings", `"variable": "pressure"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			var body bytes.Buffer
			_, err = body.ReadFrom(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, body.String(), tt.wantBody)
		})
	}
}

func TestReadingsWithoutSource(t *testing.T) {
	srv := NewServer(":0", "", NewExporter(), nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readings", nil))

	var samples []poll.Sample
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &samples))
	assert.Empty(t, samples)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestObserveIgnoresUnexpectedValues(t *testing.T) {
	e := NewExporter()
	assert.NotPanics(t, func() {
		e.Observe(poll.Sample{Controller: "acm1000", Variable: poll.VarPressure, Channel: 1, Value: "n/a"})
		e.Observe(poll.Sample{Controller: "acm1000", Variable: poll.VarGaugeKind, Channel: 1, Value: "TPR"})
	})
	count, err := testutil.GatherAndCount(e.Registry(), "gaugelink_pressure_pascals")
	require.NoError(t, err)
	assert.Zero(t, count)
}
