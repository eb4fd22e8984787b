// Package metrics exports poller samples and protocol counters to Prometheus.
package metrics

import (
	"strconv"

	"github.com/Shoaibashk/GaugeLink/internal/acm"
	"github.com/Shoaibashk/GaugeLink/internal/poll"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "gaugelink"

// Exporter holds the collectors of one gaugelink process
type Exporter struct {
	registry *prometheus.Registry

	pressure   *prometheus.GaugeVec
	status     *prometheus.GaugeVec
	enabled    *prometheus.GaugeVec
	pollErrors *prometheus.CounterVec
}

// NewExporter creates an exporter with its own registry
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		pressure: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pressure_pascals",
			Help:      "Last pressure reading in Pa.",
		}, []string{"controller", "channel"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_status",
			Help:      "Gauge status of a channel; 1 for the current status, 0 otherwise.",
		}, []string{"controller", "channel", "status"}),
		enabled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_enabled",
			Help:      "Whether a channel is switched on.",
		}, []string{"controller", "channel"}),
		pollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Failed variable reads.",
		}, []string{"controller", "variable"}),
	}

	e.registry.MustRegister(
		e.pressure,
		e.status,
		e.enabled,
		e.pollErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return e
}

// Registry returns the registry the exporter's collectors live in
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// RegisterController exposes the protocol counters of one controller
func (e *Exporter) RegisterController(name string, m *acm.Metrics) error {
	labels := prometheus.Labels{"controller": name}
	counters := []struct {
		name  string
		help  string
		value func() float64
	}{
		{"commands_total", "Command frames written.", func() float64 { return float64(m.CommandCount.Load()) }},
		{"replies_total", "Reply lines received.", func() float64 { return float64(m.ReplyCount.Load()) }},
		{"rejections_total", "Commands answered with NAK.", func() float64 { return float64(m.RejectCount.Load()) }},
		{"protocol_errors_total", "Acknowledgements that were neither ACK nor NAK.", func() float64 { return float64(m.ProtocolErrCount.Load()) }},
		{"transport_errors_total", "Failed serial reads and writes.", func() float64 { return float64(m.TransportErrCount.Load()) }},
	}

	for _, c := range counters {
		cf := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        c.name,
			Help:        c.help,
			ConstLabels: labels,
		}, c.value)
		if err := e.registry.Register(cf); err != nil {
			return err
		}
	}
	return nil
}

// Observe updates the collectors from one poller sample. It has the
// signature of poll.Options.Observe.
func (e *Exporter) Observe(s poll.Sample) {
	if s.Err != "" {
		e.pollErrors.WithLabelValues(s.Controller, s.Variable).Inc()
		return
	}

	ch := strconv.Itoa(s.Channel)
	switch s.Variable {
	case poll.VarPressure:
		if v, ok := s.Value.(float64); ok {
			e.pressure.WithLabelValues(s.Controller, ch).Set(v)
		}
	case poll.VarChannelStatus:
		current, ok := s.Value.(acm.ChannelStatus)
		if !ok {
			return
		}
		for _, st := range acm.ChannelStatuses() {
			v := 0.0
			if st == current {
				v = 1
			}
			e.status.WithLabelValues(s.Controller, ch, st.String()).Set(v)
		}
	case poll.VarEnabled:
		if v, ok := s.Value.(acm.EnableState); ok {
			on := 0.0
			if v == acm.EnableOn {
				on = 1
			}
			e.enabled.WithLabelValues(s.Controller, ch).Set(on)
		}
	}
}
