// Package metrics exposes panel activity in the node-exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the panel's metrics in a private registry.
type Recorder struct {
	registry     *prometheus.Registry
	serviceUp    prometheus.Gauge
	restarts     *prometheus.CounterVec
	configWrites *prometheus.CounterVec
}

// NewRecorder creates a Recorder with all metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		serviceUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentpanel",
			Name:      "service_up",
			Help:      "Whether the monitoring agent was running at the last check (1 running, 0 not).",
		}),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentpanel",
			Name:      "restarts_total",
			Help:      "Restart attempts by supervision facility and result.",
		}, []string{"facility", "result"}),
		configWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentpanel",
			Name:      "config_writes_total",
			Help:      "Agent config writes by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(r.serviceUp, r.restarts, r.configWrites)
	return r
}

// SetServiceUp records whether the agent is running.
func (r *Recorder) SetServiceUp(up bool) {
	if up {
		r.serviceUp.Set(1)
	} else {
		r.serviceUp.Set(0)
	}
}

// ObserveRestart counts one restart attempt.
func (r *Recorder) ObserveRestart(facility string, ok bool) {
	r.restarts.WithLabelValues(facility, result(ok)).Inc()
}

// ObserveConfigWrite counts one config write attempt.
func (r *Recorder) ObserveConfigWrite(ok bool) {
	r.configWrites.WithLabelValues(result(ok)).Inc()
}

// WriteTextfile atomically writes all metrics to path for the node-exporter
// textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
