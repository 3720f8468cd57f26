/*
Copyright 2026 Nscale.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package scenario

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskflow_apitest"

// Metrics records a run in a private registry so it can be written out in the
// Prometheus text format, e.g. for the node exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	// steps counts steps by name and outcome.
	steps *prometheus.CounterVec

	// responses counts HTTP responses by step and status code.
	responses *prometheus.CounterVec

	// duration observes how long each executed step took.
	duration *prometheus.HistogramVec

	// lastRun is the completion time of the most recent step.
	lastRun prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		steps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Total number of scenario steps, labelled by step and outcome.",
			},
			[]string{"step", "outcome"},
		),
		responses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_total",
				Help:      "Total number of HTTP responses received, labelled by step and status code.",
			},
			[]string{"step", "code"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Time taken by each executed scenario step.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_step_timestamp_seconds",
				Help:      "Unix time at which the last step completed.",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// observe is a no-op on a nil receiver so runners need not check.
func (m *Metrics) observe(result StepResult) {
	if m == nil {
		return
	}

	m.steps.WithLabelValues(result.Name, string(result.Outcome)).Inc()

	if result.StatusCode != 0 {
		m.responses.WithLabelValues(result.Name, strconv.Itoa(result.StatusCode)).Inc()
	}

	if result.Outcome != OutcomeSkipped {
		m.duration.WithLabelValues(result.Name).Observe(time.Duration(result.Duration).Seconds())
	}

	m.lastRun.SetToCurrentTime()
}

// WriteToTextfile writes all metrics atomically to path.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
