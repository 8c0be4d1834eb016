// Package metrics records the outcome of a price update run and pushes it to a Prometheus pushgateway
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job is the pushgateway job name of the price updater.
const Job = "fiat_price_oracle"

// Recorder holds the collectors of a single run in a private registry.
type Recorder struct {
	registry    *prometheus.Registry
	validPrices prometheus.Gauge
	lastRun     prometheus.Gauge
	lastSuccess prometheus.Gauge
	txCode      prometheus.Gauge
	failures    *prometheus.CounterVec
}

// NewRecorder creates a Recorder with every collector registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		validPrices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oracle",
			Name:      "valid_prices",
			Help:      "Number of currencies that passed validation in the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oracle",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oracle",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run whose transaction executed successfully.",
		}),
		txCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oracle",
			Name:      "tx_code",
			Help:      "Result code of the last broadcast transaction.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oracle",
			Name:      "run_failures",
			Help:      "Fatal run failures by stage.",
		}, []string{"stage"}),
	}

	r.registry.MustRegister(r.validPrices, r.lastRun, r.lastSuccess, r.txCode, r.failures)

	return r
}

// ValidPrices records how many currencies survived validation.
func (r *Recorder) ValidPrices(n int) {
	r.validPrices.Set(float64(n))
}

// TxResult records the broadcast result code.
func (r *Recorder) TxResult(code uint32) {
	r.txCode.Set(float64(code))

	if code == 0 {
		r.lastSuccess.SetToCurrentTime()
	}
}

// Failure records a fatal failure of stage.
func (r *Recorder) Failure(stage string) {
	r.failures.WithLabelValues(stage).Inc()
}

// Push stamps the run time and pushes every collector to the pushgateway at url.
func (r *Recorder) Push(ctx context.Context, url string) error {
	r.lastRun.SetToCurrentTime()

	return push.New(url, Job).Gatherer(r.registry).PushContext(ctx)
}
