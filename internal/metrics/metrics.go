// Package metrics exposes Prometheus counters for deck, meal source,
// persistence and SMS activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services depend on. Nop satisfies it for tests and
// for callers that don't care.
type Recorder interface {
	RecordSwipe(action string)
	RecordMealFetch(op string, d time.Duration, err error)
	RecordLikeWriteFailure()
	RecordSMSSend(outcome string)
}

type Collector struct {
	swipes        *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	likeFailures  prometheus.Counter
	smsSends      *prometheus.CounterVec
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		swipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitematch_swipes_total",
			Help: "Swipes by action.",
		}, []string{"action"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitematch_meal_fetch_failures_total",
			Help: "Failed meal source calls by operation.",
		}, []string{"op"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bitematch_meal_fetch_seconds",
			Help:    "Meal source call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		likeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bitematch_like_write_failures_total",
			Help: "Likes that could not be persisted.",
		}),
		smsSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bitematch_sms_sends_total",
			Help: "SMS relay sends by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.swipes,
		c.fetchFailures,
		c.fetchLatency,
		c.likeFailures,
		c.smsSends,
	)
	return c
}

func (c *Collector) RecordSwipe(action string) {
	c.swipes.WithLabelValues(action).Inc()
}

func (c *Collector) RecordMealFetch(op string, d time.Duration, err error) {
	c.fetchLatency.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		c.fetchFailures.WithLabelValues(op).Inc()
	}
}

func (c *Collector) RecordLikeWriteFailure() {
	c.likeFailures.Inc()
}

func (c *Collector) RecordSMSSend(outcome string) {
	c.smsSends.WithLabelValues(outcome).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type Nop struct{}

func (Nop) RecordSwipe(string) {}
func (Nop) RecordMealFetch(string, time.Duration, error) {}
func (Nop) RecordLikeWriteFailure() {}
func (Nop) RecordSMSSend(string) {}
