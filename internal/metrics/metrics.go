// Package metrics exposes Prometheus instrumentation for the feed service.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "repofeed"

var (
	registerOnce sync.Once

	webhookEvents       *prometheus.CounterVec
	simulatorDeliveries *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
)

// MustRegister creates the collectors and registers them with reg. Only the
// first call has an effect.
func MustRegister(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		webhookEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "events_total",
				Help:      "Webhook deliveries by outcome and normalized action.",
			},
			[]string{"outcome", "action"},
		)
		simulatorDeliveries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulator",
				Name:      "deliveries_total",
				Help:      "Simulated deliveries by result.",
			},
			[]string{"result"},
		)
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route, method and status.",
			},
			[]string{"route", "method", "status"},
		)
		httpDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		)

		reg.MustRegister(webhookEvents, simulatorDeliveries, httpRequests, httpDuration)
	})
}

// ObserveWebhook counts one webhook delivery. action may be empty for
// deliveries that were ignored or rejected.
func ObserveWebhook(outcome, action string) {
	if webhookEvents == nil {
		return
	}
	if action == "" {
		action = "none"
	}
	webhookEvents.WithLabelValues(outcome, action).Inc()
}

// ObserveDelivery counts one simulated delivery.
func ObserveDelivery(success bool) {
	if simulatorDeliveries == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	simulatorDeliveries.WithLabelValues(result).Inc()
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if httpRequests == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
