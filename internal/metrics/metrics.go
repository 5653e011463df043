package metrics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingest outcomes.
const (
	OutcomeRecorded = "recorded"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Storage stages.
const (
	StageCache = "cache"
	StageLog   = "log"
)

var (
	IngestEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypoint_ingest_events_total",
			Help: "Location messages handled, by outcome.",
		},
		[]string{"outcome"},
	)

	StorageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypoint_storage_failures_total",
			Help: "Storage errors during ingestion, by stage.",
		},
		[]string{"stage"},
	)

	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypoint_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)
)

func init() {
	prometheus.MustRegister(IngestEvents, StorageFailures, RequestCounter)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware counts every request by its matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestCounter.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
