package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SwipesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "findr",
		Name:      "swipes_total",
		Help:      "Recorded swipes by action.",
	}, []string{"action"})

	MatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "findr",
		Name:      "matches_created_total",
		Help:      "Matches created.",
	})

	UnmatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "findr",
		Name:      "unmatches_total",
		Help:      "Matches transitioned to unmatched.",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "findr",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Middleware records request latency labelled by the matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
