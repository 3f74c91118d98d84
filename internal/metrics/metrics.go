package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var collectors = []prometheus.Collector{
	requestCount,
	requestDuration,
	VotesRecorded,
	VotesRejected,
	BallotsCast,
	TerminationClaims,
	SessionsClosed,
}

// Register registers all collectors with the default registry. Collectors
// that are already registered are skipped.
func Register() error {
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return fmt.Errorf("could not register %s with Prometheus: %w", c, err)
		}
	}

	return nil
}

// Unregister removes all collectors from the default registry.
//
// This is needed to cleanly exit.
func Unregister() bool {
	ok := true
	for _, c := range collectors {
		ok = prometheus.Unregister(c) && ok
	}

	return ok
}

var requestCount = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "requests_total",
		Help: "How many HTTP requests processed, partitioned by status code and HTTP method.",
	},
	[]string{"code", "method", "url"},
)

var requestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "request_duration_seconds",
		Help: "The HTTP request latencies in seconds.",
	},
	[]string{"code", "method", "url"},
)

var VotesRecorded = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "votes_recorded_total",
	Help: "Budget votes stored, including replacements of earlier votes.",
})

var VotesRejected = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "votes_rejected_total",
	Help: "Budget votes rejected by validation.",
})

var BallotsCast = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "ballots_cast_total",
	Help: "Ballots cast in proposal sessions.",
})

// TerminationClaims counts compare-and-clear attempts by outcome, which is
// either "won" or "lost".
var TerminationClaims = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "termination_claims_total",
		Help: "Attempts to claim the close of a session, partitioned by outcome.",
	},
	[]string{"outcome"},
)

var SessionsClosed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sessions_closed_total",
		Help: "Closed sessions, partitioned by session kind and trigger.",
	},
	[]string{"kind", "trigger"},
)

// Middleware updates the request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		elapsed := float64(time.Since(start)) / float64(time.Second)

		// Replace all URL parameters with their name to reduce cardinality
		// https://prometheus.io/docs/practices/naming/#labels
		url := c.Request.URL.Path
		for _, p := range c.Params {
			url = strings.Replace(url, p.Value, fmt.Sprintf(":%s", p.Key), 1)
		}

		requestDuration.WithLabelValues(status, c.Request.Method, url).Observe(elapsed)
		requestCount.WithLabelValues(status, c.Request.Method, url).Inc()
	}
}
