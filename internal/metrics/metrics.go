package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScanResolutions counts landing hits by outcome: created, forced, resumed, already_submitted, inactive
	ScanResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialz_scan_resolutions_total",
			Help: "Landing page hits by resolution outcome",
		},
		[]string{"outcome"},
	)

	// Submissions counts form posts by result: success, invalid, duplicate, expired, error
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialz_submissions_total",
			Help: "Form submissions by result",
		},
		[]string{"result"},
	)

	ProgressUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialz_progress_updates_total",
			Help: "Video progress callbacks by status",
		},
		[]string{"status"},
	)

	RewardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialz_reward_transitions_total",
			Help: "Reward status changes by target status",
		},
		[]string{"status"},
	)

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socialz_job_runs_total",
			Help: "Scheduled job runs by job and result",
		},
		[]string{"job", "result"},
	)

	OverBudgetCampaigns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "socialz_over_budget_campaigns",
		Help: "Active campaigns whose granted rewards exceed the budget, as of the last budget watch",
	})

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "socialz_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
			Buckets: []float64{
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
				5.0,   // 5s
			},
		},
		[]string{"method", "route", "status"},
	)
)

func RecordScanResolution(outcome string) {
	ScanResolutions.WithLabelValues(outcome).Inc()
}

func RecordSubmission(result string) {
	Submissions.WithLabelValues(result).Inc()
}

func RecordProgress(status string) {
	ProgressUpdates.WithLabelValues(status).Inc()
}

func RecordJobRun(job, result string) {
	JobRuns.WithLabelValues(job, result).Inc()
}

func RecordRewardTransition(status string, n int) {
	RewardTransitions.WithLabelValues(status).Add(float64(n))
}

// GinMiddleware observes request latency labelled by the matched route,
// so path parameters do not explode label cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
