package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"voltage-backend/internal/models"
)

const namespace = "voltage"

var (
	once sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	quizSubmissions     *prometheus.CounterVec
	enrollmentsCreated  *prometheus.CounterVec
	orderTransitions    *prometheus.CounterVec
	codeRedemptions     *prometheus.CounterVec
	jobRunsTotal        *prometheus.CounterVec
	jobDurationSeconds  *prometheus.HistogramVec
	jobLastSuccess      *prometheus.GaugeVec
)

func register() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route and status",
		}, []string{"method", "route", "status"})

		httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"})

		quizSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quiz",
			Name:      "submissions_total",
			Help:      "Graded quiz attempts by outcome",
		}, []string{"passed"})

		enrollmentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrollment",
			Name:      "created_total",
			Help:      "Enrollments created by source",
		}, []string{"source"})

		orderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "order_transitions_total",
			Help:      "Payment orders entering each status",
		}, []string{"status"})

		jobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "job_runs_total",
			Help:      "Total background job executions",
		}, []string{"job", "status"})

		jobDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "job_duration_seconds",
			Help:      "Duration of background job executions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"})

		jobLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "job_last_success_timestamp",
			Help:      "Unix timestamp of the last successful background job execution",
		}, []string{"job"})

		codeRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activation",
			Name:      "redemptions_total",
			Help:      "Activation code redemption attempts by outcome",
		}, []string{"result"})
	})
}

func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	register()
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func ObserveQuizSubmission(passed bool) {
	register()
	quizSubmissions.WithLabelValues(strconv.FormatBool(passed)).Inc()
}

func ObserveEnrollment(source models.EnrollmentSource) {
	register()
	enrollmentsCreated.WithLabelValues(string(source)).Inc()
}

func ObserveOrderStatus(status models.PaymentStatus) {
	register()
	orderTransitions.WithLabelValues(string(status)).Inc()
}

func ObserveCodeRedemption(success bool) {
	register()
	result := "rejected"
	if success {
		result = "redeemed"
	}
	codeRedemptions.WithLabelValues(result).Inc()
}

// ObserveJobRun records one background job execution. Per-entity suffixes
// such as "lecture-duration-42" are folded into their family name.
func ObserveJobRun(job, status string, elapsed time.Duration) {
	register()
	family := JobFamily(job)
	jobRunsTotal.WithLabelValues(family, status).Inc()
	jobDurationSeconds.WithLabelValues(family).Observe(elapsed.Seconds())
	if status == "success" {
		jobLastSuccess.WithLabelValues(family).Set(float64(time.Now().Unix()))
	}
}

func JobFamily(job string) string {
	idx := strings.LastIndexByte(job, '-')
	if idx <= 0 || idx == len(job)-1 {
		return job
	}
	if _, err := strconv.ParseUint(job[idx+1:], 10, 64); err != nil {
		return job
	}
	return job[:idx]
}
