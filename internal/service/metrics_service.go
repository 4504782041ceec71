package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the
// submission pipeline and HTTP layer.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	reviews         *prometheus.CounterVec
	reportJobs      *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_submissions_total",
		Help: "Activity submissions by evaluator decision",
	}, []string{"decision"})

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_rejections_total",
		Help: "Rejected submissions by reason",
	}, []string{"reason"})

	reviews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_reviews_total",
		Help: "Review verdicts by resulting status",
	}, []string{"status"})

	reportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_jobs_total",
		Help: "Report jobs by format and outcome",
	}, []string{"format", "outcome"})

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestDuration,
		requestTotal,
		submissions,
		rejections,
		reviews,
		reportJobs,
	)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submissions:     submissions,
		rejections:      rejections,
		reviews:         reviews,
		reportJobs:      reportJobs,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveRequest records one handled HTTP request.
func (s *MetricsService) ObserveRequest(method, path, status string, seconds float64) {
	s.requestDuration.WithLabelValues(method, path, status).Observe(seconds)
	s.requestTotal.WithLabelValues(method, path, status).Inc()
}

// RecordSubmission counts an evaluator decision.
func (s *MetricsService) RecordSubmission(decision string) {
	s.submissions.WithLabelValues(decision).Inc()
}

// RecordRejection counts a rejection reason.
func (s *MetricsService) RecordRejection(reason string) {
	s.rejections.WithLabelValues(reason).Inc()
}

// RecordReview counts a review verdict.
func (s *MetricsService) RecordReview(status string) {
	s.reviews.WithLabelValues(status).Inc()
}

// RecordReportJob counts a report job outcome.
func (s *MetricsService) RecordReportJob(format, outcome string) {
	s.reportJobs.WithLabelValues(format, outcome).Inc()
}
