package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and batch flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	emailsSentTotal         *prometheus.CounterVec
	emailsFailedTotal       *prometheus.CounterVec
	emailSendDuration       *prometheus.HistogramVec
	batchesProcessedTotal   *prometheus.CounterVec
	batchDuration           prometheus.Histogram
	campaignsFinalizedTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mailblast",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mailblast",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		emailsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mailblast",
				Name:      "emails_sent_total",
				Help:      "Total number of campaign emails delivered to the SMTP server.",
			},
			[]string{"smtp_host"},
		),
		emailsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mailblast",
				Name:      "emails_failed_total",
				Help:      "Total number of recipients that ended in failed state.",
			},
			[]string{"smtp_host", "reason"},
		),
		emailSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mailblast",
				Name:      "email_send_duration_seconds",
				Help:      "Per-recipient send duration in seconds, retries included.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"smtp_host"},
		),
		batchesProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mailblast",
				Name:      "batches_processed_total",
				Help:      "Total number of batch invocations by outcome.",
			},
			[]string{"outcome"},
		),
		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "mailblast",
				Name:      "batch_duration_seconds",
				Help:      "Wall-clock duration of one batch invocation.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
		campaignsFinalizedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mailblast",
				Name:      "campaigns_finalized_total",
				Help:      "Total number of campaigns finalized by terminal status.",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.emailsSentTotal,
		m.emailsFailedTotal,
		m.emailSendDuration,
		m.batchesProcessedTotal,
		m.batchDuration,
		m.campaignsFinalizedTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// MetricsRoute mounts the Prometheus endpoint on a fiber router.
func (m *Metrics) MetricsRoute(router fiber.Router) {
	router.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		if m != nil {
			m.recordHTTPRequest(c.Method(), c.Route().Path, responseStatus(c, err), time.Since(start))
		}

		return err
	}
}

func (m *Metrics) IncEmailSent(smtpHost string) {
	if m == nil {
		return
	}
	m.emailsSentTotal.WithLabelValues(normalizeHost(smtpHost)).Inc()
}

func (m *Metrics) IncEmailFailed(smtpHost string, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.emailsFailedTotal.WithLabelValues(normalizeHost(smtpHost), reason).Inc()
}

func (m *Metrics) ObserveEmailSendDuration(smtpHost string, duration time.Duration) {
	if m == nil {
		return
	}
	m.emailSendDuration.WithLabelValues(normalizeHost(smtpHost)).Observe(duration.Seconds())
}

func (m *Metrics) IncBatchProcessed(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.batchesProcessedTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBatchDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncCampaignFinalized(status string) {
	if m == nil {
		return
	}
	m.campaignsFinalizedTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func responseStatus(c *fiber.Ctx, err error) int {
	if err != nil {
		if e, ok := err.(*fiber.Error); ok {
			return e.Code
		}
		return fiber.StatusInternalServerError
	}
	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeHost(host string) string {
	normalized := strings.ToLower(strings.TrimSpace(host))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
