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
	TenantsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "billing_tenants_open",
		Help: "Tenant databases provisioned in this process.",
	})

	InvoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_invoices_created_total",
		Help: "Invoices persisted.",
	})

	InvoicePipelineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_invoice_pipeline_failures_total",
		Help: "Invoice pipeline failures by step.",
	}, []string{"step"})

	PDFRenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "billing_pdf_render_seconds",
		Help:    "Time spent rendering invoice PDFs, including the wait for a render slot.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	})

	PDFRenderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_pdf_render_failures_total",
		Help: "Invoice PDF renders that failed.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billing_http_request_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
