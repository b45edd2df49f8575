package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "devconnect_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "devconnect_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "devconnect_messages_sent_total",
		Help: "Direct messages stored.",
	})

	ProjectClaims = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "devconnect_project_claims_total",
		Help: "Project claim attempts by result.",
	}, []string{"result"})

	WebSocketConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "devconnect_websocket_connections",
		Help: "Open websocket connections on this instance.",
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, MessagesSent, ProjectClaims, WebSocketConnections)
}

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		route := c.Route().Path
		HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}
