// Package metrics exposes Prometheus counters for the mailbox API.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vdavid/flowcrm/backend/internal/email"
	"github.com/vdavid/flowcrm/backend/internal/models"
)

const namespace = "flowcrm"

// Metrics owns a private registry so several servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	relayed  *prometheus.CounterVec
}

// New creates the collectors. connections reports the live WebSocket count.
func New(connections func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_messages_total",
			Help:      "Outgoing messages handed to the SMTP relay, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.requests,
		m.relayed,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Open WebSocket connections.",
		}, func() float64 { return float64(connections()) }),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument counts the requests served by next under the route label.
func (m *Metrics) Instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	counter := m.requests.MustCurryWith(prometheus.Labels{"route": route})
	return promhttp.InstrumentHandlerCounter(counter, next).ServeHTTP
}

// Mailer counts the outcome of every relay attempt made through next.
func (m *Metrics) Mailer(next email.Mailer) email.Mailer {
	return &countingMailer{next: next, relayed: m.relayed}
}

type countingMailer struct {
	next    email.Mailer
	relayed *prometheus.CounterVec
}

func (c *countingMailer) Send(ctx context.Context, from string, msg *models.Message) error {
	if err := c.next.Send(ctx, from, msg); err != nil {
		c.relayed.WithLabelValues("failure").Inc()
		return err
	}
	c.relayed.WithLabelValues("success").Inc()
	return nil
}
