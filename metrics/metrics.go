// Package metrics exposes Prometheus counters for HTTP traffic and game
// actions on a private registry.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const outcomeOK = "ok"

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// Manager owns the registry and every collector.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	actions      *prometheus.CounterVec
	published    *prometheus.CounterVec
}

// New creates a Manager with Go runtime and process collectors attached.
func New(opts ...Option) *Manager {
	m := &Manager{namespace: "scholarquest", registry: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(m)
	}
	m.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
	m.actions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "game",
		Name:      "actions_total",
		Help:      "Game operations by action and outcome (ok or error kind).",
	}, []string{"action", "outcome"})
	m.published = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "game",
		Name:      "notifications_total",
		Help:      "Pub/sub notifications received by channel.",
	}, []string{"channel"})
	return m
}

// Registry returns the registry backing the Manager.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts and times every request by its route template.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// Action records the outcome of one game operation. A nil Manager
// records nothing.
func (m *Manager) Action(action string, err error) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, Outcome(err)).Inc()
}

// Notification records a received pub/sub message.
func (m *Manager) Notification(channel string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(channel).Inc()
}

// Outcome labels err by its game error kind.
func Outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	var ge *gameerr.Error
	if !errors.As(err, &ge) {
		return gameerr.KindInternal.String()
	}
	return ge.Kind.String()
}
