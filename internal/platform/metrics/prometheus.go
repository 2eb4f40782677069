package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry              *prometheus.Registry
	OrdersCreated         prometheus.Counter
	PaymentsTotal         *prometheus.CounterVec
	BoostsPurchased       *prometheus.CounterVec
	SubscriptionsConsumed prometheus.Counter
	ReconciliationsNeeded *prometheus.CounterVec
	NotificationsTotal    *prometheus.CounterVec
	HTTPRequestLatency    *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Total number of paid orders persisted.",
		}),
		PaymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Gateway charges by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		BoostsPurchased: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boosts_purchased_total",
			Help:      "Boost entries appended to listings by boost name.",
		}, []string{"name"}),
		SubscriptionsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_consumed_total",
			Help:      "Entitlements consumed by listing creation.",
		}),
		ReconciliationsNeeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_reconciliations_total",
			Help:      "Charges that succeeded but whose record could not be saved.",
		}, []string{"purpose"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts by kind and result.",
		}, []string{"kind", "result"}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		m.OrdersCreated,
		m.PaymentsTotal,
		m.BoostsPurchased,
		m.SubscriptionsConsumed,
		m.ReconciliationsNeeded,
		m.NotificationsTotal,
		m.HTTPRequestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
}

func (m *Metrics) Payment(purpose, outcome string) {
	if m == nil {
		return
	}
	m.PaymentsTotal.WithLabelValues(purpose, outcome).Inc()
}

func (m *Metrics) BoostPurchased(name string) {
	if m == nil {
		return
	}
	m.BoostsPurchased.WithLabelValues(name).Inc()
}

func (m *Metrics) SubscriptionConsumed() {
	if m == nil {
		return
	}
	m.SubscriptionsConsumed.Inc()
}

func (m *Metrics) ReconciliationNeeded(purpose string) {
	if m == nil {
		return
	}
	m.ReconciliationsNeeded.WithLabelValues(purpose).Inc()
}

func (m *Metrics) Notification(kind, result string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestLatency.WithLabelValues(method, route, status).Observe(seconds)
}
