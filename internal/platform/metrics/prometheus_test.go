package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("pandopot_test")

	m.OrderCreated()
	m.Payment("order", "success")
	m.Payment("order", "declined")
	m.Payment("order", "declined")
	m.BoostPurchased("Slider")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PaymentsTotal.WithLabelValues("order", "declined")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BoostsPurchased.WithLabelValues("Slider")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderCreated()
		m.Payment("boost", "success")
		m.SubscriptionConsumed()
		m.ObserveHTTP("GET", "/", "200", 0.1)
	})
}
