package obs

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics groups the ordering-domain Prometheus collectors. A nil
// receiver is a no-op so tests can pass metrics-free handlers.
type DomainMetrics struct {
	quoteTotal           *prometheus.CounterVec
	checkoutTotal        *prometheus.CounterVec
	versionConflictTotal prometheus.Counter
	orderValue           *prometheus.HistogramVec
	loyaltyPointsTotal   prometheus.Counter
}

// NewDomainMetrics initialises and registers the domain collectors.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &DomainMetrics{
		quoteTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_total",
			Help:      "Count of cart quotes by channel and outcome.",
		}, []string{"channel", "result"}),
		checkoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout attempts by channel and outcome.",
		}, []string{"channel", "result"}),
		versionConflictTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_version_conflict_total",
			Help:      "Checkouts rejected because the menu changed mid-flight.",
		}),
		orderValue: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value_cents",
			Help:      "Grand total of accepted orders in euro cents.",
			Buckets:   []float64{500, 1000, 2000, 3000, 5000, 7500, 10000, 20000},
		}, []string{"channel"}),
		loyaltyPointsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loyalty_points_earned_total",
			Help:      "Loyalty points credited by accepted orders.",
		}),
	}

	mustRegisterCollector(reg, m.quoteTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.quoteTotal = v
		}
	})
	mustRegisterCollector(reg, m.checkoutTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.checkoutTotal = v
		}
	})
	mustRegisterCollector(reg, m.versionConflictTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Counter); ok {
			m.versionConflictTotal = v
		}
	})
	mustRegisterCollector(reg, m.orderValue, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.HistogramVec); ok {
			m.orderValue = v
		}
	})
	mustRegisterCollector(reg, m.loyaltyPointsTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Counter); ok {
			m.loyaltyPointsTotal = v
		}
	})
	return m
}

// ObserveQuote records a quote outcome.
func (m *DomainMetrics) ObserveQuote(channel string, warned bool) {
	if m == nil {
		return
	}
	result := "ok"
	if warned {
		result = "warned"
	}
	m.quoteTotal.WithLabelValues(channel, result).Inc()
}

// ObserveCheckout records a checkout outcome.
func (m *DomainMetrics) ObserveCheckout(channel, result string) {
	if m == nil {
		return
	}
	m.checkoutTotal.WithLabelValues(channel, result).Inc()
}

// ObserveVersionConflict records a checkout rejected on a stale menu version.
func (m *DomainMetrics) ObserveVersionConflict() {
	if m == nil {
		return
	}
	m.versionConflictTotal.Inc()
}

// ObserveOrderValue records the grand total of an accepted order.
func (m *DomainMetrics) ObserveOrderValue(channel string, cents int64) {
	if m == nil {
		return
	}
	m.orderValue.WithLabelValues(channel).Observe(float64(cents))
}

// AddLoyaltyPoints records points credited by an accepted order.
func (m *DomainMetrics) AddLoyaltyPoints(points int64) {
	if m == nil || points <= 0 {
		return
	}
	m.loyaltyPointsTotal.Add(float64(points))
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
