package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CouponPreviewTotal counts coupon preview outcomes.
	CouponPreviewTotal *prometheus.CounterVec
	// CheckoutTotal counts order lifecycle outcomes.
	CheckoutTotal *prometheus.CounterVec
	// PixPayloadTotal counts generated BR Code payloads.
	PixPayloadTotal prometheus.Counter
	// StockMovementTotal counts appended stock movements by kind.
	StockMovementTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CouponPreviewTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_preview_total",
			Help:      "Count of coupon preview outcomes.",
		}, []string{"result"})
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of order lifecycle outcomes.",
		}, []string{"result"})
		PixPayloadTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pix_payload_total",
			Help:      "Number of BR Code payloads generated.",
		})
		StockMovementTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movement_total",
			Help:      "Count of appended stock movements by kind.",
		}, []string{"kind"})

		mustRegisterCollector(reg, CouponPreviewTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponPreviewTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutTotal = v
			}
		})
		mustRegisterCollector(reg, PixPayloadTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PixPayloadTotal = v
			}
		})
		mustRegisterCollector(reg, StockMovementTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				StockMovementTotal = v
			}
		})
	})
}

// ObserveCouponPreview records a preview outcome. No-op until the domain
// metrics are registered, so pure unit tests stay metrics-free.
func ObserveCouponPreview(result string) {
	if CouponPreviewTotal != nil {
		CouponPreviewTotal.WithLabelValues(result).Inc()
	}
}

// ObserveCheckout records an order lifecycle outcome.
func ObserveCheckout(result string) {
	if CheckoutTotal != nil {
		CheckoutTotal.WithLabelValues(result).Inc()
	}
}

// ObservePixPayload records one generated BR Code payload.
func ObservePixPayload() {
	if PixPayloadTotal != nil {
		PixPayloadTotal.Inc()
	}
}

// ObserveStockMovement records an appended movement by kind.
func ObserveStockMovement(kind string) {
	if StockMovementTotal != nil {
		StockMovementTotal.WithLabelValues(kind).Inc()
	}
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
