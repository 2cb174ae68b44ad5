package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingQuotesTotal counts price computations by outcome.
	PricingQuotesTotal *prometheus.CounterVec
	// PromoValidationsTotal counts promo code validations by reason.
	PromoValidationsTotal *prometheus.CounterVec
	// GiftCardApplicationsTotal counts gift card applications by reason.
	GiftCardApplicationsTotal *prometheus.CounterVec
	// ReconcileGroupsTotal counts reconstructed order groups by status.
	ReconcileGroupsTotal *prometheus.CounterVec
	// ReconcileEstimatedLinesTotal counts lines whose quantity was inferred from price.
	ReconcileEstimatedLinesTotal prometheus.Counter
	// ReconcileBatchRows records how many order rows each reconcile pass scanned.
	ReconcileBatchRows prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingQuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Count of order price computations by outcome.",
		}, []string{"result"})
		PromoValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_validations_total",
			Help:      "Count of promo code validations by result.",
		}, []string{"result"})
		GiftCardApplicationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "giftcard_applications_total",
			Help:      "Count of gift card applications by result.",
		}, []string{"result"})
		ReconcileGroupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_groups_total",
			Help:      "Count of reconstructed order groups by status.",
		}, []string{"status"})
		ReconcileEstimatedLinesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_estimated_lines_total",
			Help:      "Number of order lines whose quantity was estimated from price.",
		})
		ReconcileBatchRows = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_batch_rows",
			Help:      "Order rows scanned per reconcile pass.",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		})

		mustRegisterCollector(reg, PricingQuotesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingQuotesTotal = v
			}
		})
		mustRegisterCollector(reg, PromoValidationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromoValidationsTotal = v
			}
		})
		mustRegisterCollector(reg, GiftCardApplicationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				GiftCardApplicationsTotal = v
			}
		})
		mustRegisterCollector(reg, ReconcileGroupsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReconcileGroupsTotal = v
			}
		})
		mustRegisterCollector(reg, ReconcileEstimatedLinesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ReconcileEstimatedLinesTotal = v
			}
		})
		mustRegisterCollector(reg, ReconcileBatchRows, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				ReconcileBatchRows = v
			}
		})
	})
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
