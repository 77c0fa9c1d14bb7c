package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrderSavesTotal counts order create/update outcomes by status.
	OrderSavesTotal *prometheus.CounterVec
	// OrderStatusChangesTotal counts order status transitions.
	OrderStatusChangesTotal *prometheus.CounterVec
	// ManualPriceOverridesTotal counts line items priced by a typed final price
	// instead of a discount tier.
	ManualPriceOverridesTotal prometheus.Counter
	// CatalogCacheTotal counts catalog cache lookups by object and result.
	CatalogCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrderSavesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_saves_total",
			Help:      "Count of order save outcomes by order status.",
		}, []string{"status", "result"})
		OrderStatusChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_changes_total",
			Help:      "Count of order status transitions.",
		}, []string{"from", "to"})
		ManualPriceOverridesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manual_price_overrides_total",
			Help:      "Number of line items priced via a manually typed final price.",
		})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Catalog cache lookups by object type and result.",
		}, []string{"object", "result"})

		mustRegisterCollector(reg, OrderSavesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderSavesTotal = v
			}
		})
		mustRegisterCollector(reg, OrderStatusChangesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderStatusChangesTotal = v
			}
		})
		mustRegisterCollector(reg, ManualPriceOverridesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ManualPriceOverridesTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogCacheTotal = v
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
