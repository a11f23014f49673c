package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts cart quote outcomes.
	QuoteTotal *prometheus.CounterVec
	// QuoteDuration records pricing engine latency in milliseconds.
	QuoteDuration prometheus.Histogram
	// QuoteLines tracks how many transaction lines each quote produced.
	QuoteLines prometheus.Histogram
	// OfferApplicationsTotal counts bundle offer lines emitted by the engine.
	OfferApplicationsTotal prometheus.Counter
	// BalanceTotal counts settlement balance outcomes.
	BalanceTotal *prometheus.CounterVec
	// RateLookupTotal counts exchange rate lookups by source.
	RateLookupTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_total",
			Help:      "Count of cart quote outcomes.",
		}, []string{"result"})
		QuoteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_duration_ms",
			Help:      "Latency of cart pricing in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		})
		QuoteLines = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_lines",
			Help:      "Number of transaction lines produced per quote.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		})
		OfferApplicationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offer_applications_total",
			Help:      "Total number of bundle offer lines emitted.",
		})
		BalanceTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_total",
			Help:      "Count of settlement balance outcomes.",
		}, []string{"result"})
		RateLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_lookup_total",
			Help:      "Count of exchange rate lookups by source.",
		}, []string{"source"})

		mustRegisterCollector(reg, QuoteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				QuoteDuration = v
			}
		})
		mustRegisterCollector(reg, QuoteLines, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				QuoteLines = v
			}
		})
		mustRegisterCollector(reg, OfferApplicationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				OfferApplicationsTotal = v
			}
		})
		mustRegisterCollector(reg, BalanceTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BalanceTotal = v
			}
		})
		mustRegisterCollector(reg, RateLookupTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RateLookupTotal = v
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
