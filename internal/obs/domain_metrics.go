package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// AIRequestsTotal counts LLM calls by operation and outcome.
	AIRequestsTotal *prometheus.CounterVec
	// AIRequestLatency records LLM call latency in milliseconds.
	AIRequestLatency *prometheus.HistogramVec
	// UploadsTotal counts stored images by source (upload, generated) and outcome.
	UploadsTotal *prometheus.CounterVec
	// TranslationsTotal counts product translations by target language and outcome.
	TranslationsTotal *prometheus.CounterVec
	// CartMutationsTotal counts cart operations.
	CartMutationsTotal *prometheus.CounterVec
	// PriceEstimatesTotal counts generated price suggestions.
	PriceEstimatesTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
// Until it runs the Observe helpers are no-ops.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		AIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_requests_total",
			Help:      "Count of LLM requests by operation and result.",
		}, []string{"operation", "result"})
		AIRequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_request_duration_ms",
			Help:      "LLM request latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"operation"})
		UploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_uploads_total",
			Help:      "Count of stored product images by source and result.",
		}, []string{"source", "result"})
		TranslationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_translations_total",
			Help:      "Count of product translations by target language and result.",
		}, []string{"language", "result"})
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart operations by kind.",
		}, []string{"operation"})
		PriceEstimatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_estimates_total",
			Help:      "Number of suggested prices computed.",
		})

		mustRegisterCollector(reg, AIRequestsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AIRequestsTotal = v
			}
		})
		mustRegisterCollector(reg, AIRequestLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				AIRequestLatency = v
			}
		})
		mustRegisterCollector(reg, UploadsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				UploadsTotal = v
			}
		})
		mustRegisterCollector(reg, TranslationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TranslationsTotal = v
			}
		})
		mustRegisterCollector(reg, CartMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationsTotal = v
			}
		})
		mustRegisterCollector(reg, PriceEstimatesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PriceEstimatesTotal = v
			}
		})
	})
}

// ObserveAIRequest records one LLM call.
func ObserveAIRequest(operation string, ms float64, err error) {
	if AIRequestsTotal == nil {
		return
	}
	AIRequestsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
	AIRequestLatency.WithLabelValues(operation).Observe(ms)
}

// ObserveUpload records one stored image.
func ObserveUpload(source string, err error) {
	if UploadsTotal == nil {
		return
	}
	UploadsTotal.WithLabelValues(source, resultLabel(err)).Inc()
}

// ObserveTranslation records one translated product.
func ObserveTranslation(language string, err error) {
	if TranslationsTotal == nil {
		return
	}
	TranslationsTotal.WithLabelValues(language, resultLabel(err)).Inc()
}

// ObserveCartMutation records one cart operation.
func ObserveCartMutation(operation string) {
	if CartMutationsTotal == nil {
		return
	}
	CartMutationsTotal.WithLabelValues(operation).Inc()
}

// ObservePriceEstimate records one suggested price.
func ObservePriceEstimate() {
	if PriceEstimatesTotal == nil {
		return
	}
	PriceEstimatesTotal.Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
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
