package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Payment intent creation outcomes.
const (
	OutcomeCreated          = "created"
	OutcomeValidationFailed = "validation_failed"
	OutcomeUnauthorized     = "unauthorized"
	OutcomePlanNotFound     = "plan_not_found"
	OutcomeProcessorFailed  = "processor_failed"
	OutcomeInternalError    = "internal_error"
)

// PaymentIntentMetrics tracks payment intent creation.
type PaymentIntentMetrics struct {
	outcomes       *prometheus.CounterVec
	recordFailures prometheus.Counter
	processorTime  prometheus.Histogram
}

// NewPaymentIntentMetrics registers the payment intent metrics on the provided registerer.
func NewPaymentIntentMetrics(reg prometheus.Registerer) *PaymentIntentMetrics {
	if reg == nil {
		return &PaymentIntentMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intent_requests_total",
		Help: "Payment intent creation attempts by outcome.",
	}, []string{"outcome", "billing_period"})
	recordFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_intent_record_failures_total",
		Help: "Payment intents created upstream whose local record could not be written.",
	})
	processorTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_intent_processor_duration_seconds",
		Help:    "Latency of payment processor create calls.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(outcomes, recordFailures, processorTime)
	return &PaymentIntentMetrics{
		outcomes:       outcomes,
		recordFailures: recordFailures,
		processorTime:  processorTime,
	}
}

// IncOutcome counts one request with the given outcome.
func (m *PaymentIntentMetrics) IncOutcome(outcome, billingPeriod string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome), normalizeLabel(billingPeriod)).Inc()
}

// IncRecordFailure counts a suppressed local record write failure.
func (m *PaymentIntentMetrics) IncRecordFailure() {
	if m == nil || m.recordFailures == nil {
		return
	}
	m.recordFailures.Inc()
}

// ObserveProcessor records the duration of a processor call.
func (m *PaymentIntentMetrics) ObserveProcessor(elapsed time.Duration) {
	if m == nil || m.processorTime == nil {
		return
	}
	m.processorTime.Observe(elapsed.Seconds())
}
