package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transactions_total",
		Help: "Total number of gateway settlements",
	}, []string{
		"flow",        // redirect, direct
		"kind",        // sales, preauth, refund, ...
		"outcome",     // approved, declined, error
		"return_code", // bank return code or fault kind
	})

	paymentAmountMinor = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_amount_minor_total",
		Help: "Approved amount in minor currency units",
	}, []string{"kind", "currency"})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Round trip time of direct gateway calls",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"kind", "outcome"})

	gatewayCircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_circuit_state",
		Help: "Direct gateway circuit breaker state (0 closed, 1 open, 2 half-open)",
	})

	bookingTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_payment_transitions_total",
		Help: "Applied booking payment state transitions",
	}, []string{"from", "to"})

	bookingConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_payment_conflicts_total",
		Help: "Rejected booking transitions by current state",
	}, []string{"operation", "state"})

	callbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_callbacks_total",
		Help: "Inbound gateway callbacks",
	}, []string{"result"}) // applied, duplicate, rejected, invalid

	promotionValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promotion_validations_total",
		Help: "Promotion code validations",
	}, []string{"result", "scope"})

	eventPublishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_event_publish_failures_total",
		Help: "Lifecycle events that could not be published",
	}, []string{"type"})
)

// RecordPaymentTransaction records a settled or failed gateway attempt
func RecordPaymentTransaction(flow, kind, outcome, returnCode string, amountMinor int64, currency string) {
	paymentTransactionsTotal.WithLabelValues(flow, kind, outcome, returnCode).Inc()
	if outcome == "approved" && amountMinor > 0 {
		paymentAmountMinor.WithLabelValues(kind, currency).Add(float64(amountMinor))
	}
}

// ObserveGatewayRequest records direct call latency
func ObserveGatewayRequest(kind, outcome string, d time.Duration) {
	gatewayRequestDuration.WithLabelValues(kind, outcome).Observe(d.Seconds())
}

// SetGatewayCircuitState publishes the breaker position
func SetGatewayCircuitState(state int) {
	gatewayCircuitState.Set(float64(state))
}

// RecordBookingTransition counts an applied transition
func RecordBookingTransition(from, to string) {
	bookingTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordBookingConflict counts a rejected transition
func RecordBookingConflict(operation, state string) {
	bookingConflictsTotal.WithLabelValues(operation, state).Inc()
}

// RecordCallback counts a processed gateway callback
func RecordCallback(result string) {
	callbacksTotal.WithLabelValues(result).Inc()
}

// RecordPromotionValidation counts a promotion validation
func RecordPromotionValidation(valid bool, userScoped bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	scope := "general"
	if userScoped {
		scope = "user"
	}
	promotionValidationsTotal.WithLabelValues(result, scope).Inc()
}

// RecordEventPublishFailure counts an event that was dropped
func RecordEventPublishFailure(eventType string) {
	eventPublishFailuresTotal.WithLabelValues(eventType).Inc()
}
