package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks checkout outcomes and the quote/coupon traffic feeding them.
// A nil *CheckoutMetrics is valid and records nothing.
type CheckoutMetrics struct {
	outcomes    *prometheus.CounterVec
	issues      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	quotes      *prometheus.CounterVec
	couponCalls *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout submissions grouped by outcome.",
	}, []string{"outcome"})
	issues := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_product_issues_total",
		Help: "Product issues detected while reconciling checkouts.",
	}, []string{"type"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Time spent handling a checkout submission.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipping_quotes_total",
		Help: "Shipping quotes served grouped by source.",
	}, []string{"source"})
	couponCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_validations_total",
		Help: "Coupon validations grouped by result.",
	}, []string{"result"})
	reg.MustRegister(outcomes, issues, duration, quotes, couponCalls)
	return &CheckoutMetrics{
		outcomes:    outcomes,
		issues:      issues,
		duration:    duration,
		quotes:      quotes,
		couponCalls: couponCalls,
	}
}

// ObserveOutcome counts one submission and its latency.
func (m *CheckoutMetrics) ObserveOutcome(outcome string, elapsed time.Duration) {
	if m == nil || m.outcomes == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.outcomes.WithLabelValues(label).Inc()
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// IncIssue counts a detected product issue.
func (m *CheckoutMetrics) IncIssue(issueType string) {
	if m == nil || m.issues == nil {
		return
	}
	m.issues.WithLabelValues(normalizeLabel(issueType)).Inc()
}

// IncQuote counts a served shipping quote.
func (m *CheckoutMetrics) IncQuote(source string) {
	if m == nil || m.quotes == nil {
		return
	}
	m.quotes.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncCouponValidation counts a coupon validation by its result ("valid" or the rejection reason).
func (m *CheckoutMetrics) IncCouponValidation(result string) {
	if m == nil || m.couponCalls == nil {
		return
	}
	m.couponCalls.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
