package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics records cart, checkout and loyalty outcomes.
type CommerceMetrics struct {
	checkouts    *prometheus.CounterVec
	pointsEarned prometheus.Counter
	redemptions  *prometheus.CounterVec
	cartMerges   prometheus.Counter
	txConflicts  *prometheus.CounterVec
}

// NewCommerceMetrics registers the commerce metrics on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	pointsEarned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_earned_total",
		Help: "Loyalty points credited by completed checkouts.",
	})
	redemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reward_redemptions_total",
		Help: "Point redemptions by kind and outcome.",
	}, []string{"kind", "outcome"})
	cartMerges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_merges_total",
		Help: "Guest carts merged into a signed-in user's cart.",
	})
	txConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transaction_conflicts_total",
		Help: "Operations that gave up after exhausting lock retries.",
	}, []string{"operation"})
	reg.MustRegister(checkouts, pointsEarned, redemptions, cartMerges, txConflicts)
	return &CommerceMetrics{
		checkouts:    checkouts,
		pointsEarned: pointsEarned,
		redemptions:  redemptions,
		cartMerges:   cartMerges,
		txConflicts:  txConflicts,
	}
}

// ObserveCheckout counts a checkout attempt and the points it produced.
func (c *CommerceMetrics) ObserveCheckout(outcome string, points int64) {
	if c == nil || c.checkouts == nil {
		return
	}
	c.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
	if points > 0 {
		c.pointsEarned.Add(float64(points))
	}
}

// ObserveRedemption counts a redemption attempt.
func (c *CommerceMetrics) ObserveRedemption(kind, outcome string) {
	if c == nil || c.redemptions == nil {
		return
	}
	c.redemptions.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncCartMerge counts a completed guest cart merge.
func (c *CommerceMetrics) IncCartMerge() {
	if c == nil || c.cartMerges == nil {
		return
	}
	c.cartMerges.Inc()
}

// IncConflict counts an operation surfaced as a concurrency conflict.
func (c *CommerceMetrics) IncConflict(operation string) {
	if c == nil || c.txConflicts == nil {
		return
	}
	c.txConflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
