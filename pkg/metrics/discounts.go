package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DiscountMetrics counts code validation outcomes and redemption
// lifecycle events so cap exhaustion and commit contention show up on
// dashboards before shoppers complain.
type DiscountMetrics struct {
	validations     *prometheus.CounterVec
	commits         prometheus.Counter
	commitConflicts prometheus.Counter
	releases        prometheus.Counter
}

// NewDiscountMetrics registers the discount metrics on the provided registerer.
func NewDiscountMetrics(reg prometheus.Registerer) *DiscountMetrics {
	if reg == nil {
		return &DiscountMetrics{}
	}
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_validations_total",
		Help: "Discount code validations by outcome.",
	}, []string{"outcome"})
	commits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discount_redemptions_committed_total",
		Help: "Discount redemptions committed at checkout.",
	})
	commitConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discount_commit_conflicts_total",
		Help: "Redemption commits rejected because a cap filled concurrently.",
	})
	releases := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "discount_redemptions_released_total",
		Help: "Redemptions released after payment failure.",
	})
	reg.MustRegister(validations, commits, commitConflicts, releases)
	return &DiscountMetrics{
		validations:     validations,
		commits:         commits,
		commitConflicts: commitConflicts,
		releases:        releases,
	}
}

// IncValidation counts a validation attempt with its outcome label,
// either "accepted" or a rejection reason.
func (d *DiscountMetrics) IncValidation(outcome string) {
	if d == nil || d.validations == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	d.validations.WithLabelValues(outcome).Inc()
}

// IncCommit counts a successful redemption commit.
func (d *DiscountMetrics) IncCommit() {
	if d == nil || d.commits == nil {
		return
	}
	d.commits.Inc()
}

// IncCommitConflict counts a commit rejected by the conditional cap check.
func (d *DiscountMetrics) IncCommitConflict() {
	if d == nil || d.commitConflicts == nil {
		return
	}
	d.commitConflicts.Inc()
}

// IncRelease counts a compensating release of a committed redemption.
func (d *DiscountMetrics) IncRelease() {
	if d == nil || d.releases == nil {
		return
	}
	d.releases.Inc()
}
