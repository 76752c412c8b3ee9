package pipeline

import (
	"github.com/couchcryptid/cfa-fire-forecast/internal/domain"
)

// Reconciler decides what forecast data to publish each cycle and owns the
// per-district last-known-good state. Nothing else mutates that state, and
// it has no expiry: a retained set persists across failed cycles until a
// successful parse replaces it. This is a deliberate availability-over-
// freshness tradeoff — publish stale values rather than go blank on
// transient feed outages.
//
// Not safe for concurrent use; the pipeline calls it from a single
// goroutine per cycle.
type Reconciler struct {
	retained map[string]*domain.ForecastSet
}

// NewReconciler creates a Reconciler with no retained state.
func NewReconciler() *Reconciler {
	return &Reconciler{retained: make(map[string]*domain.ForecastSet)}
}

// Reconcile applies the health policy for one district's cycle outcome:
//
//   - fresh non-empty data: health ok, publish and retain the fresh set;
//   - failure with a previous set: health degraded, republish the previous
//     set unchanged;
//   - failure with nothing retained: health failed, publish nothing.
func (r *Reconciler) Reconcile(slug string, fresh *domain.ForecastSet, cycleErr error) (*domain.ForecastSet, domain.FeedHealth) {
	if cycleErr == nil && !fresh.Empty() {
		r.retained[slug] = fresh
		return fresh, domain.HealthOK
	}

	if prev, ok := r.retained[slug]; ok {
		return prev, domain.HealthDegraded
	}
	return nil, domain.HealthFailed
}

// Retained returns the last-known-good set for a district, if any.
func (r *Reconciler) Retained(slug string) (*domain.ForecastSet, bool) {
	set, ok := r.retained[slug]
	return set, ok
}
