package domain

// FeedHealth is the tri-state signal describing whether published data
// reflects the latest successful fetch.
type FeedHealth string

const (
	// HealthOK means the current cycle fetched and parsed fresh data.
	HealthOK FeedHealth = "ok"
	// HealthDegraded means the current cycle failed and stale last-known-good
	// data is being republished.
	HealthDegraded FeedHealth = "degraded"
	// HealthFailed means the cycle failed with no previous data to fall
	// back on.
	HealthFailed FeedHealth = "failed"
)

// healthRank orders health states for worst-case aggregation.
var healthRank = map[FeedHealth]int{
	HealthOK:       0,
	HealthDegraded: 1,
	HealthFailed:   2,
}

// WorstHealth returns the most severe health state across districts:
// failed dominates degraded dominates ok. An empty input reports failed,
// since there is no district with data.
func WorstHealth(states []FeedHealth) FeedHealth {
	if len(states) == 0 {
		return HealthFailed
	}
	worst := states[0]
	for _, s := range states[1:] {
		if healthRank[s] > healthRank[worst] {
			worst = s
		}
	}
	return worst
}
