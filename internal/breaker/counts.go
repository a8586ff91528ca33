package breaker

// Snapshot is a point-in-time view of a breaker's state and counters,
// suitable for logging or a health endpoint. It replaces the teacher's
// percentage-forecasting Diagnostics/Metrics API, which has no meaning
// once adaptive thresholds are removed.
type Snapshot struct {
	Name   string
	State  State
	Counts Counts
}

// Snapshot returns the breaker's current state and counters in one
// consistent-enough read for observability purposes. It is not a
// transactional read across State() and Counts(): a transition between
// the two calls is possible and acceptable for logging.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	return Snapshot{
		Name:   cb.name,
		State:  cb.State(),
		Counts: cb.Counts(),
	}
}
