package breaker

// tripOpen transitions the breaker to Open from whichever state it is
// currently in (Closed or HalfOpen), arms the recovery timer, and resets
// both counters for the next observation window. A lost CAS race (another
// goroutine already tripped it) is a no-op.
func (cb *CircuitBreaker) tripOpen() {
	from := cb.State()
	if from == StateOpen {
		return
	}
	if !cb.state.CompareAndSwap(int32(from), int32(StateOpen)) {
		return
	}
	cb.failureCount.Store(0)
	cb.successCount.Store(0)
	cb.armTimer()
	cb.notify(from, StateOpen)
}

// close transitions HalfOpen to Closed once SuccessThreshold probes have
// succeeded. Resets failure_count per the gateway's recovery contract.
func (cb *CircuitBreaker) close() {
	if !cb.state.CompareAndSwap(int32(StateHalfOpen), int32(StateClosed)) {
		return
	}
	cb.failureCount.Store(0)
	cb.successCount.Store(0)
	cb.notify(StateHalfOpen, StateClosed)
}

// onTimerFired is the recovery-timer callback. It moves Open to HalfOpen
// and resets success_count, re-checking the current state defensively in
// case the breaker was already closed by the time the timer fired.
func (cb *CircuitBreaker) onTimerFired() {
	if !cb.state.CompareAndSwap(int32(StateOpen), int32(StateHalfOpen)) {
		return
	}
	cb.successCount.Store(0)
	cb.notify(StateOpen, StateHalfOpen)
}

func (cb *CircuitBreaker) notify(from, to State) {
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}
