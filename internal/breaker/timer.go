package breaker

import "time"

// armTimer (re)arms the recovery timer that fires onTimerFired after
// openTimeout. If a timer is already outstanding (the breaker was
// HalfOpen and just tripped back to Open), it is cancelled first and
// replaced — the breaker always waits a full openTimeout from the most
// recent trip, not from the original one.
//
// The timer is fire-and-forget: arming it does not block the goroutine
// that tripped the breaker, and nothing awaits its callback. This
// deliberately does not reproduce the original implementation's pattern
// of awaiting the timeout task inline, which serializes every caller
// behind the full open_timeout duration.
func (cb *CircuitBreaker) armTimer() {
	cb.timerMu.Lock()
	defer cb.timerMu.Unlock()

	if cb.timer != nil {
		cb.timer.Stop()
	}
	cb.timer = time.AfterFunc(cb.openTimeout, cb.onTimerFired)
}
