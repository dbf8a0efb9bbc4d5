package health

import "sync/atomic"

var notReady atomic.Bool

// SetReady flips the readiness gate. Graceful shutdown clears it before
// draining connections so load balancers stop routing new traffic while
// in-flight requests finish.
func SetReady(v bool) {
	notReady.Store(!v)
}

// IsReady reports whether the process accepts new traffic.
func IsReady() bool {
	return !notReady.Load()
}
