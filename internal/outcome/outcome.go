// Package outcome provides a result type for operations that degrade instead of failing.
package outcome

// Outcome holds a value that is either the real result (Ok) or a fallback (Degraded).
// A degraded outcome always carries a usable Value plus the reason the real one is missing.
type Outcome[T any] struct {
	Value    T
	Reason   string
	degraded bool
}

// Ok wraps a successful value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Degraded wraps a fallback value and the reason it was used.
func Degraded[T any](fallback T, reason string) Outcome[T] {
	return Outcome[T]{Value: fallback, Reason: reason, degraded: true}
}

// IsDegraded reports whether the value is a fallback.
func (o Outcome[T]) IsDegraded() bool {
	return o.degraded
}
