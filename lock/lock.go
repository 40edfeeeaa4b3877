// Package lock provides named advisory locks for serializing filter state
// writes. Callers treat acquisition failure as contention, never as an
// error: a flush that loses the race simply abandons its updates.
package lock

import "context"

// A Locker is a named mutual-exclusion primitive. Names are storage keys;
// the lock guards the read-modify-write of the value stored under them.
type Locker interface {
	// ProbeAvailable reports whether the lock looks free right now.
	ProbeAvailable(ctx context.Context, name string) bool
	// WaitUntilAvailable blocks until the lock looks free or ctx is done.
	// Availability is advisory, a subsequent Acquire may still lose a race.
	WaitUntilAvailable(ctx context.Context, name string) error
	// Acquire takes the lock, reporting success.
	Acquire(ctx context.Context, name string) bool
	// Release frees the lock. Releasing a lock not held is a no-op.
	Release(ctx context.Context, name string)
}
