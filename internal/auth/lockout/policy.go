// Package lockout implements the account lockout policy as a pure decision
// function over (failure count, lock expiry, now). It owns no storage; the
// orchestrator applies its decisions through the user store.
package lockout

import "time"

const (
	// DefaultThreshold is the number of consecutive failures that engages
	// the lock.
	DefaultThreshold = 5

	// DefaultDuration is how long an engaged lock denies all attempts.
	DefaultDuration = 15 * time.Minute
)

// Policy holds the lockout parameters. The zero value is not usable;
// construct with New.
type Policy struct {
	Threshold int
	Duration  time.Duration
}

// New builds a policy, substituting defaults for non-positive parameters.
func New(threshold int, duration time.Duration) Policy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return Policy{Threshold: threshold, Duration: duration}
}

// Decision is the outcome of evaluating an attempt against the policy.
type Decision struct {
	Allowed    bool
	Locked     bool
	RetryAfter time.Duration
	LockExpiry time.Time
}

// Evaluate decides whether an authentication attempt may proceed.
//
// While now < lockedUntil every attempt is denied, credential correctness
// notwithstanding, and the lock is not re-armed mid-window. Once the lock
// has expired the attempt is allowed through, but the failure counter is
// NOT cleared here: only the next successful verification resets it. A
// stray wrong guess right after expiry therefore re-locks the account.
func (p Policy) Evaluate(failedAttempts int, lockedUntil *time.Time, now time.Time) Decision {
	if lockedUntil != nil && now.Before(*lockedUntil) {
		return Decision{
			Locked:     true,
			RetryAfter: lockedUntil.Sub(now),
			LockExpiry: *lockedUntil,
		}
	}
	_ = failedAttempts // counter alone never denies; only an engaged lock does
	return Decision{Allowed: true}
}

// OnFailure returns the lock expiry to apply after a failed verification
// has brought the counter to failedAttempts, or nil if the threshold has
// not been reached. At or beyond the threshold a full lock window is
// requested; the store's conditional apply refuses to re-arm a lock that
// is still active, so an engaged window is never extended and exactly one
// concurrent engagement wins. Because the counter survives lock expiry,
// a wrong guess after the window re-locks the account immediately.
func (p Policy) OnFailure(failedAttempts int, now time.Time) *time.Time {
	if failedAttempts >= p.Threshold {
		expiry := now.Add(p.Duration)
		return &expiry
	}
	return nil
}
