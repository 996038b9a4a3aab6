// Package ratelimit implements fixed-window request limiting: requests are
// counted in discrete, non-overlapping windows per (scope, client key), and
// the counter resets at each window boundary.
package ratelimit

import (
	"context"
	"time"

	"github.com/lumioapp/auth-service/internal/ports"
)

// Policy caps requests per client key within a window for one logical scope.
type Policy struct {
	Scope       string
	MaxRequests int
	Window      time.Duration
}

// Policies holds the per-endpoint defaults used by the route handlers.
type Policies struct {
	Login         Policy
	Signup        Policy
	API           Policy
	PasswordReset Policy
}

// DefaultPolicies returns the shipped policy table.
func DefaultPolicies() Policies {
	return Policies{
		Login:         Policy{Scope: "auth", MaxRequests: 5, Window: 15 * time.Minute},
		Signup:        Policy{Scope: "signup", MaxRequests: 3, Window: 60 * time.Minute},
		API:           Policy{Scope: "api", MaxRequests: 100, Window: 15 * time.Minute},
		PasswordReset: Policy{Scope: "password-reset", MaxRequests: 3, Window: 60 * time.Minute},
	}
}

// Result is the outcome of one limiter check. Remaining never goes negative
// and the count never exceeds the ceiling before the client sees a rejection.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter checks requests against a policy using a pluggable counter store.
// The store decides whether limiting is process-local or shared.
type Limiter struct {
	store ports.CounterStore
	nowFn func() time.Time
}

func NewLimiter(store ports.CounterStore) *Limiter {
	return &Limiter{
		store: store,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// Check records one request for (policy.Scope, clientKey) and reports whether
// it is within the ceiling.
func (l *Limiter) Check(ctx context.Context, policy Policy, clientKey string) (Result, error) {
	count, resetAt, err := l.store.Incr(ctx, policy.Scope+":"+clientKey, policy.Window)
	if err != nil {
		return Result{}, err
	}

	remaining := policy.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:   count <= int64(policy.MaxRequests),
		Limit:     policy.MaxRequests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		retry := resetAt.Sub(l.nowFn())
		if retry < time.Second {
			retry = time.Second
		}
		res.RetryAfter = retry
	}
	return res, nil
}
