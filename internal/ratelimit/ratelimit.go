// Package ratelimit provides per-role request rate limiting keyed by client.
//
// Each (role, client) pair gets its own token bucket sized by the role's
// policy, so an authenticated admin has a larger allowance than a guest
// sharing the same address.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Guest is the role applied to requests without a valid session.
const Guest = "guest"

// Policy allows Requests per Period with a burst of Requests.
type Policy struct {
	Requests int
	Period   time.Duration
}

func (p Policy) valid() bool {
	return p.Requests > 0 && p.Period > 0
}

// Config configures a Limiter.
type Config struct {
	// Policies maps a role to its allowance. Unknown roles use the Guest policy.
	Policies map[string]Policy

	// IdleTTL evicts buckets not used for this long. Defaults to ten minutes.
	IdleTTL time.Duration
}

// DefaultPolicies mirrors the per-minute limits for guests, users and admins.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		Guest:   {Requests: 5, Period: time.Minute},
		"user":  {Requests: 10, Period: time.Minute},
		"admin": {Requests: 20, Period: time.Minute},
	}
}

// Decision is the result of a rate limit check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks token buckets per role and client key.
type Limiter struct {
	policies map[string]Policy
	idleTTL  time.Duration
	now      func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func New(cfg Config) *Limiter {
	policies := make(map[string]Policy, len(cfg.Policies))
	for role, p := range cfg.Policies {
		if p.valid() {
			policies[role] = p
		}
	}
	if _, ok := policies[Guest]; !ok {
		policies[Guest] = DefaultPolicies()[Guest]
	}
	idle := cfg.IdleTTL
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &Limiter{
		policies: policies,
		idleTTL:  idle,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

// Allow consumes one token for the client under role.
func (l *Limiter) Allow(role, key string) Decision {
	if _, ok := l.policies[role]; !ok {
		role = Guest
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	id := role + "|" + key
	b, ok := l.buckets[id]
	if !ok {
		p := l.policies[role]
		b = &bucket{limiter: rate.NewLimiter(rate.Every(p.Period/time.Duration(p.Requests)), p.Requests)}
		l.buckets[id] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Allowed: false}
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}
	}
	return Decision{Allowed: true}
}

// Len reports the number of tracked buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, id)
		}
	}
}
