package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(cfg Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(cfg)
	l.now = clock.now
	return l, clock
}

func TestAllowWithinBurst(t *testing.T) {
	l, _ := newTestLimiter(Config{Policies: DefaultPolicies()})

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(Guest, "1.2.3.4").Allowed, "request %d", i)
	}
	d := l.Allow(Guest, "1.2.3.4")
	assert.False(t, d.Allowed)
	assert.InDelta(t, (12 * time.Second).Seconds(), d.RetryAfter.Seconds(), 0.5)
}

func TestRolesHaveSeparateAllowances(t *testing.T) {
	l, _ := newTestLimiter(Config{Policies: DefaultPolicies()})

	for i := 0; i < 5; i++ {
		l.Allow(Guest, "1.2.3.4")
	}
	assert.False(t, l.Allow(Guest, "1.2.3.4").Allowed)

	allowed := 0
	for i := 0; i < 25; i++ {
		if l.Allow("admin", "1.2.3.4").Allowed {
			allowed++
		}
	}
	assert.Equal(t, 20, allowed)
}

func TestUnknownRoleFallsBackToGuest(t *testing.T) {
	l, _ := newTestLimiter(Config{Policies: map[string]Policy{Guest: {Requests: 1, Period: time.Minute}}})

	assert.True(t, l.Allow("superuser", "k").Allowed)
	assert.False(t, l.Allow(Guest, "k").Allowed)
}

func TestTokensRefill(t *testing.T) {
	l, clock := newTestLimiter(Config{Policies: map[string]Policy{Guest: {Requests: 2, Period: time.Minute}}})

	assert.True(t, l.Allow(Guest, "k").Allowed)
	assert.True(t, l.Allow(Guest, "k").Allowed)
	assert.False(t, l.Allow(Guest, "k").Allowed)

	clock.advance(30 * time.Second)
	assert.True(t, l.Allow(Guest, "k").Allowed)
	assert.False(t, l.Allow(Guest, "k").Allowed)
}

func TestDeniedRequestsDoNotConsume(t *testing.T) {
	l, clock := newTestLimiter(Config{Policies: map[string]Policy{Guest: {Requests: 1, Period: time.Minute}}})

	assert.True(t, l.Allow(Guest, "k").Allowed)
	for i := 0; i < 10; i++ {
		assert.False(t, l.Allow(Guest, "k").Allowed)
	}
	clock.advance(time.Minute)
	assert.True(t, l.Allow(Guest, "k").Allowed)
}

func TestIdleBucketsAreEvicted(t *testing.T) {
	l, clock := newTestLimiter(Config{Policies: DefaultPolicies(), IdleTTL: time.Minute})

	l.Allow(Guest, "a")
	l.Allow(Guest, "b")
	assert.Equal(t, 2, l.Len())

	clock.advance(2 * time.Minute)
	l.Allow(Guest, "c")
	assert.Equal(t, 1, l.Len())
}

func TestInvalidPoliciesIgnored(t *testing.T) {
	l := New(Config{Policies: map[string]Policy{"user": {Requests: 0, Period: time.Minute}}})

	_, ok := l.policies["user"]
	assert.False(t, ok)
	assert.Equal(t, DefaultPolicies()[Guest], l.policies[Guest])
}
