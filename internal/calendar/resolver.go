package calendar

import (
	"fmt"
	"sync"
	"time"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FakeClock is deterministic and test-friendly.
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{t: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Resolver answers "what day is it" in the deployment's single reference zone.
// Overdue checks and habit day rollover both go through it.
type Resolver struct {
	loc   *time.Location
	clock Clock
}

// NewResolver loads the named IANA zone ("" means UTC).
func NewResolver(zone string, clock Clock) (*Resolver, error) {
	loc := time.UTC
	if zone != "" {
		l, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("load time zone %q: %w", zone, err)
		}
		loc = l
	}
	return NewResolverIn(loc, clock), nil
}

// NewResolverIn builds a resolver for an already loaded location.
func NewResolverIn(loc *time.Location, clock Clock) *Resolver {
	if clock == nil {
		clock = RealClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc, clock: clock}
}

// Location returns the reference zone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Now returns the current instant in the reference zone.
func (r *Resolver) Now() time.Time {
	return r.clock.Now().In(r.loc)
}

// Today returns the current calendar date in the reference zone.
func (r *Resolver) Today() Date {
	return FromTime(r.Now())
}

// HasDayChanged reports whether today differs from the last marker. A nil
// marker counts as a change. The returned marker is always today, so feeding
// it back in on the same day yields changed == false.
func HasDayChanged(marker *Date, today Date) (bool, Date) {
	if marker != nil && marker.Equal(today) {
		return false, today
	}
	return true, today
}
