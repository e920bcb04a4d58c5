package connection

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time for the throttle
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock
var SystemClock Clock = realClock{}

// ThrottleController hands out independent pacing gates, one per sync run.
// Runs share nothing, so runs of different profiles proceed in parallel.
type ThrottleController struct {
	clock Clock
}

// NewThrottleController creates a controller. A nil clock uses SystemClock.
func NewThrottleController(clock Clock) *ThrottleController {
	if clock == nil {
		clock = SystemClock
	}
	return &ThrottleController{clock: clock}
}

// NewRun starts a fresh pacing gate for one synchronization run of a profile
func (c *ThrottleController) NewRun(profileID uuid.UUID) *ThrottleRun {
	return &ThrottleRun{
		profileID: profileID,
		clock:     c.clock,
		lastIndex: -1,
	}
}

// ThrottleRun spaces the outbound requests of a single run. The interval is
// measured between dispatches, not between completions.
type ThrottleRun struct {
	mu         sync.Mutex
	profileID  uuid.UUID
	clock      Clock
	lastIndex  int
	last       time.Time
	dispatched int
	waited     time.Duration
}

// ProfileID returns the profile the run belongs to
func (r *ThrottleRun) ProfileID() uuid.UUID {
	return r.profileID
}

// Pace blocks until the request for itemIndex may be dispatched and records
// the dispatch time, which it returns. Indexes must strictly increase within
// a run. A zero delay never waits.
func (r *ThrottleRun) Pace(ctx context.Context, itemIndex int, delay time.Duration) (time.Time, error) {
	if itemIndex < 0 {
		return time.Time{}, ErrThrottleInvalidIndex
	}
	if delay < 0 {
		return time.Time{}, ErrThrottleNegativeDelay
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if itemIndex <= r.lastIndex {
		return time.Time{}, ErrThrottleOutOfOrder
	}

	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	if r.dispatched > 0 && delay > 0 {
		if wait := r.last.Add(delay).Sub(r.clock.Now()); wait > 0 {
			select {
			case <-ctx.Done():
				return time.Time{}, ctx.Err()
			case <-r.clock.After(wait):
			}
			r.waited += wait
		}
	}

	now := r.clock.Now()
	r.last = now
	r.lastIndex = itemIndex
	r.dispatched++
	return now, nil
}

// Dispatched returns how many requests passed the gate
func (r *ThrottleRun) Dispatched() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dispatched
}

// Waited returns the total time spent blocked in Pace
func (r *ThrottleRun) Waited() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waited
}
