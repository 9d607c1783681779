// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package scheduler drives the periodic recomputation of "seconds remaining
// in the current code window" for UI consumers. It has an explicit
// start/stop lifecycle owned by whoever consumes it, and every tick is
// recomputed from wall-clock time, so missed or delayed ticks cause no
// drift.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/tessera-auth/tessera/internal/model"
)

// Tick is broadcast to subscribers once per second. Remaining maps each
// distinct period length (seconds) to the seconds left until that window
// rolls over. A single global countdown would only be correct while all
// accounts share the default period, so the map carries one entry per
// period instead.
type Tick struct {
	Now       time.Time
	Remaining map[int]int
}

// PeriodSource yields the set of period lengths currently in use. The
// account store's snapshot is the usual source.
type PeriodSource func() []int

// Scheduler is a free-running one-second ticker with an explicit lifecycle.
type Scheduler struct {
	periods PeriodSource
	now     func() time.Time // test seam

	mu     sync.Mutex
	subs   map[chan Tick]struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped scheduler. periods may be nil, in which case only
// the default 30-second window is reported.
func New(periods PeriodSource) *Scheduler {
	return &Scheduler{
		periods: periods,
		now:     time.Now,
		subs:    make(map[chan Tick]struct{}),
	}
}

// Remaining computes the seconds left in the window of length period at
// time t. This is the single source of the countdown arithmetic.
func Remaining(period int, t time.Time) int {
	if period <= 0 {
		period = model.DefaultPeriod
	}
	return period - int(t.Unix()%int64(period))
}

// Snapshot computes the current Tick without waiting for the ticker.
func (s *Scheduler) Snapshot() Tick {
	return s.tickAt(s.now())
}

func (s *Scheduler) tickAt(t time.Time) Tick {
	remaining := make(map[int]int)
	var periods []int
	if s.periods != nil {
		periods = s.periods()
	}
	if len(periods) == 0 {
		periods = []int{model.DefaultPeriod}
	}
	for _, p := range periods {
		if p <= 0 {
			p = model.DefaultPeriod
		}
		remaining[p] = Remaining(p, t)
	}
	return Tick{Now: t, Remaining: remaining}
}

// Start begins ticking. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop halts the ticker and waits for the loop to exit. Subscriptions
// survive a stop; a later Start resumes delivery.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Deliver an immediate tick so consumers don't render a blank countdown
	// for the first second.
	s.broadcast(s.tickAt(s.now()))
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.broadcast(s.tickAt(t))
		}
	}
}

// Subscribe registers a tick consumer. The channel has a one-element buffer;
// a consumer that falls behind sees the latest tick, not a backlog.
func (s *Scheduler) Subscribe() chan Tick {
	ch := make(chan Tick, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes a consumer and closes its channel.
func (s *Scheduler) Unsubscribe(ch chan Tick) {
	s.mu.Lock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
	s.mu.Unlock()
}

func (s *Scheduler) broadcast(t Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		// Fire-and-forget: drop the stale tick if the consumer hasn't
		// drained it yet.
		select {
		case ch <- t:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- t:
			default:
			}
		}
	}
}
