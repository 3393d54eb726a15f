// Package process is a cooperative scheduler. A process does one bounded
// unit of work per Step and reschedules itself if it wants to run again.
package process

import (
	"context"
	"runtime"
	"time"

	"netcore/lib/ds/queue"

	"github.com/benbjohnson/clock"
)

type Process interface {
	Step(s *Scheduler)
}

type Func func(s *Scheduler)

func (f Func) Step(s *Scheduler) { f(s) }

type Options struct {
	// Interval is the pause between turns.
	// Zero only yields the processor between turns.
	Interval time.Duration
}

type Scheduler struct {
	clock clock.Clock
	opts  Options

	runq queue.Queue[Process]
}

func New(clock clock.Clock, opts Options) *Scheduler {
	return &Scheduler{
		clock: clock,
		opts:  opts,
		runq:  queue.NewLocked[Process](queue.NewFIFO[Process](8)),
	}
}

// Schedule queues p to step once in the next turn.
// It is safe to call from any goroutine, including from within a Step.
func (s *Scheduler) Schedule(p Process) {
	s.runq.Enqueue(p)
}

// Pending returns the number of steps queued for the next turn.
func (s *Scheduler) Pending() uint { return s.runq.Len() }

// RunOnce runs one turn: every process scheduled before the call steps once.
// Processes scheduled during the turn wait for the next one.
// It returns the number of steps run.
func (s *Scheduler) RunOnce() int {
	n := s.runq.Len()

	ran := 0
	for ; uint(ran) < n; ran++ {
		p, err := s.runq.Dequeue()
		if err != nil {
			break
		}
		p.Step(s)
	}
	return ran
}

// Run runs turns until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.RunOnce()

		if s.opts.Interval <= 0 {
			runtime.Gosched()
			continue
		}

		t := s.clock.Timer(s.opts.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
