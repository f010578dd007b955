// Package engine adapts the evtm discrete-event manager to the small
// scheduling surface used by the beacon, sampler and mobility tasks.
package engine

import (
	"context"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// Task is a unit of work fired at a simulated instant. Tasks that repeat
// hold their own state and resubmit themselves.
type Task interface {
	Fire(s Scheduler)
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func(s Scheduler)

// Fire calls f(s).
func (f TaskFunc) Fire(s Scheduler) { f(s) }

// Scheduler is the simulated clock seen by event handlers.
type Scheduler interface {
	// Now returns the current simulated time in seconds.
	Now() float64
	// ScheduleAfter fires t after delay simulated seconds.
	ScheduleAfter(delay float64, t Task)
	// Fail aborts the run; Run returns err once pending events drain.
	Fail(err error)
}

// EventEngine drives Tasks on an evtm.EventManager. It is not safe for
// concurrent use; every Task runs on the goroutine that called Run.
type EventEngine struct {
	mgr     *evtm.EventManager
	stopped bool
	err     error
	fired   uint64
}

// New returns an engine at simulated time zero.
func New() *EventEngine {
	return &EventEngine{mgr: evtm.New()}
}

// Now implements Scheduler.
func (e *EventEngine) Now() float64 {
	return e.mgr.CurrentSeconds()
}

// ScheduleAfter implements Scheduler. Scheduling after Stop is a no-op.
func (e *EventEngine) ScheduleAfter(delay float64, t Task) {
	if e.stopped {
		return
	}
	if delay < 0 {
		delay = 0
	}
	e.mgr.Schedule(e, t, fireTask, vrtime.SecondsToTime(delay))
}

// Fail implements Scheduler. Only the first error is kept.
func (e *EventEngine) Fail(err error) {
	if err != nil && e.err == nil {
		e.err = err
	}
	e.Stop()
}

// Stop discards all pending and future events.
func (e *EventEngine) Stop() {
	e.stopped = true
}

// Fired reports how many tasks have run.
func (e *EventEngine) Fired() uint64 {
	return e.fired
}

func fireTask(_ *evtm.EventManager, context any, data any) any {
	e := context.(*EventEngine)
	if e.stopped {
		return nil
	}
	e.fired++
	data.(Task).Fire(e)
	return nil
}

// Run processes events until simulated time reaches until, the engine is
// stopped, or ctx is cancelled. ctx is polled once per watch interval of
// simulated time.
func (e *EventEngine) Run(ctx context.Context, until float64) error {
	e.ScheduleAfter(0, &watchdog{ctx: ctx, every: watchInterval})
	e.mgr.Run(until)
	if e.err != nil {
		return e.err
	}
	return ctx.Err()
}

const watchInterval = 0.5

type watchdog struct {
	ctx   context.Context
	every float64
}

func (w *watchdog) Fire(s Scheduler) {
	if err := w.ctx.Err(); err != nil {
		s.Fail(err)
		return
	}
	s.ScheduleAfter(w.every, w)
}
