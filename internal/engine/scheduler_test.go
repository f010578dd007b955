package engine

import (
	"context"
	"errors"
	"testing"
)

type repeater struct {
	every float64
	times []float64
}

func (r *repeater) Fire(s Scheduler) {
	r.times = append(r.times, s.Now())
	s.ScheduleAfter(r.every, r)
}

func TestRunFiresInTimeOrder(t *testing.T) {
	e := New()
	var order []string
	e.ScheduleAfter(1.25, TaskFunc(func(Scheduler) { order = append(order, "late") }))
	e.ScheduleAfter(0.25, TaskFunc(func(Scheduler) { order = append(order, "early") }))
	e.ScheduleAfter(0.75, TaskFunc(func(Scheduler) { order = append(order, "middle") }))

	if err := e.Run(context.Background(), 2.0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"early", "middle", "late"}
	if len(order) != len(want) {
		t.Fatalf("fired %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("fired %v, want %v", order, want)
		}
	}
}

func TestRepeatingTaskStopsAtHorizon(t *testing.T) {
	e := New()
	r := &repeater{every: 1.0}
	e.ScheduleAfter(0, r)
	if err := e.Run(context.Background(), 3.5); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(r.times) != 4 {
		t.Fatalf("expected 4 firings, got %v", r.times)
	}
	for i, at := range r.times {
		if at != float64(i) {
			t.Fatalf("firing %d at %v, want %v", i, at, float64(i))
		}
	}
}

func TestFailStopsRun(t *testing.T) {
	e := New()
	boom := errors.New("boom")
	r := &repeater{every: 0.25}
	e.ScheduleAfter(0, r)
	e.ScheduleAfter(1.1, TaskFunc(func(s Scheduler) { s.Fail(boom) }))

	err := e.Run(context.Background(), 10)
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}
	if last := r.times[len(r.times)-1]; last > 1.1 {
		t.Fatalf("repeater fired at %v after failure", last)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New()
	r := &repeater{every: 1}
	e.ScheduleAfter(1, r)
	err := e.Run(ctx, 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if len(r.times) != 0 {
		t.Fatalf("expected no firings after cancel, got %v", r.times)
	}
}
