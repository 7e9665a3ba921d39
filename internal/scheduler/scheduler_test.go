package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPanicsDoNotUnschedule(t *testing.T) {
	s := New(quiet())
	var calls atomic.Int32
	s.Every("flaky", 5*time.Millisecond, func(context.Context) error {
		if calls.Add(1)%2 == 1 {
			panic("boom")
		}
		return errors.New("soft failure")
	})
	s.Start()
	waitFor(t, "several runs", func() bool { return calls.Load() >= 4 })
	if !s.Stop(time.Second) {
		t.Fatalf("stop should finish within grace")
	}
	st := s.Stats()[0]
	if st.Panics == 0 || st.Errors == 0 || st.Runs < 4 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestStopForcesAfterGrace(t *testing.T) {
	s := New(quiet())
	started := make(chan struct{})
	var once atomic.Bool
	var cancelled atomic.Bool
	s.Every("slow", 5*time.Millisecond, func(ctx context.Context) error {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})
	s.Start()
	<-started
	if s.Stop(20 * time.Millisecond) {
		t.Fatalf("stop should report a forced shutdown")
	}
	waitFor(t, "run context cancellation", cancelled.Load)
}

func TestRunNowAndStoppedScheduler(t *testing.T) {
	s := New(quiet())
	var n atomic.Int32
	s.Every("count", time.Hour, func(context.Context) error { n.Add(1); return nil })
	if !s.RunNow("count") || n.Load() != 1 {
		t.Fatalf("RunNow did not run the task")
	}
	if s.RunNow("missing") {
		t.Fatalf("RunNow found a task that does not exist")
	}
	s.Start()
	s.Stop(time.Second)
	s.Every("late", time.Millisecond, func(context.Context) error { n.Add(1); return nil })
	if len(s.Stats()) != 1 {
		t.Fatalf("tasks registered after stop must be ignored")
	}
}
