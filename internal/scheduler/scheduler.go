// Package scheduler runs periodic background tasks. A panicking or failing
// run is logged and the task keeps its schedule.
package scheduler

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

type Func func(ctx context.Context) error

type task struct {
	name  string
	every time.Duration
	fn    Func

	runs   atomic.Int64
	panics atomic.Int64
	errs   atomic.Int64
}

type Stats struct {
	Name   string
	Runs   int64
	Panics int64
	Errors int64
}

type Scheduler struct {
	logger *log.Logger

	mu      sync.Mutex
	tasks   []*task
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{logger: logger, ctx: ctx, cancel: cancel, stopCh: make(chan struct{})}
}

// Every registers fn to run every interval. Tasks added after Start begin
// immediately.
func (s *Scheduler) Every(name string, every time.Duration, fn Func) {
	if every <= 0 || fn == nil {
		return
	}
	t := &task{name: name, every: every, fn: fn}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.tasks = append(s.tasks, t)
	if s.started {
		s.launchLocked(t)
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	for _, t := range s.tasks {
		s.launchLocked(t)
	}
}

func (s *Scheduler) launchLocked(t *task) {
	s.wg.Add(1)
	go s.loop(t)
}

func (s *Scheduler) loop(t *task) {
	defer s.wg.Done()
	ticker := time.NewTicker(t.every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.run(t)
		}
	}
}

func (s *Scheduler) run(t *task) {
	defer func() {
		if r := recover(); r != nil {
			t.panics.Add(1)
			s.logger.Printf("scheduler: task %s panicked: %v\n%s", t.name, r, debug.Stack())
		}
	}()
	t.runs.Add(1)
	if err := t.fn(s.ctx); err != nil {
		t.errs.Add(1)
		s.logger.Printf("scheduler: task %s: %v", t.name, err)
	}
}

// RunNow runs the named task once on the calling goroutine.
func (s *Scheduler) RunNow(name string) bool {
	s.mu.Lock()
	var found *task
	for _, t := range s.tasks {
		if t.name == name {
			found = t
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		return false
	}
	s.run(found)
	return true
}

// Stop stops scheduling new runs and waits up to grace for in-flight runs.
// When grace elapses the run context is cancelled and Stop returns false
// without waiting further.
func (s *Scheduler) Stop(grace time.Duration) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return true
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		s.cancel()
		return true
	case <-timer.C:
		s.cancel()
		s.logger.Printf("scheduler: tasks still running after %s; cancelled", grace)
		return false
	}
}

func (s *Scheduler) Stats() []Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Stats, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, Stats{Name: t.name, Runs: t.runs.Load(), Panics: t.panics.Load(), Errors: t.errs.Load()})
	}
	return out
}
