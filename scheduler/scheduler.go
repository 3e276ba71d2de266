// Package scheduler runs the periodic background jobs (event rotation and
// finalization) and keeps per-task run statistics for the admin surface.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultRunTimeout = 30 * time.Second

// ErrUnknownTask is returned by RunNow for a name that is not registered.
var ErrUnknownTask = errors.New("scheduler: unknown task")

// TaskFn is one run of a scheduled task. ctx is cancelled when the run
// times out or the scheduler stops.
type TaskFn func(ctx context.Context) error

// TaskStatus reports how a task has behaved so far.
type TaskStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Runs      int64         `json:"runs"`
	Failures  int64         `json:"failures"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

type task struct {
	fn     TaskFn
	stopCh chan struct{}
	status TaskStatus
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRunTimeout bounds every task run.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.runTimeout = d }
}

// Scheduler runs named tasks on fixed intervals.
type Scheduler struct {
	mu         sync.Mutex
	tasks      map[string]*task
	logger     *zap.Logger
	runTimeout time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New creates a Scheduler.
func New(logger *zap.Logger, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		tasks:      make(map[string]*task),
		logger:     logger,
		runTimeout: defaultRunTimeout,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddTicker registers fn to run every interval. A task with the same name
// is replaced and its statistics reset.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tasks[name]; ok {
		close(old.stopCh)
	}
	t := &task{
		fn:     fn,
		stopCh: make(chan struct{}),
		status: TaskStatus{Name: name, Interval: interval},
	}
	s.tasks[name] = t

	go s.loop(name, t, interval)
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

func (s *Scheduler) loop(name string, t *task, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.run(name, t)
		case <-t.stopCh:
			return
		case <-s.ctx.Done():
			return
		}
	}
}

// RunNow runs the named task once on the calling goroutine.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownTask, name)
	}
	return s.run(name, t)
}

func (s *Scheduler) run(name string, t *task) (err error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.logger.Error("scheduler task panicked", zap.String("task", name), zap.Any("recover", r))
		}
		s.record(t, started, err)
	}()

	if err = t.fn(ctx); err != nil {
		s.logger.Error("scheduler task failed", zap.String("task", name), zap.Error(err))
	}
	return err
}

func (s *Scheduler) record(t *task, started time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.status.Runs++
	t.status.LastRun = started
	t.status.LastError = ""
	if err != nil {
		t.status.Failures++
		t.status.LastError = err.Error()
	}
}

// Remove stops and removes a task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		close(t.stopCh)
		delete(s.tasks, name)
	}
}

// Stop stops every task and cancels runs in flight. It is safe to call
// more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(s.cancel)
}

// Tasks returns the status of every registered task, sorted by name.
func (s *Scheduler) Tasks() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
