package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/rezdm/Argus/internal/domain"
	"github.com/rezdm/Argus/internal/monitor"
	"github.com/rezdm/Argus/internal/probe"
)

// ErrForcedShutdown is returned by Stop when in-flight probes had to be
// cancelled because the grace period ran out.
var ErrForcedShutdown = errors.New("scheduler: grace period elapsed, probes cancelled")

type Options struct {
	Workers       int
	QueueSize     int // 0 means one slot per monitor
	ShutdownGrace time.Duration
}

// Scheduler fires one fixed-rate timer per monitor and runs the probes on a
// bounded worker pool.
type Scheduler struct {
	log      *zap.Logger
	monitors *monitor.Registry
	probes   *probe.Registry
	opts     Options

	entries []*entry
	jobs    chan *entry
	drain   chan struct{}

	stopTimers   context.CancelFunc
	probeCtx     context.Context
	cancelProbes context.CancelFunc

	timers  conc.WaitGroup
	workers conc.WaitGroup

	stopping atomic.Bool
	dropped  atomic.Int64

	startOnce sync.Once
	started   atomic.Bool
	stopOnce  sync.Once
	stopErr   error
}

// entry guards one monitor so that at most one probe for it is queued or
// running. A trigger that lands while busy only marks it due.
type entry struct {
	state *monitor.State

	mu   sync.Mutex
	busy bool
	due  bool
}

func New(logger *zap.Logger, monitors *monitor.Registry, probes *probe.Registry, opts Options) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = monitors.Len()
		if opts.QueueSize < 1 {
			opts.QueueSize = 1
		}
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 5 * time.Second
	}

	s := &Scheduler{
		log:      logger,
		monitors: monitors,
		probes:   probes,
		opts:     opts,
		jobs:     make(chan *entry, opts.QueueSize),
		drain:    make(chan struct{}),
	}
	for _, st := range monitors.States() {
		s.entries = append(s.entries, &entry{state: st})
	}
	return s
}

// Start launches the workers and the per-monitor timers. Each timer fires
// immediately, then every Interval. Cancelling ctx stops the timers; probes
// keep running until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.probeCtx, s.cancelProbes = context.WithCancel(context.WithoutCancel(ctx))
		tctx, cancel := context.WithCancel(ctx)
		s.stopTimers = cancel

		for i := 0; i < s.opts.Workers; i++ {
			s.workers.Go(s.work)
		}
		for _, e := range s.entries {
			e := e
			s.timers.Go(func() { s.tick(tctx, e) })
		}
		s.started.Store(true)
		s.log.Info("scheduler_started",
			zap.Int("monitors", len(s.entries)),
			zap.Int("workers", s.opts.Workers),
			zap.Int("queue_size", s.opts.QueueSize),
		)
	})
}

// Stop halts the timers and waits up to ShutdownGrace for queued and
// in-flight probes. After that the probe context is cancelled and
// ErrForcedShutdown returned. Calling Stop again returns the first result.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { s.stopErr = s.stop(ctx) })
	return s.stopErr
}

func (s *Scheduler) stop(ctx context.Context) error {
	if !s.started.Load() {
		return nil
	}
	s.stopTimers()
	s.timers.Wait()

	s.stopping.Store(true)
	close(s.drain)

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	grace := time.NewTimer(s.opts.ShutdownGrace)
	defer grace.Stop()

	select {
	case <-done:
		s.cancelProbes()
		s.log.Info("scheduler_stopped")
		return nil
	case <-grace.C:
	case <-ctx.Done():
	}

	s.cancelProbes()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.log.Warn("scheduler_forced_stop", zap.Duration("grace", s.opts.ShutdownGrace))
	return ErrForcedShutdown
}

// Dropped is the number of triggers discarded because the queue was full.
func (s *Scheduler) Dropped() int64 { return s.dropped.Load() }

func (s *Scheduler) tick(ctx context.Context, e *entry) {
	t := time.NewTicker(e.state.Destination().Interval)
	defer t.Stop()

	s.trigger(e)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.trigger(e)
		}
	}
}

func (s *Scheduler) trigger(e *entry) {
	e.mu.Lock()
	if e.busy {
		e.due = true
		e.mu.Unlock()
		return
	}
	e.busy = true
	e.mu.Unlock()
	s.enqueue(e)
}

// enqueue never blocks; e must already be marked busy.
func (s *Scheduler) enqueue(e *entry) {
	select {
	case s.jobs <- e:
	default:
		e.mu.Lock()
		e.busy = false
		e.mu.Unlock()
		s.dropped.Add(1)
		s.log.Warn("scheduler_queue_full",
			zap.String("key", e.state.Destination().Key()),
			zap.Int("queue_size", s.opts.QueueSize),
		)
	}
}

func (s *Scheduler) work() {
	for {
		select {
		case e := <-s.jobs:
			s.run(e)
		case <-s.drain:
			for {
				select {
				case e := <-s.jobs:
					s.run(e)
				default:
					return
				}
			}
		}
	}
}

func (s *Scheduler) run(e *entry) {
	if s.probeCtx.Err() != nil {
		s.release(e)
		return
	}

	res := s.execute(e.state.Destination())
	if s.probeCtx.Err() != nil {
		// cancelled by a forced stop; the failure says nothing about the target
		s.release(e)
		return
	}

	tr := e.state.Apply(res)
	s.report(e.state, tr, res)
	s.finish(e)
}

// execute runs the probe for d. A panic inside the executor becomes a
// failed result.
func (s *Scheduler) execute(d domain.Destination) (res domain.TestResult) {
	start := time.Now()
	exec, err := s.probes.Get(d.Test.Kind)
	if err != nil {
		return failed(start, err.Error())
	}

	var pc panics.Catcher
	pc.Try(func() { res = exec.Execute(s.probeCtx, d.Test, d.Timeout) })
	if r := pc.Recovered(); r != nil {
		s.log.Error("probe_panic",
			zap.String("key", d.Key()),
			zap.String("method", string(d.Test.Kind)),
			zap.Any("panic", r.Value),
			zap.ByteString("stack", r.Stack),
		)
		return failed(start, fmt.Sprintf("panic: %v", r.Value))
	}
	return res
}

func failed(start time.Time, msg string) domain.TestResult {
	return domain.TestResult{
		Success:    false,
		DurationMS: time.Since(start).Milliseconds(),
		Timestamp:  time.Now(),
		Error:      msg,
	}
}

// finish releases e or, if a trigger arrived meanwhile, queues it again.
func (s *Scheduler) finish(e *entry) {
	e.mu.Lock()
	due := e.due
	e.due = false
	if !due || s.stopping.Load() {
		e.busy = false
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	s.enqueue(e)
}

func (s *Scheduler) release(e *entry) {
	e.mu.Lock()
	e.busy = false
	e.due = false
	e.mu.Unlock()
}

func (s *Scheduler) report(st *monitor.State, tr monitor.Transition, res domain.TestResult) {
	d := st.Destination()
	switch {
	case !res.Success && tr.Current != domain.StatusOK:
		snap := st.Snapshot()
		s.log.Warn("monitor_status",
			zap.String("key", d.Key()),
			zap.Stringer("status", tr.Current),
			zap.Stringer("previous", tr.Previous),
			zap.Int("consecutive_failures", snap.ConsecutiveFailures),
			zap.String("error", res.Error),
		)
	case tr.Changed() && tr.Current == domain.StatusOK:
		s.log.Info("monitor_recovered",
			zap.String("key", d.Key()),
			zap.Stringer("previous", tr.Previous),
		)
	default:
		s.log.Debug("monitor_checked",
			zap.String("key", d.Key()),
			zap.Bool("success", res.Success),
			zap.Int64("duration_ms", res.DurationMS),
			zap.String("error", res.Error),
		)
	}
}
