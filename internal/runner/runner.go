package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/sap/internal/model"
)

// TracerName is the instrumentation scope used for cycle spans.
const TracerName = "github.com/roach88/sap/internal/runner"

// DefaultInterval is used when Config.Interval is not positive.
const DefaultInterval = 60 * time.Second

// FetchFunc produces the raw objects for one cycle. It fails by returning an
// error; a panic is recovered and treated the same way.
//
// The context is never cancelled by Stop: a running fetch always completes.
type FetchFunc func(ctx context.Context) ([]model.Object, error)

// Config configures a Runner.
type Config struct {
	// Interval between the end of one scheduled cycle and the start of the
	// next. Defaults to DefaultInterval.
	Interval time.Duration

	// RunImmediately makes Start run cycle 0 synchronously before entering
	// the wait loop. Otherwise the first cycle runs one interval after Start.
	RunImmediately bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Sink, if set, receives every cycle outcome.
	Sink CycleSink

	// Tracer defaults to otel.Tracer(TracerName).
	Tracer trace.Tracer

	// Now defaults to time.Now. Tests substitute a fixed clock.
	Now func() time.Time
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// Runner is the interval cache runner.
//
// Thread-safety model:
//   - Cached, Status, Ready: lock-free, safe from any goroutine
//   - RunNow, Start, Stop: safe from any goroutine
//   - snapshot and status are written only by the goroutine that holds the
//     in-flight guard
type Runner struct {
	fetch  FetchFunc
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
	clock  *Clock

	snapshot atomic.Pointer[Snapshot]
	status   atomic.Pointer[Status]

	ready     chan struct{}
	readyOnce sync.Once

	// mu guards state, inflight and the loop channels.
	mu       sync.Mutex
	state    state
	inflight chan struct{} // non-nil while a cycle runs; closed when it ends
	stopCh   chan struct{}
	loopDone chan struct{}

	// background tracks non-blocking RunNow cycles.
	background sync.WaitGroup
}

// New creates an idle Runner. The published snapshot starts empty.
func New(fetch FetchFunc, cfg Config) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}

	r := &Runner{
		fetch:  fetch,
		cfg:    cfg,
		logger: logger,
		tracer: tracer,
		clock:  NewClock(),
		ready:  make(chan struct{}),
	}
	r.snapshot.Store(emptySnapshot())
	r.status.Store(&Status{Cycle: -1})
	return r
}

// Start transitions Idle to Running.
//
// With RunImmediately, cycle 0 runs on the caller's goroutine before Start
// returns; its failure is recorded in Status and logged, not returned.
// Returns ErrAlreadyRunning on a running runner and ErrStopped after Stop.
func (r *Runner) Start() error {
	r.mu.Lock()
	switch r.state {
	case stateRunning:
		r.mu.Unlock()
		return ErrAlreadyRunning
	case stateStopped:
		r.mu.Unlock()
		return ErrStopped
	}
	r.state = stateRunning
	r.stopCh = make(chan struct{})
	r.loopDone = make(chan struct{})
	r.mu.Unlock()

	r.logger.Info("runner starting",
		"interval", r.cfg.Interval,
		"run_immediately", r.cfg.RunImmediately,
	)

	if r.cfg.RunImmediately {
		if err := r.RunNow(true); err != nil && !IsFetchError(err) {
			r.logger.Debug("initial cycle not run", "error", err)
		}
	}

	go r.loop()
	return nil
}

// Stop signals the loop to exit and waits up to timeout for it and any
// in-flight cycle to finish. A timeout of zero or less waits indefinitely.
//
// Stop on an idle runner moves it straight to Stopped. Stop on a stopped
// runner is a no-op. Returns a STOP_TIMEOUT error when the wait expires;
// the runner is Stopped either way.
func (r *Runner) Stop(timeout time.Duration) error {
	r.mu.Lock()
	if r.state == stateStopped {
		r.mu.Unlock()
		return nil
	}
	wasRunning := r.state == stateRunning
	r.state = stateStopped
	loopDone := r.loopDone
	if wasRunning {
		close(r.stopCh)
	}
	r.mu.Unlock()

	r.logger.Info("runner stopping", "timeout", timeout)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if loopDone != nil {
			<-loopDone
		}
		r.background.Wait()
		r.waitInflight()
	}()

	if timeout <= 0 {
		<-done
		r.logger.Info("runner stopped")
		return nil
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		r.logger.Info("runner stopped")
		return nil
	case <-t.C:
		r.logger.Warn("runner stop timed out", "timeout", timeout)
		return stopTimeoutError(timeout)
	}
}

// RunNow requests an out-of-band cycle.
//
// If a cycle is already in flight the trigger is dropped and ErrBusy is
// returned; a blocking caller first waits for that in-flight cycle to end.
// Otherwise a blocking call runs the cycle on the caller's goroutine and
// returns its FetchError (or nil), and a non-blocking call schedules it on a
// tracked goroutine and returns nil immediately.
//
// RunNow works before Start; it returns ErrStopped after Stop.
func (r *Runner) RunNow(blocking bool) error {
	r.mu.Lock()
	if r.state == stateStopped {
		r.mu.Unlock()
		return ErrStopped
	}
	if busy := r.inflight; busy != nil {
		r.mu.Unlock()
		r.logger.Debug("run-now dropped, cycle in flight", "blocking", blocking)
		if blocking {
			<-busy
		}
		return ErrBusy
	}
	done := make(chan struct{})
	r.inflight = done
	if !blocking {
		r.background.Add(1)
	}
	r.mu.Unlock()

	if blocking {
		return r.execute(done)
	}
	go func() {
		defer r.background.Done()
		_ = r.execute(done)
	}()
	return nil
}

// Cached returns the published snapshot. It never blocks and never returns
// nil.
func (r *Runner) Cached() *Snapshot {
	return r.snapshot.Load()
}

// Status returns a copy of the runner's status record.
func (r *Runner) Status() Status {
	return *r.status.Load()
}

// Ready returns a channel closed after the first successful cycle.
func (r *Runner) Ready() <-chan struct{} {
	return r.ready
}

// loop is the background interval loop. It exits when stopCh closes; a cycle
// already running finishes first because the select is only re-entered
// between cycles.
func (r *Runner) loop() {
	defer close(r.loopDone)

	timer := time.NewTimer(r.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-timer.C:
		}

		if done, ok := r.claim(); ok {
			_ = r.execute(done)
		} else {
			r.logger.Debug("scheduled cycle skipped, cycle in flight")
		}
		timer.Reset(r.cfg.Interval)
	}
}

// claim takes the in-flight guard for a scheduled cycle.
func (r *Runner) claim() (chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateRunning || r.inflight != nil {
		return nil, false
	}
	done := make(chan struct{})
	r.inflight = done
	return done, true
}

// execute runs one cycle and releases the in-flight guard.
func (r *Runner) execute(done chan struct{}) error {
	defer func() {
		r.mu.Lock()
		r.inflight = nil
		r.mu.Unlock()
		close(done)
	}()
	return r.cycle(context.Background())
}

func (r *Runner) waitInflight() {
	r.mu.Lock()
	busy := r.inflight
	r.mu.Unlock()
	if busy != nil {
		<-busy
	}
}

// cycle runs the fetch → canonicalize → publish algorithm. The caller holds
// the in-flight guard, which makes it the only status writer.
func (r *Runner) cycle(ctx context.Context) error {
	n := r.clock.Next()
	started := r.cfg.Now().UTC()

	r.updateStatus(func(s *Status) {
		s.LastRunAt = &started
		s.RunCount++
		s.InProgress = true
	})

	ctx, span := r.tracer.Start(ctx, "runner.cycle",
		trace.WithAttributes(attribute.Int64("sap.cycle", n)),
	)
	defer span.End()

	r.logger.Debug("cycle starting", "cycle", n)

	objects, err := r.safeFetch(ctx)
	if err == nil {
		objects, err = model.Canonicalize(objects)
	}
	var digest string
	if err == nil {
		digest, err = model.Digest(objects)
	}

	completed := r.cfg.Now().UTC()
	rec := CycleRecord{Cycle: n, StartedAt: started, CompletedAt: completed}

	if err != nil {
		fe, ok := err.(*FetchError)
		if !ok {
			fe = &FetchError{Err: err}
		}
		fe.Cycle = n
		msg := fe.Error()
		rec.Error = msg

		r.updateStatus(func(s *Status) {
			s.LastCompletedAt = &completed
			s.LastError = &msg
			s.InProgress = false
			s.LastDurationMS = rec.Duration().Milliseconds()
		})

		span.RecordError(fe)
		span.SetStatus(codes.Error, "fetch failed")
		r.logger.Warn("cycle failed, keeping previous snapshot",
			"cycle", n,
			"error", fe.Err,
			"panicked", fe.Panicked,
		)
		r.record(ctx, rec)
		return fe
	}

	r.snapshot.Store(&Snapshot{
		Cycle:       n,
		Objects:     objects,
		PublishedAt: completed,
		Digest:      digest,
	})
	rec.ObjectCount = len(objects)

	r.updateStatus(func(s *Status) {
		s.LastCompletedAt = &completed
		s.LastError = nil
		s.InProgress = false
		s.Cycle = n
		s.ObjectCount = len(objects)
		s.LastDurationMS = rec.Duration().Milliseconds()
	})
	r.readyOnce.Do(func() { close(r.ready) })

	span.SetAttributes(attribute.Int("sap.object_count", len(objects)))
	r.logger.Info("cycle published",
		"cycle", n,
		"objects", len(objects),
		"duration", rec.Duration(),
	)
	r.record(ctx, rec)
	return nil
}

// safeFetch calls the FetchFunc, converting a panic into a FetchError.
func (r *Runner) safeFetch(ctx context.Context) (objects []model.Object, err error) {
	defer func() {
		if p := recover(); p != nil {
			objects = nil
			err = &FetchError{Panicked: true, Err: fmt.Errorf("%v", p)}
		}
	}()
	return r.fetch(ctx)
}

func (r *Runner) updateStatus(fn func(*Status)) {
	next := *r.status.Load()
	fn(&next)
	r.status.Store(&next)
}

func (r *Runner) record(ctx context.Context, rec CycleRecord) {
	if r.cfg.Sink == nil {
		return
	}
	if err := r.cfg.Sink.RecordCycle(ctx, rec); err != nil {
		r.logger.Warn("cycle sink failed", "cycle", rec.Cycle, "error", err)
	}
}
