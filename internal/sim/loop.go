package sim

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/hapsim/internal/dynamo"
)

// Loop is a fixed-rate tick driver. Work posted from any goroutine is
// applied at the start of the next tick, on the goroutine running the tick.
type Loop struct {
	name   string
	period time.Duration
	logger *log.Logger

	mu    sync.Mutex
	queue []func()
	step  StepFunc
	obs   TickObserver

	state   atomic.Int32
	busy    atomic.Bool
	counter atomic.Uint64
}

func NewLoop(name string, rateHz float64, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	var period time.Duration
	if rateHz > 0 {
		period = time.Duration(float64(time.Second) / rateHz)
	}
	return &Loop{name: name, period: period, logger: logger}
}

func (l *Loop) Name() string          { return l.name }
func (l *Loop) Period() time.Duration { return l.period }
func (l *Loop) State() State          { return State(l.state.Load()) }
func (l *Loop) Counter() uint64       { return l.counter.Load() }

// Dt is the logical tick length in seconds.
func (l *Loop) Dt() float64 { return l.period.Seconds() }

func (l *Loop) SetObserver(obs TickObserver) {
	l.mu.Lock()
	l.obs = obs
	l.mu.Unlock()
}

func (l *Loop) Initialize(step StepFunc) error {
	if !l.state.CompareAndSwap(int32(Uninitialized), int32(Initialized)) {
		return fmt.Errorf("%s: %w", l.name, ErrAlreadyRunning)
	}
	l.mu.Lock()
	l.step = step
	l.mu.Unlock()
	return nil
}

// Post queues fn for the next tick. Work posted after Shutdown is dropped.
func (l *Loop) Post(fn func()) {
	if l.State() == Shutdown {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
}

func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Tick applies queued work and runs one step. A tick started while another is
// in flight fails with ErrBusy instead of re-entering the step.
func (l *Loop) Tick() error {
	switch l.State() {
	case Uninitialized:
		return fmt.Errorf("%s: %w", l.name, ErrNotInitialized)
	case Shutdown:
		return fmt.Errorf("%s: %w", l.name, ErrShutdown)
	}
	if !l.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", l.name, ErrBusy)
	}
	defer l.busy.Store(false)

	l.mu.Lock()
	queue := l.queue
	l.queue = nil
	step := l.step
	l.mu.Unlock()

	for _, fn := range queue {
		fn()
	}

	n := l.counter.Load()
	var err error
	if step != nil {
		err = step(n)
	}
	l.counter.Add(1)
	if err != nil {
		return &dynamo.StepError{Loop: l.name, Step: n, Wrapped: err}
	}
	return nil
}

// Run ticks at the loop rate until ctx is canceled. Step errors are logged
// and the loop keeps going.
func (l *Loop) Run(ctx context.Context) error {
	if l.period <= 0 {
		return fmt.Errorf("%s: rate must be positive", l.name)
	}
	if !l.state.CompareAndSwap(int32(Initialized), int32(Running)) {
		if l.State() == Uninitialized {
			return fmt.Errorf("%s: %w", l.name, ErrNotInitialized)
		}
		return fmt.Errorf("%s: %w", l.name, ErrAlreadyRunning)
	}
	defer l.state.CompareAndSwap(int32(Running), int32(Initialized))

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if l.State() == Shutdown {
			return nil
		}

		start := time.Now()
		if err := l.Tick(); err != nil {
			l.logger.Printf("%v", err)
		}

		l.mu.Lock()
		obs := l.obs
		l.mu.Unlock()
		if obs != nil {
			obs.ObserveTick(l.period, time.Since(start))
		}
	}
}

// Shutdown stops accepting work and drops what is queued. Safe to repeat.
func (l *Loop) Shutdown() {
	l.state.Store(int32(Shutdown))
	l.mu.Lock()
	l.queue = nil
	l.mu.Unlock()
}
