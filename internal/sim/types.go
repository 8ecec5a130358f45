package sim

import (
	"errors"
	"fmt"
	"time"
)

type State int32

const (
	Uninitialized State = iota
	Initialized
	Running
	Shutdown
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Shutdown:
		return "shutdown"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrNotInitialized = errors.New("sim: loop not initialized")
	ErrAlreadyRunning = errors.New("sim: loop already initialized or running")
	ErrShutdown       = errors.New("sim: loop shut down")
	ErrBusy           = errors.New("sim: tick already in flight")
)

// StepFunc runs one tick's work after queued mutations are applied.
type StepFunc func(step uint64) error

// TickObserver sees the wall-clock cost of every paced tick.
type TickObserver interface {
	ObserveTick(period, elapsed time.Duration)
}
