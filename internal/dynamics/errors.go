package dynamics

import (
	"errors"
	"fmt"
)

var (
	ErrDegenerateMass = errors.New("dynamics: degenerate mass")
	ErrDegenerateGeom = errors.New("dynamics: degenerate geometry")
	ErrBadStep        = errors.New("dynamics: step size must be positive")
	ErrUnstable       = errors.New("dynamics: body state diverged")
)

// ErrorSink receives non-fatal engine errors. *log.Logger satisfies it.
type ErrorSink interface {
	Printf(format string, v ...any)
}

type discard struct{}

func (discard) Printf(string, ...any) {}

func (w *World) report(err error) {
	w.sink.Printf("dynamics error: %v", err)
}

func (w *World) reportf(base error, format string, args ...any) {
	w.report(fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...)))
}
