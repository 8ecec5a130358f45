package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/hapsim/internal/dynamo"
)

var registry = map[string]func() dynamo.Integrator{
	"euler":         func() dynamo.Integrator { return NewEuler() },
	"semi_implicit": func() dynamo.Integrator { return NewSemiImplicit() },
	"rk4":           func() dynamo.Integrator { return NewRK4() },
}

// Get returns a fresh integrator by name. Integrators keep scratch buffers,
// so callers should not share one between loops.
func Get(name string) (dynamo.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
