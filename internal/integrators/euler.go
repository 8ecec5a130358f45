package integrators

import "github.com/san-kum/hapsim/internal/dynamo"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

// SemiImplicit is symplectic Euler for states laid out as [positions..., velocities...]:
// velocities advance first and positions use the new velocities.
type SemiImplicit struct{}

func NewSemiImplicit() *SemiImplicit {
	return &SemiImplicit{}
}

func (s *SemiImplicit) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	half := n / 2
	dx := dyn.Derive(x, u, t)

	result := make(dynamo.State, n)
	for i := 0; i < half; i++ {
		result[half+i] = x[half+i] + dt*dx[half+i]
		result[i] = x[i] + dt*result[half+i]
	}
	return result
}
