// Package dynamo provides the numeric primitives shared by the real-time loops.
//
// The package defines the small set of types used wherever a state vector is
// integrated in time:
//
//   - [State]: flat vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//
// The haptic cursor's virtual mass is expressed as a [System] so any
// [Integrator] from the integrators package can advance it.
//
// # Example
//
//	x := dynamo.Pack(pos, vel)
//	x = integrators.NewRK4().Step(sys, x, u, t, dt)
//	pos, vel = x.Vec3(0), x.Vec3(1)
package dynamo
