// Package dynamics is a small rigid-body engine with the handle model of
// classic C dynamics libraries: a [World] integrates [Body] values, a [Space]
// holds collision [Geom] values, and [Joint] values constrain bodies.
//
// Contact joints live in a [JointGroup] that the owner empties once per step.
// Engine errors never abort a step; they are reported to the [ErrorSink]
// passed to [NewWorld].
//
//	w := dynamics.NewWorld(logger)
//	s := dynamics.NewSpace()
//	b := w.NewBody()
//	g := dynamics.NewSphere(s, 0.5)
//	g.SetBody(b)
//	w.Step(0.01)
//
// Nothing here is safe for concurrent use; callers serialize access.
package dynamics
