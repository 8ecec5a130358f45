// Package physics binds scene objects to the rigid-body engine in
// [dynamics] and drives it from a fixed-rate [sim.Loop].
//
// Spheres and prisms become a [Body]: an engine body plus collision
// geometry. Hinge, ball and fixed objects become a [Constraint] between two
// bodies, or a body and the static world. Attribute writes made through
// [scene.Object.SetFromRequest] are queued to the physics loop and applied at
// the start of the next step; after each step the engine pose is published
// back with [scene.Object.SetFromSimulation].
//
// A step runs in a fixed order:
//
//  1. queued mutations
//  2. broad and narrow phase collision, one contact joint per point
//  3. world integration
//  4. body publication and hinge callbacks
//  5. release of every contact joint created in this step
package physics
