package dynamics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// World integrates bodies and solves joints. The exported fields are solver
// parameters and may be changed between steps.
type World struct {
	Gravity    mgl64.Vec3
	Iterations int
	ERP        float64
	CFM        float64

	// ContactSlop is the penetration left uncorrected.
	ContactSlop float64
	// SlipVelocity is the tangential speed above which contacts use dynamic
	// friction.
	SlipVelocity float64
	// BounceVelocity is the approach speed below which contacts do not bounce.
	BounceVelocity float64

	bodies []*Body
	joints []*Joint
	groups []*JointGroup
	sink   ErrorSink
	time   float64
}

// NewWorld returns a gravity-free world. A nil sink discards errors.
func NewWorld(sink ErrorSink) *World {
	if sink == nil {
		sink = discard{}
	}
	return &World{
		Iterations:     20,
		ERP:            0.2,
		CFM:            1e-5,
		ContactSlop:    1e-3,
		SlipVelocity:   1e-2,
		BounceVelocity: 0.1,
		sink:           sink,
	}
}

func (w *World) NumBodies() int { return len(w.bodies) }
func (w *World) NumJoints() int { return len(w.joints) }
func (w *World) Time() float64  { return w.time }

type bodySnapshot struct {
	pos, vel, angVel mgl64.Vec3
	rot              mgl64.Mat3
}

// Step advances the world by dt. Force and torque accumulators are cleared
// afterwards. A body whose state diverges is reported and put back at rest
// where it was.
func (w *World) Step(dt float64) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		w.reportf(ErrBadStep, "dt=%v", dt)
		return
	}

	snap := make([]bodySnapshot, len(w.bodies))
	for i, b := range w.bodies {
		snap[i] = bodySnapshot{b.pos, b.vel, b.angVel, b.rot}
		if !b.dynamic() {
			continue
		}
		acc := w.Gravity.Add(b.force.Mul(b.invMass))
		b.vel = b.vel.Add(acc.Mul(dt))
		b.angVel = b.angVel.Add(b.invInertiaWorld().Mul3x1(b.torque).Mul(dt))
	}

	active := w.activeJoints()
	for _, j := range active {
		j.prepare(dt)
	}
	for it := 0; it < w.Iterations; it++ {
		for _, j := range active {
			j.solve()
		}
	}

	for _, b := range w.bodies {
		if b.dynamic() {
			b.pos = b.pos.Add(b.vel.Mul(dt))
			b.rot = integrateRotation(b.rot, b.angVel, dt)
		}
		b.force, b.torque = mgl64.Vec3{}, mgl64.Vec3{}
	}

	for i, b := range w.bodies {
		if validVec(b.pos) && validVec(b.vel) && validVec(b.angVel) {
			continue
		}
		w.reportf(ErrUnstable, "body %d at t=%.4f", i, w.time)
		b.pos, b.rot = snap[i].pos, snap[i].rot
		b.vel, b.angVel = mgl64.Vec3{}, mgl64.Vec3{}
	}
	w.time += dt
}

func (w *World) activeJoints() []*Joint {
	out := make([]*Joint, 0, len(w.joints))
	out = append(out, w.joints...)
	for _, g := range w.groups {
		out = append(out, g.joints...)
	}
	return out
}

func integrateRotation(r mgl64.Mat3, omega mgl64.Vec3, dt float64) mgl64.Mat3 {
	angle := omega.Len() * dt
	if angle < 1e-12 {
		return r
	}
	delta := mgl64.HomogRotate3D(angle, omega.Normalize()).Mat3()
	return orthonormalize(delta.Mul3(r))
}
