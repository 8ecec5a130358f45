package dynamics

import "github.com/go-gl/mathgl/mgl64"

type Body struct {
	world *World

	pos    mgl64.Vec3
	rot    mgl64.Mat3
	vel    mgl64.Vec3
	angVel mgl64.Vec3
	force  mgl64.Vec3
	torque mgl64.Vec3

	mass       Mass
	invMass    float64
	invInertia mgl64.Mat3

	enabled   bool
	destroyed bool

	Data any
}

// NewBody creates an enabled body at the origin with a unit sphere-like mass.
func (w *World) NewBody() *Body {
	b := &Body{world: w, rot: mgl64.Ident3(), enabled: true}
	b.setMass(SphereMass(1, 0.5))
	w.bodies = append(w.bodies, b)
	return b
}

func (b *Body) setMass(m Mass) {
	b.mass = m
	b.invMass = 1 / m.Total
	b.invInertia = m.Inertia.Inv()
}

// SetMass rejects degenerate distributions and keeps the previous mass.
func (b *Body) SetMass(m Mass) error {
	if err := m.Check(); err != nil {
		b.world.report(err)
		return err
	}
	b.setMass(m)
	return nil
}

func (b *Body) Mass() Mass                 { return b.mass }
func (b *Body) Position() mgl64.Vec3       { return b.pos }
func (b *Body) SetPosition(p mgl64.Vec3)   { b.pos = p }
func (b *Body) Rotation() mgl64.Mat3       { return b.rot }
func (b *Body) SetRotation(r mgl64.Mat3)   { b.rot = orthonormalize(r) }
func (b *Body) LinearVel() mgl64.Vec3      { return b.vel }
func (b *Body) SetLinearVel(v mgl64.Vec3)  { b.vel = v }
func (b *Body) AngularVel() mgl64.Vec3     { return b.angVel }
func (b *Body) SetAngularVel(v mgl64.Vec3) { b.angVel = v }
func (b *Body) AddForce(f mgl64.Vec3)      { b.force = b.force.Add(f) }
func (b *Body) AddTorque(t mgl64.Vec3)     { b.torque = b.torque.Add(t) }
func (b *Body) Force() mgl64.Vec3          { return b.force }
func (b *Body) Enable()                    { b.enabled = true }
func (b *Body) Disable()                   { b.enabled = false }
func (b *Body) Enabled() bool              { return b.enabled }
func (b *Body) Destroyed() bool            { return b.destroyed }

func (b *Body) PointVel(p mgl64.Vec3) mgl64.Vec3 {
	return b.vel.Add(b.angVel.Cross(p.Sub(b.pos)))
}

func (b *Body) invInertiaWorld() mgl64.Mat3 {
	return b.rot.Mul3(b.invInertia).Mul3(b.rot.Transpose())
}

// Destroy removes the body from its world and destroys every joint attached
// to it. Safe to repeat.
func (b *Body) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	w := b.world
	for _, j := range append([]*Joint(nil), w.joints...) {
		if j.b1 == b || j.b2 == b {
			j.Destroy()
		}
	}
	for _, g := range w.groups {
		for _, j := range g.joints {
			if j.b1 == b {
				j.b1 = nil
			}
			if j.b2 == b {
				j.b2 = nil
			}
		}
	}
	for i, o := range w.bodies {
		if o == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}
}

// dynamic reports whether the solver may move the body.
func (b *Body) dynamic() bool {
	return b != nil && b.enabled && !b.destroyed
}
