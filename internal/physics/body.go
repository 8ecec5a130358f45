package physics

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hapsim/internal/dynamics"
	"github.com/san-kum/hapsim/internal/scene"
)

const bodyAttrs = 1<<scene.AttrPosition | 1<<scene.AttrVelocity | 1<<scene.AttrRotation |
	1<<scene.AttrRadius | 1<<scene.AttrSize | 1<<scene.AttrMass | 1<<scene.AttrForce |
	1<<scene.AttrFrictionStatic | 1<<scene.AttrFrictionDynamic

// Body is the dynamics binding of a sphere or prism. Engine fields are
// guarded by the owning Sim's mutex.
type Body struct {
	sim  *Sim
	obj  *scene.Object
	body *dynamics.Body
	geom *dynamics.Geom

	dirty atomic.Uint32

	muStatic    float64
	muDynamic   float64
	handDriven  bool
	destroyed   bool
	constraints []*Constraint
}

func (s *Sim) newSphere(o *scene.Object, _ JointSpec) (binding, error) {
	return s.newBody(o, dynamics.NewSphere(s.space, o.Radius())), nil
}

func (s *Sim) newPrism(o *scene.Object, _ JointSpec) (binding, error) {
	return s.newBody(o, dynamics.NewBox(s.space, o.Size())), nil
}

func (s *Sim) newBody(o *scene.Object, g *dynamics.Geom) *Body {
	pos, rot := o.Pose()
	db := s.world.NewBody()
	db.SetPosition(pos)
	db.SetRotation(rot)
	db.SetLinearVel(o.Velocity())
	g.SetBody(db)

	b := &Body{
		sim:       s,
		obj:       o,
		body:      db,
		geom:      g,
		muStatic:  o.FrictionStatic(),
		muDynamic: o.FrictionDynamic(),
	}
	db.Data, g.Data = b, b
	b.redistribute()
	s.bodies = append(s.bodies, b)
	return b
}

// AttributeChanged marks a and queues one flush per batch of writes.
func (b *Body) AttributeChanged(_ *scene.Object, a scene.Attr) {
	if a.Bit()&bodyAttrs == 0 {
		return
	}
	if b.dirty.Or(a.Bit()) == 0 {
		b.sim.loop.Post(b.flush)
	}
}

func (b *Body) flush() {
	mask := b.dirty.Swap(0)
	s := b.sim
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.destroyed {
		return
	}

	o := b.obj
	for _, a := range scene.Attrs(mask) {
		switch a {
		case scene.AttrPosition:
			// the geom carries the pose while the body is hand driven
			b.geom.SetPosition(o.Position())
		case scene.AttrRotation:
			b.geom.SetRotation(o.Rotation())
		case scene.AttrVelocity:
			if !b.handDriven {
				b.body.SetLinearVel(o.Velocity())
			}
		case scene.AttrRadius:
			if b.geom.Class() == dynamics.ClassSphere {
				b.geom.SetRadius(o.Radius())
				b.redistribute()
			}
		case scene.AttrSize:
			if b.geom.Class() == dynamics.ClassBox {
				b.geom.SetLengths(o.Size())
				b.redistribute()
			}
		case scene.AttrMass:
			b.redistribute()
		case scene.AttrForce:
			b.body.AddForce(o.Force())
		case scene.AttrFrictionStatic:
			b.muStatic = o.FrictionStatic()
		case scene.AttrFrictionDynamic:
			b.muDynamic = o.FrictionDynamic()
		}
	}
}

// redistribute sets the mass for the current shape. A rejected distribution
// leaves the previous mass in place.
func (b *Body) redistribute() {
	total := b.obj.Mass()
	if !(total > 0) {
		total = b.sim.cfg.DefaultMass
	}
	var m dynamics.Mass
	switch b.geom.Class() {
	case dynamics.ClassSphere:
		m = dynamics.SphereMass(total, b.geom.Radius())
	case dynamics.ClassBox:
		m = dynamics.BoxMass(total, b.geom.Lengths())
	}
	_ = b.body.SetMass(m)
}

func (b *Body) publish() {
	if b.handDriven || b.destroyed {
		return
	}
	o := b.obj
	_ = o.SetFromSimulation(scene.AttrPosition, scene.VecOf(b.body.Position()))
	_ = o.SetFromSimulation(scene.AttrRotation, scene.Rot(b.body.Rotation()))
	_ = o.SetFromSimulation(scene.AttrVelocity, scene.VecOf(b.body.LinearVel()))
}

// DisconnectBody hands the pose over to the caller: from the next step the
// body stops integrating and position writes move only the geometry.
func (b *Body) DisconnectBody() {
	s := b.sim
	s.loop.Post(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if b.destroyed || b.handDriven {
			return
		}
		b.handDriven = true
		b.geom.SetBody(nil)
		b.body.Disable()
	})
}

// ConnectBody returns the body to the engine with the given pose and
// velocity.
func (b *Body) ConnectBody(pos, vel mgl64.Vec3) {
	s := b.sim
	s.loop.Post(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if b.destroyed || !b.handDriven {
			return
		}
		b.handDriven = false
		b.body.SetPosition(pos)
		b.body.SetRotation(b.geom.Rotation())
		b.body.SetLinearVel(vel)
		b.body.SetAngularVel(mgl64.Vec3{})
		b.geom.SetBody(b.body)
		b.body.Enable()
	})
}

func (b *Body) HandDriven() bool {
	b.sim.mu.Lock()
	defer b.sim.mu.Unlock()
	return b.handDriven
}

// Position is the engine-side position, the geometry's while hand driven.
func (b *Body) Position() mgl64.Vec3 {
	b.sim.mu.Lock()
	defer b.sim.mu.Unlock()
	return b.geom.Position()
}

func (b *Body) Object() *scene.Object { return b.obj }

// Destroy releases the body, its geometry and every constraint on it.
func (b *Body) Destroy() bool {
	s := b.sim
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.destroyed {
		return false
	}
	for _, c := range append([]*Constraint(nil), b.constraints...) {
		c.release()
	}
	b.destroyed = true
	b.geom.Destroy()
	b.body.Destroy()
	for i, o := range s.bodies {
		if o == b {
			s.bodies = append(s.bodies[:i], s.bodies[i+1:]...)
			break
		}
	}
	return true
}

func (b *Body) dropConstraint(c *Constraint) {
	for i, o := range b.constraints {
		if o == c {
			b.constraints = append(b.constraints[:i], b.constraints[i+1:]...)
			return
		}
	}
}
