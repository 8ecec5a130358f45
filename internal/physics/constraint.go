package physics

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hapsim/internal/dynamics"
	"github.com/san-kum/hapsim/internal/scene"
)

// Constraint is the dynamics binding of a hinge, ball or fixed object.
type Constraint struct {
	sim   *Sim
	obj   *scene.Object
	joint *dynamics.Joint
	a, b  *Body

	dirty atomic.Uint32

	torque   float64
	angle    float64
	rate     float64
	released bool
}

func (s *Sim) jointFactory(t dynamics.JointType) factory {
	return func(o *scene.Object, js JointSpec) (binding, error) {
		a := bodyOf(js.A)
		if a == nil {
			return nil, ErrMissingEndpoint
		}
		var b *Body
		if js.B != nil {
			if b = bodyOf(js.B); b == nil {
				return nil, ErrMissingEndpoint
			}
		}
		if a == b {
			return nil, ErrSelfConstraint
		}

		var j *dynamics.Joint
		switch t {
		case dynamics.JointHinge:
			j = s.world.NewHinge()
		case dynamics.JointBall:
			j = s.world.NewBall()
		case dynamics.JointFixed:
			j = s.world.NewFixed()
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, t)
		}

		var other *dynamics.Body
		if b != nil {
			other = b.body
		}
		j.Attach(a.body, other)
		switch t {
		case dynamics.JointHinge:
			j.SetAnchor(js.Anchor)
			axis := js.Axis
			if axis.Len() == 0 {
				axis = mgl64.Vec3{0, 0, 1}
			}
			j.SetAxis(axis)
		case dynamics.JointBall:
			j.SetAnchor(js.Anchor)
		}

		c := &Constraint{sim: s, obj: o, joint: j, a: a, b: b, torque: o.Torque()}
		j.Data = c
		a.constraints = append(a.constraints, c)
		if b != nil {
			b.constraints = append(b.constraints, c)
		}
		s.constraints = append(s.constraints, c)
		return c, nil
	}
}

func bodyOf(o *scene.Object) *Body {
	if o == nil {
		return nil
	}
	b, _ := o.Binding(scene.RoleDynamics).(*Body)
	return b
}

// AttributeChanged picks up hinge torque writes.
func (c *Constraint) AttributeChanged(_ *scene.Object, a scene.Attr) {
	if a != scene.AttrTorque {
		return
	}
	if c.dirty.Or(a.Bit()) == 0 {
		c.sim.loop.Post(c.flush)
	}
}

func (c *Constraint) flush() {
	c.dirty.Swap(0)
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if !c.released {
		c.torque = c.obj.Torque()
	}
}

// stepped runs after integration: hinges record angle and rate and apply the
// torque for the next step.
func (c *Constraint) stepped() {
	if c.released {
		return
	}
	if c.joint.Type() == dynamics.JointHinge {
		c.angle = c.joint.HingeAngle()
		c.rate = c.joint.HingeAngleRate()
		if c.torque != 0 {
			c.joint.AddHingeTorque(c.torque)
		}
	}
	if c.joint.Type() != dynamics.JointFixed {
		_ = c.obj.SetFromSimulation(scene.AttrPosition, scene.VecOf(c.joint.Anchor()))
	}
}

// Angle and Rate are the hinge readings of the last step.
func (c *Constraint) Angle() float64 {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	return c.angle
}

func (c *Constraint) Rate() float64 {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	return c.rate
}

func (c *Constraint) Type() dynamics.JointType { return c.joint.Type() }

// Destroy releases the joint. It reports whether this call released it.
func (c *Constraint) Destroy() bool {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	return c.release()
}

func (c *Constraint) release() bool {
	if c.released {
		return false
	}
	c.released = true
	c.joint.Destroy()
	c.a.dropConstraint(c)
	if c.b != nil {
		c.b.dropConstraint(c)
	}
	s := c.sim
	for i, o := range s.constraints {
		if o == c {
			s.constraints = append(s.constraints[:i], s.constraints[i+1:]...)
			break
		}
	}
	return true
}
