package haptics

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hapsim/internal/dynamo"
	"github.com/san-kum/hapsim/internal/integrators"
	"github.com/san-kum/hapsim/internal/render"
	"github.com/san-kum/hapsim/internal/scene"
)

var (
	ErrNoObject     = errors.New("haptics: no object to grasp")
	ErrGraspSelf    = errors.New("haptics: cursor cannot grasp itself")
	ErrNotGrabbable = errors.New("haptics: object has no dynamics body")
)

// Grabbable is the dynamics side of an object the cursor can hold.
type Grabbable interface {
	DisconnectBody()
	ConnectBody(pos, vel mgl64.Vec3)
}

const cursorAttrs = 1<<scene.AttrForce | 1<<scene.AttrRadius | 1<<scene.AttrColor |
	1<<scene.AttrVisible | 1<<scene.AttrGrab

// virtualMass is a point mass pulled toward the probe by a spring-damper.
// State is [pos, vel]; control is [probe, probe velocity].
type virtualMass struct {
	mass, stiffness, damping float64
}

func (m *virtualMass) StateDim() int   { return 6 }
func (m *virtualMass) ControlDim() int { return 6 }

func (m *virtualMass) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	pos, vel := x.Vec3(0), x.Vec3(1)
	probe := mgl64.Vec3{u[0], u[1], u[2]}
	probeVel := mgl64.Vec3{u[3], u[4], u[5]}
	f := probe.Sub(pos).Mul(m.stiffness).Add(probeVel.Sub(vel).Mul(m.damping))
	return dynamo.Pack(vel, f.Mul(1/m.mass))
}

type grasp struct {
	obj    *scene.Object
	body   Grabbable
	pos    mgl64.Vec3
	vel    mgl64.Vec3
	mass   float64
	offset mgl64.Vec3
}

// Cursor is the render binding of the cursor object. Fields are guarded by
// the owning Sim's mutex.
type Cursor struct {
	sim   *Sim
	obj   *scene.Object
	integ dynamo.Integrator
	vm    *virtualMass
	dt    float64

	dirty atomic.Uint32

	initialized bool
	state       dynamo.State
	probe       mgl64.Vec3
	probeVel    mgl64.Vec3
	radius      float64
	force       mgl64.Vec3
	extra       mgl64.Vec3
	extraTicks  int
	held        *grasp
	contact     *scene.Object
	ticks       uint64
	destroyed   bool
}

func (s *Sim) newCursor(o *scene.Object, _ ShapeOptions) (binding, error) {
	if s.cursor != nil {
		return nil, ErrCursorExists
	}
	name := s.cfg.Integrator
	if name == "" {
		name = "rk4"
	}
	integ, err := integrators.Get(name)
	if err != nil {
		return nil, err
	}
	cc := s.cfg.Cursor
	c := &Cursor{
		sim:    s,
		obj:    o,
		integ:  integ,
		vm:     &virtualMass{mass: cc.Mass, stiffness: cc.Stiffness, damping: cc.Damping},
		dt:     s.loop.Dt(),
		radius: cc.Radius,
	}
	p := s.world.Pointer()
	p.Radius, p.Color, p.Visible = cc.Radius, o.Color(), o.Visible()
	s.cursor = c
	return c, nil
}

func (c *Cursor) AttributeChanged(_ *scene.Object, a scene.Attr) {
	if a.Bit()&cursorAttrs == 0 {
		return
	}
	if c.dirty.Or(a.Bit()) == 0 {
		c.sim.loop.Post(c.flush)
	}
}

func (c *Cursor) flush() {
	mask := c.dirty.Swap(0)
	s := c.sim
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.destroyed {
		return
	}

	o, p := c.obj, s.world.Pointer()
	for _, a := range scene.Attrs(mask) {
		switch a {
		case scene.AttrForce:
			c.applyExtra(o.Force(), s.cfg.ExtraForceTicks)
		case scene.AttrRadius:
			c.radius = o.Radius()
			p.Radius = c.radius
		case scene.AttrColor:
			p.Color = o.Color()
		case scene.AttrVisible:
			p.Visible = o.Visible()
		case scene.AttrGrab:
			s.logger.Printf("haptics: %v", ErrGraspSelf)
			_ = o.SetFromSimulation(scene.AttrGrab, scene.Flag(false))
		}
	}
}

// Start starts the device and puts the virtual mass on the probe. On failure
// the cursor stays uninitialized and renders no force.
func (c *Cursor) Start() error {
	s := c.sim
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.initialized {
		return nil
	}
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("haptics: start device: %w", err)
	}
	c.probe = s.device.Position()
	c.probeVel = mgl64.Vec3{}
	c.state = dynamo.Pack(c.probe, mgl64.Vec3{})
	c.initialized = true
	return nil
}

// Stop lets go of any held object, zeroes the output and stops the device.
// Safe to call in any state.
func (c *Cursor) Stop() {
	s := c.sim
	s.mu.Lock()
	defer s.mu.Unlock()
	if !c.initialized {
		return
	}
	c.release()
	c.force = mgl64.Vec3{}
	s.device.SetForce(mgl64.Vec3{})
	if err := s.device.Stop(); err != nil {
		s.logger.Printf("haptics: stop device: %v", err)
	}
	c.initialized = false
}

// Object is the scene object the cursor publishes to.
func (c *Cursor) Object() *scene.Object { return c.obj }

func (c *Cursor) Initialized() bool {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	return c.initialized
}

// ApplyExtraForce adds f to the output for the next n ticks.
func (c *Cursor) ApplyExtraForce(f mgl64.Vec3, n int) {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	c.applyExtra(f, n)
}

func (c *Cursor) applyExtra(f mgl64.Vec3, n int) {
	c.extra, c.extraTicks = f, n
}

// Grasp takes hold of o, letting go of whatever was held before.
func (c *Cursor) Grasp(o *scene.Object) error {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	return c.grasp(o)
}

func (c *Cursor) Release() {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	c.release()
}

func (c *Cursor) grasp(o *scene.Object) error {
	if o == nil {
		return ErrNoObject
	}
	if o == c.obj {
		return ErrGraspSelf
	}
	if o.Destroyed() {
		return fmt.Errorf("%w: %s", ErrNoObject, o.Name())
	}
	body, ok := o.Binding(scene.RoleDynamics).(Grabbable)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotGrabbable, o.Name())
	}
	if c.held != nil {
		if c.held.obj == o {
			return nil
		}
		c.release()
	}

	body.DisconnectBody()
	mass := o.Mass()
	if !(mass > 0) {
		mass = scene.DefaultMass
	}
	pos := o.Position()
	c.held = &grasp{
		obj:    o,
		body:   body,
		pos:    pos,
		vel:    o.Velocity(),
		mass:   mass,
		offset: pos.Sub(c.massPos()),
	}
	_ = o.SetFromSimulation(scene.AttrGrab, scene.Flag(true))
	return nil
}

func (c *Cursor) release() {
	g := c.held
	if g == nil {
		return
	}
	c.held = nil
	g.body.ConnectBody(g.pos, g.vel)
	_ = g.obj.SetFromSimulation(scene.AttrGrab, scene.Flag(false))
}

func (c *Cursor) grabbedObject() *scene.Object {
	if c.held == nil {
		return nil
	}
	return c.held.obj
}

func (c *Cursor) Grabbed() *scene.Object {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	return c.grabbedObject()
}

// Force is the last force sent to the device.
func (c *Cursor) Force() mgl64.Vec3 {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	return c.force
}

// Contact is the object whose shape the cursor touched last tick.
func (c *Cursor) Contact() *scene.Object {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	return c.contact
}

// MassPosition is the position of the virtual mass.
func (c *Cursor) MassPosition() mgl64.Vec3 {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	return c.massPos()
}

func (c *Cursor) massPos() mgl64.Vec3 {
	if len(c.state) < 6 {
		return c.probe
	}
	return c.state.Vec3(0)
}

func (c *Cursor) tick() {
	if !c.initialized {
		c.force = mgl64.Vec3{}
		return
	}
	s := c.sim
	cfg := s.cfg

	probe := s.device.Position()
	c.probeVel = probe.Sub(c.probe).Mul(1 / c.dt)
	c.probe = probe

	u := dynamo.Control(dynamo.Pack(c.probe, c.probeVel))
	next := c.integ.Step(c.vm, c.state, u, float64(c.ticks)*c.dt, c.dt)
	if !next.IsValid() {
		s.logger.Printf("haptics: %v, cursor reset onto the probe", dynamo.ErrInvalidState)
		next = dynamo.Pack(c.probe, mgl64.Vec3{})
	}
	c.state = next
	pos, vel := c.state.Vec3(0), c.state.Vec3(1)

	// the device feels the spring that drags the mass
	f := pos.Sub(c.probe).Mul(c.vm.stiffness).Add(vel.Sub(c.probeVel).Mul(c.vm.damping))

	if g := c.held; g != nil {
		target := pos.Add(g.offset)
		pull := target.Sub(g.pos).Mul(cfg.Cursor.GrabStiffness).Add(vel.Sub(g.vel).Mul(cfg.Cursor.GrabDamping))
		g.vel = g.vel.Add(pull.Mul(c.dt / g.mass))
		g.pos = g.pos.Add(g.vel.Mul(c.dt))
		if err := g.obj.SetFromRequest(scene.AttrPosition, scene.VecOf(g.pos)); err != nil {
			c.release()
		} else {
			_ = g.obj.SetFromSimulation(scene.AttrVelocity, scene.VecOf(g.vel))
			f = f.Sub(pull)
		}
	}

	if c.extraTicks > 0 {
		f = f.Add(c.extra)
		c.extraTicks--
	}

	c.contact = nil
	if cfg.ContactForce {
		held := c.grabbedObject()
		skip := func(rs *render.Shape) bool {
			sh, _ := rs.Data.(*Shape)
			return sh == nil || sh.obj == held
		}
		if rs, depth, n := s.world.Deepest(pos, c.radius, skip); rs != nil {
			f = f.Add(n.Mul(cfg.ContactStiffness * depth))
			c.contact = rs.Data.(*Shape).obj
		}
	}

	if mag := f.Len(); mag > cfg.MaxForce {
		f = f.Mul(cfg.MaxForce / mag)
	}
	c.force = f
	s.device.SetForce(f)
	s.world.Pointer().Update(pos, f)

	c.ticks++
	if cfg.PublishEvery > 0 && c.ticks%uint64(cfg.PublishEvery) == 0 {
		_ = c.obj.SetFromSimulation(scene.AttrPosition, scene.VecOf(pos))
		_ = c.obj.SetFromSimulation(scene.AttrVelocity, scene.VecOf(vel))
		_ = c.obj.SetFromSimulation(scene.AttrForce, scene.VecOf(f))
	}
}

// Destroy lets go of any held object and detaches the cursor from the sim.
func (c *Cursor) Destroy() bool {
	s := c.sim
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.destroyed {
		return false
	}
	c.destroyed = true
	c.release()
	if s.cursor == c {
		s.cursor = nil
	}
	return true
}
