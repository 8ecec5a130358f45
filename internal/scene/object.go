package scene

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

type Kind int

const (
	KindSphere Kind = iota
	KindPrism
	KindMesh
	KindCursor
	KindHinge
	KindBall
	KindFixed
)

var kindNames = map[Kind]string{
	KindSphere: "sphere",
	KindPrism:  "prism",
	KindMesh:   "mesh",
	KindCursor: "cursor",
	KindHinge:  "hinge",
	KindBall:   "ball",
	KindFixed:  "fixed",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsJoint reports whether objects of this kind are constraints between two bodies.
func (k Kind) IsJoint() bool {
	return k == KindHinge || k == KindBall || k == KindFixed
}

func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("scene: unknown object kind %q", name)
}

// Role names the backend a binding belongs to. An object holds at most one
// binding per role.
type Role int

const (
	RoleDynamics Role = iota
	RoleRender
	numRoles
)

// Binding reacts to attribute writes made through SetFromRequest. The
// notification carries no value; handlers read the current one from o.
type Binding interface {
	AttributeChanged(o *Object, a Attr)
}

// Defaults applied to every new object.
const (
	DefaultRadius          = 0.5
	DefaultMass            = 1.0
	DefaultFrictionStatic  = 1.0
	DefaultFrictionDynamic = 0.5
)

type Object struct {
	name string
	kind Kind

	mu              sync.RWMutex
	position        mgl64.Vec3
	velocity        mgl64.Vec3
	rotation        mgl64.Mat3
	radius          float64
	size            mgl64.Vec3
	color           mgl64.Vec3
	visible         bool
	frictionStatic  float64
	frictionDynamic float64
	mass            float64
	force           mgl64.Vec3
	torque          float64
	grab            bool
	revision        uint64
	destroyed       bool
	bindings        [numRoles]Binding
}

func New(name string, kind Kind) *Object {
	return &Object{
		name:            name,
		kind:            kind,
		rotation:        mgl64.Ident3(),
		radius:          DefaultRadius,
		size:            mgl64.Vec3{1, 1, 1},
		color:           mgl64.Vec3{1, 1, 1},
		visible:         true,
		frictionStatic:  DefaultFrictionStatic,
		frictionDynamic: DefaultFrictionDynamic,
		mass:            DefaultMass,
	}
}

func (o *Object) Name() string { return o.name }
func (o *Object) Kind() Kind   { return o.kind }

// Bind attaches b for role. It fails if the role is already taken.
func (o *Object) Bind(role Role, b Binding) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.destroyed {
		return ErrDestroyed
	}
	if o.bindings[role] != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, o.name)
	}
	o.bindings[role] = b
	return nil
}

// Unbind detaches and returns the binding for role, nil if none.
func (o *Object) Unbind(role Role) Binding {
	o.mu.Lock()
	defer o.mu.Unlock()
	b := o.bindings[role]
	o.bindings[role] = nil
	return b
}

func (o *Object) Binding(role Role) Binding {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.bindings[role]
}

// Destroy marks the object dead and drops its bindings. Safe to repeat.
func (o *Object) Destroy() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destroyed = true
	o.bindings = [numRoles]Binding{}
}

func (o *Object) Destroyed() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.destroyed
}

// Revision increases on every write through either path.
func (o *Object) Revision() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.revision
}

// SetFromRequest writes v and notifies every binding once.
func (o *Object) SetFromRequest(a Attr, v Value) error {
	bindings, err := o.write(a, v)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		if b != nil {
			b.AttributeChanged(o, a)
		}
	}
	return nil
}

// SetFromSimulation writes v without notifying any binding. Backends use it
// to publish their authoritative state without feeding it back to themselves.
func (o *Object) SetFromSimulation(a Attr, v Value) error {
	_, err := o.write(a, v)
	return err
}

func (o *Object) write(a Attr, v Value) ([numRoles]Binding, error) {
	if a < 0 || a >= numAttrs {
		return [numRoles]Binding{}, fmt.Errorf("%w: %d", ErrUnknownAttr, int(a))
	}
	if v.kind != a.valueKind() {
		return [numRoles]Binding{}, fmt.Errorf("%w: %s on %s", ErrTypeMismatch, a, o.name)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.destroyed {
		return [numRoles]Binding{}, fmt.Errorf("%w: %s", ErrDestroyed, o.name)
	}

	switch a {
	case AttrPosition:
		o.position = v.vec
	case AttrVelocity:
		o.velocity = v.vec
	case AttrRotation:
		o.rotation = v.mat
	case AttrRadius:
		o.radius = v.num
	case AttrSize:
		o.size = v.vec
	case AttrColor:
		o.color = v.vec
	case AttrVisible:
		o.visible = v.Bool()
	case AttrFrictionStatic:
		o.frictionStatic = v.num
	case AttrFrictionDynamic:
		o.frictionDynamic = v.num
	case AttrMass:
		o.mass = v.num
	case AttrForce:
		o.force = v.vec
	case AttrTorque:
		o.torque = v.num
	case AttrGrab:
		o.grab = v.Bool()
	}
	o.revision++
	return o.bindings, nil
}

// Get returns the current value of a.
func (o *Object) Get(a Attr) Value {
	o.mu.RLock()
	defer o.mu.RUnlock()

	switch a {
	case AttrPosition:
		return VecOf(o.position)
	case AttrVelocity:
		return VecOf(o.velocity)
	case AttrRotation:
		return Rot(o.rotation)
	case AttrRadius:
		return Num(o.radius)
	case AttrSize:
		return VecOf(o.size)
	case AttrColor:
		return VecOf(o.color)
	case AttrVisible:
		return Flag(o.visible)
	case AttrFrictionStatic:
		return Num(o.frictionStatic)
	case AttrFrictionDynamic:
		return Num(o.frictionDynamic)
	case AttrMass:
		return Num(o.mass)
	case AttrForce:
		return VecOf(o.force)
	case AttrTorque:
		return Num(o.torque)
	case AttrGrab:
		return Flag(o.grab)
	}
	return Value{}
}

func (o *Object) Position() mgl64.Vec3     { return o.Get(AttrPosition).vec }
func (o *Object) Velocity() mgl64.Vec3     { return o.Get(AttrVelocity).vec }
func (o *Object) Rotation() mgl64.Mat3     { return o.Get(AttrRotation).mat }
func (o *Object) Radius() float64          { return o.Get(AttrRadius).num }
func (o *Object) Size() mgl64.Vec3         { return o.Get(AttrSize).vec }
func (o *Object) Color() mgl64.Vec3        { return o.Get(AttrColor).vec }
func (o *Object) Visible() bool            { return o.Get(AttrVisible).Bool() }
func (o *Object) FrictionStatic() float64  { return o.Get(AttrFrictionStatic).num }
func (o *Object) FrictionDynamic() float64 { return o.Get(AttrFrictionDynamic).num }
func (o *Object) Mass() float64            { return o.Get(AttrMass).num }
func (o *Object) Force() mgl64.Vec3        { return o.Get(AttrForce).vec }
func (o *Object) Torque() float64          { return o.Get(AttrTorque).num }
func (o *Object) Grab() bool               { return o.Get(AttrGrab).Bool() }

// Pose reads position and rotation under one lock.
func (o *Object) Pose() (mgl64.Vec3, mgl64.Mat3) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.position, o.rotation
}
