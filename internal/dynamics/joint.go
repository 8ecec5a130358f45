package dynamics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type JointType int

const (
	JointContact JointType = iota
	JointHinge
	JointBall
	JointFixed
)

func (t JointType) String() string {
	switch t {
	case JointContact:
		return "contact"
	case JointHinge:
		return "hinge"
	case JointBall:
		return "ball"
	case JointFixed:
		return "fixed"
	}
	return fmt.Sprintf("joint(%d)", int(t))
}

// Surface describes the contact material. MuStatic applies while the contact
// is not slipping, MuDynamic once it is. math.Inf(1) never slips.
type Surface struct {
	MuStatic  float64
	MuDynamic float64
	Bounce    float64
}

type Contact struct {
	Geom    ContactGeom
	Surface Surface
}

type Joint struct {
	world *World
	group *JointGroup
	typ   JointType

	b1, b2  *Body
	flipped bool

	// anchors and axes in body coordinates, world coordinates for a nil body
	anchor1, anchor2 mgl64.Vec3
	axis1, axis2     mgl64.Vec3
	ref1, ref2       mgl64.Vec3
	rel              mgl64.Mat3

	contact Contact

	destroyed bool
	row       solverRow

	Data any
}

func (w *World) newJoint(t JointType) *Joint {
	j := &Joint{world: w, typ: t, rel: mgl64.Ident3(), axis1: mgl64.Vec3{0, 0, 1}, axis2: mgl64.Vec3{0, 0, 1}}
	j.ref1, j.ref2 = perpendicular(j.axis1), perpendicular(j.axis2)
	w.joints = append(w.joints, j)
	return j
}

func (w *World) NewHinge() *Joint { return w.newJoint(JointHinge) }
func (w *World) NewBall() *Joint  { return w.newJoint(JointBall) }
func (w *World) NewFixed() *Joint { return w.newJoint(JointFixed) }

// NewContact adds a contact joint to group. The bodies are taken from the
// contact geoms.
func (w *World) NewContact(group *JointGroup, c Contact) *Joint {
	j := &Joint{world: w, group: group, typ: JointContact, contact: c}
	if c.Geom.G1 != nil {
		j.b1 = c.Geom.G1.Body()
	}
	if c.Geom.G2 != nil {
		j.b2 = c.Geom.G2.Body()
	}
	group.joints = append(group.joints, j)
	return j
}

func (j *Joint) Type() JointType { return j.typ }
func (j *Joint) Destroyed() bool { return j.destroyed }

func (j *Joint) Bodies() (*Body, *Body) {
	if j.flipped {
		return j.b2, j.b1
	}
	return j.b1, j.b2
}

// Attach connects b1 and b2. Either may be nil for the static world. A fixed
// joint locks the relative pose the bodies have at this moment.
func (j *Joint) Attach(b1, b2 *Body) {
	j.flipped = false
	if b1 == nil && b2 != nil {
		b1, b2, j.flipped = b2, nil, true
	}
	j.b1, j.b2 = b1, b2
	if j.typ == JointFixed && b1 != nil {
		j.rel = b1.rot.Transpose().Mul3(rotationOf(b2))
		j.anchor1 = mgl64.Vec3{}
		j.anchor2 = toLocal(b2, b1.pos)
	}
}

// SetAnchor places the joint anchor at world point p.
func (j *Joint) SetAnchor(p mgl64.Vec3) {
	j.anchor1 = toLocal(j.b1, p)
	j.anchor2 = toLocal(j.b2, p)
}

func (j *Joint) Anchor() mgl64.Vec3 {
	return toWorld(j.b1, j.anchor1)
}

// SetAxis sets the hinge axis in world coordinates.
func (j *Joint) SetAxis(a mgl64.Vec3) {
	if a.Len() < 1e-12 {
		j.world.reportf(ErrDegenerateGeom, "zero hinge axis")
		return
	}
	a = a.Normalize()
	u := perpendicular(a)
	r1, r2 := rotationOf(j.b1), rotationOf(j.b2)
	j.axis1, j.axis2 = r1.Transpose().Mul3x1(a), r2.Transpose().Mul3x1(a)
	j.ref1, j.ref2 = r1.Transpose().Mul3x1(u), r2.Transpose().Mul3x1(u)
}

func (j *Joint) Axis() mgl64.Vec3 {
	return rotationOf(j.b1).Mul3x1(j.axis1)
}

// HingeAngle is the rotation of the first body relative to the second about
// the axis, zero at the moment the axis was set.
func (j *Joint) HingeAngle() float64 {
	a := j.Axis()
	u1 := rotationOf(j.b1).Mul3x1(j.ref1)
	u2 := rotationOf(j.b2).Mul3x1(j.ref2)
	angle := math.Atan2(a.Dot(u2.Cross(u1)), u1.Dot(u2))
	if j.flipped {
		return -angle
	}
	return angle
}

func (j *Joint) HingeAngleRate() float64 {
	rate := angVelOf(j.b1).Sub(angVelOf(j.b2)).Dot(j.Axis())
	if j.flipped {
		return -rate
	}
	return rate
}

// AddHingeTorque applies t about the axis to the first body and the
// reaction to the second.
func (j *Joint) AddHingeTorque(t float64) {
	if j.flipped {
		t = -t
	}
	tq := j.Axis().Mul(t)
	if j.b1 != nil {
		j.b1.AddTorque(tq)
	}
	if j.b2 != nil {
		j.b2.AddTorque(tq.Mul(-1))
	}
}

// Destroy releases the joint. It reports whether this call did the release.
func (j *Joint) Destroy() bool {
	if j.destroyed {
		return false
	}
	j.destroyed = true
	if j.group != nil {
		j.group.remove(j)
		return true
	}
	w := j.world
	for i, o := range w.joints {
		if o == j {
			w.joints = append(w.joints[:i], w.joints[i+1:]...)
			break
		}
	}
	return true
}

// JointGroup owns contact joints for bulk release.
type JointGroup struct {
	world  *World
	joints []*Joint
}

func (w *World) NewJointGroup() *JointGroup {
	g := &JointGroup{world: w}
	w.groups = append(w.groups, g)
	return g
}

func (g *JointGroup) Len() int { return len(g.joints) }

// Empty destroys every joint in the group.
func (g *JointGroup) Empty() {
	for _, j := range g.joints {
		j.destroyed = true
		j.group = nil
	}
	g.joints = g.joints[:0]
}

func (g *JointGroup) remove(j *Joint) {
	for i, o := range g.joints {
		if o == j {
			g.joints = append(g.joints[:i], g.joints[i+1:]...)
			return
		}
	}
}

// AreConnected reports whether a non-contact joint links b1 and b2.
func (w *World) AreConnected(b1, b2 *Body) bool {
	if b1 == nil || b2 == nil {
		return false
	}
	for _, j := range w.joints {
		if (j.b1 == b1 && j.b2 == b2) || (j.b1 == b2 && j.b2 == b1) {
			return true
		}
	}
	return false
}

func rotationOf(b *Body) mgl64.Mat3 {
	if b == nil {
		return mgl64.Ident3()
	}
	return b.rot
}

func angVelOf(b *Body) mgl64.Vec3 {
	if b == nil {
		return mgl64.Vec3{}
	}
	return b.angVel
}

func toLocal(b *Body, p mgl64.Vec3) mgl64.Vec3 {
	if b == nil {
		return p
	}
	return b.rot.Transpose().Mul3x1(p.Sub(b.pos))
}

func toWorld(b *Body, p mgl64.Vec3) mgl64.Vec3 {
	if b == nil {
		return p
	}
	return b.pos.Add(b.rot.Mul3x1(p))
}

func perpendicular(n mgl64.Vec3) mgl64.Vec3 {
	if math.Abs(n[0]) < 0.57 {
		return n.Cross(mgl64.Vec3{1, 0, 0}).Normalize()
	}
	return n.Cross(mgl64.Vec3{0, 1, 0}).Normalize()
}
