package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type ShapeKind int

const (
	ShapeSphere ShapeKind = iota
	ShapeMesh
)

type Material struct {
	Diffuse         mgl64.Vec3
	StaticFriction  float64
	DynamicFriction float64
	Stiffness       float64
}

// Shape is a touchable object. Meshes are felt through their local bounding
// box.
type Shape struct {
	kind    ShapeKind
	radius  float64
	mesh    *Mesh
	lo, hi  mgl64.Vec3
	pos     mgl64.Vec3
	rot     mgl64.Mat3
	visible bool

	global []mgl64.Vec3

	Material Material
	Data     any
}

func NewSphere(radius float64) *Shape {
	return &Shape{kind: ShapeSphere, radius: radius, rot: mgl64.Ident3(), visible: true, Material: defaultMaterial()}
}

func NewMeshShape(m *Mesh) *Shape {
	s := &Shape{kind: ShapeMesh, rot: mgl64.Ident3(), visible: true, Material: defaultMaterial()}
	s.SetMesh(m)
	return s
}

func defaultMaterial() Material {
	return Material{Diffuse: mgl64.Vec3{1, 1, 1}, StaticFriction: 1, DynamicFriction: 0.5, Stiffness: 1}
}

func (s *Shape) Kind() ShapeKind     { return s.kind }
func (s *Shape) Radius() float64     { return s.radius }
func (s *Shape) SetRadius(r float64) { s.radius = r }
func (s *Shape) Mesh() *Mesh         { return s.mesh }
func (s *Shape) Visible() bool       { return s.visible }
func (s *Shape) SetVisible(v bool)   { s.visible = v }

func (s *Shape) SetMesh(m *Mesh) {
	s.mesh = m
	s.lo, s.hi = m.Bounds()
	s.global = nil
}

func (s *Shape) Pose() (mgl64.Vec3, mgl64.Mat3) { return s.pos, s.rot }

func (s *Shape) SetPose(pos mgl64.Vec3, rot mgl64.Mat3) {
	s.pos, s.rot = pos, rot
	s.global = nil
}

// GlobalVertices is the mesh in world coordinates as of the last
// ComputeGlobalPositions.
func (s *Shape) GlobalVertices() []mgl64.Vec3 { return s.global }

func (s *Shape) computeGlobal() {
	if s.mesh == nil {
		return
	}
	if cap(s.global) < len(s.mesh.Vertices) {
		s.global = make([]mgl64.Vec3, len(s.mesh.Vertices))
	}
	s.global = s.global[:len(s.mesh.Vertices)]
	for i, v := range s.mesh.Vertices {
		s.global[i] = s.pos.Add(s.rot.Mul3x1(v))
	}
}

// Penetration reports how deep a probe sphere at p with radius r sits in the
// shape, and the unit direction that pushes it out. Depth is zero or
// negative when the probe is clear. Invisible shapes are never touched.
func (s *Shape) Penetration(p mgl64.Vec3, r float64) (float64, mgl64.Vec3) {
	if !s.visible {
		return math.Inf(-1), mgl64.Vec3{}
	}
	switch s.kind {
	case ShapeSphere:
		d := p.Sub(s.pos)
		dist := d.Len()
		n := mgl64.Vec3{0, 0, 1}
		if dist > 1e-12 {
			n = d.Mul(1 / dist)
		}
		return s.radius + r - dist, n
	case ShapeMesh:
		return s.boxPenetration(p, r)
	}
	return math.Inf(-1), mgl64.Vec3{}
}

func (s *Shape) boxPenetration(p mgl64.Vec3, r float64) (float64, mgl64.Vec3) {
	center := s.lo.Add(s.hi).Mul(0.5)
	h := s.hi.Sub(s.lo).Mul(0.5)
	local := s.rot.Transpose().Mul3x1(p.Sub(s.pos)).Sub(center)

	clamped, inside := local, true
	for k := 0; k < 3; k++ {
		if clamped[k] > h[k] {
			clamped[k], inside = h[k], false
		} else if clamped[k] < -h[k] {
			clamped[k], inside = -h[k], false
		}
	}
	if !inside {
		diff := local.Sub(clamped)
		d := diff.Len()
		return r - d, s.rot.Mul3x1(diff.Mul(1 / d))
	}

	axis, gap := 0, math.Inf(1)
	for k := 0; k < 3; k++ {
		if g := h[k] - math.Abs(local[k]); g < gap {
			axis, gap = k, g
		}
	}
	var n mgl64.Vec3
	n[axis] = 1
	if local[axis] < 0 {
		n[axis] = -1
	}
	return r + gap, s.rot.Mul3x1(n)
}
