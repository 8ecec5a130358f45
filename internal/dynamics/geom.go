package dynamics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type GeomClass int

const (
	ClassSphere GeomClass = iota
	ClassBox
)

// Geom is collision geometry. Attached to a body it follows the body pose;
// detached it keeps its own world pose.
type Geom struct {
	class   GeomClass
	radius  float64
	lengths mgl64.Vec3

	body  *Body
	pos   mgl64.Vec3
	rot   mgl64.Mat3
	space *Space

	Data any
}

// NewSphere creates a sphere and inserts it into space when space is non-nil.
func NewSphere(space *Space, radius float64) *Geom {
	g := &Geom{class: ClassSphere, radius: radius, rot: mgl64.Ident3()}
	if space != nil {
		space.Add(g)
	}
	return g
}

// NewBox creates a box with full side lengths l.
func NewBox(space *Space, l mgl64.Vec3) *Geom {
	g := &Geom{class: ClassBox, lengths: l, rot: mgl64.Ident3()}
	if space != nil {
		space.Add(g)
	}
	return g
}

func (g *Geom) Class() GeomClass { return g.class }
func (g *Geom) Body() *Body      { return g.body }

// SetBody attaches g to b. Passing nil detaches it in place.
func (g *Geom) SetBody(b *Body) {
	if b == nil && g.body != nil {
		g.pos, g.rot = g.body.pos, g.body.rot
	}
	g.body = b
}

func (g *Geom) Radius() float64         { return g.radius }
func (g *Geom) SetRadius(r float64)     { g.radius = r }
func (g *Geom) Lengths() mgl64.Vec3     { return g.lengths }
func (g *Geom) SetLengths(l mgl64.Vec3) { g.lengths = l }

func (g *Geom) Position() mgl64.Vec3 {
	if g.body != nil {
		return g.body.pos
	}
	return g.pos
}

func (g *Geom) SetPosition(p mgl64.Vec3) {
	if g.body != nil {
		g.body.pos = p
		return
	}
	g.pos = p
}

func (g *Geom) Rotation() mgl64.Mat3 {
	if g.body != nil {
		return g.body.rot
	}
	return g.rot
}

func (g *Geom) SetRotation(r mgl64.Mat3) {
	if g.body != nil {
		g.body.SetRotation(r)
		return
	}
	g.rot = orthonormalize(r)
}

func (g *Geom) degenerate() bool {
	switch g.class {
	case ClassSphere:
		return !(g.radius > 0)
	case ClassBox:
		return !(g.lengths[0] > 0 && g.lengths[1] > 0 && g.lengths[2] > 0)
	}
	return true
}

// AABB returns the world-aligned bounds of g.
func (g *Geom) AABB() (lo, hi mgl64.Vec3) {
	p := g.Position()
	var ext mgl64.Vec3
	switch g.class {
	case ClassSphere:
		ext = mgl64.Vec3{g.radius, g.radius, g.radius}
	case ClassBox:
		r := g.Rotation()
		h := g.lengths.Mul(0.5)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				ext[i] += math.Abs(r.At(i, j)) * h[j]
			}
		}
	}
	return p.Sub(ext), p.Add(ext)
}

// Destroy removes g from its space.
func (g *Geom) Destroy() {
	if g.space != nil {
		g.space.Remove(g)
	}
	g.body = nil
}
