package dynamics

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// ContactGeom is one point of contact between G1 and G2. Normal is a unit
// vector pointing from G2 toward G1; moving G1 along it reduces Depth.
type ContactGeom struct {
	Pos    mgl64.Vec3
	Normal mgl64.Vec3
	Depth  float64
	G1, G2 *Geom
}

const insideTolerance = 1e-9

// Collide returns at most maxContacts contact points between g1 and g2, deepest
// first.
func Collide(g1, g2 *Geom, maxContacts int) ([]ContactGeom, error) {
	if maxContacts <= 0 || g1 == g2 {
		return nil, nil
	}
	if g1.degenerate() || g2.degenerate() {
		return nil, fmt.Errorf("%w: sphere radius and box lengths must be positive", ErrDegenerateGeom)
	}

	var out []ContactGeom
	switch {
	case g1.class == ClassSphere && g2.class == ClassSphere:
		out = sphereSphere(g1, g2)
	case g1.class == ClassSphere && g2.class == ClassBox:
		out = sphereBox(g1, g2)
	case g1.class == ClassBox && g2.class == ClassSphere:
		out = sphereBox(g2, g1)
		for i := range out {
			out[i].Normal = out[i].Normal.Mul(-1)
		}
	default:
		out = boxBox(g1, g2)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Depth > out[j].Depth })
	if len(out) > maxContacts {
		out = out[:maxContacts]
	}
	for i := range out {
		out[i].G1, out[i].G2 = g1, g2
	}
	return out, nil
}

func sphereSphere(a, b *Geom) []ContactGeom {
	d := a.Position().Sub(b.Position())
	dist := d.Len()
	sum := a.radius + b.radius
	if dist > sum {
		return nil
	}
	n := mgl64.Vec3{0, 0, 1}
	if dist > insideTolerance {
		n = d.Mul(1 / dist)
	}
	depth := sum - dist
	return []ContactGeom{{
		Pos:    b.Position().Add(n.Mul(b.radius - depth/2)),
		Normal: n,
		Depth:  depth,
	}}
}

// sphereBox returns contacts with the normal pointing from box b toward
// sphere s.
func sphereBox(s, b *Geom) []ContactGeom {
	ps, pb, r := s.Position(), b.Position(), b.Rotation()
	h := b.lengths.Mul(0.5)
	local := r.Transpose().Mul3x1(ps.Sub(pb))

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
		if d > s.radius {
			return nil
		}
		return []ContactGeom{{
			Pos:    pb.Add(r.Mul3x1(clamped)),
			Normal: r.Mul3x1(diff.Mul(1 / d)),
			Depth:  s.radius - d,
		}}
	}

	// center inside: leave through the nearest face
	axis, gap := 0, math.Inf(1)
	for k := 0; k < 3; k++ {
		if g := h[k] - math.Abs(local[k]); g < gap {
			axis, gap = k, g
		}
	}
	var ln mgl64.Vec3
	ln[axis] = signOf(local[axis])
	face := local
	face[axis] = ln[axis] * h[axis]
	return []ContactGeom{{
		Pos:    pb.Add(r.Mul3x1(face)),
		Normal: r.Mul3x1(ln),
		Depth:  s.radius + gap,
	}}
}

type obb struct {
	pos  mgl64.Vec3
	axes [3]mgl64.Vec3
	half mgl64.Vec3
	rot  mgl64.Mat3
}

func toOBB(g *Geom) obb {
	r := g.Rotation()
	return obb{pos: g.Position(), axes: [3]mgl64.Vec3{r.Col(0), r.Col(1), r.Col(2)}, half: g.lengths.Mul(0.5), rot: r}
}

func (o obb) radiusAlong(n mgl64.Vec3) float64 {
	return o.half[0]*math.Abs(n.Dot(o.axes[0])) +
		o.half[1]*math.Abs(n.Dot(o.axes[1])) +
		o.half[2]*math.Abs(n.Dot(o.axes[2]))
}

func (o obb) corners() [8]mgl64.Vec3 {
	var c [8]mgl64.Vec3
	for i := 0; i < 8; i++ {
		local := o.half
		for k := 0; k < 3; k++ {
			if i&(1<<k) != 0 {
				local[k] = -local[k]
			}
		}
		c[i] = o.pos.Add(o.rot.Mul3x1(local))
	}
	return c
}

func (o obb) contains(p mgl64.Vec3) bool {
	local := o.rot.Transpose().Mul3x1(p.Sub(o.pos))
	for k := 0; k < 3; k++ {
		if math.Abs(local[k]) > o.half[k]+insideTolerance {
			return false
		}
	}
	return true
}

// boxBox separates on the 15 candidate axes, takes the face axis of least
// overlap as the normal and reports the corners of each box inside the other.
func boxBox(ga, gb *Geom) []ContactGeom {
	a, b := toOBB(ga), toOBB(gb)
	d := a.pos.Sub(b.pos)

	var candidates []mgl64.Vec3
	candidates = append(candidates, a.axes[:]...)
	candidates = append(candidates, b.axes[:]...)
	faces := len(candidates)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c := a.axes[i].Cross(b.axes[j])
			if c.Len() > 1e-6 {
				candidates = append(candidates, c.Normalize())
			}
		}
	}

	n, depth := mgl64.Vec3{}, math.Inf(1)
	for i, axis := range candidates {
		overlap := a.radiusAlong(axis) + b.radiusAlong(axis) - math.Abs(d.Dot(axis))
		if overlap < 0 {
			return nil
		}
		if i < faces && overlap < depth {
			n, depth = axis, overlap
		}
	}
	if d.Dot(n) < 0 {
		n = n.Mul(-1)
	}

	var out []ContactGeom
	bTop := b.pos.Dot(n) + b.radiusAlong(n)
	for _, c := range a.corners() {
		if b.contains(c) {
			out = append(out, ContactGeom{Pos: c, Normal: n, Depth: math.Max(bTop-c.Dot(n), 0)})
		}
	}
	aBottom := a.pos.Dot(n) - a.radiusAlong(n)
	for _, c := range b.corners() {
		if a.contains(c) {
			out = append(out, ContactGeom{Pos: c, Normal: n, Depth: math.Max(c.Dot(n)-aBottom, 0)})
		}
	}
	if len(out) == 0 {
		// edge against edge: one point halfway between the supporting features
		sa := a.pos.Sub(n.Mul(a.radiusAlong(n)))
		sb := b.pos.Add(n.Mul(b.radiusAlong(n)))
		out = append(out, ContactGeom{Pos: sa.Add(sb).Mul(0.5), Normal: n, Depth: depth})
	}
	return out
}

func signOf(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
