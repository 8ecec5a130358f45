package dynamics

import "github.com/go-gl/mathgl/mgl64"

// Space holds geoms in insertion order.
type Space struct {
	geoms []*Geom
}

func NewSpace() *Space {
	return &Space{}
}

func (s *Space) Add(g *Geom) {
	if g.space == s {
		return
	}
	if g.space != nil {
		g.space.Remove(g)
	}
	g.space = s
	s.geoms = append(s.geoms, g)
}

func (s *Space) Remove(g *Geom) {
	for i, o := range s.geoms {
		if o == g {
			s.geoms = append(s.geoms[:i], s.geoms[i+1:]...)
			g.space = nil
			return
		}
	}
}

func (s *Space) Len() int { return len(s.geoms) }

// Collide calls near for every unordered pair whose bounds overlap. Each pair
// is visited once and a geom is never paired with itself.
func (s *Space) Collide(near func(g1, g2 *Geom)) {
	n := len(s.geoms)
	if n < 2 {
		return
	}
	lo := make([]mgl64.Vec3, n)
	hi := make([]mgl64.Vec3, n)
	for i, g := range s.geoms {
		lo[i], hi[i] = g.AABB()
	}
	geoms := append([]*Geom(nil), s.geoms...)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if overlaps(lo[i], hi[i], lo[j], hi[j]) {
				near(geoms[i], geoms[j])
			}
		}
	}
}

func overlaps(alo, ahi, blo, bhi mgl64.Vec3) bool {
	for k := 0; k < 3; k++ {
		if alo[k] > bhi[k] || blo[k] > ahi[k] {
			return false
		}
	}
	return true
}
