package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Camera struct {
	Position mgl64.Vec3
	LookAt   mgl64.Vec3
	Up       mgl64.Vec3
}

type Light struct {
	Position mgl64.Vec3
	Enabled  bool
}

type World struct {
	Camera Camera
	Light  Light

	shapes  []*Shape
	pointer *Pointer
}

func NewWorld() *World {
	return &World{
		Camera:  Camera{Position: mgl64.Vec3{3, 0, 1}, Up: mgl64.Vec3{0, 0, 1}},
		Light:   Light{Position: mgl64.Vec3{2, 2, 4}, Enabled: true},
		pointer: NewPointer(),
	}
}

func (w *World) Pointer() *Pointer { return w.pointer }

func (w *World) AddShape(s *Shape) {
	w.shapes = append(w.shapes, s)
}

// RemoveShape reports whether s was in the world.
func (w *World) RemoveShape(s *Shape) bool {
	for i, o := range w.shapes {
		if o == s {
			w.shapes = append(w.shapes[:i], w.shapes[i+1:]...)
			return true
		}
	}
	return false
}

func (w *World) Shapes() []*Shape {
	return append([]*Shape(nil), w.shapes...)
}

func (w *World) Len() int { return len(w.shapes) }

// ComputeGlobalPositions refreshes the world-space mesh of every shape. Call
// it after structural edits.
func (w *World) ComputeGlobalPositions() {
	for _, s := range w.shapes {
		s.computeGlobal()
	}
}

// Deepest returns the shape a probe sphere at p penetrates the most, with the
// depth and push-out normal. It returns nil when nothing is touched.
func (w *World) Deepest(p mgl64.Vec3, r float64, skip func(*Shape) bool) (*Shape, float64, mgl64.Vec3) {
	var (
		best   *Shape
		depth  = math.Inf(-1)
		normal mgl64.Vec3
	)
	for _, s := range w.shapes {
		if skip != nil && skip(s) {
			continue
		}
		if d, n := s.Penetration(p, r); d > 0 && d > depth {
			best, depth, normal = s, d, n
		}
	}
	if best == nil {
		return nil, 0, mgl64.Vec3{}
	}
	return best, depth, normal
}
