package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera projects world points onto the canvas. The world is z-up; with no
// rotation the camera looks along +y, so x runs right and z runs up.
type Camera struct {
	RotX, RotY, RotZ float64
	Zoom             float64
	Distance         float64
	// Span is the world height that fits the canvas at zoom 1.
	Span float64
	// Center is the world point drawn at the middle of the canvas.
	Center mgl64.Vec3
}

func NewCamera() *Camera {
	return &Camera{Zoom: 1, Distance: 20, Span: 4}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) Reset() {
	c.RotX, c.RotY, c.RotZ, c.Zoom = 0, 0, 0, 1
}

// view maps a world point to camera space: x right, y up, z toward the
// viewer.
func (c *Camera) view(p mgl64.Vec3) mgl64.Vec3 {
	p = p.Sub(c.Center)
	v := mgl64.Vec3{p.X(), p.Z(), -p.Y()}
	rot := mgl64.Rotate3DZ(c.RotZ).Mul3(mgl64.Rotate3DY(c.RotY)).Mul3(mgl64.Rotate3DX(c.RotX))
	return rot.Mul3x1(v)
}

// project returns the dot coordinates of p on a canvas of w x h dots and the
// dots per world unit at that depth. ok is false behind the camera.
func (c *Camera) project(p mgl64.Vec3, w, h int) (x, y, scale float64, ok bool) {
	v := c.view(p)
	if v.Z() >= c.Distance-0.1 {
		return 0, 0, 0, false
	}
	minDim := math.Min(float64(w), float64(h))
	scale = c.Zoom * minDim / c.Span * c.Distance / (c.Distance - v.Z())
	return float64(w)/2 + v.X()*scale, float64(h)/2 - v.Y()*scale, scale, true
}

// Project returns the dot under p and whether p is both in front of the
// camera and inside the canvas.
func (c *Camera) Project(p mgl64.Vec3, w, h int) (int, int, bool) {
	x, y, _, ok := c.project(p, w, h)
	ix, iy := int(math.Round(x)), int(math.Round(y))
	return ix, iy, ok && ix >= 0 && ix < w && iy >= 0 && iy < h
}

// DrawSphere draws a sphere as its projected outline.
func (c *Camera) DrawSphere(cv *Canvas, center mgl64.Vec3, radius float64) {
	w, h := cv.Dots()
	x, y, scale, ok := c.project(center, w, h)
	if !ok {
		return
	}
	cv.DrawCircle(int(math.Round(x)), int(math.Round(y)), int(math.Round(radius*scale)))
}

var boxEdges = [12][2]int{
	{0, 1}, {1, 3}, {3, 2}, {2, 0},
	{4, 5}, {5, 7}, {7, 6}, {6, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// DrawBox draws the wireframe of a box of the given edge lengths at pose.
func (c *Camera) DrawBox(cv *Canvas, pos mgl64.Vec3, rot mgl64.Mat3, size mgl64.Vec3) {
	var corners [8]mgl64.Vec3
	half := size.Mul(0.5)
	for i := range corners {
		local := mgl64.Vec3{half.X(), half.Y(), half.Z()}
		if i&1 == 0 {
			local[0] = -local[0]
		}
		if i&2 == 0 {
			local[1] = -local[1]
		}
		if i&4 == 0 {
			local[2] = -local[2]
		}
		corners[i] = pos.Add(rot.Mul3x1(local))
	}
	for _, e := range boxEdges {
		c.DrawSegment(cv, corners[e[0]], corners[e[1]])
	}
}

// DrawSegment draws the projected line from a to b. Segments with an end
// behind the camera are skipped.
func (c *Camera) DrawSegment(cv *Canvas, a, b mgl64.Vec3) {
	w, h := cv.Dots()
	x0, y0, _, ok0 := c.project(a, w, h)
	x1, y1, _, ok1 := c.project(b, w, h)
	if !ok0 || !ok1 || offCanvas(x0, y0, w, h) || offCanvas(x1, y1, w, h) {
		return
	}
	cv.DrawLine(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)))
}

// DrawMarker draws a small cross at p.
func (c *Camera) DrawMarker(cv *Canvas, p mgl64.Vec3) {
	w, h := cv.Dots()
	x, y, ok := c.Project(p, w, h)
	if !ok {
		return
	}
	cv.DrawLine(x-2, y, x+2, y)
	cv.DrawLine(x, y-2, x, y+2)
}

// offCanvas reports points far enough out that drawing toward them is
// wasted work.
func offCanvas(x, y float64, w, h int) bool {
	return math.Abs(x) > float64(8*w) || math.Abs(y) > float64(8*h)
}
