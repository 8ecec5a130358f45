package render

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrBadMesh = errors.New("render: malformed mesh")

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []mgl64.Vec3
	Faces    [][3]int
}

var boxCorners = [8]mgl64.Vec3{
	{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
}

// BoxMesh builds a box centered on the origin. With openTop the +z face is
// left out.
func BoxMesh(size mgl64.Vec3, openTop bool) *Mesh {
	h := size.Mul(0.5)
	m := &Mesh{Vertices: make([]mgl64.Vec3, len(boxCorners))}
	for i, c := range boxCorners {
		m.Vertices[i] = mgl64.Vec3{c[0] * h[0], c[1] * h[1], c[2] * h[2]}
	}
	quads := [][4]int{
		{0, 3, 2, 1}, // bottom
		{0, 1, 5, 4},
		{1, 2, 6, 5},
		{2, 3, 7, 6},
		{3, 0, 4, 7},
	}
	if !openTop {
		quads = append(quads, [4]int{4, 5, 6, 7})
	}
	for _, q := range quads {
		m.Faces = append(m.Faces, [3]int{q[0], q[1], q[2]}, [3]int{q[0], q[2], q[3]})
	}
	return m
}

func LoadOBJFile(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := LoadOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadOBJ reads vertices and faces from Wavefront OBJ text. Polygons are
// fan-triangulated; texture and normal indices are ignored.
func LoadOBJ(r io.Reader) (*Mesh, error) {
	m := &Mesh{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrBadMesh, line)
			}
			var v mgl64.Vec3
			for i := 0; i < 3; i++ {
				x, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrBadMesh, line, err)
				}
				v[i] = x
			}
			m.Vertices = append(m.Vertices, v)
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: face needs 3 vertices", ErrBadMesh, line)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, f := range fields[1:] {
				i, err := objIndex(f, len(m.Vertices))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrBadMesh, line, err)
				}
				idx = append(idx, i)
			}
			for k := 1; k+1 < len(idx); k++ {
				m.Faces = append(m.Faces, [3]int{idx[0], idx[k], idx[k+1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(m.Vertices) == 0 {
		return nil, fmt.Errorf("%w: no vertices", ErrBadMesh)
	}
	return m, nil
}

// objIndex resolves a 1-based or negative relative index of "v/vt/vn".
func objIndex(field string, n int) (int, error) {
	if slash := strings.IndexByte(field, '/'); slash >= 0 {
		field = field[:slash]
	}
	i, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0 && i <= n:
		return i - 1, nil
	case i < 0 && -i <= n:
		return n + i, nil
	}
	return 0, fmt.Errorf("vertex index %d out of range", i)
}

// Bounds returns the axis-aligned extent of the vertices.
func (m *Mesh) Bounds() (lo, hi mgl64.Vec3) {
	if len(m.Vertices) == 0 {
		return
	}
	lo, hi = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], v[k])
			hi[k] = max(hi[k], v[k])
		}
	}
	return lo, hi
}

// ScaleToSize returns a copy centered on the origin whose bounds measure
// size. Axes with zero extent are left flat.
func (m *Mesh) ScaleToSize(size mgl64.Vec3) *Mesh {
	lo, hi := m.Bounds()
	center := lo.Add(hi).Mul(0.5)
	var scale mgl64.Vec3
	for k := 0; k < 3; k++ {
		if ext := hi[k] - lo[k]; ext > 0 {
			scale[k] = size[k] / ext
		}
	}
	out := &Mesh{
		Vertices: make([]mgl64.Vec3, len(m.Vertices)),
		Faces:    append([][3]int(nil), m.Faces...),
	}
	for i, v := range m.Vertices {
		d := v.Sub(center)
		out.Vertices[i] = mgl64.Vec3{d[0] * scale[0], d[1] * scale[1], d[2] * scale[2]}
	}
	return out
}
