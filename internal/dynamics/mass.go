package dynamics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Mass is a total mass and the inertia tensor about the center of mass in
// body coordinates.
type Mass struct {
	Total   float64
	Inertia mgl64.Mat3
}

func SphereMass(total, radius float64) Mass {
	i := 0.4 * total * radius * radius
	return Mass{Total: total, Inertia: diag(i, i, i)}
}

func BoxMass(total float64, lengths mgl64.Vec3) Mass {
	lx, ly, lz := lengths[0], lengths[1], lengths[2]
	k := total / 12
	return Mass{Total: total, Inertia: diag(k*(ly*ly+lz*lz), k*(lx*lx+lz*lz), k*(lx*lx+ly*ly))}
}

// Adjust rescales the distribution to a new total.
func (m Mass) Adjust(total float64) Mass {
	if m.Total == 0 {
		return Mass{Total: total, Inertia: m.Inertia}
	}
	return Mass{Total: total, Inertia: m.Inertia.Mul(total / m.Total)}
}

func (m Mass) Check() error {
	if m.Total <= 0 || math.IsNaN(m.Total) || math.IsInf(m.Total, 0) {
		return fmt.Errorf("%w: total %v", ErrDegenerateMass, m.Total)
	}
	for i := 0; i < 3; i++ {
		if d := m.Inertia.At(i, i); d <= 0 || math.IsNaN(d) {
			return fmt.Errorf("%w: inertia diagonal %v", ErrDegenerateMass, d)
		}
	}
	if det := m.Inertia.Det(); det <= 0 || math.IsNaN(det) {
		return fmt.Errorf("%w: singular inertia", ErrDegenerateMass)
	}
	return nil
}

func diag(a, b, c float64) mgl64.Mat3 {
	return mgl64.Mat3{a, 0, 0, 0, b, 0, 0, 0, c}
}

// skew returns the matrix S with S*v == r.Cross(v).
func skew(r mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3FromRows(
		mgl64.Vec3{0, -r[2], r[1]},
		mgl64.Vec3{r[2], 0, -r[0]},
		mgl64.Vec3{-r[1], r[0], 0},
	)
}

// orthonormalize re-orthogonalizes a drifting rotation matrix.
func orthonormalize(m mgl64.Mat3) mgl64.Mat3 {
	x := m.Col(0).Normalize()
	y := m.Col(1)
	y = y.Sub(x.Mul(x.Dot(y))).Normalize()
	z := x.Cross(y)
	return mgl64.Mat3FromCols(x, y, z)
}

func validVec(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
