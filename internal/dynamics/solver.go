package dynamics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// solverRow is the per-step scratch of one joint.
type solverRow struct {
	active bool

	im1, im2 float64
	ii1, ii2 mgl64.Mat3
	r1, r2   mgl64.Vec3

	// point constraints
	kInv  mgl64.Mat3
	biasP mgl64.Vec3
	// angular constraints
	kaInv mgl64.Mat3
	biasA mgl64.Vec3
	axis  mgl64.Vec3

	// contacts
	n, t1, t2    mgl64.Vec3
	kn, kt1, kt2 float64
	target, mu   float64
	ln, lt1, lt2 float64
}

func invMassOf(b *Body) float64 {
	if !b.dynamic() {
		return 0
	}
	return b.invMass
}

func invInertiaOf(b *Body) mgl64.Mat3 {
	if !b.dynamic() {
		return mgl64.Mat3{}
	}
	return b.invInertiaWorld()
}

func velAt(b *Body, r mgl64.Vec3) mgl64.Vec3 {
	if !b.dynamic() {
		return mgl64.Vec3{}
	}
	return b.vel.Add(b.angVel.Cross(r))
}

func applyImpulse(b *Body, r, p mgl64.Vec3) {
	if !b.dynamic() {
		return
	}
	b.vel = b.vel.Add(p.Mul(b.invMass))
	b.angVel = b.angVel.Add(b.invInertiaWorld().Mul3x1(r.Cross(p)))
}

func applyAngular(b *Body, l mgl64.Vec3) {
	if !b.dynamic() {
		return
	}
	b.angVel = b.angVel.Add(b.invInertiaWorld().Mul3x1(l))
}

func angVelDyn(b *Body) mgl64.Vec3 {
	if !b.dynamic() {
		return mgl64.Vec3{}
	}
	return b.angVel
}

// pointMass is the effective mass matrix of a point constraint at r.
func pointMass(im float64, ii mgl64.Mat3, r mgl64.Vec3) mgl64.Mat3 {
	s := skew(r)
	return mgl64.Ident3().Mul(im).Sub(s.Mul3(ii).Mul3(s))
}

func scalarMass(im float64, ii mgl64.Mat3, r, n mgl64.Vec3) float64 {
	rn := r.Cross(n)
	return im + ii.Mul3x1(rn).Cross(r).Dot(n)
}

func (j *Joint) prepare(dt float64) {
	w := j.world
	row := &j.row
	*row = solverRow{}
	if j.destroyed || (!j.b1.dynamic() && !j.b2.dynamic()) {
		return
	}
	row.im1, row.im2 = invMassOf(j.b1), invMassOf(j.b2)
	row.ii1, row.ii2 = invInertiaOf(j.b1), invInertiaOf(j.b2)
	k := w.ERP / dt

	if j.typ == JointContact {
		j.prepareContact(k)
		return
	}

	p1 := toWorld(j.b1, j.anchor1)
	p2 := toWorld(j.b2, j.anchor2)
	row.r1 = p1.Sub(positionOf(j.b1))
	row.r2 = p2.Sub(positionOf(j.b2))
	km := pointMass(row.im1, row.ii1, row.r1).Add(pointMass(row.im2, row.ii2, row.r2))
	km = km.Add(mgl64.Ident3().Mul(w.CFM))
	if math.Abs(km.Det()) < 1e-18 {
		return
	}
	row.kInv = km.Inv()
	row.biasP = p1.Sub(p2).Mul(k)
	row.active = true

	ka := row.ii1.Add(row.ii2).Add(mgl64.Ident3().Mul(w.CFM))
	row.kaInv = ka.Inv()
	switch j.typ {
	case JointFixed:
		e := rotationOf(j.b1).Mul3(j.rel).Mul3(rotationOf(j.b2).Transpose())
		row.biasA = vee(e).Mul(k)
	case JointHinge:
		a1 := rotationOf(j.b1).Mul3x1(j.axis1)
		a2 := rotationOf(j.b2).Mul3x1(j.axis2)
		row.axis = a1
		row.biasA = a2.Cross(a1).Mul(k)
	}
}

func (j *Joint) prepareContact(erpOverDt float64) {
	w := j.world
	row := &j.row
	c := j.contact
	n := c.Geom.Normal
	row.r1 = c.Geom.Pos.Sub(positionOf(j.b1))
	row.r2 = c.Geom.Pos.Sub(positionOf(j.b2))
	row.n = n
	row.t1 = perpendicular(n)
	row.t2 = n.Cross(row.t1)
	row.kn = scalarMass(row.im1, row.ii1, row.r1, n) + scalarMass(row.im2, row.ii2, row.r2, n) + w.CFM
	row.kt1 = scalarMass(row.im1, row.ii1, row.r1, row.t1) + scalarMass(row.im2, row.ii2, row.r2, row.t1) + w.CFM
	row.kt2 = scalarMass(row.im1, row.ii1, row.r1, row.t2) + scalarMass(row.im2, row.ii2, row.r2, row.t2) + w.CFM
	if row.kn <= 0 {
		return
	}

	vrel := velAt(j.b1, row.r1).Sub(velAt(j.b2, row.r2))
	vn := vrel.Dot(n)
	row.target = erpOverDt * math.Max(c.Geom.Depth-w.ContactSlop, 0)
	if -vn > w.BounceVelocity && c.Surface.Bounce > 0 {
		row.target = math.Max(row.target, -c.Surface.Bounce*vn)
	}
	slip := vrel.Sub(n.Mul(vn)).Len()
	row.mu = c.Surface.MuStatic
	if slip >= w.SlipVelocity {
		row.mu = c.Surface.MuDynamic
	}
	row.active = true
}

func (j *Joint) solve() {
	row := &j.row
	if !row.active {
		return
	}
	if j.typ == JointContact {
		j.solveContact()
		return
	}

	vrel := velAt(j.b1, row.r1).Sub(velAt(j.b2, row.r2))
	p := row.kInv.Mul3x1(vrel.Add(row.biasP).Mul(-1))
	applyImpulse(j.b1, row.r1, p)
	applyImpulse(j.b2, row.r2, p.Mul(-1))

	switch j.typ {
	case JointFixed:
		wrel := angVelDyn(j.b1).Sub(angVelDyn(j.b2))
		l := row.kaInv.Mul3x1(wrel.Add(row.biasA).Mul(-1))
		applyAngular(j.b1, l)
		applyAngular(j.b2, l.Mul(-1))
	case JointHinge:
		a := row.axis
		wrel := angVelDyn(j.b1).Sub(angVelDyn(j.b2))
		wperp := wrel.Sub(a.Mul(a.Dot(wrel)))
		l := row.kaInv.Mul3x1(wperp.Add(row.biasA).Mul(-1))
		l = l.Sub(a.Mul(a.Dot(l)))
		applyAngular(j.b1, l)
		applyAngular(j.b2, l.Mul(-1))
	}
}

func (j *Joint) solveContact() {
	row := &j.row
	vrel := velAt(j.b1, row.r1).Sub(velAt(j.b2, row.r2))
	dl := (row.target - vrel.Dot(row.n)) / row.kn
	next := math.Max(row.ln+dl, 0)
	dl, row.ln = next-row.ln, next
	p := row.n.Mul(dl)
	applyImpulse(j.b1, row.r1, p)
	applyImpulse(j.b2, row.r2, p.Mul(-1))

	limit := 0.0
	if row.ln > 0 {
		limit = row.mu * row.ln
	}
	row.lt1 = j.friction(row.t1, row.kt1, row.lt1, limit)
	row.lt2 = j.friction(row.t2, row.kt2, row.lt2, limit)
}

func (j *Joint) friction(t mgl64.Vec3, kt, acc, limit float64) float64 {
	if kt <= 0 {
		return acc
	}
	row := &j.row
	vrel := velAt(j.b1, row.r1).Sub(velAt(j.b2, row.r2))
	next := clamp(acc-vrel.Dot(t)/kt, -limit, limit)
	p := t.Mul(next - acc)
	applyImpulse(j.b1, row.r1, p)
	applyImpulse(j.b2, row.r2, p.Mul(-1))
	return next
}

func positionOf(b *Body) mgl64.Vec3 {
	if b == nil {
		return mgl64.Vec3{}
	}
	return b.pos
}

// vee extracts the small-angle rotation vector of a near-identity rotation.
func vee(e mgl64.Mat3) mgl64.Vec3 {
	return mgl64.Vec3{
		0.5 * (e.At(2, 1) - e.At(1, 2)),
		0.5 * (e.At(0, 2) - e.At(2, 0)),
		0.5 * (e.At(1, 0) - e.At(0, 1)),
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
