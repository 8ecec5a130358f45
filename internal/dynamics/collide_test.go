package dynamics

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func sphereAt(p mgl64.Vec3, r float64) *Geom {
	g := NewSphere(nil, r)
	g.SetPosition(p)
	return g
}

func boxAt(p, l mgl64.Vec3) *Geom {
	g := NewBox(nil, l)
	g.SetPosition(p)
	return g
}

func TestCollideSphereSphere(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 mgl64.Vec3
		want   int
		depth  float64
		normal mgl64.Vec3
	}{
		{"apart", mgl64.Vec3{0, 0, 2}, mgl64.Vec3{}, 0, 0, mgl64.Vec3{}},
		{"overlap above", mgl64.Vec3{0, 0, 0.9}, mgl64.Vec3{}, 1, 0.1, mgl64.Vec3{0, 0, 1}},
		{"overlap below", mgl64.Vec3{0, -0.8, 0}, mgl64.Vec3{}, 1, 0.2, mgl64.Vec3{0, -1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g1, g2 := sphereAt(tt.p1, 0.5), sphereAt(tt.p2, 0.5)
			cs, err := Collide(g1, g2, 30)
			if err != nil {
				t.Fatal(err)
			}
			if len(cs) != tt.want {
				t.Fatalf("got %d contacts, want %d", len(cs), tt.want)
			}
			if tt.want == 0 {
				return
			}
			c := cs[0]
			if math.Abs(c.Depth-tt.depth) > 1e-9 {
				t.Errorf("depth = %v, want %v", c.Depth, tt.depth)
			}
			if !c.Normal.ApproxEqual(tt.normal) {
				t.Errorf("normal = %v, want %v", c.Normal, tt.normal)
			}
			if c.G1 != g1 || c.G2 != g2 {
				t.Error("geoms not recorded in order")
			}
		})
	}
}

func TestCollideSphereBoxBothOrders(t *testing.T) {
	s := sphereAt(mgl64.Vec3{0, 0, 0.95}, 0.5)
	b := boxAt(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})

	cs, err := Collide(s, b, 10)
	if err != nil || len(cs) != 1 {
		t.Fatalf("sphere-box: %v contacts, err %v", len(cs), err)
	}
	if !cs[0].Normal.ApproxEqual(mgl64.Vec3{0, 0, 1}) {
		t.Errorf("sphere-box normal = %v", cs[0].Normal)
	}
	if math.Abs(cs[0].Depth-0.05) > 1e-9 {
		t.Errorf("depth = %v", cs[0].Depth)
	}

	cs, _ = Collide(b, s, 10)
	if len(cs) != 1 || !cs[0].Normal.ApproxEqual(mgl64.Vec3{0, 0, -1}) {
		t.Errorf("box-sphere normal = %v", cs)
	}
}

func TestCollideSphereCenterInsideBox(t *testing.T) {
	s := sphereAt(mgl64.Vec3{0.4, 0, 0}, 0.25)
	b := boxAt(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	cs, _ := Collide(s, b, 10)
	if len(cs) != 1 {
		t.Fatalf("got %d contacts", len(cs))
	}
	if !cs[0].Normal.ApproxEqual(mgl64.Vec3{1, 0, 0}) {
		t.Errorf("normal = %v", cs[0].Normal)
	}
	if math.Abs(cs[0].Depth-0.35) > 1e-9 {
		t.Errorf("depth = %v, want 0.35", cs[0].Depth)
	}
}

func TestCollideBoxBoxStack(t *testing.T) {
	top := boxAt(mgl64.Vec3{0.1, 0, 0.99}, mgl64.Vec3{1, 1, 1})
	bottom := boxAt(mgl64.Vec3{}, mgl64.Vec3{2, 2, 1})

	cs, err := Collide(top, bottom, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 4 {
		t.Fatalf("got %d contacts, want 4", len(cs))
	}
	for _, c := range cs {
		if !c.Normal.ApproxEqual(mgl64.Vec3{0, 0, 1}) {
			t.Errorf("normal = %v", c.Normal)
		}
		if math.Abs(c.Depth-0.01) > 1e-9 {
			t.Errorf("depth = %v", c.Depth)
		}
	}

	far := boxAt(mgl64.Vec3{0, 0, 3}, mgl64.Vec3{1, 1, 1})
	if cs, _ := Collide(far, bottom, 30); len(cs) != 0 {
		t.Errorf("separated boxes produced %d contacts", len(cs))
	}
}

func TestCollideHonoursCap(t *testing.T) {
	top := boxAt(mgl64.Vec3{0, 0, 0.9}, mgl64.Vec3{1, 1, 1})
	bottom := boxAt(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})

	for _, limit := range []int{0, 1, 3} {
		cs, _ := Collide(top, bottom, limit)
		if len(cs) > limit {
			t.Errorf("cap %d: got %d contacts", limit, len(cs))
		}
	}
	if cs, _ := Collide(top, bottom, 30); len(cs) != 8 {
		t.Errorf("uncapped: got %d contacts, want 8", len(cs))
	}
}

func TestCollideDegenerate(t *testing.T) {
	_, err := Collide(sphereAt(mgl64.Vec3{}, 0), sphereAt(mgl64.Vec3{}, 1), 4)
	if !errors.Is(err, ErrDegenerateGeom) {
		t.Errorf("err = %v, want ErrDegenerateGeom", err)
	}
}

func TestSpaceCollideEachPairOnce(t *testing.T) {
	space := NewSpace()
	for i := 0; i < 4; i++ {
		g := NewSphere(space, 1)
		g.SetPosition(mgl64.Vec3{float64(i) * 0.1, 0, 0})
	}
	far := NewSphere(space, 1)
	far.SetPosition(mgl64.Vec3{100, 0, 0})

	seen := map[[2]*Geom]int{}
	space.Collide(func(g1, g2 *Geom) {
		if g1 == g2 {
			t.Fatal("geom paired with itself")
		}
		if g1 == far || g2 == far {
			t.Fatal("distant geom passed the broad phase")
		}
		seen[[2]*Geom{g1, g2}]++
	})
	if len(seen) != 6 {
		t.Errorf("visited %d pairs, want 6", len(seen))
	}
	for pair, n := range seen {
		if n != 1 || seen[[2]*Geom{pair[1], pair[0]}] != 0 {
			t.Errorf("pair visited more than once")
		}
	}
}

func TestDetachedGeomKeepsPose(t *testing.T) {
	w := NewWorld(nil)
	b := w.NewBody()
	b.SetPosition(mgl64.Vec3{1, 2, 3})
	g := NewSphere(nil, 0.5)
	g.SetBody(b)
	g.SetBody(nil)

	if g.Position() != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("detached at %v", g.Position())
	}
	g.SetPosition(mgl64.Vec3{})
	if b.Position() != (mgl64.Vec3{1, 2, 3}) {
		t.Error("moving a detached geom moved the body")
	}
}
