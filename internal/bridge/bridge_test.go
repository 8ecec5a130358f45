package bridge

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hapsim/internal/config"
	"github.com/san-kum/hapsim/internal/haptics"
	"github.com/san-kum/hapsim/internal/physics"
	"github.com/san-kum/hapsim/internal/render"
	"github.com/san-kum/hapsim/internal/scene"
	"gopkg.in/yaml.v3"
)

func newBridge(t *testing.T) (*Bridge, *render.SimulatedDevice) {
	t.Helper()
	dev := render.NewSimulatedDevice()
	b, err := New(config.DefaultConfig(), dev, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(b.Shutdown)
	return b, dev
}

func sphere(name string, pos mgl64.Vec3, radius float64) Spec {
	return Spec{
		Name: name,
		Kind: scene.KindSphere,
		Init: map[scene.Attr]scene.Value{
			scene.AttrPosition: scene.VecOf(pos),
			scene.AttrRadius:   scene.Num(radius),
		},
	}
}

func steps(t *testing.T, b *Bridge, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := b.Step(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDropProducesTransientContacts(t *testing.T) {
	b, _ := newBridge(t)
	if _, err := b.Create(sphere("s1", mgl64.Vec3{}, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Create(sphere("s2", mgl64.Vec3{0, 5, 0}, 0.5)); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Join("pin", scene.KindFixed, "s1", "", mgl64.Vec3{}, mgl64.Vec3{}); err != nil {
		t.Fatal(err)
	}
	b.SetGravity(mgl64.Vec3{0, -9.8, 0})

	s2, _ := b.Graph().Get("s2")
	touched := -1
	for i := 0; i < 300 && touched < 0; i++ {
		steps(t, b, 1)
		if n := b.Physics().ActiveContacts(); n != 0 {
			t.Fatalf("step %d: %d contacts carried past the step", i, n)
		}
		if b.Physics().LastStepContacts() > 0 {
			touched = i
		}
	}
	if touched < 0 {
		t.Fatal("s2 never reached s1")
	}
	if gap := s2.Position().Y() - 0.5 - 1; gap > 0.1 {
		t.Errorf("contact reported with a gap of %v", gap)
	}

	steps(t, b, 1)
	if n := b.Physics().ActiveContacts(); n != 0 {
		t.Errorf("%d contacts left after the following step", n)
	}
}

func TestCreateRollsBack(t *testing.T) {
	b, _ := newBridge(t)
	if _, err := b.Create(sphere("s", mgl64.Vec3{}, 0.5)); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Create(Spec{Name: "cursor", Kind: scene.KindCursor}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		spec Spec
		want error
	}{
		{"duplicate", sphere("s", mgl64.Vec3{1, 0, 0}, 0.5), scene.ErrDuplicateName},
		{"mesh without file", Spec{Name: "m", Kind: scene.KindMesh}, haptics.ErrNoMeshFile},
		{"second cursor", Spec{Name: "cursor2", Kind: scene.KindCursor}, haptics.ErrCursorExists},
		{"joint kind", Spec{Name: "h", Kind: scene.KindHinge}, ErrNotJoint},
		{"bad init", Spec{Name: "x", Kind: scene.KindSphere, Init: map[scene.Attr]scene.Value{scene.AttrRadius: scene.Vec(1, 1, 1)}}, scene.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.Create(tt.spec); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if n := b.Graph().Len(); n != 2 {
		t.Errorf("graph has %d objects, want 2", n)
	}
	if n := b.Physics().BodyCount(); n != 1 {
		t.Errorf("bodies = %d, want 1", n)
	}
	if n := b.Haptics().ShapeCount(); n != 1 {
		t.Errorf("shapes = %d, want 1", n)
	}
	s, _ := b.Graph().Get("s")
	if s.Position() != (mgl64.Vec3{}) || s.Binding(scene.RoleDynamics) == nil {
		t.Error("duplicate create disturbed the existing object")
	}
}

func TestJoinRejects(t *testing.T) {
	b, _ := newBridge(t)
	if _, err := b.Create(sphere("a", mgl64.Vec3{}, 0.5)); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Create(Spec{Name: "cursor", Kind: scene.KindCursor}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		kind scene.Kind
		a, b string
		want error
	}{
		{"unknown endpoint", scene.KindHinge, "missing", "", scene.ErrNotFound},
		{"not a joint", scene.KindSphere, "a", "", ErrJointKind},
		{"bodiless endpoint", scene.KindBall, "a", "cursor", physics.ErrMissingEndpoint},
		{"self", scene.KindFixed, "a", "a", physics.ErrSelfConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.Join("j", tt.kind, tt.a, tt.b, mgl64.Vec3{}, mgl64.Vec3{}); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if _, err := b.Graph().Get("j"); err == nil {
				t.Error("failed join left an object behind")
			}
		})
	}
}

func TestDeleteCascades(t *testing.T) {
	b, _ := newBridge(t)
	for _, sp := range []Spec{sphere("s1", mgl64.Vec3{}, 0.5), sphere("s2", mgl64.Vec3{2, 0, 0}, 0.5)} {
		if _, err := b.Create(sp); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := b.Join("h", scene.KindHinge, "s1", "s2", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 1}); err != nil {
		t.Fatal(err)
	}
	h, _ := b.Graph().Get("h")

	b.Delete("s1")
	if _, err := b.Graph().Get("h"); err == nil {
		t.Error("constraint survived its endpoint")
	}
	if !h.Destroyed() {
		t.Error("constraint object not destroyed")
	}
	if n := b.Physics().ConstraintCount(); n != 0 {
		t.Errorf("constraints = %d", n)
	}
	if n := b.Physics().BodyCount(); n != 1 {
		t.Errorf("bodies = %d", n)
	}
	if n := b.Haptics().ShapeCount(); n != 1 {
		t.Errorf("shapes = %d", n)
	}

	b.Delete("s1")
	b.Delete("missing")
	steps(t, b, 2)
}

const script = `
- op: create
  name: ball
  kind: sphere
  init:
    position: [0, 0, 1]
    radius: [0.25]
- op: set
  name: ball
  attr: velocity
  value: [1, 0, 0]
- op: gravity
  value: [0, 0, -1]
- op: probe
  value: [0.1, 0, 0]
`

func TestApplyCommands(t *testing.T) {
	b, dev := newBridge(t)
	var cmds []Command
	if err := yaml.Unmarshal([]byte(script), &cmds); err != nil {
		t.Fatal(err)
	}
	for _, c := range cmds {
		if err := b.Apply(c); err != nil {
			t.Fatalf("%v: %v", c, err)
		}
	}
	steps(t, b, 1)

	ball, err := b.Graph().Get("ball")
	if err != nil {
		t.Fatal(err)
	}
	if ball.Radius() != 0.25 {
		t.Errorf("radius = %v", ball.Radius())
	}
	if p := ball.Position(); !(p.X() > 0) || !(p.Z() < 1) {
		t.Errorf("ball at %v after one step", p)
	}
	if g := b.Physics().Gravity(); g != (mgl64.Vec3{0, 0, -1}) {
		t.Errorf("gravity = %v", g)
	}
	if p := dev.Position(); p != (mgl64.Vec3{0.1, 0, 0}) {
		t.Errorf("probe = %v", p)
	}

	bad := []Command{
		{Op: "explode"},
		{Op: OpSet, Name: "ball", Attr: "velocity", Value: []float64{1}},
		{Op: OpSet, Name: "ball", Attr: "spin", Value: []float64{1}},
		{Op: OpSet, Name: "nobody", Attr: "mass", Value: []float64{1}},
		{Op: OpGravity, Value: []float64{0, 1}},
		{Op: OpCreate, Name: "q", Kind: "torus"},
		{Op: OpJoin, Name: "j", Kind: "hinge", A: "ball", Axis: []float64{1}},
	}
	for _, c := range bad {
		if err := b.Apply(c); err == nil {
			t.Errorf("%v accepted", c)
		}
	}

	if err := b.Apply(Command{Op: OpDelete, Name: "ball"}); err != nil {
		t.Fatal(err)
	}
	if b.Graph().Len() != 0 {
		t.Error("delete left the ball")
	}
}

func TestGrabThroughBridge(t *testing.T) {
	b, dev := newBridge(t)
	if _, err := b.Create(Spec{Name: "cursor", Kind: scene.KindCursor}); err != nil {
		t.Fatal(err)
	}
	box, err := b.Create(Spec{Name: "box", Kind: scene.KindPrism})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}
	body := box.Binding(scene.RoleDynamics).(*physics.Body)

	if err := b.Grab("box"); err != nil {
		t.Fatal(err)
	}
	steps(t, b, 2)
	if !body.HandDriven() {
		t.Fatal("grabbed body still free")
	}

	dev.MoveTo(mgl64.Vec3{0.2, 0, 0})
	steps(t, b, 200)
	if d := box.Position().Sub(mgl64.Vec3{0.2, 0, 0}).Len(); d > 1e-2 {
		t.Errorf("box %v from the probe", d)
	}
	if d := body.Position().Sub(box.Position()).Len(); d > 1e-2 {
		t.Errorf("engine geometry %v behind the object", d)
	}
	if snap := b.Snapshot(); snap.Held != "box" {
		t.Errorf("held = %q", snap.Held)
	}

	if err := b.Release(""); err != nil {
		t.Fatal(err)
	}
	steps(t, b, 2)
	if body.HandDriven() || box.Grab() {
		t.Error("release did not hand the body back")
	}
	if err := b.Release(""); err != nil {
		t.Errorf("release with nothing held: %v", err)
	}
}

func TestStartFailureKeepsSimRunning(t *testing.T) {
	b, dev := newBridge(t)
	if _, err := b.Create(Spec{Name: "cursor", Kind: scene.KindCursor}); err != nil {
		t.Fatal(err)
	}
	sp := sphere("s", mgl64.Vec3{}, 0.5)
	sp.Init[scene.AttrVelocity] = scene.Vec(1, 0, 0)
	s, err := b.Create(sp)
	if err != nil {
		t.Fatal(err)
	}

	dev.FailStart()
	if err := b.Start(); !errors.Is(err, render.ErrDeviceStart) {
		t.Fatalf("err = %v", err)
	}
	steps(t, b, 10)
	if x := s.Position().X(); math.Abs(x-0.1) > 1e-9 {
		t.Errorf("x = %v, want 0.1", x)
	}
	if f := b.Snapshot().CursorForce; f != (mgl64.Vec3{}) {
		t.Errorf("force %v from an uninitialized cursor", f)
	}
}

func TestShutdown(t *testing.T) {
	b, dev := newBridge(t)
	if _, err := b.Create(Spec{Name: "cursor", Kind: scene.KindCursor}); err != nil {
		t.Fatal(err)
	}
	s, err := b.Create(sphere("s", mgl64.Vec3{}, 0.5))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}

	b.Shutdown()
	b.Shutdown()
	if dev.Started() {
		t.Error("device still started")
	}
	if !s.Destroyed() {
		t.Error("objects survived shutdown")
	}
	if err := b.Step(); !errors.Is(err, ErrShutdown) {
		t.Errorf("step after shutdown: %v", err)
	}
	if _, err := b.Create(sphere("t", mgl64.Vec3{}, 0.5)); !errors.Is(err, ErrShutdown) {
		t.Errorf("create after shutdown: %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	b, _ := newBridge(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	if err := b.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
	if b.Physics().Loop().Counter() == 0 || b.Haptics().Loop().Counter() == 0 {
		t.Error("loops never ticked")
	}
}

func TestSnapshot(t *testing.T) {
	b, _ := newBridge(t)
	for _, sp := range []Spec{sphere("b", mgl64.Vec3{0, 0, 2}, 0.5), sphere("a", mgl64.Vec3{}, 0.5)} {
		if _, err := b.Create(sp); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := b.Join("pin", scene.KindFixed, "a", "", mgl64.Vec3{}, mgl64.Vec3{}); err != nil {
		t.Fatal(err)
	}
	steps(t, b, 5)

	snap := b.Snapshot()
	if math.Abs(snap.Time-0.05) > 1e-9 {
		t.Errorf("time = %v", snap.Time)
	}
	if len(snap.Objects) != 2 || snap.Objects[0].Name != "a" || snap.Objects[1].Name != "b" {
		t.Fatalf("objects = %+v", snap.Objects)
	}
	if o, ok := snap.Find("b"); !ok || o.Position != (mgl64.Vec3{0, 0, 2}) {
		t.Errorf("b = %+v", o)
	}
	if _, ok := snap.Find("pin"); ok {
		t.Error("joints are not listed")
	}
}
