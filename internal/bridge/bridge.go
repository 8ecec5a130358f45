// Package bridge runs the dynamics and force-render sims over one scene graph.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hapsim/internal/config"
	"github.com/san-kum/hapsim/internal/haptics"
	"github.com/san-kum/hapsim/internal/physics"
	"github.com/san-kum/hapsim/internal/render"
	"github.com/san-kum/hapsim/internal/scene"
	"golang.org/x/sync/errgroup"
)

var (
	ErrShutdown    = errors.New("bridge: shut down")
	ErrNoBackend   = errors.New("bridge: no backend supports kind")
	ErrJointKind   = errors.New("bridge: kind is not a joint")
	ErrNotJoint    = errors.New("bridge: joints are created with join")
	ErrNoProbe     = errors.New("bridge: device cannot be moved from a script")
	ErrBadArgument = errors.New("bridge: bad argument")
)

type Bridge struct {
	cfg     *config.Config
	logger  *log.Logger
	graph   *scene.Graph
	physics *physics.Sim
	haptics *haptics.Sim
	device  render.Device
	ratio   int

	mu     sync.Mutex
	joints map[string][2]string
	shut   bool
}

// New builds both sims. A nil device is opened from the config.
func New(cfg *config.Config, device render.Device, logger *log.Logger) (*Bridge, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	if device == nil {
		d, err := render.OpenDevice(cfg.Haptics.Device)
		if err != nil {
			return nil, err
		}
		device = d
	}

	b := &Bridge{
		cfg:     cfg,
		logger:  logger,
		graph:   scene.NewGraph(),
		physics: physics.New(cfg.Physics, logger),
		haptics: haptics.New(cfg.Haptics, device, logger),
		device:  device,
		ratio:   cfg.RateRatio(),
		joints:  make(map[string][2]string),
	}
	if err := b.physics.Initialize(); err != nil {
		return nil, err
	}
	if err := b.haptics.Initialize(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bridge) Config() *config.Config { return b.cfg }
func (b *Bridge) Graph() *scene.Graph    { return b.graph }
func (b *Bridge) Physics() *physics.Sim  { return b.physics }
func (b *Bridge) Haptics() *haptics.Sim  { return b.haptics }
func (b *Bridge) Device() render.Device  { return b.device }

// Spec describes an object to create.
type Spec struct {
	Name    string
	Kind    scene.Kind
	Init    map[scene.Attr]scene.Value
	Mesh    string
	OpenTop bool
}

// Create adds an object and its bindings. On any failure the graph is left
// as it was.
func (b *Bridge) Create(sp Spec) (*scene.Object, error) {
	if err := b.live(); err != nil {
		return nil, err
	}
	if sp.Kind.IsJoint() {
		return nil, fmt.Errorf("%w: %s", ErrNotJoint, sp.Kind)
	}
	dyn, ren := b.physics.Supports(sp.Kind), b.haptics.Supports(sp.Kind)
	if !dyn && !ren {
		return nil, fmt.Errorf("%w: %s", ErrNoBackend, sp.Kind)
	}

	o := scene.New(sp.Name, sp.Kind)
	for _, a := range scene.Attrs(^uint32(0)) {
		if v, ok := sp.Init[a]; ok {
			if err := o.SetFromSimulation(a, v); err != nil {
				return nil, err
			}
		}
	}
	if err := b.graph.Add(o); err != nil {
		return nil, err
	}

	if dyn {
		if _, err := b.physics.Create(o, physics.JointSpec{}); err != nil {
			b.rollback(o)
			return nil, err
		}
	}
	if ren {
		if _, err := b.haptics.Create(o, haptics.ShapeOptions{MeshPath: sp.Mesh, OpenTop: sp.OpenTop}); err != nil {
			b.rollback(o)
			return nil, err
		}
	}
	return o, nil
}

// Join creates a constraint object between two named bodies. An empty b
// anchors a to the world.
func (b *Bridge) Join(name string, kind scene.Kind, a, other string, anchor, axis mgl64.Vec3) (*scene.Object, error) {
	if err := b.live(); err != nil {
		return nil, err
	}
	if !kind.IsJoint() {
		return nil, fmt.Errorf("%w: %s", ErrJointKind, kind)
	}
	js := physics.JointSpec{Anchor: anchor, Axis: axis}
	var err error
	if js.A, err = b.graph.Get(a); err != nil {
		return nil, err
	}
	if other != "" {
		if js.B, err = b.graph.Get(other); err != nil {
			return nil, err
		}
	}

	o := scene.New(name, kind)
	if err := b.graph.Add(o); err != nil {
		return nil, err
	}
	if _, err := b.physics.Create(o, js); err != nil {
		b.rollback(o)
		return nil, err
	}

	b.mu.Lock()
	b.joints[name] = [2]string{a, other}
	b.mu.Unlock()
	return o, nil
}

func (b *Bridge) rollback(o *scene.Object) {
	b.haptics.Destroy(o)
	b.physics.Destroy(o)
	o.Destroy()
	b.graph.Remove(o.Name())
}

// Delete removes an object, its bindings and the constraints that use it.
// Unknown names are ignored.
func (b *Bridge) Delete(name string) {
	o := b.graph.Remove(name)
	if o == nil {
		return
	}
	b.haptics.Destroy(o)
	b.physics.Destroy(o)
	o.Destroy()

	b.mu.Lock()
	delete(b.joints, name)
	var dependent []string
	for j, ends := range b.joints {
		if ends[0] == name || ends[1] == name {
			dependent = append(dependent, j)
		}
	}
	b.mu.Unlock()

	for _, j := range dependent {
		b.Delete(j)
	}
}

// Set writes one attribute through the request path.
func (b *Bridge) Set(name string, a scene.Attr, v scene.Value) error {
	o, err := b.graph.Get(name)
	if err != nil {
		return err
	}
	return o.SetFromRequest(a, v)
}

func (b *Bridge) Grab(name string) error {
	return b.Set(name, scene.AttrGrab, scene.Flag(true))
}

// Release clears the grab flag of name, or of the held object if name is
// empty. Nothing held is not an error.
func (b *Bridge) Release(name string) error {
	if name == "" {
		c := b.haptics.Cursor()
		if c == nil {
			return nil
		}
		o := c.Grabbed()
		if o == nil {
			return nil
		}
		return o.SetFromRequest(scene.AttrGrab, scene.Flag(false))
	}
	return b.Set(name, scene.AttrGrab, scene.Flag(false))
}

func (b *Bridge) SetGravity(g mgl64.Vec3) { b.physics.SetGravity(g) }

// MoveProbe places a simulated device's probe.
func (b *Bridge) MoveProbe(p mgl64.Vec3) error {
	d, ok := b.device.(*render.SimulatedDevice)
	if !ok {
		return ErrNoProbe
	}
	d.MoveTo(p)
	return nil
}

// Start opens the device session. The sims keep working if it fails.
func (b *Bridge) Start() error {
	if b.haptics.Cursor() == nil {
		return nil
	}
	return b.haptics.Start()
}

// Step advances one physics step and the matching haptic ticks.
func (b *Bridge) Step() error {
	if err := b.live(); err != nil {
		return err
	}
	if err := b.physics.Loop().Tick(); err != nil {
		return err
	}
	for i := 0; i < b.ratio; i++ {
		if err := b.haptics.Loop().Tick(); err != nil {
			return err
		}
	}
	return nil
}

// Run paces both loops in real time until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.live(); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.physics.Loop().Run(ctx) })
	g.Go(func() error { return b.haptics.Loop().Run(ctx) })
	return g.Wait()
}

// Shutdown stops the device session before releasing engine resources.
// Safe to repeat.
func (b *Bridge) Shutdown() {
	b.mu.Lock()
	if b.shut {
		b.mu.Unlock()
		return
	}
	b.shut = true
	b.mu.Unlock()

	b.haptics.Stop()
	b.haptics.Shutdown()
	b.physics.Shutdown()
	for _, o := range b.graph.List() {
		o.Destroy()
	}
}

func (b *Bridge) live() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shut {
		return ErrShutdown
	}
	return nil
}

// Time is the simulated time of the physics loop in seconds.
func (b *Bridge) Time() float64 {
	l := b.physics.Loop()
	return float64(l.Counter()) * l.Dt()
}
