package physics

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hapsim/internal/config"
	"github.com/san-kum/hapsim/internal/dynamics"
	"github.com/san-kum/hapsim/internal/scene"
	"github.com/san-kum/hapsim/internal/sim"
)

var (
	ErrNotInitialized  = errors.New("physics: simulation not initialized")
	ErrUnsupportedKind = errors.New("physics: kind has no dynamics binding")
	ErrMissingEndpoint = errors.New("physics: constraint endpoint has no body")
	ErrSelfConstraint  = errors.New("physics: constraint endpoints are the same body")
)

// JointSpec carries the creation arguments of a constraint. B may be nil for
// the static world.
type JointSpec struct {
	A, B   *scene.Object
	Anchor mgl64.Vec3
	Axis   mgl64.Vec3
}

// Collision is one colliding pair of the last step.
type Collision struct {
	A, B   string
	Points int
}

type binding interface {
	scene.Binding
	Destroy() bool
}

type factory func(o *scene.Object, js JointSpec) (binding, error)

type Sim struct {
	cfg    config.PhysicsConfig
	logger *log.Logger
	loop   *sim.Loop

	mu           sync.Mutex
	world        *dynamics.World
	space        *dynamics.Space
	contacts     *dynamics.JointGroup
	factories    map[scene.Kind]factory
	bodies       []*Body
	constraints  []*Constraint
	lastContacts int
	collisions   []Collision
	shut         bool
}

func New(cfg config.PhysicsConfig, logger *log.Logger) *Sim {
	if logger == nil {
		logger = log.Default()
	}
	return &Sim{
		cfg:    cfg,
		logger: logger,
		loop:   sim.NewLoop("physics", cfg.RateHz, logger),
	}
}

func (s *Sim) Loop() *sim.Loop { return s.loop }

// Initialize allocates the engine and registers the object factories.
func (s *Sim) Initialize() error {
	s.mu.Lock()
	w := dynamics.NewWorld(s.logger)
	w.Gravity = s.cfg.GravityVec()
	if s.cfg.Iterations > 0 {
		w.Iterations = s.cfg.Iterations
	}
	w.ERP, w.CFM = s.cfg.ERP, s.cfg.CFM
	s.world = w
	s.space = dynamics.NewSpace()
	s.contacts = w.NewJointGroup()
	s.factories = map[scene.Kind]factory{
		scene.KindSphere: s.newSphere,
		scene.KindPrism:  s.newPrism,
		scene.KindHinge:  s.jointFactory(dynamics.JointHinge),
		scene.KindBall:   s.jointFactory(dynamics.JointBall),
		scene.KindFixed:  s.jointFactory(dynamics.JointFixed),
	}
	s.mu.Unlock()
	return s.loop.Initialize(s.step)
}

// Supports reports whether objects of kind get a dynamics binding.
func (s *Sim) Supports(kind scene.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.factories[kind]
	return ok
}

// Create builds the engine side of o and binds it to the object.
func (s *Sim) Create(o *scene.Object, js JointSpec) (scene.Binding, error) {
	s.mu.Lock()
	if s.world == nil || s.shut {
		s.mu.Unlock()
		return nil, ErrNotInitialized
	}
	f, ok := s.factories[o.Kind()]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, o.Kind())
	}
	b, err := f(o, js)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.Name(), err)
	}

	if err := o.Bind(scene.RoleDynamics, b); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

// Destroy detaches and releases the dynamics binding of o, cascading to
// every constraint on a body. Objects without one are ignored.
func (s *Sim) Destroy(o *scene.Object) {
	if b, ok := o.Unbind(scene.RoleDynamics).(binding); ok {
		b.Destroy()
	}
}

func (s *Sim) step(uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.world == nil {
		return ErrNotInitialized
	}

	s.collisions = s.collisions[:0]
	s.space.Collide(s.near)
	s.lastContacts = s.contacts.Len()

	s.world.Step(s.loop.Dt())

	for _, b := range s.bodies {
		b.publish()
	}
	for _, c := range s.constraints {
		c.stepped()
	}

	s.contacts.Empty()
	return nil
}

// near turns one broad-phase pair into contact joints.
func (s *Sim) near(g1, g2 *dynamics.Geom) {
	b1, b2 := g1.Body(), g2.Body()
	if b1 == nil && b2 == nil {
		return
	}
	if s.world.AreConnected(b1, b2) {
		return
	}

	points, err := dynamics.Collide(g1, g2, s.cfg.MaxContacts)
	if err != nil {
		s.logger.Printf("physics: %s/%s: %v", geomName(g1), geomName(g2), err)
		return
	}
	if len(points) == 0 {
		return
	}

	surface := s.surface(g1, g2)
	for _, p := range points {
		s.world.NewContact(s.contacts, dynamics.Contact{Geom: p, Surface: surface})
	}
	if s.cfg.ReportCollisions {
		s.collisions = append(s.collisions, Collision{A: geomName(g1), B: geomName(g2), Points: len(points)})
	}
}

// surface combines the two materials with the geometric mean, which is
// symmetric in its arguments.
func (s *Sim) surface(g1, g2 *dynamics.Geom) dynamics.Surface {
	st1, dy1 := geomFriction(g1)
	st2, dy2 := geomFriction(g2)
	return dynamics.Surface{
		MuStatic:  math.Sqrt(st1 * st2),
		MuDynamic: math.Sqrt(dy1 * dy2),
		Bounce:    s.cfg.Bounce,
	}
}

func geomFriction(g *dynamics.Geom) (float64, float64) {
	if b, ok := g.Data.(*Body); ok {
		return b.muStatic, b.muDynamic
	}
	return scene.DefaultFrictionStatic, scene.DefaultFrictionDynamic
}

func geomName(g *dynamics.Geom) string {
	if b, ok := g.Data.(*Body); ok {
		return b.obj.Name()
	}
	return "?"
}

// SetGravity changes gravity at the start of the next step.
func (s *Sim) SetGravity(g mgl64.Vec3) {
	s.loop.Post(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.world != nil {
			s.world.Gravity = g
		}
	})
}

func (s *Sim) Gravity() mgl64.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.world == nil {
		return s.cfg.GravityVec()
	}
	return s.world.Gravity
}

// LastStepContacts is the number of contact joints the last step created.
func (s *Sim) LastStepContacts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastContacts
}

// ActiveContacts is the current size of the contact group. It is zero
// between steps.
func (s *Sim) ActiveContacts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contacts == nil {
		return 0
	}
	return s.contacts.Len()
}

// Collisions returns the pairs that touched in the last step. It is empty
// unless collision reporting is enabled.
func (s *Sim) Collisions() []Collision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Collision(nil), s.collisions...)
}

func (s *Sim) BodyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func (s *Sim) ConstraintCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.constraints)
}

// Energy sums kinetic and gravitational potential energy of the free bodies.
func (s *Sim) Energy() (kinetic, potential float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.world == nil {
		return 0, 0
	}
	g := s.world.Gravity
	for _, b := range s.bodies {
		if b.handDriven {
			continue
		}
		m := b.body.Mass()
		v, w := b.body.LinearVel(), b.body.AngularVel()
		r := b.body.Rotation()
		iw := r.Mul3(m.Inertia).Mul3(r.Transpose())
		kinetic += 0.5*m.Total*v.Dot(v) + 0.5*w.Dot(iw.Mul3x1(w))
		potential -= m.Total * g.Dot(b.body.Position())
	}
	return kinetic, potential
}

// Shutdown stops the loop, then releases constraints before bodies. Safe to
// repeat.
func (s *Sim) Shutdown() {
	s.loop.Shutdown()

	s.mu.Lock()
	if s.shut {
		s.mu.Unlock()
		return
	}
	s.shut = true
	constraints := append([]*Constraint(nil), s.constraints...)
	bodies := append([]*Body(nil), s.bodies...)
	s.mu.Unlock()

	for _, c := range constraints {
		c.Destroy()
	}
	for _, b := range bodies {
		b.Destroy()
	}
}
