package haptics

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/san-kum/hapsim/internal/config"
	"github.com/san-kum/hapsim/internal/render"
	"github.com/san-kum/hapsim/internal/scene"
	"github.com/san-kum/hapsim/internal/sim"
)

var (
	ErrNotInitialized  = errors.New("haptics: simulation not initialized")
	ErrUnsupportedKind = errors.New("haptics: kind has no render binding")
	ErrCursorExists    = errors.New("haptics: a cursor already exists")
	ErrNoCursor        = errors.New("haptics: no cursor")
	ErrNoMeshFile      = errors.New("haptics: mesh object needs a file")
)

// ShapeOptions carries creation arguments the attribute set has no room for.
type ShapeOptions struct {
	MeshPath string
	OpenTop  bool
}

type binding interface {
	scene.Binding
	Destroy() bool
}

type factory func(o *scene.Object, opts ShapeOptions) (binding, error)

type Sim struct {
	cfg    config.HapticsConfig
	logger *log.Logger
	loop   *sim.Loop
	device render.Device

	mu         sync.Mutex
	world      *render.World
	factories  map[scene.Kind]factory
	shapes     []*Shape
	cursor     *Cursor
	structural bool
	shut       bool
}

func New(cfg config.HapticsConfig, device render.Device, logger *log.Logger) *Sim {
	if logger == nil {
		logger = log.Default()
	}
	return &Sim{
		cfg:    cfg,
		logger: logger,
		loop:   sim.NewLoop("haptics", cfg.RateHz, logger),
		device: device,
	}
}

func (s *Sim) Loop() *sim.Loop       { return s.loop }
func (s *Sim) Device() render.Device { return s.device }

func (s *Sim) Initialize() error {
	s.mu.Lock()
	s.world = render.NewWorld()
	s.factories = map[scene.Kind]factory{
		scene.KindSphere: s.newSphere,
		scene.KindPrism:  s.newPrism,
		scene.KindMesh:   s.newMesh,
		scene.KindCursor: s.newCursor,
	}
	s.mu.Unlock()
	return s.loop.Initialize(s.step)
}

func (s *Sim) Supports(kind scene.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.factories[kind]
	return ok
}

// Create builds the render side of o and binds it to the object.
func (s *Sim) Create(o *scene.Object, opts ShapeOptions) (scene.Binding, error) {
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
	b, err := f(o, opts)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.Name(), err)
	}

	if err := o.Bind(scene.RoleRender, b); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

// Destroy detaches and releases the render binding of o. A held object is
// let go first.
func (s *Sim) Destroy(o *scene.Object) {
	if b, ok := o.Unbind(scene.RoleRender).(binding); ok {
		b.Destroy()
	}
}

func (s *Sim) step(uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.world == nil {
		return ErrNotInitialized
	}

	for _, sh := range s.shapes {
		sh.resync()
	}
	if s.structural {
		s.world.ComputeGlobalPositions()
		s.structural = false
	}
	if s.cursor != nil {
		s.cursor.tick()
	}
	return nil
}

// Cursor returns the cursor binding, nil until a cursor object is created.
func (s *Sim) Cursor() *Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Sim) ShapeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shapes)
}

// Start starts the device under the cursor.
func (s *Sim) Start() error {
	c := s.Cursor()
	if c == nil {
		return ErrNoCursor
	}
	return c.Start()
}

// Stop zeroes and stops the device. Safe without Start.
func (s *Sim) Stop() {
	if c := s.Cursor(); c != nil {
		c.Stop()
	}
}

// Shutdown stops the loop and releases every binding. Safe to repeat.
func (s *Sim) Shutdown() {
	s.Stop()
	s.loop.Shutdown()

	s.mu.Lock()
	if s.shut {
		s.mu.Unlock()
		return
	}
	s.shut = true
	shapes := append([]*Shape(nil), s.shapes...)
	s.mu.Unlock()

	for _, sh := range shapes {
		sh.Destroy()
	}
}
