package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPhysicsRate = 100.0
	DefaultHapticRate  = 1000.0
	DefaultMaxContacts = 30
	DefaultIterations  = 20
	DefaultERP         = 0.2
	DefaultCFM         = 1e-5
	DefaultMass        = 1.0
	DefaultDuration    = 10.0

	DefaultCursorMass      = 0.1
	DefaultCursorStiffness = 400.0
	DefaultCursorDamping   = 6.0
	DefaultCursorRadius    = 0.05
	DefaultGrabStiffness   = 200.0
	DefaultGrabDamping     = 4.0
	DefaultMaxForce        = 3.3
	DefaultExtraForceTicks = 10
	DefaultPublishEvery    = 10
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Scene    string        `yaml:"scene"`
	Duration float64       `yaml:"duration"`
	DataDir  string        `yaml:"data_dir"`
	Physics  PhysicsConfig `yaml:"physics"`
	Haptics  HapticsConfig `yaml:"haptics"`
}

type PhysicsConfig struct {
	RateHz           float64   `yaml:"rate_hz"`
	Gravity          []float64 `yaml:"gravity"`
	MaxContacts      int       `yaml:"max_contacts"`
	Iterations       int       `yaml:"iterations"`
	ERP              float64   `yaml:"erp"`
	CFM              float64   `yaml:"cfm"`
	Bounce           float64   `yaml:"bounce"`
	DefaultMass      float64   `yaml:"default_mass"`
	ReportCollisions bool      `yaml:"report_collisions"`
}

type HapticsConfig struct {
	RateHz           float64      `yaml:"rate_hz"`
	Device           string       `yaml:"device"`
	Integrator       string       `yaml:"integrator"`
	PublishEvery     int          `yaml:"publish_every"`
	ExtraForceTicks  int          `yaml:"extra_force_ticks"`
	MaxForce         float64      `yaml:"max_force"`
	ContactForce     bool         `yaml:"contact_force"`
	ContactStiffness float64      `yaml:"contact_stiffness"`
	Cursor           CursorConfig `yaml:"cursor"`
}

type CursorConfig struct {
	Mass          float64 `yaml:"mass"`
	Stiffness     float64 `yaml:"stiffness"`
	Damping       float64 `yaml:"damping"`
	Radius        float64 `yaml:"radius"`
	GrabStiffness float64 `yaml:"grab_stiffness"`
	GrabDamping   float64 `yaml:"grab_damping"`
}

func DefaultConfig() *Config {
	return &Config{
		Scene:    "drop",
		Duration: DefaultDuration,
		DataDir:  "data",
		Physics: PhysicsConfig{
			RateHz:      DefaultPhysicsRate,
			Gravity:     []float64{0, 0, 0},
			MaxContacts: DefaultMaxContacts,
			Iterations:  DefaultIterations,
			ERP:         DefaultERP,
			CFM:         DefaultCFM,
			DefaultMass: DefaultMass,
		},
		Haptics: HapticsConfig{
			RateHz:           DefaultHapticRate,
			Device:           "simulated",
			Integrator:       "rk4",
			PublishEvery:     DefaultPublishEvery,
			ExtraForceTicks:  DefaultExtraForceTicks,
			MaxForce:         DefaultMaxForce,
			ContactStiffness: 300,
			Cursor: CursorConfig{
				Mass:          DefaultCursorMass,
				Stiffness:     DefaultCursorStiffness,
				Damping:       DefaultCursorDamping,
				Radius:        DefaultCursorRadius,
				GrabStiffness: DefaultGrabStiffness,
				GrabDamping:   DefaultGrabDamping,
			},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first out-of-range field.
func (c *Config) Validate() error {
	bad := func(field string, v any) error {
		return fmt.Errorf("%w: %s = %v", ErrInvalid, field, v)
	}
	p, h := c.Physics, c.Haptics
	switch {
	case !(p.RateHz > 0):
		return bad("physics.rate_hz", p.RateHz)
	case !(h.RateHz > 0):
		return bad("haptics.rate_hz", h.RateHz)
	case h.RateHz < p.RateHz:
		return bad("haptics.rate_hz below physics.rate_hz", h.RateHz)
	case len(p.Gravity) != 3:
		return bad("physics.gravity", p.Gravity)
	case p.MaxContacts < 1:
		return bad("physics.max_contacts", p.MaxContacts)
	case p.Iterations < 1:
		return bad("physics.iterations", p.Iterations)
	case p.ERP < 0 || p.ERP > 1:
		return bad("physics.erp", p.ERP)
	case p.CFM < 0:
		return bad("physics.cfm", p.CFM)
	case !(p.DefaultMass > 0):
		return bad("physics.default_mass", p.DefaultMass)
	case h.PublishEvery < 1:
		return bad("haptics.publish_every", h.PublishEvery)
	case h.ExtraForceTicks < 0:
		return bad("haptics.extra_force_ticks", h.ExtraForceTicks)
	case !(h.MaxForce > 0):
		return bad("haptics.max_force", h.MaxForce)
	case !(h.Cursor.Mass > 0):
		return bad("haptics.cursor.mass", h.Cursor.Mass)
	case h.Cursor.Stiffness < 0 || h.Cursor.Damping < 0:
		return bad("haptics.cursor stiffness/damping", h.Cursor)
	case !(h.Cursor.Radius > 0):
		return bad("haptics.cursor.radius", h.Cursor.Radius)
	case c.Duration < 0:
		return bad("duration", c.Duration)
	}
	return nil
}

// Clone returns a deep copy, so presets can be edited without touching the
// shared table.
func (c *Config) Clone() *Config {
	out := *c
	out.Physics.Gravity = append([]float64(nil), c.Physics.Gravity...)
	return &out
}

func (p PhysicsConfig) GravityVec() mgl64.Vec3 {
	if len(p.Gravity) != 3 {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{p.Gravity[0], p.Gravity[1], p.Gravity[2]}
}

// RateRatio is the number of haptic ticks per physics step, at least one.
func (c *Config) RateRatio() int {
	r := int(math.Round(c.Haptics.RateHz / c.Physics.RateHz))
	if r < 1 {
		return 1
	}
	return r
}
