package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Physics.MaxContacts != 30 {
		t.Errorf("expected max_contacts 30, got %d", cfg.Physics.MaxContacts)
	}
	if cfg.Haptics.Integrator != "rk4" {
		t.Errorf("expected rk4 cursor integrator, got %s", cfg.Haptics.Integrator)
	}
	if g := cfg.Physics.GravityVec(); g.Len() != 0 {
		t.Errorf("expected zero default gravity, got %v", g)
	}
	if cfg.RateRatio() != 10 {
		t.Errorf("expected rate ratio 10, got %d", cfg.RateRatio())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"zero physics rate", func(c *Config) { c.Physics.RateHz = 0 }},
		{"haptics slower than physics", func(c *Config) { c.Haptics.RateHz = 10 }},
		{"short gravity", func(c *Config) { c.Physics.Gravity = []float64{0, -9.81} }},
		{"no contacts", func(c *Config) { c.Physics.MaxContacts = 0 }},
		{"erp above one", func(c *Config) { c.Physics.ERP = 1.5 }},
		{"zero default mass", func(c *Config) { c.Physics.DefaultMass = 0 }},
		{"zero max force", func(c *Config) { c.Haptics.MaxForce = 0 }},
		{"negative extra ticks", func(c *Config) { c.Haptics.ExtraForceTicks = -1 }},
		{"zero cursor mass", func(c *Config) { c.Haptics.Cursor.Mass = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hapsim.yaml")
	cfg := GetPreset("grasp", "stiff")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Haptics.Cursor.GrabStiffness != 600 {
		t.Errorf("expected grab stiffness 600, got %f", loaded.Haptics.Cursor.GrabStiffness)
	}
	if !loaded.Haptics.ContactForce {
		t.Error("expected contact force enabled")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	cfg := DefaultConfig()
	cfg.Physics.MaxContacts = -3
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("drop", "moon")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Physics.Gravity[2] != -1.62 {
		t.Errorf("expected lunar gravity, got %v", cfg.Physics.Gravity)
	}
	for scene, presets := range Presets {
		for name, p := range presets {
			if err := p.Validate(); err != nil {
				t.Errorf("preset %s/%s invalid: %v", scene, name, err)
			}
		}
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("drop", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "earth") != nil {
		t.Error("expected nil for nonexistent scene")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("grasp")
	want := []string{"soft", "stiff", "weightless"}
	if len(presets) != len(want) {
		t.Fatalf("expected %v, got %v", want, presets)
	}
	for i := range want {
		if presets[i] != want[i] {
			t.Errorf("expected %v, got %v", want, presets)
		}
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent scene")
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := GetPreset("drop", "earth")
	c := p.Clone()
	c.Physics.Gravity[2] = 0
	c.Haptics.MaxForce = 1
	if p.Physics.Gravity[2] != -9.81 {
		t.Errorf("preset gravity changed to %v", p.Physics.Gravity)
	}
	if p.Haptics.MaxForce != DefaultMaxForce {
		t.Errorf("preset max force changed to %v", p.Haptics.MaxForce)
	}
}
