package config

import "sort"

func preset(scene string, gravity []float64, edit func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Scene = scene
	cfg.Physics.Gravity = gravity
	if edit != nil {
		edit(cfg)
	}
	return cfg
}

var earth = []float64{0, 0, -9.81}

var Presets = map[string]map[string]*Config{
	"drop": {
		"earth": preset("drop", earth, nil),
		"moon":  preset("drop", []float64{0, 0, -1.62}, nil),
		"bouncy": preset("drop", earth, func(c *Config) {
			c.Physics.Bounce = 0.6
			c.Physics.ReportCollisions = true
		}),
	},
	"pendulum": {
		"free": preset("pendulum", earth, func(c *Config) { c.Duration = 20 }),
		"slow": preset("pendulum", earth, func(c *Config) {
			c.Physics.RateHz = 50
			c.Haptics.RateHz = 500
		}),
	},
	"grasp": {
		"stiff": preset("grasp", earth, func(c *Config) {
			c.Haptics.Cursor.GrabStiffness = 600
			c.Haptics.Cursor.GrabDamping = 8
			c.Haptics.ContactForce = true
		}),
		"soft": preset("grasp", earth, func(c *Config) {
			c.Haptics.Cursor.GrabStiffness = 80
			c.Haptics.Cursor.GrabDamping = 2
		}),
		"weightless": preset("grasp", []float64{0, 0, 0}, nil),
	},
}

func GetPreset(scene, name string) *Config {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	cfg, ok := scenePresets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(scene string) []string {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
