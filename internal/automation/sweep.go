package automation

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hapsim/internal/bridge"
	"github.com/san-kum/hapsim/internal/config"
)

// params maps sweepable names to config setters.
var params = map[string]func(*config.Config, float64){
	"physics.bounce":           func(c *config.Config, v float64) { c.Physics.Bounce = v },
	"physics.erp":              func(c *config.Config, v float64) { c.Physics.ERP = v },
	"physics.rate_hz":          func(c *config.Config, v float64) { c.Physics.RateHz = v },
	"physics.default_mass":     func(c *config.Config, v float64) { c.Physics.DefaultMass = v },
	"haptics.max_force":        func(c *config.Config, v float64) { c.Haptics.MaxForce = v },
	"haptics.cursor.mass":      func(c *config.Config, v float64) { c.Haptics.Cursor.Mass = v },
	"haptics.cursor.stiffness": func(c *config.Config, v float64) { c.Haptics.Cursor.Stiffness = v },
	"haptics.cursor.damping":   func(c *config.Config, v float64) { c.Haptics.Cursor.Damping = v },
	"haptics.grab_stiffness":   func(c *config.Config, v float64) { c.Haptics.Cursor.GrabStiffness = v },
	"haptics.grab_damping":     func(c *config.Config, v float64) { c.Haptics.Cursor.GrabDamping = v },
}

func SweepParams() []string {
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Sweep reruns a scenario across evenly spaced values of one parameter.
type Sweep struct {
	Param    string
	Min, Max float64
	Count    int
}

type SweepResult struct {
	Value     float64
	Final     mgl64.Vec3
	MinEnergy float64
	MaxEnergy float64
	PeakForce float64
	Rejected  int
}

// RunSweep builds a fresh bridge per value from base. The tracked object's
// final position and the energy range of the run are reported.
func RunSweep(ctx context.Context, base *config.Config, sc *Scenario, sw Sweep, logger *log.Logger) ([]SweepResult, error) {
	set, ok := params[sw.Param]
	if !ok {
		return nil, fmt.Errorf("automation: unknown sweep parameter %q", sw.Param)
	}
	if sw.Count < 1 {
		return nil, fmt.Errorf("automation: sweep needs at least one value, got %d", sw.Count)
	}
	if logger == nil {
		logger = log.Default()
	}

	step := 0.0
	if sw.Count > 1 {
		step = (sw.Max - sw.Min) / float64(sw.Count-1)
	}

	results := make([]SweepResult, 0, sw.Count)
	for i := 0; i < sw.Count; i++ {
		v := sw.Min + float64(i)*step
		cfg := base.Clone()
		set(cfg, v)

		r, err := runOne(ctx, cfg, sc, logger)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sw.Param, v, err)
		}
		r.Value = v
		results = append(results, r)
		logger.Printf("sweep %d/%d: %s=%.4f", i+1, sw.Count, sw.Param, v)
	}
	return results, nil
}

func runOne(ctx context.Context, cfg *config.Config, sc *Scenario, logger *log.Logger) (SweepResult, error) {
	b, err := bridge.New(cfg, nil, logger)
	if err != nil {
		return SweepResult{}, err
	}
	defer b.Shutdown()

	r := SweepResult{MinEnergy: math.Inf(1), MaxEnergy: math.Inf(-1)}
	res, err := Run(ctx, b, sc, Options{
		Logger: logger,
		OnSample: func(s bridge.Snapshot) {
			k, p := b.Physics().Energy()
			r.MinEnergy = math.Min(r.MinEnergy, k+p)
			r.MaxEnergy = math.Max(r.MaxEnergy, k+p)
			r.PeakForce = math.Max(r.PeakForce, s.CursorForce.Len())
		},
	})
	if err != nil {
		return r, err
	}
	r.Rejected = res.Rejected
	if n := len(res.Samples); n > 0 {
		if o, ok := res.Samples[n-1].Find(sc.Track); ok {
			r.Final = o.Position
		}
	}
	return r, nil
}
