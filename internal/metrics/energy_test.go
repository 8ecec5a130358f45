package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hapsim/internal/bridge"
)

type fixedEnergy struct {
	ke, pe float64
}

func (f *fixedEnergy) Energy() (float64, float64) { return f.ke, f.pe }

func TestEnergyAverage(t *testing.T) {
	src := &fixedEnergy{ke: 1, pe: 2}
	m := NewEnergy(src)

	m.Observe(bridge.Snapshot{})
	src.ke = 3
	m.Observe(bridge.Snapshot{})

	if got := m.Value(); math.Abs(got-4) > 1e-12 {
		t.Errorf("expected energy 4, got %f", got)
	}
}

func TestEnergyReset(t *testing.T) {
	m := NewEnergy(&fixedEnergy{ke: 1})
	m.Observe(bridge.Snapshot{})
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	src := &fixedEnergy{ke: 10}
	m := NewEnergyDrift(src)

	for _, ke := range []float64{10, 11, 9.5, 10} {
		src.ke = ke
		m.Observe(bridge.Snapshot{})
	}
	if got := m.Value(); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("expected drift 0.1, got %f", got)
	}
	if m.Current() != 10 {
		t.Errorf("current = %v", m.Current())
	}
}

func TestStability(t *testing.T) {
	m := NewStability(10)
	calm := bridge.Snapshot{Objects: []bridge.ObjectState{{Position: mgl64.Vec3{1, 0, 0}}}}
	far := bridge.Snapshot{Objects: []bridge.ObjectState{{Position: mgl64.Vec3{0, 0, 20}}}}
	broken := bridge.Snapshot{Objects: []bridge.ObjectState{{Position: mgl64.Vec3{math.NaN(), 0, 0}}}}

	if m.Value() != 1 {
		t.Error("expected full stability before samples")
	}
	for _, s := range []bridge.Snapshot{calm, far, broken, calm} {
		m.Observe(s)
	}
	if got := m.Value(); got != 0.5 {
		t.Errorf("expected stability 0.5, got %f", got)
	}
}

func TestForceEffort(t *testing.T) {
	m := NewForceEffort()
	m.Observe(bridge.Snapshot{CursorForce: mgl64.Vec3{3, 4, 0}})
	m.Observe(bridge.Snapshot{CursorForce: mgl64.Vec3{1, 0, 0}})

	if m.Value() != 3 || m.Peak() != 5 {
		t.Errorf("mean %v peak %v", m.Value(), m.Peak())
	}
	vals := Values([]Metric{m, NewStability(1)})
	if vals["force_effort"] != 3 || vals["stability"] != 1 {
		t.Errorf("values = %v", vals)
	}
}

func TestJitter(t *testing.T) {
	j := NewJitter("haptics")
	period := time.Millisecond
	for _, d := range []time.Duration{200 * time.Microsecond, 400 * time.Microsecond, 3 * time.Millisecond} {
		j.ObserveTick(period, d)
	}

	st := j.Stats()
	if st.Ticks != 3 || st.Overruns != 1 || st.Worst != 3*time.Millisecond {
		t.Errorf("stats = %+v", st)
	}
	if st.Mean != 1200*time.Microsecond {
		t.Errorf("mean = %v", st.Mean)
	}
	if got := j.Value(); math.Abs(got-1.0/3) > 1e-12 {
		t.Errorf("overrun fraction %v", got)
	}

	j.Reset()
	if j.Stats().Ticks != 0 || j.Value() != 0 {
		t.Error("reset kept samples")
	}
}
