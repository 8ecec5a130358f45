package analysis

import (
	"errors"
	"math"
	"testing"
)

func sine(freq, dt float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 3 + math.Sin(2*math.Pi*freq*float64(i)*dt)
	}
	return out
}

func TestDominantFrequency(t *testing.T) {
	tests := []struct {
		name string
		freq float64
		dt   float64
		n    int
	}{
		{"on bin", 2, 0.01, 500},
		{"between bins", 0.45, 0.01, 1000},
		{"odd length", 5, 0.001, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DominantFrequency(sine(tt.freq, tt.dt, tt.n), tt.dt)
			if err != nil {
				t.Fatal(err)
			}
			resolution := 1 / (float64(tt.n) * tt.dt)
			if math.Abs(got-tt.freq) > resolution/2 {
				t.Errorf("frequency = %v, want %v within %v", got, tt.freq, resolution/2)
			}
		})
	}
}

func TestDominantFrequencyRejectsShortInput(t *testing.T) {
	if _, err := DominantFrequency([]float64{1, 2}, 0.01); !errors.Is(err, ErrShortSignal) {
		t.Errorf("err = %v", err)
	}
	if _, err := DominantFrequency(sine(1, 0.01, 100), 0); !errors.Is(err, ErrShortSignal) {
		t.Errorf("zero dt: err = %v", err)
	}
}

func TestPowerSpectrumRemovesMean(t *testing.T) {
	ps := PowerSpectrum([]float64{5, 5, 5, 5, 5, 5, 5, 5})
	for i, v := range ps {
		if v > 1e-9 {
			t.Errorf("bin %d = %v for a constant signal", i, v)
		}
	}
}

func TestFinite(t *testing.T) {
	got := Finite([]float64{1, math.NaN(), 2, math.Inf(1), 3})
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("Finite = %v", got)
	}
}
