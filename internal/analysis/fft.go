package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var ErrShortSignal = errors.New("analysis: signal too short")

// PowerSpectrum returns the magnitudes of the first half of the spectrum of
// data after removing its mean. Bin i is at frequency i/(len(data)*dt).
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	mean := 0.0
	for _, x := range data {
		mean += x
	}
	mean /= float64(len(data))

	centered := make([]float64, len(data))
	for i, x := range data {
		centered[i] = x - mean
	}
	spectrum := fft.FFTReal(centered)
	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantFrequency returns the frequency in Hz of the strongest bin above
// DC for data sampled every dt seconds. The peak is refined by parabolic
// interpolation between neighbouring bins.
func DominantFrequency(data []float64, dt float64) (float64, error) {
	if len(data) < 4 || !(dt > 0) {
		return 0, ErrShortSignal
	}
	ps := PowerSpectrum(data)
	best := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}
	if ps[best] == 0 {
		return 0, nil
	}

	bin := float64(best)
	if best+1 < len(ps) {
		a, b, c := ps[best-1], ps[best], ps[best+1]
		if d := a - 2*b + c; d != 0 {
			bin += 0.5 * (a - c) / d
		}
	}
	return bin / (float64(len(data)) * dt), nil
}

// Finite drops NaN and infinite samples, as written for objects missing from
// part of a trace.
func Finite(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, x := range data {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}
