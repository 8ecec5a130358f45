// Package analysis inspects stored traces.
//
//   - [PowerSpectrum]: magnitude spectrum of a sampled signal
//   - [DominantFrequency]: strongest non-DC component, e.g. a pendulum's swing
//
// Traces are sampled at a fixed step, so a column of a run plus the
// sampling interval is all the input these need:
//
//	f, _ := analysis.DominantFrequency(bobX, dt)
//	period := 1 / f
package analysis
