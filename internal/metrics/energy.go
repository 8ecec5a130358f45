package metrics

import (
	"math"

	"github.com/san-kum/hapsim/internal/bridge"
)

// EnergySource reports the mechanical energy of a running simulation.
type EnergySource interface {
	Energy() (kinetic, potential float64)
}

// Energy is the mean total energy over the observed samples.
type Energy struct {
	name        string
	src         EnergySource
	samples     int
	totalEnergy float64
}

func NewEnergy(src EnergySource) *Energy {
	return &Energy{name: "energy", src: src}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(bridge.Snapshot) {
	ke, pe := e.src.Energy()
	e.totalEnergy += ke + pe
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative departure from the first sample.
type EnergyDrift struct {
	name          string
	src           EnergySource
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(src EnergySource) *EnergyDrift {
	return &EnergyDrift{name: "energy_drift", src: src}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(bridge.Snapshot) {
	ke, pe := e.src.Energy()
	energy := ke + pe

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Current() float64 { return e.currentEnergy }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
