package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrDeviceStart   = errors.New("render: device failed to start")
	ErrUnknownDevice = errors.New("render: unknown device")
)

// Device is a haptic interface: a tracked probe that can push back.
type Device interface {
	Start() error
	Stop() error
	Position() mgl64.Vec3
	SetForce(f mgl64.Vec3)
}

// Pointer is the proxy of the device inside the render world.
type Pointer struct {
	Color   mgl64.Vec3
	Radius  float64
	Visible bool

	mu    sync.Mutex
	pos   mgl64.Vec3
	force mgl64.Vec3
}

func NewPointer() *Pointer {
	return &Pointer{Color: mgl64.Vec3{1, 1, 0}, Radius: 0.05, Visible: true}
}

func (p *Pointer) Update(pos, force mgl64.Vec3) {
	p.mu.Lock()
	p.pos, p.force = pos, force
	p.mu.Unlock()
}

func (p *Pointer) Position() mgl64.Vec3 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

// Force is the last force commanded to the device.
func (p *Pointer) Force() mgl64.Vec3 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.force
}

// SimulatedDevice is an in-process device. The probe goes where MoveTo puts
// it and forces are recorded, not felt.
type SimulatedDevice struct {
	mu       sync.Mutex
	pos      mgl64.Vec3
	force    mgl64.Vec3
	started  bool
	failNext bool
	commands uint64
}

func NewSimulatedDevice() *SimulatedDevice {
	return &SimulatedDevice{}
}

// FailStart makes the next Start fail.
func (d *SimulatedDevice) FailStart() {
	d.mu.Lock()
	d.failNext = true
	d.mu.Unlock()
}

func (d *SimulatedDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failNext {
		d.failNext = false
		return ErrDeviceStart
	}
	d.started = true
	return nil
}

func (d *SimulatedDevice) Stop() error {
	d.mu.Lock()
	d.started = false
	d.force = mgl64.Vec3{}
	d.mu.Unlock()
	return nil
}

func (d *SimulatedDevice) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

func (d *SimulatedDevice) MoveTo(p mgl64.Vec3) {
	d.mu.Lock()
	d.pos = p
	d.mu.Unlock()
}

// MoveBy shifts the probe by delta.
func (d *SimulatedDevice) MoveBy(delta mgl64.Vec3) {
	d.mu.Lock()
	d.pos = d.pos.Add(delta)
	d.mu.Unlock()
}

func (d *SimulatedDevice) Position() mgl64.Vec3 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

// SetForce is ignored while the device is stopped.
func (d *SimulatedDevice) SetForce(f mgl64.Vec3) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return
	}
	d.force = f
	d.commands++
}

func (d *SimulatedDevice) LastForce() mgl64.Vec3 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.force
}

func (d *SimulatedDevice) Commands() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commands
}

// OpenDevice resolves a configured device name.
func OpenDevice(name string) (Device, error) {
	switch name {
	case "", "simulated":
		return NewSimulatedDevice(), nil
	case "unplugged":
		d := NewSimulatedDevice()
		d.FailStart()
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
}
