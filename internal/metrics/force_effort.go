package metrics

import "github.com/san-kum/hapsim/internal/bridge"

// ForceEffort is the mean magnitude of the force sent to the device.
type ForceEffort struct {
	name    string
	sum     float64
	peak    float64
	samples int
}

func NewForceEffort() *ForceEffort {
	return &ForceEffort{
		name: "force_effort",
	}
}

func (c *ForceEffort) Name() string {
	return c.name
}

func (c *ForceEffort) Observe(s bridge.Snapshot) {
	f := s.CursorForce.Len()
	c.sum += f
	if f > c.peak {
		c.peak = f
	}
	c.samples++
}

func (c *ForceEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ForceEffort) Peak() float64 { return c.peak }

func (c *ForceEffort) Reset() {
	c.sum = 0
	c.peak = 0
	c.samples = 0
}
