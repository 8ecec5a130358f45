package metrics

import (
	"math"

	"github.com/san-kum/hapsim/internal/bridge"
)

// Stability is the fraction of samples in which every object stayed within
// threshold of the origin with a finite pose.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(snap bridge.Snapshot) {
	s.samples++
	for _, o := range snap.Objects {
		if d := o.Position.Len(); math.IsNaN(d) || d > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
