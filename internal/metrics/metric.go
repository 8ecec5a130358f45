package metrics

import "github.com/san-kum/hapsim/internal/bridge"

// Metric folds a stream of snapshots into one number.
type Metric interface {
	Name() string
	Observe(s bridge.Snapshot)
	Value() float64
	Reset()
}

// Observe feeds s to every metric.
func Observe(ms []Metric, s bridge.Snapshot) {
	for _, m := range ms {
		m.Observe(s)
	}
}

// Values reads every metric by name.
func Values(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
