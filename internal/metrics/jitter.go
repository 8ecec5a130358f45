package metrics

import (
	"sync"
	"time"
)

// Jitter watches the wall-clock cost of paced loop ticks. A tick that takes
// longer than its period is an overrun.
type Jitter struct {
	name string

	mu       sync.Mutex
	ticks    int
	overruns int
	total    time.Duration
	worst    time.Duration
}

func NewJitter(name string) *Jitter {
	return &Jitter{name: name}
}

func (j *Jitter) Name() string { return j.name }

func (j *Jitter) ObserveTick(period, elapsed time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ticks++
	j.total += elapsed
	if elapsed > j.worst {
		j.worst = elapsed
	}
	if elapsed > period {
		j.overruns++
	}
}

type JitterStats struct {
	Ticks    int
	Overruns int
	Mean     time.Duration
	Worst    time.Duration
}

func (j *Jitter) Stats() JitterStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := JitterStats{Ticks: j.ticks, Overruns: j.overruns, Worst: j.worst}
	if j.ticks > 0 {
		st.Mean = j.total / time.Duration(j.ticks)
	}
	return st
}

// Value is the fraction of ticks that overran.
func (j *Jitter) Value() float64 {
	st := j.Stats()
	if st.Ticks == 0 {
		return 0
	}
	return float64(st.Overruns) / float64(st.Ticks)
}

func (j *Jitter) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ticks, j.overruns = 0, 0
	j.total, j.worst = 0, 0
}
