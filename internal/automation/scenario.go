package automation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	"github.com/san-kum/hapsim/internal/bridge"
	"gopkg.in/yaml.v3"
)

var ErrEmptyScenario = errors.New("automation: scenario has no setup")

// Scenario builds a scene and plays timed commands against it.
type Scenario struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Duration    float64          `yaml:"duration"`
	Start       bool             `yaml:"start"`
	Track       string           `yaml:"track"`
	Setup       []bridge.Command `yaml:"setup"`
	Events      []Event          `yaml:"events"`
}

// Event is a command applied once the simulated time reaches At.
type Event struct {
	At             float64 `yaml:"at"`
	bridge.Command `yaml:",inline"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Setup) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyScenario, sc.Name)
	}
	return &sc, nil
}

type Options struct {
	// SampleEvery is the number of physics steps between samples.
	SampleEvery int
	OnSample    func(bridge.Snapshot)
	Logger      *log.Logger
}

type Result struct {
	Scenario string
	Steps    int
	Duration float64
	Rejected int
	Samples  []bridge.Snapshot
}

// Player steps a scenario one physics step at a time.
type Player struct {
	b      *bridge.Bridge
	sc     *Scenario
	logger *log.Logger
	events []Event
	next   int
	dt     float64

	steps    int
	rejected int
}

func NewPlayer(b *bridge.Bridge, sc *Scenario, logger *log.Logger) *Player {
	if logger == nil {
		logger = log.Default()
	}
	events := append([]Event(nil), sc.Events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].At < events[j].At })
	return &Player{
		b:      b,
		sc:     sc,
		logger: logger,
		events: events,
		dt:     b.Physics().Loop().Dt(),
	}
}

// Setup builds the scene and opens the device session if the scenario asks
// for one. A device that fails to start is logged, not fatal.
func (p *Player) Setup() error {
	for i, c := range p.sc.Setup {
		if err := p.b.Apply(c); err != nil {
			return fmt.Errorf("setup %d (%v): %w", i+1, c, err)
		}
	}
	if p.sc.Start {
		if err := p.b.Start(); err != nil {
			p.logger.Printf("automation: %s: %v, running without force output", p.sc.Name, err)
		}
	}
	return nil
}

// Advance applies the events that are due and runs one step.
func (p *Player) Advance() error {
	t := float64(p.steps) * p.dt
	for p.next < len(p.events) && p.events[p.next].At <= t+p.dt/2 {
		c := p.events[p.next].Command
		if err := p.b.Apply(c); err != nil {
			p.logger.Printf("automation: %s at %.3fs: %v: %v", p.sc.Name, t, c, err)
			p.rejected++
		}
		p.next++
	}
	if err := p.b.Step(); err != nil {
		return err
	}
	p.steps++
	return nil
}

func (p *Player) Steps() int    { return p.steps }
func (p *Player) Rejected() int { return p.rejected }

// Duration is the scenario length, or the configured default.
func (p *Player) Duration() float64 {
	if p.sc.Duration > 0 {
		return p.sc.Duration
	}
	return p.b.Config().Duration
}

// Done reports whether the scenario has run its full duration.
func (p *Player) Done() bool {
	return p.steps >= int(math.Round(p.Duration()/p.dt))
}

// Run plays sc on b in simulated time. Setup failures abort the run; a
// rejected event is logged and the run goes on.
func Run(ctx context.Context, b *bridge.Bridge, sc *Scenario, opts Options) (*Result, error) {
	every := opts.SampleEvery
	if every < 1 {
		every = 1
	}

	p := NewPlayer(b, sc, opts.Logger)
	if err := p.Setup(); err != nil {
		return nil, err
	}

	res := &Result{Scenario: sc.Name, Duration: p.Duration()}
	for !p.Done() {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		err := p.Advance()
		res.Steps, res.Rejected = p.Steps(), p.Rejected()
		if err != nil {
			return res, err
		}

		if res.Steps%every == 0 {
			snap := b.Snapshot()
			res.Samples = append(res.Samples, snap)
			if opts.OnSample != nil {
				opts.OnSample(snap)
			}
		}
	}
	return res, nil
}
