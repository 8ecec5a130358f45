package viz

import (
	"errors"
	"io"
	"log"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hapsim/internal/automation"
	"github.com/san-kum/hapsim/internal/bridge"
	"github.com/san-kum/hapsim/internal/config"
	"github.com/san-kum/hapsim/internal/render"
)

const grabScene = `
name: reach
duration: 0.5
start: true
setup:
  - {op: create, name: cursor, kind: cursor}
  - {op: create, name: box, kind: prism, init: {position: [0, 0, 0.1], size: [0.2, 0.2, 0.2]}}
`

var quiet = log.New(io.Discard, "", 0)

func newMonitor(t *testing.T, script string) (Model, *render.SimulatedDevice) {
	t.Helper()
	dev := render.NewSimulatedDevice()
	b, err := bridge.New(config.DefaultConfig(), dev, quiet)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(b.Shutdown)
	sc, err := automation.ParseScenario([]byte(script))
	if err != nil {
		t.Fatal(err)
	}
	p := automation.NewPlayer(b, sc, quiet)
	if err := p.Setup(); err != nil {
		t.Fatal(err)
	}
	return NewModel(b, p, sc.Name), dev
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func ticks(n int) []tea.Msg {
	msgs := make([]tea.Msg, n)
	for i := range msgs {
		msgs[i] = TickMsg(time.Now())
	}
	return msgs
}

func keys(s ...string) []tea.Msg {
	msgs := make([]tea.Msg, len(s))
	for i, k := range s {
		switch k {
		case "right":
			msgs[i] = tea.KeyMsg{Type: tea.KeyRight}
		case "up":
			msgs[i] = tea.KeyMsg{Type: tea.KeyUp}
		default:
			msgs[i] = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
	}
	return msgs
}

func TestMonitorStepsInWallTime(t *testing.T) {
	m, _ := newMonitor(t, grabScene)
	m = send(t, m, ticks(6)...)

	// 6 frames of 1/60s at 100Hz.
	steps := m.player.Steps()
	if steps < 9 || steps > 10 {
		t.Fatalf("steps = %d, want 10", steps)
	}
	if want := float64(steps) * m.b.Physics().Loop().Dt(); math.Abs(m.last.Time-want) > 1e-9 {
		t.Errorf("snapshot time = %v, want %v", m.last.Time, want)
	}
	if len(m.forceHistory) != 6 || len(m.energyHistory) != 6 {
		t.Errorf("history lengths = %d, %d", len(m.forceHistory), len(m.energyHistory))
	}
}

func TestMonitorPause(t *testing.T) {
	m, _ := newMonitor(t, grabScene)
	m = send(t, m, keys(" ")...)
	m = send(t, m, ticks(10)...)
	if n := m.player.Steps(); n != 0 {
		t.Fatalf("paused monitor stepped %d times", n)
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("view does not show PAUSED")
	}
}

func TestMonitorMovesProbe(t *testing.T) {
	m, dev := newMonitor(t, grabScene)
	m = send(t, m, keys("right", "right", "up")...)
	want := mgl64.Vec3{2 * probeStep, 0, probeStep}
	if got := dev.Position(); !got.ApproxEqualThreshold(want, 1e-12) {
		t.Fatalf("probe = %v, want %v", got, want)
	}
}

func TestMonitorGrabToggle(t *testing.T) {
	m, _ := newMonitor(t, grabScene)
	m = send(t, m, keys("g")...)
	if m.status != "grabbed box" {
		t.Fatalf("status = %q", m.status)
	}
	m = send(t, m, ticks(2)...)
	if m.last.Held != "box" {
		t.Fatalf("held = %q, want box", m.last.Held)
	}

	m = send(t, m, keys("g")...)
	if m.status != "released box" {
		t.Fatalf("status = %q", m.status)
	}
	m = send(t, m, ticks(2)...)
	if m.last.Held != "" {
		t.Errorf("held = %q after release", m.last.Held)
	}
}

func TestMonitorGrabOutOfReach(t *testing.T) {
	m, dev := newMonitor(t, grabScene)
	dev.MoveTo(mgl64.Vec3{5, 0, 0})
	m = send(t, m, ticks(30)...)
	m = send(t, m, keys("g")...)
	if m.status != "nothing within reach" {
		t.Errorf("status = %q", m.status)
	}
}

func TestMonitorFinishes(t *testing.T) {
	m, _ := newMonitor(t, grabScene)
	m = send(t, m, ticks(60)...)
	if !m.Done() {
		t.Fatalf("not done after %d steps", m.player.Steps())
	}
	if n := m.player.Steps(); n != 50 {
		t.Errorf("steps = %d, want 50", n)
	}
	if !strings.Contains(m.View(), "FINISHED") {
		t.Error("view does not show FINISHED")
	}
}

func TestMonitorThemeCycle(t *testing.T) {
	m, _ := newMonitor(t, grabScene)
	names := ThemeNames()
	for i := 1; i <= len(names); i++ {
		m = send(t, m, keys("t")...)
		if want := names[i%len(names)]; m.theme.Name != want {
			t.Fatalf("theme = %s, want %s", m.theme.Name, want)
		}
	}
}

func TestMonitorQuits(t *testing.T) {
	m, _ := newMonitor(t, grabScene)
	_, cmd := m.Update(keys("q")[0])
	if cmd == nil {
		t.Fatal("no command on q")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q does not quit")
	}
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(10, 5)
	if w, h := c.Dots(); w != 20 || h != 20 {
		t.Fatalf("dots = %dx%d", w, h)
	}
	c.DrawLine(0, 0, 19, 19)
	for _, p := range [][2]int{{0, 0}, {10, 10}, {19, 19}} {
		if !c.Lit(p[0], p[1]) {
			t.Errorf("line misses %v", p)
		}
	}
	c.Clear()
	c.DrawCircle(10, 10, 4)
	for _, p := range [][2]int{{14, 10}, {6, 10}, {10, 14}, {10, 6}} {
		if !c.Lit(p[0], p[1]) {
			t.Errorf("circle misses %v", p)
		}
	}
	if c.Lit(10, 10) {
		t.Error("circle center lit")
	}
	c.Set(-1, 3)
	c.Set(100, 100)
	if rows := strings.Count(c.String(), "\n"); rows != 5 {
		t.Errorf("rows = %d", rows)
	}
}

func TestCameraProject(t *testing.T) {
	cam := NewCamera()
	const w, h = 100, 80
	x, y, ok := cam.Project(mgl64.Vec3{}, w, h)
	if !ok || x != w/2 || y != h/2 {
		t.Fatalf("origin at (%d,%d) ok=%v", x, y, ok)
	}
	rx, _, _ := cam.Project(mgl64.Vec3{1, 0, 0}, w, h)
	if rx <= x {
		t.Errorf("+x drawn at %d, not right of %d", rx, x)
	}
	_, uy, _ := cam.Project(mgl64.Vec3{0, 0, 1}, w, h)
	if uy >= y {
		t.Errorf("+z drawn at %d, not above %d", uy, y)
	}
	if _, _, ok := cam.Project(mgl64.Vec3{0, -cam.Distance, 0}, w, h); ok {
		t.Error("point at the camera projected")
	}

	cam.ZoomIn()
	zx, _, _ := cam.Project(mgl64.Vec3{1, 0, 0}, w, h)
	if zx <= rx {
		t.Errorf("zoom in moved +x from %d to %d", rx, zx)
	}
}

func TestPickerLaunches(t *testing.T) {
	var gotScene, gotPreset string
	launch := func(scene, preset string) (*bridge.Bridge, *automation.Player, error) {
		gotScene, gotPreset = scene, preset
		b, err := bridge.New(config.DefaultConfig(), render.NewSimulatedDevice(), quiet)
		if err != nil {
			return nil, nil, err
		}
		t.Cleanup(b.Shutdown)
		return b, nil, nil
	}
	p := NewPicker(launch)
	enter := tea.KeyMsg{Type: tea.KeyEnter}
	next, _ := p.Update(enter)
	p = next.(Picker)
	if p.state != statePresets || p.scene != p.scenes[0] {
		t.Fatalf("state = %d scene = %q", p.state, p.scene)
	}
	next, cmd := p.Update(enter)
	p = next.(Picker)
	if p.state != stateMonitor || cmd == nil {
		t.Fatalf("state = %d, want monitor", p.state)
	}
	if gotScene != p.scenes[0] || gotPreset != "" {
		t.Errorf("launched %q/%q", gotScene, gotPreset)
	}
	if p.Bridge() == nil {
		t.Error("picker lost the bridge")
	}
}

func TestPickerShowsLaunchError(t *testing.T) {
	boom := errors.New("no such device")
	p := NewPicker(func(string, string) (*bridge.Bridge, *automation.Player, error) {
		return nil, nil, boom
	})
	enter := tea.KeyMsg{Type: tea.KeyEnter}
	for i := 0; i < 2; i++ {
		next, _ := p.Update(enter)
		p = next.(Picker)
	}
	if p.state != statePresets || !strings.Contains(p.View(), boom.Error()) {
		t.Errorf("state = %d, view lacks the error", p.state)
	}
}
