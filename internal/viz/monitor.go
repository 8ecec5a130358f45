package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/hapsim/internal/automation"
	"github.com/san-kum/hapsim/internal/bridge"
	"github.com/san-kum/hapsim/internal/render"
	"github.com/san-kum/hapsim/internal/scene"
)

const (
	canvasWidth     = 60
	canvasHeight    = 24
	historyCapacity = 600
	frame           = time.Second / 60

	// probeStep is how far one arrow key moves the probe.
	probeStep = 0.05
	// grabReach is the furthest an object may be from the cursor to be
	// picked up with the grab key.
	grabReach = 1.0
)

type TickMsg time.Time

// Model is the monitor of one bridge. When a player is set, its scenario
// events fire as the monitor steps.
type Model struct {
	b       *bridge.Bridge
	player  *automation.Player
	title   string
	canvas  *Canvas
	camera  *Camera
	theme   Theme
	st      styles
	running bool
	acc     float64

	last          bridge.Snapshot
	forceHistory  []float64
	energyHistory []float64
	plotEnergy    bool
	showHelp      bool
	status        string
	err           error
}

// NewModel monitors b. player may be nil, in which case the monitor steps
// the bridge directly and never finishes.
func NewModel(b *bridge.Bridge, player *automation.Player, title string) Model {
	th := themes[0]
	m := Model{
		b:             b,
		player:        player,
		title:         title,
		canvas:        NewCanvas(canvasWidth, canvasHeight),
		camera:        NewCamera(),
		theme:         th,
		st:            newStyles(th),
		running:       true,
		forceHistory:  make([]float64, 0, historyCapacity),
		energyHistory: make([]float64, 0, historyCapacity),
	}
	m.last = b.Snapshot()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(frame, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

// Update handles input events and steps the bridge.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.key(msg.String())
	case tea.WindowSizeMsg:
		w, h := msg.Width-48, msg.Height-4
		if w > 20 && h > 8 && (w != m.canvas.Width || h != m.canvas.Height) {
			m.canvas = NewCanvas(w, h)
		}
	case TickMsg:
		if m.running {
			m.advance(frame.Seconds())
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) key(k string) (tea.Model, tea.Cmd) {
	switch k {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.running = !m.running
	case "?":
		m.showHelp = !m.showHelp
	case "left":
		m.moveProbe(mgl64.Vec3{-probeStep, 0, 0})
	case "right":
		m.moveProbe(mgl64.Vec3{probeStep, 0, 0})
	case "up":
		m.moveProbe(mgl64.Vec3{0, 0, probeStep})
	case "down":
		m.moveProbe(mgl64.Vec3{0, 0, -probeStep})
	case "pgup":
		m.moveProbe(mgl64.Vec3{0, probeStep, 0})
	case "pgdown":
		m.moveProbe(mgl64.Vec3{0, -probeStep, 0})
	case "g":
		m.toggleGrab()
	case "e":
		m.push()
	case "p":
		m.plotEnergy = !m.plotEnergy
	case "t":
		m.theme = nextTheme(m.theme.Name)
		m.st = newStyles(m.theme)
		m.status = "theme " + m.theme.Name
	case "x":
		m.camera.RotateX(0.1)
	case "X":
		m.camera.RotateX(-0.1)
	case "y":
		m.camera.RotateY(0.1)
	case "Y":
		m.camera.RotateY(-0.1)
	case "z":
		m.camera.RotateZ(0.1)
	case "Z":
		m.camera.RotateZ(-0.1)
	case "+", "=":
		m.camera.ZoomIn()
	case "-":
		m.camera.ZoomOut()
	case "0":
		m.camera.Reset()
	}
	return m, nil
}

// advance steps as many physics steps as fit in elapsed seconds of wall
// time and records the result.
func (m *Model) advance(elapsed float64) {
	if m.err != nil || m.Done() {
		return
	}
	m.acc += elapsed / m.b.Physics().Loop().Dt()
	n := int(m.acc)
	m.acc -= float64(n)
	for i := 0; i < n; i++ {
		var err error
		if m.player != nil {
			if m.player.Done() {
				break
			}
			err = m.player.Advance()
		} else {
			err = m.b.Step()
		}
		if err != nil {
			m.err = err
			m.running = false
			break
		}
	}
	m.record()
}

func (m *Model) record() {
	m.last = m.b.Snapshot()
	k, p := m.b.Physics().Energy()
	m.forceHistory = appendCapped(m.forceHistory, m.last.CursorForce.Len())
	m.energyHistory = appendCapped(m.energyHistory, k+p)
}

func appendCapped(h []float64, v float64) []float64 {
	if len(h) >= historyCapacity {
		h = append(h[:0], h[1:]...)
	}
	return append(h, v)
}

// Done reports whether a played scenario has finished.
func (m Model) Done() bool { return m.player != nil && m.player.Done() }

func (m Model) Err() error { return m.err }

func (m *Model) moveProbe(delta mgl64.Vec3) {
	d, ok := m.b.Device().(*render.SimulatedDevice)
	if !ok {
		m.status = "probe is driven by the device"
		return
	}
	d.MoveBy(delta)
}

// toggleGrab releases the held object, or grabs what the cursor touches, or
// else the nearest body within reach.
func (m *Model) toggleGrab() {
	c := m.b.Haptics().Cursor()
	if c == nil {
		m.status = "no cursor in scene"
		return
	}
	if h := c.Grabbed(); h != nil {
		if err := m.b.Release(""); err != nil {
			m.status = err.Error()
			return
		}
		m.status = "released " + h.Name()
		return
	}
	target := c.Contact()
	if target == nil {
		target = m.nearest(c.MassPosition())
	}
	if target == nil {
		m.status = "nothing within reach"
		return
	}
	if err := m.b.Grab(target.Name()); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "grabbed " + target.Name()
}

func (m *Model) nearest(p mgl64.Vec3) *scene.Object {
	var best *scene.Object
	bestDist := grabReach
	for _, o := range m.b.Graph().List() {
		if k := o.Kind(); k != scene.KindSphere && k != scene.KindPrism {
			continue
		}
		if d := o.Position().Sub(p).Len(); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

// push gives the cursor a short upward kick through its force attribute.
func (m *Model) push() {
	c := m.b.Haptics().Cursor()
	if c == nil {
		m.status = "no cursor in scene"
		return
	}
	f := mgl64.Vec3{0, 0, m.b.Config().Haptics.MaxForce / 2}
	if err := c.Object().SetFromRequest(scene.AttrForce, scene.VecOf(f)); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("push %.2fN", f.Z())
}

func (m *Model) draw() {
	m.canvas.Clear()
	for _, o := range m.b.Graph().List() {
		if !o.Visible() {
			continue
		}
		pos, rot := o.Pose()
		switch o.Kind() {
		case scene.KindSphere:
			m.camera.DrawSphere(m.canvas, pos, o.Radius())
		case scene.KindPrism, scene.KindMesh:
			m.camera.DrawBox(m.canvas, pos, rot, o.Size())
		}
	}
	if c := m.b.Haptics().Cursor(); c != nil {
		p := m.last.Cursor
		m.camera.DrawMarker(m.canvas, p)
		m.camera.DrawSphere(m.canvas, p, c.Object().Radius())
		if limit := m.b.Config().Haptics.MaxForce; limit > 0 {
			m.camera.DrawSegment(m.canvas, p, p.Add(m.last.CursorForce.Mul(0.5/limit)))
		}
	}
}

// View renders the scene and the side panel.
func (m Model) View() string {
	m.draw()
	sceneView := m.st.Panel.Render(m.st.Scene.Render(strings.TrimRight(m.canvas.String(), "\n")))

	var s strings.Builder
	s.WriteString(m.st.Title.Render(strings.ToUpper(m.title)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(m.st.Error.Render("STOPPED: "+m.err.Error()) + "\n\n")
	case m.Done():
		s.WriteString(m.st.Paused.Render("FINISHED") + "\n\n")
	case m.running:
		s.WriteString(m.st.Running.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(m.st.Paused.Render("PAUSED") + "\n\n")
	}

	s.WriteString(m.st.Row("Time    ", fmt.Sprintf("%.2fs", m.last.Time)) + "\n")
	if m.player != nil {
		s.WriteString(m.st.Row("Length  ", fmt.Sprintf("%.2fs", m.player.Duration())) + "\n")
	}
	s.WriteString(m.st.Row("Contacts", fmt.Sprintf("%d", m.last.Contacts)) + "\n")
	held := m.last.Held
	if held == "" {
		held = "-"
	}
	s.WriteString(m.st.Row("Held    ", held) + "\n")
	s.WriteString(m.st.Row("Device  ", m.deviceState()) + "\n")

	force := m.last.CursorForce.Len()
	frac := 0.0
	if limit := m.b.Config().Haptics.MaxForce; limit > 0 {
		frac = force / limit
	}
	s.WriteString(m.st.Row("Force   ", fmt.Sprintf("%.3fN", force)) + "\n")
	s.WriteString(m.st.ProgressBar(frac, 28) + "\n\n")

	hist, caption := m.forceHistory, "Force (N)"
	if m.plotEnergy {
		hist, caption = m.energyHistory, "Energy (J)"
	}
	if len(hist) > 1 && finite(hist) {
		s.WriteString(asciigraph.Plot(hist, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption(caption)) + "\n\n")
	}

	for _, o := range m.last.Objects {
		mark := " "
		if o.Grab {
			mark = "*"
		}
		p := o.Position
		s.WriteString(m.st.Label.Render(fmt.Sprintf("%s %-8s", mark, truncate(o.Name, 8))) +
			m.st.Value.Render(fmt.Sprintf("%6.2f %6.2f %6.2f", p.X(), p.Y(), p.Z())) + "\n")
	}

	if m.status != "" {
		s.WriteString("\n" + m.st.Subtle.Render(m.status) + "\n")
	}
	s.WriteString(m.st.Subtle.Render("\nSP:Pause G:Grab E:Push P:Plot\nT:Theme ?:Help Q:Quit"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, sceneView, m.st.Panel.Width(44).Render(s.String()))

	if m.showHelp {
		return m.st.Help.Render(helpText) + "\n\n" + mainView
	}
	return mainView
}

const helpText = `KEYBOARD SHORTCUTS

Space      Pause/Resume
Arrows     Move the probe in x/z
PgUp/PgDn  Move the probe in y
G          Grab nearest / release
E          Push the cursor up
P          Plot force or energy
T          Cycle themes
x/y/z      Rotate (shift reverses)
+/- 0      Zoom, reset camera
Q          Quit`

func (m Model) deviceState() string {
	c := m.b.Haptics().Cursor()
	switch {
	case c == nil:
		return "none"
	case c.Initialized():
		return "started"
	}
	return "stopped"
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
