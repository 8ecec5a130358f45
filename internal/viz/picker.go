package viz

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/hapsim/internal/automation"
	"github.com/san-kum/hapsim/internal/bridge"
	"github.com/san-kum/hapsim/internal/config"
)

// Launcher builds a bridge playing the named builtin scenario under a preset.
// An empty preset means the base configuration.
type Launcher func(scenario, preset string) (*bridge.Bridge, *automation.Player, error)

const (
	stateScenes = iota
	statePresets
	stateMonitor
)

const basePreset = "(base)"

// Picker lets the user choose a scenario and preset, then hands over to the
// monitor.
type Picker struct {
	launch  Launcher
	st      styles
	state   int
	cursor  int
	scenes  []string
	presets []string
	scene   string
	err     error
	monitor Model
	bridge  *bridge.Bridge
}

func NewPicker(launch Launcher) Picker {
	return Picker{
		launch: launch,
		st:     newStyles(themes[0]),
		scenes: automation.BuiltinNames(),
	}
}

// Bridge is the bridge the picker launched, nil before a launch. The caller
// shuts it down once the program exits.
func (p Picker) Bridge() *bridge.Bridge { return p.bridge }

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.state == stateMonitor {
		m, cmd := p.monitor.Update(msg)
		p.monitor = m.(Model)
		return p, cmd
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	items := p.items()
	switch key.String() {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "esc":
		if p.state == statePresets {
			p.state, p.cursor, p.err = stateScenes, 0, nil
		}
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(items)-1 {
			p.cursor++
		}
	case "enter", " ":
		if len(items) == 0 {
			return p, nil
		}
		if p.state == stateScenes {
			p.scene = items[p.cursor]
			p.presets = append([]string{basePreset}, config.ListPresets(p.scene)...)
			p.state, p.cursor = statePresets, 0
			return p, nil
		}
		return p.start(items[p.cursor])
	}
	return p, nil
}

func (p Picker) start(preset string) (tea.Model, tea.Cmd) {
	if preset == basePreset {
		preset = ""
	}
	b, player, err := p.launch(p.scene, preset)
	if err != nil {
		p.err = err
		return p, nil
	}
	title := p.scene
	if preset != "" {
		title += "/" + preset
	}
	p.bridge = b
	p.monitor = NewModel(b, player, title)
	p.state = stateMonitor
	return p, p.monitor.Init()
}

func (p Picker) items() []string {
	if p.state == statePresets {
		return p.presets
	}
	return p.scenes
}

func (p Picker) View() string {
	if p.state == stateMonitor {
		return p.monitor.View()
	}
	var s strings.Builder
	if p.state == stateScenes {
		s.WriteString(p.st.Title.Render("HAPSIM  choose a scenario") + "\n\n")
	} else {
		s.WriteString(p.st.Title.Render("HAPSIM  "+p.scene+"  choose a preset") + "\n\n")
	}
	for i, name := range p.items() {
		line := "  " + name
		if i == p.cursor {
			line = p.st.Running.Render("> " + name)
		}
		if p.state == stateScenes {
			if sc, err := automation.Builtin(name); err == nil && sc.Description != "" {
				line += p.st.Label.Render("  " + sc.Description)
			}
		}
		s.WriteString(line + "\n")
	}
	if p.err != nil {
		s.WriteString("\n" + p.st.Error.Render(p.err.Error()) + "\n")
	}
	s.WriteString("\n" + p.st.Subtle.Render("↑↓ select  enter open  esc back  q quit"))
	return p.st.Panel.Render(s.String())
}
