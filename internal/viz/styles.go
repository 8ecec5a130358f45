package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles are the lipgloss styles derived from one theme.
type styles struct {
	Title   lipgloss.Style
	Panel   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Subtle  lipgloss.Style
	Running lipgloss.Style
	Paused  lipgloss.Style
	Error   lipgloss.Style
	Scene   lipgloss.Style
	Help    lipgloss.Style

	barLow, barMid, barHigh lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		Label:   lipgloss.NewStyle().Foreground(t.Muted),
		Value:   lipgloss.NewStyle().Bold(true).Foreground(t.Text),
		Subtle:  lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Running: lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		Paused:  lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Scene:   lipgloss.NewStyle().Foreground(t.Primary),
		Help: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(t.Accent).
			Padding(1, 2),

		barLow:  lipgloss.NewStyle().Foreground(t.Success),
		barMid:  lipgloss.NewStyle().Foreground(t.Warning),
		barHigh: lipgloss.NewStyle().Foreground(t.Error),
	}
}

// ProgressBar renders fraction in [0,1] as a bar of width cells. The bar
// turns warm as it fills, so a saturated force reads red.
func (s styles) ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case fraction > 0.8:
		return s.barHigh.Render(bar)
	case fraction > 0.4:
		return s.barMid.Render(bar)
	}
	return s.barLow.Render(bar)
}

// Row renders one "label value" pair.
func (s styles) Row(label, value string) string {
	return s.Label.Render(label+" ") + s.Value.Render(value)
}
