package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines color scheme for the monitor
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Border  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var themes = []Theme{
	{
		Name:    "ocean",
		Primary: lipgloss.Color("#00ccff"),
		Accent:  lipgloss.Color("#ffcc00"),
		Text:    lipgloss.Color("#e0f0ff"),
		Muted:   lipgloss.Color("#557799"),
		Border:  lipgloss.Color("#335577"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff4444"),
	},
	{
		Name:    "retro",
		Primary: lipgloss.Color("#00ff00"), // Green phosphor
		Accent:  lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		Border:  lipgloss.Color("#007700"),
		Success: lipgloss.Color("#88ff88"),
		Warning: lipgloss.Color("#ffff00"),
		Error:   lipgloss.Color("#ff0000"),
	},
	{
		Name:    "minimal",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Border:  lipgloss.Color("#444444"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff0000"),
	},
}

// GetTheme returns the named theme, the first one if the name is unknown.
func GetTheme(name string) Theme {
	for _, t := range themes {
		if t.Name == name {
			return t
		}
	}
	return themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}

// nextTheme cycles through the themes in order.
func nextTheme(cur string) Theme {
	for i, t := range themes {
		if t.Name == cur {
			return themes[(i+1)%len(themes)]
		}
	}
	return themes[0]
}
