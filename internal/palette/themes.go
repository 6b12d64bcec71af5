package palette

import (
	"image/color"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour scheme shared by the renderer and the TUI.
type Theme struct {
	Name       string
	Background lipgloss.Color // canvas background; "transparent" allowed
	GridLine   lipgloss.Color
	Border     lipgloss.Color
	Label      lipgloss.Color
	Hover      lipgloss.Color // overlay outline of the hovered cell
	Selection  lipgloss.Color // overlay fill of the selected cell
	Primary    lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
}

// Available themes
var (
	ThemeLight = Theme{
		Name:       "light",
		Background: lipgloss.Color("#ffffff"),
		GridLine:   lipgloss.Color("#eeeeee"),
		Border:     lipgloss.Color("#333333"),
		Label:      lipgloss.Color("#000000"),
		Hover:      lipgloss.Color("#1e90ff"),
		Selection:  lipgloss.Color("#1e90ff66"),
		Primary:    lipgloss.Color("#0077be"),
		Text:       lipgloss.Color("#222222"),
		Muted:      lipgloss.Color("#888888"),
	}

	ThemeCyberpunk = Theme{
		Name:       "cyberpunk",
		Background: lipgloss.Color("#0a0a0a"),
		GridLine:   lipgloss.Color("#2a002a"),
		Border:     lipgloss.Color("#00ffff"), // Cyan
		Label:      lipgloss.Color("#ffff00"), // Yellow
		Hover:      lipgloss.Color("#ff00ff"), // Magenta
		Selection:  lipgloss.Color("#ff00ff55"),
		Primary:    lipgloss.Color("#ff00ff"),
		Text:       lipgloss.Color("#ffffff"),
		Muted:      lipgloss.Color("#666666"),
	}

	ThemeRetroGreen = Theme{
		Name:       "retro",
		Background: lipgloss.Color("#001100"),
		GridLine:   lipgloss.Color("#003300"),
		Border:     lipgloss.Color("#00ff00"), // Green phosphor
		Label:      lipgloss.Color("#88ff88"),
		Hover:      lipgloss.Color("#ffff00"),
		Selection:  lipgloss.Color("#88ff8855"),
		Primary:    lipgloss.Color("#00ff00"),
		Text:       lipgloss.Color("#00ff00"),
		Muted:      lipgloss.Color("#005500"),
	}

	ThemeMinimal = Theme{
		Name:       "minimal",
		Background: lipgloss.Color("transparent"),
		GridLine:   lipgloss.Color("#cccccc"),
		Border:     lipgloss.Color("#000000"),
		Label:      lipgloss.Color("#000000"),
		Hover:      lipgloss.Color("#0088ff"),
		Selection:  lipgloss.Color("#0088ff44"),
		Primary:    lipgloss.Color("#ffffff"),
		Text:       lipgloss.Color("#ffffff"),
		Muted:      lipgloss.Color("#888888"),
	}

	ThemeOcean = Theme{
		Name:       "ocean",
		Background: lipgloss.Color("#001a33"),
		GridLine:   lipgloss.Color("#0a2f4f"),
		Border:     lipgloss.Color("#ffd700"),
		Label:      lipgloss.Color("#e0f0ff"),
		Hover:      lipgloss.Color("#00a8cc"),
		Selection:  lipgloss.Color("#00a8cc55"),
		Primary:    lipgloss.Color("#0077be"), // Ocean blue
		Text:       lipgloss.Color("#e0f0ff"),
		Muted:      lipgloss.Color("#4488aa"),
	}

	ThemeSunset = Theme{
		Name:       "sunset",
		Background: lipgloss.Color("#2d1b2e"),
		GridLine:   lipgloss.Color("#3d2b3e"),
		Border:     lipgloss.Color("#feca57"),
		Label:      lipgloss.Color("#fff5f5"),
		Hover:      lipgloss.Color("#ff9ff3"),
		Selection:  lipgloss.Color("#ff9ff355"),
		Primary:    lipgloss.Color("#ff6b6b"), // Coral
		Text:       lipgloss.Color("#fff5f5"),
		Muted:      lipgloss.Color("#8b6b8c"),
	}

	// Default theme; matches the original white canvas with #eee grid lines.
	DefaultTheme = ThemeLight

	// All available themes
	Themes = []Theme{
		ThemeLight,
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeMinimal,
		ThemeOcean,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to DefaultTheme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return DefaultTheme
}

// HasTheme reports whether name is a known theme.
func HasTheme(name string) bool {
	for _, t := range Themes {
		if t.Name == name {
			return true
		}
	}
	return false
}

// ThemeNames returns list of available theme names
func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// NextTheme returns the theme after name in Themes, wrapping around.
func NextTheme(name string) Theme {
	for i, t := range Themes {
		if t.Name == name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return DefaultTheme
}

// RGBA converts a theme colour for the raster surfaces. Theme literals are
// known-good, so an unparseable value falls back to transparent.
func RGBA(c lipgloss.Color) color.NRGBA {
	v, err := Parse(string(c))
	if err != nil {
		return Transparent
	}
	return v
}
