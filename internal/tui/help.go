package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModel is the help screen model
type HelpModel struct {
	units Units
}

// NewHelpModel creates a new help model
func NewHelpModel(units Units) HelpModel {
	return HelpModel{units: units}
}

// Init initializes the help screen
func (m HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the help screen
func (m HelpModel) View() string {
	var sections []string

	sections = append(sections, cardTitleStyle.Render("Keyboard Shortcuts"))

	sections = append(sections, m.renderSection("Navigation", []keyHelp{
		{"1", "Activities list"},
		{"2 or i", "Import screen"},
		{"?", "Help (this screen)"},
		{"q", "Quit"},
		{"esc", "Back / close help"},
	}))

	sections = append(sections, m.renderSection("Activities List", []keyHelp{
		{"j / down", "Move cursor down"},
		{"k / up", "Move cursor up"},
		{"pgdn", "Next page"},
		{"pgup", "Previous page"},
		{"g / G", "First / last activity"},
		{"enter", "Activity details"},
		{"r", "Refresh list"},
	}))

	sections = append(sections, m.renderSection("Import Screen", []keyHelp{
		{"i / enter", "Start import"},
	}))

	sections = append(sections, m.renderUnits())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

type keyHelp struct {
	key  string
	desc string
}

func (m HelpModel) renderSection(title string, keys []keyHelp) string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, sectionStyle.Render(title))

	for _, k := range keys {
		lines = append(lines, "  "+RenderKeyHelp(k.key, k.desc))
	}

	return strings.Join(lines, "\n")
}

func (m HelpModel) renderUnits() string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, sectionStyle.Render("Units"))
	lines = append(lines, "  "+RenderMetric("Distance", m.units.DistanceLabel()))
	lines = append(lines, "  "+RenderMetric("Pace", "time per "+m.units.DistanceLabel()+" (running, walking, hiking)"))
	lines = append(lines, "  "+RenderMetric("Speed", m.units.SpeedLabel()+" (other sports)"))
	lines = append(lines, "")
	lines = append(lines, helpDescStyle.Render("  Set display.distance_unit to km or mi in the config file."))

	return strings.Join(lines, "\n")
}
