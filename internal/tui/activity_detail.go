package tui

import (
	"errors"
	"fmt"
	"strings"

	"runtopsy/internal/store"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// ActivityDetailModel is the activity detail screen model
type ActivityDetailModel struct {
	store      *store.Store
	units      Units
	activityID string
	activity   store.Activity
	records    *store.Records
	viewport   viewport.Model
	loading    bool
	err        error
	ready      bool
}

// NewActivityDetailModel creates a new activity detail model
func NewActivityDetailModel(st *store.Store, units Units, activityID string, width, height int) ActivityDetailModel {
	m := ActivityDetailModel{
		store:      st,
		units:      units,
		activityID: activityID,
		loading:    true,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6) // Reserve space for header/footer
		m.ready = true
	}

	return m
}

// Init initializes the activity detail screen
func (m ActivityDetailModel) Init() tea.Cmd {
	return m.loadDetail
}

type activityDetailLoadedMsg struct {
	activity store.Activity
	records  *store.Records
	err      error
}

func (m ActivityDetailModel) loadDetail() tea.Msg {
	a, err := m.store.Get(m.activityID)
	if err != nil {
		return activityDetailLoadedMsg{err: err}
	}

	// Records may not be downloaded yet
	records, err := m.store.GetRecords(m.activityID)
	if err != nil && !errors.Is(err, store.ErrRecordsNotFound) {
		return activityDetailLoadedMsg{err: err}
	}
	return activityDetailLoadedMsg{activity: a, records: records}
}

// Update handles messages
func (m ActivityDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activityDetailLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.activity = msg.activity
		m.records = msg.records
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if !m.loading {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadDetail
		}
	}

	// Handle viewport scrolling
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the activity detail screen
func (m ActivityDetailModel) View() string {
	if m.loading {
		return "\n  Loading activity details..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  esc: back to list  j/k or arrows: scroll  r: refresh")

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m ActivityDetailModel) renderContent() string {
	if m.err != nil {
		return ""
	}

	sections := []string{m.renderHeader(), m.renderSummary()}

	if m.records.Len() > 5 {
		sections = append(sections, m.renderSpeedChart())
	} else {
		sections = append(sections, statusStyle.Render("  No time series downloaded yet"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ActivityDetailModel) renderHeader() string {
	a := m.activity
	name := a.Name
	if name == "" {
		name = typeTitle(a.Type)
	}
	title := cardTitleStyle.Render(name)

	date := a.StartTime.Local().Format("Monday, January 2, 2006 at 3:04 PM")
	subtitle := lipgloss.NewStyle().Foreground(mutedColor).Render(date)

	stats := fmt.Sprintf("%s  •  %s  •  %s", m.units.FormatDistance(a.Distance), formatDuration(a.MovingTime), m.units.FormatTempo(a))
	statsLine := lipgloss.NewStyle().Foreground(textColor).Bold(true).Render(stats)

	return lipgloss.JoinVertical(lipgloss.Left, "", title, subtitle, statsLine, "")
}

func (m ActivityDetailModel) renderSummary() string {
	a := m.activity
	var lines []string

	lines = append(lines, sectionStyle.Render("Summary"))
	lines = append(lines, "  "+RenderMetric("Type", string(a.Type)))
	lines = append(lines, "  "+RenderMetric("Elapsed", formatDuration(a.EndTime.Sub(a.StartTime).Seconds())))
	lines = append(lines, "  "+RenderMetric("Moving", formatDuration(a.MovingTime)))
	lines = append(lines, "  "+RenderMetric("Average speed", m.units.FormatSpeed(a.AvgSpeed)))
	if m.records.Len() > 0 {
		lines = append(lines, "  "+RenderMetric("Samples", fmt.Sprintf("%d (%d with GPS)", m.records.Len(), positions(m.records))))
	}
	lines = append(lines, "  "+RenderMetric("Id", a.ID))

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m ActivityDetailModel) renderSpeedChart() string {
	var lines []string

	lines = append(lines, sectionStyle.Render(fmt.Sprintf("Speed Over Time (%s)", m.units.SpeedLabel())))
	lines = append(lines, SpeedChart(m.units.ConvertSpeedData(m.records.Speed), 50))
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// SpeedChart plots speed samples, downsampled to width points
func SpeedChart(data []float64, width int) string {
	if len(data) > width {
		data = downsample(data, width)
	}
	data = trimTrailingZeros(data)
	if len(data) < 3 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(width),
		asciigraph.Precision(1),
	)
}

// typeTitle capitalizes the activity type for untitled activities
func typeTitle(t store.ActivityType) string {
	if t == "" {
		return "Activity"
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

func positions(r *store.Records) int {
	n := 0
	for _, p := range r.Position {
		if p != nil {
			n++
		}
	}
	return n
}

func downsample(data []float64, targetLen int) []float64 {
	if len(data) <= targetLen {
		return data
	}

	result := make([]float64, targetLen)
	ratio := float64(len(data)) / float64(targetLen)

	for i := 0; i < targetLen; i++ {
		start := int(float64(i) * ratio)
		end := int(float64(i+1) * ratio)
		if end > len(data) {
			end = len(data)
		}

		sum := 0.0
		count := 0
		for j := start; j < end; j++ {
			if data[j] > 0 {
				sum += data[j]
				count++
			}
		}
		if count > 0 {
			result[i] = sum / float64(count)
		}
	}

	return result
}

func trimTrailingZeros(data []float64) []float64 {
	end := len(data)
	for end > 0 && data[end-1] == 0 {
		end--
	}
	return data[:end]
}
