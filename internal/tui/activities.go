package tui

import (
	"fmt"
	"time"

	"runtopsy/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// ActivitiesModel is the activities list screen model
type ActivitiesModel struct {
	store      *store.Store
	units      Units
	activities []store.Activity // newest first
	cursor     int
	offset     int
	pageSize   int
	loading    bool
	now        func() time.Time
}

// NewActivitiesModel creates a new activities model
func NewActivitiesModel(st *store.Store, units Units) ActivitiesModel {
	return ActivitiesModel{
		store:    st,
		units:    units,
		pageSize: 15,
		loading:  true,
		now:      time.Now,
	}
}

// Init initializes the activities screen
func (m ActivitiesModel) Init() tea.Cmd {
	return m.load
}

type activitiesLoadedMsg struct {
	activities []store.Activity
}

func (m ActivitiesModel) load() tea.Msg {
	return activitiesLoadedMsg{activities: newestFirst(m.store)}
}

func newestFirst(st *store.Store) []store.Activity {
	all := st.GetAllSorted()
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all
}

// Update handles messages
func (m ActivitiesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activitiesLoadedMsg:
		m.loading = false
		m.activities = msg.activities
		m.clamp()

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.activities)-1 {
				m.cursor++
			}
		case "pgup":
			m.cursor -= m.pageSize
		case "pgdown":
			m.cursor += m.pageSize
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			m.cursor = len(m.activities) - 1
		case "r":
			m.loading = true
			return m, m.load
		case "enter":
			if m.cursor < len(m.activities) {
				id := m.activities[m.cursor].ID
				return m, func() tea.Msg {
					return OpenActivityDetailMsg{ActivityID: id}
				}
			}
		}
		m.clamp()
	}
	return m, nil
}

// clamp keeps the cursor on an activity and the page around the cursor
func (m *ActivitiesModel) clamp() {
	if m.cursor >= len(m.activities) {
		m.cursor = len(m.activities) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.offset = (m.cursor / m.pageSize) * m.pageSize
}

// View renders the activities list
func (m ActivitiesModel) View() string {
	if m.loading {
		return "\n  Loading activities..."
	}

	if len(m.activities) == 0 {
		return "\n  No activities yet. Press 'i' to import."
	}

	var sections []string

	end := m.offset + m.pageSize
	if end > len(m.activities) {
		end = len(m.activities)
	}
	title := cardTitleStyle.Render(fmt.Sprintf("Activities (%d-%d of %s)",
		m.offset+1, end, humanize.Comma(int64(len(m.activities)))))
	sections = append(sections, title)

	// Header
	header := tableHeaderStyle.Render(fmt.Sprintf("   %-14s  %-9s  %-25s  %9s  %8s  %10s",
		"Date", "Type", "Name", "Distance", "Time", "Pace"))
	sections = append(sections, header)

	// Rows
	for i := m.offset; i < end; i++ {
		a := m.activities[i]

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-14s  %-9s  %-25s  %9s  %8s  %10s",
			cursor,
			truncateName(humanize.RelTime(a.StartTime, m.now(), "ago", "from now"), 14),
			a.Type,
			truncateName(a.Name, 25),
			m.units.FormatDistance(a.Distance),
			formatDuration(a.MovingTime),
			m.units.FormatTempo(a),
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	// Help
	help := statusStyle.Render("\n  enter: view details  j/k: navigate  pgup/pgdn: page  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
