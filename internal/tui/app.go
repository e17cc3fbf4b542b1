// Package tui is the terminal interface for browsing and importing activities.
package tui

import (
	"runtopsy/internal/importer"
	"runtopsy/internal/store"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Screen identifiers
type Screen int

const (
	ScreenActivities Screen = iota
	ScreenDetail
	ScreenImport
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	activities   ActivitiesModel
	detail       ActivityDetailModel
	importScreen ImportModel
	help         HelpModel

	store       *store.Store
	coordinator *importer.Coordinator
	units       Units

	// Store change notifications
	changes     chan struct{}
	unsubscribe func()

	// Window dimensions
	width  int
	height int
}

// NewApp creates a new App with all dependencies. notes may be nil.
func NewApp(st *store.Store, c *importer.Coordinator, units Units, notes *NoteWriter) *App {
	a := &App{
		screen:       ScreenActivities,
		store:        st,
		coordinator:  c,
		units:        units,
		activities:   NewActivitiesModel(st, units),
		importScreen: NewImportModel(c, notes),
		help:         NewHelpModel(units),
		changes:      make(chan struct{}, 1),
	}
	a.unsubscribe = st.Subscribe(store.ObserverFunc(func([]store.Activity) {
		select {
		case a.changes <- struct{}{}:
		default:
		}
	}))
	return a
}

// Close stops listening for store changes
func (a *App) Close() {
	a.unsubscribe()
}

// OpenActivityDetailMsg opens the detail screen for an activity
type OpenActivityDetailMsg struct {
	ActivityID string
}

type storeChangedMsg struct{}

func (a *App) waitForChanges() tea.Msg {
	<-a.changes
	return storeChangedMsg{}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.activities.Init(), a.importScreen.Init(), a.waitForChanges)
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "1":
			a.screen = ScreenActivities
			return a, nil
		case "2", "i":
			if a.screen != ScreenImport {
				a.screen = ScreenImport
				return a, nil
			}
			// Let 'i' fall through to the import screen when already there
		case "?":
			if a.screen != ScreenHelp {
				a.prevScreen = a.screen
			}
			a.screen = ScreenHelp
			return a, nil
		case "esc":
			switch a.screen {
			case ScreenHelp:
				a.screen = a.prevScreen
				return a, nil
			case ScreenDetail:
				a.screen = ScreenActivities
				return a, nil
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// The detail viewport sizes itself from this message
		if a.detail.activityID == "" {
			return a, nil
		}
		m, cmd := a.detail.Update(msg)
		a.detail = m.(ActivityDetailModel)
		return a, cmd

	case OpenActivityDetailMsg:
		a.screen = ScreenDetail
		a.detail = NewActivityDetailModel(a.store, a.units, msg.ActivityID, a.width, a.height)
		return a, a.detail.Init()

	case storeChangedMsg:
		// Reload the list in place and keep listening
		m, _ := a.activities.Update(activitiesLoadedMsg{activities: newestFirst(a.store)})
		a.activities = m.(ActivitiesModel)
		return a, a.waitForChanges

	case ImportDoneMsg, noteMsg, spinner.TickMsg:
		// The import keeps running after leaving its screen
		m, cmd := a.importScreen.Update(msg)
		a.importScreen = m.(ImportModel)
		return a, cmd

	case activitiesLoadedMsg:
		m, cmd := a.activities.Update(msg)
		a.activities = m.(ActivitiesModel)
		return a, cmd
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenActivities:
		var m tea.Model
		m, cmd = a.activities.Update(msg)
		a.activities = m.(ActivitiesModel)
	case ScreenDetail:
		var m tea.Model
		m, cmd = a.detail.Update(msg)
		a.detail = m.(ActivityDetailModel)
	case ScreenImport:
		var m tea.Model
		m, cmd = a.importScreen.Update(msg)
		a.importScreen = m.(ImportModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	header := headerStyle.Render("runtopsy")
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenActivities:
		content = a.activities.View()
	case ScreenDetail:
		content = a.detail.View()
	case ScreenImport:
		content = a.importScreen.View()
	case ScreenHelp:
		content = a.help.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content)
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Activities", ScreenActivities},
		{"2", "Import", ScreenImport},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		active := a.screen == item.screen || (item.screen == ScreenActivities && a.screen == ScreenDetail)
		if active {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}
