package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"runtopsy/internal/importer"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// ImportModel is the import screen model
type ImportModel struct {
	coordinator *importer.Coordinator
	notes       *NoteWriter
	spinner     spinner.Model
	importing   bool
	started     time.Time
	elapsed     time.Duration
	results     []importer.Result
	messages    []string
	err         error
	done        bool
}

// NewImportModel creates a new import model. Notes written to notes while
// an import runs, such as an authorization URL, are shown on the screen.
func NewImportModel(c *importer.Coordinator, notes *NoteWriter) ImportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentColor)

	return ImportModel{
		coordinator: c,
		notes:       notes,
		spinner:     s,
	}
}

// Init starts listening for notes
func (m ImportModel) Init() tea.Cmd {
	return m.notes.wait()
}

// ImportDoneMsg is sent when an import run finishes
type ImportDoneMsg struct {
	Results []importer.Result
	Err     error
}

type noteMsg string

// Update handles messages
func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ImportDoneMsg:
		m.importing = false
		m.done = true
		m.elapsed = time.Since(m.started)
		m.results = msg.Results
		m.err = msg.Err
		return m, nil

	case noteMsg:
		m.messages = append(m.messages, string(msg))
		return m, m.notes.wait()

	case spinner.TickMsg:
		if !m.importing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if !m.importing {
			switch msg.String() {
			case "enter", "i":
				return m.start()
			}
		}
	}
	return m, nil
}

func (m ImportModel) start() (ImportModel, tea.Cmd) {
	m.importing = true
	m.done = false
	m.err = nil
	m.results = nil
	m.messages = nil
	m.started = time.Now()
	return m, tea.Batch(m.runImport, m.spinner.Tick)
}

func (m ImportModel) runImport() tea.Msg {
	results, err := m.coordinator.Run(context.Background())
	return ImportDoneMsg{Results: results, Err: err}
}

// View renders the import screen
func (m ImportModel) View() string {
	var sections []string

	sections = append(sections, cardTitleStyle.Render("Import"))

	if m.importing {
		sections = append(sections, fmt.Sprintf("\n  %s Importing activities...", m.spinner.View()))
		sections = append(sections, m.renderMessages())
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.err != nil {
		if errors.Is(m.err, importer.ErrImportInProgress) {
			sections = append(sections, warningStyle.Render("\n  An import is already running"))
		} else {
			sections = append(sections, errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)))
		}
	} else if m.done {
		sections = append(sections, successStyle.Render(fmt.Sprintf("\n  Import complete in %s", m.elapsed.Round(time.Second))))
	}

	if m.done {
		sections = append(sections, m.renderResults())
		sections = append(sections, m.renderMessages())
		sections = append(sections, "\n"+statusStyle.Render("  Press 'i' or Enter to import again, '1' for the activity list"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	sections = append(sections, m.renderStartPrompt())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ImportModel) renderStartPrompt() string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, "  This will run the configured importers:")
	lines = append(lines, "")
	for i, imp := range m.coordinator.Importers() {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, imp.Name()))
	}
	if len(m.coordinator.Importers()) == 0 {
		lines = append(lines, warningStyle.Render("  No importers enabled. Check the config file."))
	}
	lines = append(lines, "")
	lines = append(lines, statusStyle.Render("  Press 'i' or Enter to start"))

	return strings.Join(lines, "\n")
}

func (m ImportModel) renderResults() string {
	var lines []string

	lines = append(lines, "")
	if len(m.results) == 0 {
		lines = append(lines, statusStyle.Render("  No importer ran"))
	}
	for _, r := range m.results {
		lines = append(lines, sectionStyle.Render("  "+r.Importer))
		if r.Upserted > 0 {
			lines = append(lines, successStyle.Render(fmt.Sprintf("    %s activities imported", humanize.Comma(int64(r.Upserted)))))
		} else {
			lines = append(lines, statusStyle.Render("    No new activities"))
		}
		if r.Unchanged > 0 {
			lines = append(lines, fmt.Sprintf("    %s unchanged", humanize.Comma(int64(r.Unchanged))))
		}
		if r.Records > 0 {
			lines = append(lines, fmt.Sprintf("    %s time series stored", humanize.Comma(int64(r.Records))))
		}
		if r.Failed > 0 {
			lines = append(lines, warningStyle.Render(fmt.Sprintf("    %d could not be read, see the log", r.Failed)))
		}
	}
	return strings.Join(lines, "\n")
}

func (m ImportModel) renderMessages() string {
	if len(m.messages) == 0 {
		return ""
	}
	lines := []string{""}
	for _, msg := range m.messages {
		lines = append(lines, "  "+msg)
	}
	return strings.Join(lines, "\n")
}

// NoteWriter is an io.Writer whose lines show up on the import screen
type NoteWriter struct {
	ch chan string
}

// NewNoteWriter creates a NoteWriter
func NewNoteWriter() *NoteWriter {
	return &NoteWriter{ch: make(chan string, 16)}
}

// Write queues each non-empty line. Lines are dropped when the screen
// is not keeping up.
func (w *NoteWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		select {
		case w.ch <- line:
		default:
		}
	}
	return len(p), nil
}

func (w *NoteWriter) wait() tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		return noteMsg(<-w.ch)
	}
}
