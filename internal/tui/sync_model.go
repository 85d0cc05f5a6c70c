package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/opsportal/internal/syncer"
)

// maxRecentErrors is how many failures the sync view keeps on screen
const maxRecentErrors = 5

// ProgressMsg carries one syncer.Progress report into the program
type ProgressMsg syncer.Progress

// DoneMsg is sent once the sync pass has returned
type DoneMsg struct {
	Err error
}

type kindStatus struct {
	done   int
	total  int
	failed int
}

// SyncModel renders a running sync pass: one line per kind, a progress bar
// for the kind in flight and the latest failures.
type SyncModel struct {
	title   string
	kinds   []syncer.Kind
	status  map[syncer.Kind]*kindStatus
	current syncer.Kind
	errors  []string

	spinner  spinner.Model
	progress progress.Model
	started  time.Time
	elapsed  time.Duration

	cancel     func()
	cancelling bool
	finished   bool
	err        error
	width      int
}

// NewSyncModel creates a sync view for kinds, in the order they will run.
// cancel is called when the user asks to stop.
func NewSyncModel(title string, kinds []syncer.Kind, cancel func()) SyncModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = headerStyle

	p := progress.New(progress.WithGradient(ColorAccentMain, ColorAccentBright))
	p.Width = 40

	status := make(map[syncer.Kind]*kindStatus, len(kinds))
	for _, k := range kinds {
		status[k] = &kindStatus{}
	}

	return SyncModel{
		title:    title,
		kinds:    kinds,
		status:   status,
		spinner:  s,
		progress: p,
		started:  time.Now(),
		cancel:   cancel,
	}
}

// Init starts the spinner
func (m SyncModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.current = msg.Kind
		st, ok := m.status[msg.Kind]
		if !ok {
			st = &kindStatus{}
			m.status[msg.Kind] = st
			m.kinds = append(m.kinds, msg.Kind)
		}
		st.done = msg.Done
		st.total = msg.Total
		if !msg.Last.Success {
			st.failed++
			m.errors = append(m.errors, fmt.Sprintf("%s %s: %s", msg.Kind.Label(), msg.Last.ID, msg.Last.Error))
			if len(m.errors) > maxRecentErrors {
				m.errors = m.errors[len(m.errors)-maxRecentErrors:]
			}
		}
		m.elapsed = time.Since(m.started)
		return m, nil

	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		m.elapsed = time.Since(m.started)
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 20; w > 10 && w < 60 {
			m.progress.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			// in-flight documents still finish, so wait for DoneMsg
			if !m.cancelling && m.cancel != nil {
				m.cancelling = true
				m.cancel()
			}
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the sync view
func (m SyncModel) View() string {
	var b strings.Builder

	var header string
	switch {
	case m.finished && m.err != nil:
		header = errorStyle.Render("✗ " + m.title)
	case m.finished:
		header = successStyle.Render("✓ " + m.title)
	default:
		header = m.spinner.View() + " " + headerStyle.Render(m.title)
	}
	b.WriteString(header + "\n\n")

	for _, k := range m.kinds {
		b.WriteString(m.renderKind(k) + "\n")
	}

	if len(m.errors) > 0 {
		b.WriteString("\n" + errorStyle.Render("Recent failures") + "\n")
		for _, e := range m.errors {
			b.WriteString(mutedStyle.Render("  "+e) + "\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.cancelling && !m.finished:
		b.WriteString(warningStyle.Render("Stopping after documents in flight..."))
	case m.finished:
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Finished in %s", m.elapsed.Round(time.Millisecond))))
	default:
		b.WriteString(helpStyle.Render("q stop"))
	}

	return panelStyle.Render(b.String()) + "\n"
}

func (m SyncModel) renderKind(k syncer.Kind) string {
	st := m.status[k]
	label := labelStyle.Render(string(k))

	switch {
	case st.total == 0 && m.finished:
		return label + pendingStyle.Render("nothing synced")
	case st.total == 0:
		return label + pendingStyle.Render("waiting")
	case st.done >= st.total && (k != m.current || m.finished):
		line := fmt.Sprintf("%d/%d", st.done-st.failed, st.total)
		if st.failed > 0 {
			return label + warningStyle.Render(fmt.Sprintf("%s synced, %d failed", line, st.failed))
		}
		return label + successStyle.Render(line+" synced")
	}

	percent := 0.0
	if st.total > 0 {
		percent = float64(st.done) / float64(st.total)
	}
	return label + m.progress.ViewAs(percent) + mutedStyle.Render(fmt.Sprintf(" %d/%d", st.done, st.total))
}
