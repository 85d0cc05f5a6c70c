package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/opsportal/internal/models"
)

// SessionModel shows a running session: time on site against the allowed hours
type SessionModel struct {
	width   int
	height  int
	session models.Session
	task    *models.Task

	now      func() time.Time
	elapsed  time.Duration
	progress progress.Model

	// UI state
	stopping bool // user pressed s, the caller stops the session
	exiting  bool // user left, the session keeps running
}

// sessionTickMsg is sent every second to update the clock
type sessionTickMsg time.Time

// NewSessionModel creates a session view. task may be nil.
func NewSessionModel(session models.Session, task *models.Task, now func() time.Time) SessionModel {
	if now == nil {
		now = time.Now
	}
	p := progress.New(progress.WithGradient(ColorAccentMain, ColorAccentBright))
	p.Width = 40

	return SessionModel{
		session:  session,
		task:     task,
		now:      now,
		elapsed:  session.Duration(now()),
		progress: p,
	}
}

// Init starts the clock
func (m SessionModel) Init() tea.Cmd {
	return sessionTick()
}

func sessionTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return sessionTickMsg(t)
	})
}

// Update handles messages
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionTickMsg:
		m.elapsed = m.session.Duration(m.now())
		if m.stopping || m.exiting {
			return m, nil
		}
		return m, sessionTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "s", "S":
			m.stopping = true
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			m.exiting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// Stopping reports whether the user asked to stop the session
func (m SessionModel) Stopping() bool {
	return m.stopping
}

// Used returns the share of allowed hours already spent, capped at 1
func (m SessionModel) Used() float64 {
	if m.session.AllowedHours <= 0 {
		return 0
	}
	used := m.elapsed.Hours() / m.session.AllowedHours
	if used > 1 {
		return 1
	}
	return used
}

// View renders the session view
func (m SessionModel) View() string {
	var components []string

	components = append(components, headerStyle.Render("⏱  ON SITE  ⏱"))

	where := m.session.LocationName
	if where == "" {
		where = m.session.LocationID
	}
	components = append(components, lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Bold(true).
		Render(where))

	if m.task != nil {
		components = append(components, mutedStyle.Render(fmt.Sprintf("%s · %s", m.task.Title, m.task.State)))
	}

	components = append(components, m.renderBigClock())

	allowed := time.Duration(m.session.AllowedHours * float64(time.Hour))
	bar := m.progress.ViewAs(m.Used())
	budget := fmt.Sprintf("%s of %s allowed", formatDuration(m.elapsed), formatDuration(allowed))
	if m.elapsed > allowed {
		budget = warningStyle.Render(fmt.Sprintf("%s over the allowed %s", formatDuration(m.elapsed-allowed), formatDuration(allowed)))
	} else {
		budget = mutedStyle.Render(budget)
	}
	components = append(components, bar, budget)

	if m.session.StartedAt != nil {
		components = append(components, mutedStyle.Italic(true).
			Render("Started at "+m.session.StartedAt.Local().Format("15:04:05")))
	}

	content := lipgloss.JoinVertical(lipgloss.Center, strings.Join(components, "\n\n"))
	help := helpStyle.Italic(true).Render("s stop session · esc/q exit (keep running)")

	if m.width == 0 || m.height == 0 {
		return content + "\n\n" + help + "\n"
	}
	body := lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, content)
	return lipgloss.JoinVertical(lipgloss.Left, body,
		lipgloss.NewStyle().Width(m.width).Align(lipgloss.Center).Render(help))
}

var clockDigits = map[rune][5]string{
	'0': {" ███ ", "█   █", "█   █", "█   █", " ███ "},
	'1': {"  █  ", " ██  ", "  █  ", "  █  ", "█████"},
	'2': {" ███ ", "█   █", "   █ ", "  █  ", "█████"},
	'3': {" ███ ", "█   █", "  ██ ", "█   █", " ███ "},
	'4': {"█   █", "█   █", "█████", "    █", "    █"},
	'5': {"█████", "█    ", "████ ", "    █", "████ "},
	'6': {" ███ ", "█    ", "████ ", "█   █", " ███ "},
	'7': {"█████", "    █", "   █ ", "  █  ", " █   "},
	'8': {" ███ ", "█   █", " ███ ", "█   █", " ███ "},
	'9': {" ███ ", "█   █", " ████", "    █", " ███ "},
	':': {"     ", "  █  ", "     ", "  █  ", "     "},
}

// renderBigClock renders the elapsed time in block digits
func (m SessionModel) renderBigClock() string {
	d := m.elapsed
	timeStr := fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)

	var lines [5]strings.Builder
	for _, char := range timeStr {
		art, ok := clockDigits[char]
		if !ok {
			continue
		}
		for i := range art {
			lines[i].WriteString(art[i])
			lines[i].WriteString(" ")
		}
	}

	out := make([]string, len(lines))
	for i := range lines {
		out[i] = headerStyle.Render(lines[i].String())
	}
	return strings.Join(out, "\n")
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d.Hours() >= 1 {
		return fmt.Sprintf("%.1fh", d.Hours())
	} else if d.Minutes() >= 1 {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	return fmt.Sprintf("%.0fs", d.Seconds())
}
