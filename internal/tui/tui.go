package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/opsportal/internal/models"
	"github.com/balkashynov/opsportal/internal/syncer"
)

// SyncFunc runs a sync pass, reporting each attempted document to progress
type SyncFunc func(ctx context.Context, progress func(syncer.Progress)) error

// RunSync shows a live view of run. Pressing q cancels the context handed
// to run; the view stays up until run returns. The error is run's own.
func RunSync(ctx context.Context, title string, kinds []syncer.Kind, run SyncFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewSyncModel(title, kinds, cancel))

	done := make(chan error, 1)
	go func() {
		err := run(ctx, func(pr syncer.Progress) {
			p.Send(ProgressMsg(pr))
		})
		done <- err
		p.Send(DoneMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return err
	}
	return <-done
}

// RunSession shows the session clock until the user leaves. It reports
// whether the user asked to stop the session.
func RunSession(session models.Session, task *models.Task) (bool, error) {
	p := tea.NewProgram(NewSessionModel(session, task, time.Now), tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return false, err
	}
	m, ok := finalModel.(SessionModel)
	return ok && m.Stopping(), nil
}
