package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/opsportal/internal/models"
	"github.com/balkashynov/opsportal/internal/portal"
	"github.com/balkashynov/opsportal/internal/taskmachine"
	"github.com/balkashynov/opsportal/internal/tui"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start, stop and watch operator sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a session at a location",
	Long: `Start an operator session at a location. With --task the task is moved
to in_progress (claimed for the operator first if it is still available).
Opens the session clock by default, use --no-ui for a simple start.

Examples:
  opsportal session start -l loc-42 --operator op-7 --org acme --hours 4
  opsportal session start -l loc-42 --operator op-7 --org acme --hours 4 --task t-1 --no-ui`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		req := portal.StartSessionRequest{}
		req.LocationID, _ = cmd.Flags().GetString("location")
		req.OperatorID, _ = cmd.Flags().GetString("operator")
		req.PartnerOrgID, _ = cmd.Flags().GetString("org")
		req.TaskID, _ = cmd.Flags().GetString("task")
		req.AllowedHours, _ = cmd.Flags().GetFloat64("hours")

		ctx := cmd.Context()
		session, result, err := a.portal.StartSession(ctx, req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		noUI, _ := cmd.Flags().GetBool("no-ui")
		if noUI {
			fmt.Fprintf(out, "⏱️  Started session %s at %s\n", session.ID, locationLabel(session))
			fmt.Fprintf(out, "Started at: %s, allowed %s\n", session.StartedAt.Local().Format("15:04:05"), formatHours(session.AllowedHours))
			printWriteResult(out, result)
			return nil
		}
		return watchSession(ctx, out, a, session)
	}),
}

var sessionStopCmd = &cobra.Command{
	Use:   "stop <session-id>",
	Short: "Stop a session",
	Long: `Stop a session. --result closes the session's task in a terminal state
(completed, failed or aborted) when the state machine allows it.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		req := portal.StopSessionRequest{SessionID: args[0]}
		if s, _ := cmd.Flags().GetString("result"); s != "" {
			state, err := taskmachine.Parse(s)
			if err != nil {
				return err
			}
			req.ResultState = state
		}

		session, result, err := a.portal.StopSession(cmd.Context(), req)
		if err != nil {
			return err
		}
		printStopped(cmd.OutOrStdout(), session, req.ResultState)
		printWriteResult(cmd.OutOrStdout(), result)
		return nil
	}),
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status <location-id>",
	Short: "Show the running session at a location",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		session, err := a.portal.ActiveSession(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if session == nil {
			if format != outputText {
				return writeOutput(out, format, nil, nil)
			}
			fmt.Fprintf(out, "No active session at %s\n", args[0])
			return nil
		}

		if watch, _ := cmd.Flags().GetBool("watch"); watch && format == outputText {
			return watchSession(ctx, out, a, *session)
		}
		return writeOutput(out, format, session, func(w io.Writer) {
			elapsed := session.Duration(time.Now())
			fmt.Fprintf(w, "⏱️  Session %s at %s\n", session.ID, locationLabel(*session))
			fmt.Fprintf(w, "Operator: %s\n", session.OperatorID)
			if session.TaskID != "" {
				fmt.Fprintf(w, "Task: %s\n", session.TaskID)
			}
			if session.StartedAt != nil {
				fmt.Fprintf(w, "Started at: %s\n", session.StartedAt.Local().Format("15:04:05"))
			}
			fmt.Fprintf(w, "Elapsed time: %s of %s\n", formatDuration(elapsed), formatHours(session.AllowedHours))
		})
	}),
}

// watchSession opens the session clock and stops the session if asked to
func watchSession(ctx context.Context, out io.Writer, a *app, session models.Session) error {
	var task *models.Task
	if session.TaskID != "" {
		t, err := a.portal.GetTask(ctx, session.TaskID)
		if err == nil {
			task = &t
		}
	}

	stop, err := tui.RunSession(session, task)
	if err != nil {
		return err
	}
	if !stop {
		fmt.Fprintf(out, "\n💡 Session %s is still running.\n", session.ID)
		fmt.Fprintf(out, "   Use 'opsportal session status %s' to check it or 'opsportal session stop %s' to end it.\n",
			session.LocationID, session.ID)
		return nil
	}

	stopped, result, err := a.portal.StopSession(ctx, portal.StopSessionRequest{SessionID: session.ID})
	if err != nil {
		return fmt.Errorf("failed to stop session: %w", err)
	}
	printStopped(out, stopped, "")
	printWriteResult(out, result)
	return nil
}

func printStopped(w io.Writer, session models.Session, result taskmachine.State) {
	fmt.Fprintf(w, "⏹️  Stopped session %s at %s\n", session.ID, locationLabel(session))
	fmt.Fprintf(w, "📊 Session duration: %s\n", formatDuration(session.Duration(time.Now())))
	if result != "" {
		fmt.Fprintf(w, "Task %s is now %s\n", session.TaskID, result)
	}
}

func locationLabel(s models.Session) string {
	if s.LocationName != "" {
		return s.LocationName
	}
	return s.LocationID
}

func formatHours(h float64) string {
	return formatDuration(time.Duration(h * float64(time.Hour)))
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

func init() {
	sessionStartCmd.Flags().StringP("location", "l", "", "location id")
	sessionStartCmd.Flags().String("operator", "", "operator id")
	sessionStartCmd.Flags().String("org", "", "partner organization id")
	sessionStartCmd.Flags().String("task", "", "task to work on (optional)")
	sessionStartCmd.Flags().Float64("hours", 0, "allowed hours, at most 24")
	sessionStartCmd.Flags().Bool("no-ui", false, "start without the session clock")

	sessionStopCmd.Flags().String("result", "", "close the session's task as completed, failed or aborted")

	sessionStatusCmd.Flags().BoolP("watch", "w", false, "open the session clock")
	addOutputFlag(sessionStatusCmd)

	sessionCmd.AddCommand(sessionStartCmd, sessionStopCmd, sessionStatusCmd)
}
