package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/opsportal/internal/models"
	"github.com/balkashynov/opsportal/internal/parser"
	"github.com/balkashynov/opsportal/internal/syncer"
	"github.com/balkashynov/opsportal/internal/tui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy documents into the relational store",
	Long: `Copy documents from the document store into the relational store.

Kinds and the tables they land in:
  locations -> locations
  tasks     -> jobs
  moments   -> tasks
  sessions  -> shifts
  media     -> media (needs its location synced first)
  videos    -> robot_intelligence`,
}

var syncOneCmd = &cobra.Command{
	Use:   "one <kind> <id>",
	Short: "Sync a single document",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		kind, err := syncer.ParseKind(args[0])
		if err != nil {
			return err
		}

		result := a.sync.SyncOne(cmd.Context(), kind, args[1])
		err = writeOutput(cmd.OutOrStdout(), format, result, func(w io.Writer) {
			if result.Success {
				fmt.Fprintf(w, "✅ %s %s synced\n", kind.Label(), result.ID)
				return
			}
			fmt.Fprintf(w, "❌ %s %s: %s\n", kind.Label(), result.ID, result.Error)
			printCodeDetail(w, result)
		})
		if err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("sync failed")
		}
		return nil
	}),
}

var syncAllCmd = &cobra.Command{
	Use:   "all <kind>",
	Short: "Sync every document of one kind",
	Long: `Sync every document of one kind.

--since limits the pass to documents updated after a point in time:
  dd/mm/yyyy, "N hours", "N days", "N weeks", an RFC 3339 time,
  or "last" for the start of the last full sync.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		kind, err := syncer.ParseKind(args[0])
		if err != nil {
			return err
		}
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		opts, err := sinceOption(cmd, a)
		if err != nil {
			return err
		}

		var batch syncer.BatchResult
		run := func(ctx context.Context, progress func(syncer.Progress)) error {
			var err error
			batch, err = a.sync.SyncAll(ctx, kind, append(opts, syncer.OnProgress(progress))...)
			return err
		}
		title := fmt.Sprintf("Syncing %s", kind)
		if err := runSync(cmd, format, title, []syncer.Kind{kind}, run); err != nil {
			return err
		}

		if err := writeOutput(cmd.OutOrStdout(), format, batch, func(w io.Writer) {
			printBatch(w, batch)
		}); err != nil {
			return err
		}
		return batchError(batch.Counts.Failed, batch.Truncated)
	}),
}

var syncEverythingCmd = &cobra.Command{
	Use:   "everything",
	Short: "Sync every kind in dependency order",
	Long: `Sync locations, tasks, sessions, moments and media, in that order, and
record the pass in the sync metadata document.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		opts, err := sinceOption(cmd, a)
		if err != nil {
			return err
		}

		var full syncer.FullResult
		run := func(ctx context.Context, progress func(syncer.Progress)) error {
			var err error
			full, err = a.sync.SyncEverything(ctx, append(opts, syncer.OnProgress(progress))...)
			return err
		}
		if err := runSync(cmd, format, "Syncing everything", syncer.Order, run); err != nil {
			return err
		}

		if err := writeOutput(cmd.OutOrStdout(), format, full, func(w io.Writer) {
			printFull(w, full)
		}); err != nil {
			return err
		}

		failed, truncated := 0, false
		for _, b := range full.Batches {
			failed += b.Counts.Failed
			truncated = truncated || b.Truncated
		}
		return batchError(failed, truncated)
	}),
}

var syncVideosCmd = &cobra.Command{
	Use:   "videos",
	Short: "Sync robot videos into robot_intelligence",
	Long: `Sync robot videos into the robot_intelligence table.

By default only videos updated since the last full sync are read.
--since sets a different window.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		opts, err := sinceOption(cmd, a)
		if err != nil {
			return err
		}

		var batch syncer.BatchResult
		run := func(ctx context.Context, progress func(syncer.Progress)) error {
			var err error
			batch, err = a.sync.SyncVideos(ctx, append(opts, syncer.OnProgress(progress))...)
			return err
		}
		if err := runSync(cmd, format, "Syncing videos", []syncer.Kind{syncer.KindVideos}, run); err != nil {
			return err
		}

		if err := writeOutput(cmd.OutOrStdout(), format, batch, func(w io.Writer) {
			printBatch(w, batch)
		}); err != nil {
			return err
		}
		return batchError(batch.Counts.Failed, batch.Truncated)
	}),
}

var syncLinkMediaCmd = &cobra.Command{
	Use:   "link-media <job-id>",
	Short: "Link a job's media to all of its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		jobID := args[0]

		exists, err := a.rel.Exists(ctx, models.TableJobs, jobID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("job %s not found in SQL. Sync tasks first", jobID)
		}

		result, err := a.sync.LinkMedia(ctx, jobID)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), format, result, func(w io.Writer) {
			fmt.Fprintf(w, "🔗 Linked %d media-task pairs for job %s\n", result.LinksCreated, result.JobID)
		})
	}),
}

// sinceOption turns --since into a batch option
func sinceOption(cmd *cobra.Command, a *app) ([]syncer.Option, error) {
	input, _ := cmd.Flags().GetString("since")
	if input == "" {
		return nil, nil
	}

	var (
		since time.Time
		err   error
	)
	if parser.IsLastSync(input) {
		since, err = a.sync.LastSyncAt(cmd.Context())
		if err != nil {
			return nil, err
		}
		if since.IsZero() {
			fmt.Fprintln(cmd.ErrOrStderr(), "No previous sync recorded, syncing everything.")
			return nil, nil
		}
	} else {
		since, err = parser.ParseSince(input, time.Now())
		if err != nil {
			return nil, err
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Syncing documents updated %s\n", parser.FormatSince(since, time.Now()))
	return []syncer.Option{syncer.Since(since)}, nil
}

// runSync runs the pass behind the live view, or directly with --no-ui or
// a machine-readable output format
func runSync(cmd *cobra.Command, format, title string, kinds []syncer.Kind, run tui.SyncFunc) error {
	noUI, _ := cmd.Flags().GetBool("no-ui")
	if noUI || format != outputText {
		return run(cmd.Context(), nil)
	}
	return tui.RunSync(cmd.Context(), title, kinds, run)
}

func batchError(failed int, truncated bool) error {
	switch {
	case truncated:
		return fmt.Errorf("sync stopped before every document was attempted")
	case failed > 0:
		return fmt.Errorf("%d documents failed to sync", failed)
	}
	return nil
}

func printBatch(w io.Writer, b syncer.BatchResult) {
	c := b.Counts
	fmt.Fprintf(w, "%s: %d synced, %d failed, %d skipped in %s\n",
		b.Kind, c.Synced, c.Failed, c.Skipped, b.Duration.Round(time.Millisecond))
	if b.Truncated {
		fmt.Fprintln(w, "⚠️  Time budget ran out; remaining documents were not attempted.")
	}
	for _, e := range b.Errors {
		fmt.Fprintf(w, "  ❌ %s\n", e)
	}
}

func printFull(w io.Writer, full syncer.FullResult) {
	for _, b := range full.Batches {
		printBatch(w, b)
	}
	fmt.Fprintln(w)
	if full.Success {
		fmt.Fprintf(w, "✅ %s\n", full.Message)
	} else {
		fmt.Fprintf(w, "⚠️  %s (%d errors)\n", full.Message, len(full.Errors))
	}
}

func printCodeDetail(w io.Writer, r syncer.Result) {
	if r.Code != "" {
		fmt.Fprintf(w, "   code: %s\n", r.Code)
	}
	if r.Detail != "" {
		fmt.Fprintf(w, "   detail: %s\n", r.Detail)
	}
}

func init() {
	for _, c := range []*cobra.Command{syncAllCmd, syncEverythingCmd, syncVideosCmd} {
		c.Flags().String("since", "", `only documents updated since: dd/mm/yyyy, "N days", "N hours", "N weeks" or "last"`)
		c.Flags().Int("workers", 0, "documents synced at once (default from config)")
		c.Flags().Bool("no-ui", false, "run without the live progress view")
	}
	for _, c := range []*cobra.Command{syncOneCmd, syncAllCmd, syncEverythingCmd, syncVideosCmd, syncLinkMediaCmd} {
		addOutputFlag(c)
	}

	syncCmd.AddCommand(syncOneCmd, syncAllCmd, syncEverythingCmd, syncVideosCmd, syncLinkMediaCmd)
}
