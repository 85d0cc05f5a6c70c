package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/opsportal/internal/models"
	"github.com/balkashynov/opsportal/internal/parser"
	"github.com/balkashynov/opsportal/internal/portal"
	"github.com/balkashynov/opsportal/internal/taskmachine"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, inspect and move tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a new task",
	Long: `Create a new task at a location.

Quick syntax (flags win over parsed values):
  #category   - Category
  @location   - Location id
  +priority   - Priority (low/medium/high or 1/2/3)
  est:45m     - Estimated duration (45m, 2h or minutes)

Example:
  opsportal task create "Clean lobby windows #cleaning @loc-42 +high est:45m"`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		parsed := parser.ParseTitle(strings.Join(args, " "))
		if len(parsed.Errors) > 0 {
			return fmt.Errorf("%s", strings.Join(parsed.Errors, "; "))
		}

		req := portal.CreateTaskRequest{
			LocationID:        parsed.LocationID,
			Title:             parsed.Title,
			Category:          parsed.Category,
			Priority:          parsed.Priority,
			EstimatedDuration: parsed.EstimatedDuration,
		}
		if v, _ := cmd.Flags().GetString("location"); v != "" {
			req.LocationID = v
		}
		if v, _ := cmd.Flags().GetString("category"); v != "" {
			req.Category = v
		}
		if v, _ := cmd.Flags().GetString("priority"); v != "" {
			req.Priority = v
		}
		if cmd.Flags().Changed("estimate") {
			minutes, _ := cmd.Flags().GetInt("estimate")
			req.EstimatedDuration = &minutes
		}
		req.Description, _ = cmd.Flags().GetString("description")
		req.ActorID, _ = cmd.Flags().GetString("actor")
		if scheduled, _ := cmd.Flags().GetBool("scheduled"); scheduled {
			req.InitialState = taskmachine.Scheduled
		}

		task, result, err := a.portal.CreateTask(cmd.Context(), req)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✅ New task %q added - ID: %s (%s)\n", task.Title, task.ID, task.State)
		printWriteResult(out, result)
		return nil
	}),
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		task, err := a.portal.GetTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), format, task, func(w io.Writer) {
			printTask(w, task)
		})
	}),
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		filter := portal.TaskFilter{}
		filter.LocationID, _ = cmd.Flags().GetString("location")
		filter.AssigneeID, _ = cmd.Flags().GetString("assignee")
		if s, _ := cmd.Flags().GetString("state"); s != "" {
			state, err := taskmachine.Parse(s)
			if err != nil {
				return err
			}
			filter.State = state
		}

		tasks, err := a.portal.ListTasks(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), format, tasks, func(w io.Writer) {
			printTaskTable(w, tasks)
		})
	}),
}

var taskTransitionCmd = &cobra.Command{
	Use:   "transition <task-id> <state>",
	Short: "Move a task to another state",
	Long: `Move a task to another state. Allowed moves:

  scheduled   -> available
  available   -> claimed, aborted
  claimed     -> in_progress, aborted
  in_progress -> paused, completed, failed, aborted
  paused      -> in_progress, aborted`,
	Args: cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		next, err := taskmachine.Parse(args[1])
		if err != nil {
			return err
		}
		actor, _ := cmd.Flags().GetString("actor")

		task, result, err := a.portal.TransitionTask(cmd.Context(), args[0], next, actor)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Task %s is now %s\n", task.ID, task.State)
		printWriteResult(out, result)
		return nil
	}),
}

func printWriteResult(w io.Writer, r portal.WriteResult) {
	switch r.Relational {
	case portal.RelationalSynced:
		fmt.Fprintln(w, "Relational copy: synced")
	case portal.RelationalFailed:
		fmt.Fprintf(w, "⚠️  Relational copy: failed (%s). Run 'opsportal sync' to retry.\n", r.SyncError)
	default:
		fmt.Fprintln(w, "Relational copy: pending next sync")
	}
}

func printTask(w io.Writer, task models.Task) {
	fmt.Fprintf(w, "ID:        %s\n", task.ID)
	fmt.Fprintf(w, "Title:     %s\n", task.Title)
	fmt.Fprintf(w, "State:     %s\n", task.State)
	fmt.Fprintf(w, "Location:  %s\n", task.LocationID)
	if task.AssigneeID != "" {
		fmt.Fprintf(w, "Assignee:  %s\n", task.AssigneeID)
	}
	if task.Category != "" {
		fmt.Fprintf(w, "Category:  %s\n", task.Category)
	}
	if task.Priority != "" {
		fmt.Fprintf(w, "Priority:  %s\n", task.Priority)
	}
	if task.EstimatedDuration != nil {
		fmt.Fprintf(w, "Estimate:  %dm\n", *task.EstimatedDuration)
	}
	if task.Description != "" {
		fmt.Fprintf(w, "\n%s\n", task.Description)
	}
	if next := taskmachine.Next(task.State); len(next) > 0 {
		names := make([]string, len(next))
		for i, s := range next {
			names[i] = string(s)
		}
		fmt.Fprintf(w, "\nNext:      %s\n", strings.Join(names, ", "))
	}
}

func printTaskTable(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found. Use 'opsportal task create \"title @location\"' to create one.")
		return
	}

	fmt.Fprintf(w, "%-36s %-12s %-40s %-15s %-8s\n", "ID", "STATE", "TITLE", "LOCATION", "PRIORITY")
	fmt.Fprintln(w, strings.Repeat("-", 115))
	for _, task := range tasks {
		title := task.Title
		if len(title) > 38 {
			title = title[:35] + "..."
		}
		location := task.LocationID
		if len(location) > 13 {
			location = location[:10] + "..."
		}
		fmt.Fprintf(w, "%-36s %-12s %-40s %-15s %-8s\n", task.ID, task.State, title, location, task.Priority)
	}
}

func init() {
	taskCreateCmd.Flags().StringP("location", "l", "", "location id")
	taskCreateCmd.Flags().StringP("category", "c", "", "category")
	taskCreateCmd.Flags().StringP("priority", "p", "", "priority: low, medium, high or 1-3")
	taskCreateCmd.Flags().StringP("description", "d", "", "description")
	taskCreateCmd.Flags().Int("estimate", 0, "estimated duration in minutes")
	taskCreateCmd.Flags().Bool("scheduled", false, "create the task as scheduled instead of available")
	taskCreateCmd.Flags().String("actor", "", "who is creating the task (audit log)")

	addOutputFlag(taskShowCmd)

	taskListCmd.Flags().StringP("location", "l", "", "filter by location id")
	taskListCmd.Flags().StringP("state", "s", "", "filter by state")
	taskListCmd.Flags().String("assignee", "", "filter by assignee id")
	addOutputFlag(taskListCmd)

	taskTransitionCmd.Flags().String("actor", "", "who is moving the task (required to claim)")

	taskCmd.AddCommand(taskCreateCmd, taskShowCmd, taskListCmd, taskTransitionCmd)
}
