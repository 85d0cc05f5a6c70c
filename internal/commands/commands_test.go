package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/balkashynov/opsportal/internal/docstore"
	"github.com/balkashynov/opsportal/internal/models"
	"github.com/balkashynov/opsportal/internal/syncer"
	"github.com/balkashynov/opsportal/internal/testutil"
)

type env struct {
	docsPath string
}

// setupEnv points the config at sqlite files in a temp dir
func setupEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	e := env{docsPath: filepath.Join(dir, "documents.db")}

	t.Setenv("HOME", dir)
	t.Setenv("OPSPORTAL_DOCSTORE_PATH", e.docsPath)
	t.Setenv("OPSPORTAL_RELATIONAL_PATH", filepath.Join(dir, "portal.db"))
	t.Setenv("OPSPORTAL_LOG_LEVEL", "error")
	return e
}

// seed writes documents straight into the local document store
func (e env) seed(t *testing.T, collection string, docs map[string]map[string]any) {
	t.Helper()
	store, err := docstore.OpenLocal(e.docsPath)
	require.NoError(t, err)
	defer store.Close()
	testutil.Seed(t, store, collection, docs)
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	resetFlags(rootCmd)
	return out.String(), err
}

var taskIDPattern = regexp.MustCompile(`ID: (\S+) \(`)

func TestCLI_TaskLifecycle(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "task", "create", "Clean lobby windows #cleaning @loc1 +high est:45m")
	require.NoError(t, err, out)
	assert.Contains(t, out, `New task "Clean lobby windows" added`)
	assert.Contains(t, out, "pending next sync")

	m := taskIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	_, err = run(t, "task", "transition", id, "claimed")
	assert.Error(t, err, "claiming needs an actor")

	out, err = run(t, "task", "transition", id, "claimed", "--actor", "op1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "is now claimed")

	out, err = run(t, "task", "show", id, "-o", "json")
	require.NoError(t, err, out)
	var task models.Task
	require.NoError(t, json.Unmarshal([]byte(out), &task))
	assert.Equal(t, "claimed", string(task.State))
	assert.Equal(t, "op1", task.AssigneeID)
	assert.Equal(t, "cleaning", task.Category)
	assert.Equal(t, "high", task.Priority)
	require.NotNil(t, task.EstimatedDuration)
	assert.Equal(t, 45, *task.EstimatedDuration)

	out, err = run(t, "task", "list", "--state", "claimed")
	require.NoError(t, err)
	assert.Contains(t, out, "Clean lobby windows")

	out, err = run(t, "task", "list", "--state", "available")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks found")

	_, err = run(t, "task", "transition", id, "completed", "--actor", "op1")
	assert.ErrorContains(t, err, "cannot move")
}

func TestCLI_TaskCreateRejectsBadSyntax(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "task", "create", "Restock minibar @loc1 +urgent")
	assert.ErrorContains(t, err, "Invalid priority")

	_, err = run(t, "task", "create", "No location here")
	assert.ErrorContains(t, err, "locationId is required")
}

func TestCLI_SessionStartStop(t *testing.T) {
	e := setupEnv(t)
	e.seed(t, models.CollectionLocations, map[string]map[string]any{
		"loc1": {"name": "Harbor Hotel", "assignedOrganizationId": "org1"},
	})

	out, err := run(t, "session", "start", "-l", "loc1", "--operator", "op1", "--org", "org1", "--hours", "4", "--no-ui")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Started session")
	assert.Contains(t, out, "Harbor Hotel")

	out, err = run(t, "session", "status", "loc1", "-o", "json")
	require.NoError(t, err, out)
	var session models.Session
	require.NoError(t, json.Unmarshal([]byte(out), &session))
	assert.Equal(t, models.SessionActive, session.Status)

	_, err = run(t, "session", "start", "-l", "loc1", "--operator", "op2", "--org", "org1", "--hours", "2", "--no-ui")
	assert.ErrorContains(t, err, "active session")

	out, err = run(t, "session", "stop", session.ID)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Stopped session "+session.ID)

	out, err = run(t, "session", "status", "loc1")
	require.NoError(t, err)
	assert.Contains(t, out, "No active session at loc1")
}

func TestCLI_SyncAndReport(t *testing.T) {
	e := setupEnv(t)
	started := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	e.seed(t, models.CollectionLocations, map[string]map[string]any{
		"loc1": {"name": "Harbor Hotel", "assignedOrganizationId": "org1"},
	})
	e.seed(t, models.CollectionTasks, map[string]map[string]any{
		"job1": {"locationId": "loc1", "title": "Deep clean", "state": "available"},
		"job2": {"title": "No location"},
	})
	e.seed(t, models.CollectionSessions, map[string]map[string]any{
		"s1": {
			"locationId":   "loc1",
			"locationName": "Harbor Hotel",
			"operatorId":   "op1",
			"status":       "ended",
			"startedAt":    started,
			"endedAt":      started.Add(4 * time.Hour),
		},
	})

	out, err := run(t, "sync", "everything", "--no-ui", "-o", "json")
	require.Error(t, err, "job2 is missing its location")
	var full syncer.FullResult
	require.NoError(t, json.Unmarshal([]byte(out[bytes.IndexByte([]byte(out), '{'):]), &full), out)
	assert.Equal(t, 3, full.RecordsSynced)
	assert.Equal(t, "Synced 1 locations, 1 jobs, 1 sessions, 0 tasks, 0 media files", full.Message)
	assert.Len(t, full.Errors, 1)
	assert.Contains(t, full.Errors[0], "Job job2: ")

	out, err = run(t, "sync", "one", "locations", "loc1", "-o", "yaml")
	require.NoError(t, err, out)
	var one syncer.Result
	require.NoError(t, yaml.Unmarshal([]byte(out), &one))
	assert.True(t, one.Success)

	out, err = run(t, "sync", "one", "locations", "missing")
	assert.Error(t, err)
	assert.Contains(t, out, "Location not found")

	// only job2 changed since the full pass
	e.seed(t, models.CollectionTasks, map[string]map[string]any{
		"job2": {"locationId": "loc1"},
	})
	out, err = run(t, "sync", "all", "tasks", "--no-ui", "--since", "last", "--workers", "2")
	require.NoError(t, err, out)
	assert.Contains(t, out, "tasks: 1 synced, 0 failed, 1 skipped")

	e.seed(t, models.CollectionVideos, map[string]map[string]any{
		"vid1": {"locationId": "loc1", "videoUrl": "gs://b/vid1.mp4"},
	})
	out, err = run(t, "sync", "videos", "--no-ui")
	require.NoError(t, err, out)
	assert.Contains(t, out, "videos: 1 synced, 0 failed, 0 skipped")

	_, err = run(t, "sync", "link-media", "nope")
	assert.ErrorContains(t, err, "not found in SQL")

	out, err = run(t, "sync", "link-media", "job1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Linked 0 media-task pairs for job job1")

	out, err = run(t, "report", "shifts", "--week", "05/03/2025", "-o", "json")
	require.NoError(t, err, out)
	var report ShiftReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Shifts)
	assert.InDelta(t, 4.0, report.Total, 1e-9)
	assert.Equal(t, "Harbor Hotel", report.Locations[0].Name)
}

func TestCLI_InvalidOutput(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "task", "list", "-o", "xml")
	assert.ErrorContains(t, err, "invalid output format")
}

func TestCLI_Version(t *testing.T) {
	SetVersion("1.2.3", "abc", "today")
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "opsportal 1.2.3 (commit abc, built today)\n", out)
}
