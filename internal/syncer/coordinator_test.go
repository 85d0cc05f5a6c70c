package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/opsportal/internal/db"
	"github.com/balkashynov/opsportal/internal/docstore"
	"github.com/balkashynov/opsportal/internal/models"
	"github.com/balkashynov/opsportal/internal/testutil"
)

type fixture struct {
	docs *docstore.LocalStore
	rel  *db.Store
	sync *Coordinator
}

func newFixture(t *testing.T, opts ...CoordinatorOption) fixture {
	t.Helper()
	docs := testutil.Docstore(t)
	rel := testutil.Relational(t)
	opts = append([]CoordinatorOption{WithLogger(testutil.Logger())}, opts...)
	return fixture{docs: docs, rel: rel, sync: New(docs, rel, opts...)}
}

// flakyRelational wraps a real store with injectable failures
type flakyRelational struct {
	*db.Store
	pingErr   error
	upsertErr error
}

func (f flakyRelational) Ping(ctx context.Context) error {
	if f.pingErr != nil {
		return f.pingErr
	}
	return f.Store.Ping(ctx)
}

func (f flakyRelational) UpsertRow(ctx context.Context, table, id string, columns map[string]any) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.Store.UpsertRow(ctx, table, id, columns)
}

func rows(t *testing.T, rel *db.Store, table string) []map[string]any {
	t.Helper()
	out, err := rel.QueryRows(context.Background(), table, nil)
	require.NoError(t, err)
	return out
}

func TestSyncOne_Location(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.Seed(t, f.docs, models.CollectionLocations, map[string]map[string]any{
		"loc1": {
			"name":           "Harbor Hotel",
			"partnerOrgId":   "org-partner",
			"primaryContact": map[string]any{"name": "Dana", "phone": "555-0100"},
			"contact_email":  "front@harbor.example",
		},
	})

	res := f.sync.SyncOne(ctx, KindLocations, "loc1")
	require.True(t, res.Success, res.Error)

	got := rows(t, f.rel, models.TableLocations)
	require.Len(t, got, 1)
	assert.Equal(t, "loc1", got[0]["id"])
	assert.Equal(t, "Harbor Hotel", got[0]["name"])
	assert.Equal(t, "org-partner", got[0]["organization_id"])
	assert.Equal(t, "Dana", got[0]["contact_name"])
	assert.Equal(t, "555-0100", got[0]["contact_phone"])
	assert.Equal(t, "front@harbor.example", got[0]["contact_email"])
	assert.Nil(t, got[0]["address"])
}

func TestSyncOne_LocationDefaults(t *testing.T) {
	f := newFixture(t)
	testutil.Seed(t, f.docs, models.CollectionLocations, map[string]map[string]any{
		"bare": {},
	})

	res := f.sync.SyncOne(context.Background(), KindLocations, "bare")
	require.True(t, res.Success, res.Error)

	got := rows(t, f.rel, models.TableLocations)
	require.Len(t, got, 1)
	assert.Equal(t, "Unnamed", got[0]["name"])
	assert.Equal(t, "unassigned", got[0]["organization_id"])
}

func TestSyncOne_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.Seed(t, f.docs, models.CollectionTasks, map[string]map[string]any{
		"job1": {
			"locationId":        "loc1",
			"title":             "Turn down rooms",
			"state":             "claimed",
			"assigneeId":        "op-1",
			"estimatedDuration": 45,
			"updatedAt":         time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
		},
	})

	require.True(t, f.sync.SyncOne(ctx, KindTasks, "job1").Success)
	first := rows(t, f.rel, models.TableJobs)

	require.True(t, f.sync.SyncOne(ctx, KindTasks, "job1").Success)
	second := rows(t, f.rel, models.TableJobs)

	require.Len(t, second, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, "claimed", second[0]["state"])
	assert.Equal(t, "op-1", second[0]["assignee_id"])
	assert.EqualValues(t, 45, second[0]["estimated_duration_minutes"])
}

func TestSyncOne_LegacyJobFields(t *testing.T) {
	f := newFixture(t)
	testutil.Seed(t, f.docs, models.CollectionTasks, map[string]map[string]any{
		"old": {"propertyId": "loc9", "name": "Old style", "duration": 30},
	})

	res := f.sync.SyncOne(context.Background(), KindTasks, "old")
	require.True(t, res.Success, res.Error)

	got := rows(t, f.rel, models.TableJobs)
	require.Len(t, got, 1)
	assert.Equal(t, "loc9", got[0]["location_id"])
	assert.Equal(t, "Old style", got[0]["title"])
	assert.EqualValues(t, 30, got[0]["estimated_duration_minutes"])
	assert.Nil(t, got[0]["state"])
}

func TestSyncOne_NotFound(t *testing.T) {
	f := newFixture(t)

	res := f.sync.SyncOne(context.Background(), KindSessions, "ghost")
	assert.False(t, res.Success)
	assert.Equal(t, "ghost", res.ID)
	assert.Equal(t, "Session not found", res.Error)
	assert.Empty(t, rows(t, f.rel, models.TableShifts))
}

func TestSyncOne_InvalidStateLeavesRowUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.Seed(t, f.docs, models.CollectionTasks, map[string]map[string]any{
		"job1": {"locationId": "loc1", "title": "Mop", "state": "available"},
	})
	require.True(t, f.sync.SyncOne(ctx, KindTasks, "job1").Success)

	require.NoError(t, f.docs.Upsert(ctx, models.CollectionTasks, "job1", map[string]any{"state": "done", "title": "Changed"}))
	res := f.sync.SyncOne(ctx, KindTasks, "job1")

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "state")
	got := rows(t, f.rel, models.TableJobs)
	require.Len(t, got, 1)
	assert.Equal(t, "available", got[0]["state"])
	assert.Equal(t, "Mop", got[0]["title"])
}

func TestSyncOne_UnknownKind(t *testing.T) {
	f := newFixture(t)

	res := f.sync.SyncOne(context.Background(), Kind("robots"), "r1")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown sync kind")
}

func TestSyncOne_RelationalErrorDetail(t *testing.T) {
	docs := testutil.Docstore(t)
	rel := flakyRelational{
		Store:     testutil.Relational(t),
		upsertErr: fmt.Errorf("upsert: %w", &pq.Error{Code: "23505", Message: "duplicate key", Detail: "Key (id)=(s1) already exists."}),
	}
	c := New(docs, rel, WithLogger(testutil.Logger()))
	testutil.Seed(t, docs, models.CollectionSessions, map[string]map[string]any{
		"s1": {"locationId": "loc1", "operatorId": "op-1", "status": "active"},
	})

	res := c.SyncOne(context.Background(), KindSessions, "s1")
	assert.False(t, res.Success)
	assert.Equal(t, "23505", res.Code)
	assert.Equal(t, "Key (id)=(s1) already exists.", res.Detail)
}

func TestSyncAll_ItemThreeMalformed(t *testing.T) {
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			f := newFixture(t, WithWorkers(workers))
			docs := map[string]map[string]any{}
			for i := 1; i <= 5; i++ {
				fields := map[string]any{"locationId": "loc1", "title": fmt.Sprintf("Job %d", i)}
				if i == 3 {
					delete(fields, "locationId")
				}
				docs[fmt.Sprintf("job%d", i)] = fields
			}
			testutil.Seed(t, f.docs, models.CollectionTasks, docs)

			res, err := f.sync.SyncAll(context.Background(), KindTasks)
			require.NoError(t, err)

			assert.False(t, res.Success, "one failed item fails the batch")
			assert.False(t, res.Truncated)
			assert.Equal(t, KindTasks, res.Kind)
			assert.Equal(t, Counts{Synced: 4, Failed: 1}, res.Counts)
			require.Len(t, res.Errors, 1)
			assert.Contains(t, res.Errors[0], "job3")
			assert.Equal(t, "Job job3: locationId: required field missing", res.Errors[0])
			assert.Len(t, rows(t, f.rel, models.TableJobs), 4)
		})
	}
}

func TestSyncAll_ErrorsInListingOrder(t *testing.T) {
	f := newFixture(t, WithWorkers(4))
	docs := map[string]map[string]any{}
	for i := 0; i < 8; i++ {
		docs[fmt.Sprintf("m%d", i)] = map[string]any{"locationId": "loc1"} // no taskId
	}
	testutil.Seed(t, f.docs, models.CollectionMoments, docs)

	res, err := f.sync.SyncAll(context.Background(), KindMoments)
	require.NoError(t, err)
	require.Len(t, res.Errors, 8)
	for i, msg := range res.Errors {
		assert.Equal(t, fmt.Sprintf("Task m%d: taskId: required field missing", i), msg)
	}
}

func TestSyncAll_UnknownKind(t *testing.T) {
	f := newFixture(t)

	_, err := f.sync.SyncAll(context.Background(), Kind("robots"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSyncAll_StoreUnavailable(t *testing.T) {
	docs := testutil.Docstore(t)
	rel := flakyRelational{Store: testutil.Relational(t), pingErr: errors.New("connection refused")}
	c := New(docs, rel, WithLogger(testutil.Logger()))
	testutil.Seed(t, docs, models.CollectionLocations, map[string]map[string]any{"loc1": {}})

	_, err := c.SyncAll(context.Background(), KindLocations)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = c.SyncEverything(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSyncAll_TruncatedByBudget(t *testing.T) {
	f := newFixture(t)
	docs := map[string]map[string]any{}
	for i := 1; i <= 5; i++ {
		docs[fmt.Sprintf("loc%d", i)] = map[string]any{"name": "L"}
	}
	testutil.Seed(t, f.docs, models.CollectionLocations, docs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := f.sync.SyncAll(ctx, KindLocations, OnProgress(func(p Progress) {
		if p.Done == 2 {
			cancel()
		}
	}))
	require.NoError(t, err)

	assert.True(t, res.Truncated)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Counts.Synced)
	assert.Zero(t, res.Counts.Failed)

	got := rows(t, f.rel, models.TableLocations)
	require.Len(t, got, 2)
	assert.Equal(t, "loc1", got[0]["id"])
	assert.Equal(t, "loc2", got[1]["id"])
}

func TestSyncAll_Since(t *testing.T) {
	f := newFixture(t)
	testutil.Seed(t, f.docs, models.CollectionLocations, map[string]map[string]any{
		"loc1": {}, "loc2": {},
	})

	res, err := f.sync.SyncAll(context.Background(), KindLocations, Since(time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, Counts{Skipped: 2}, res.Counts)

	res, err = f.sync.SyncAll(context.Background(), KindLocations, Since(time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, Counts{Synced: 2}, res.Counts)
	assert.True(t, res.Success)
}

func TestSyncAll_Progress(t *testing.T) {
	f := newFixture(t)
	testutil.Seed(t, f.docs, models.CollectionLocations, map[string]map[string]any{
		"a": {}, "b": {}, "c": {},
	})

	var seen []Progress
	_, err := f.sync.SyncAll(context.Background(), KindLocations, OnProgress(func(p Progress) {
		seen = append(seen, p)
	}))
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, 3, seen[2].Done)
	assert.Equal(t, 3, seen[2].Total)
	assert.Equal(t, "c", seen[2].Last.ID)
}

func TestSyncAll_MediaDependsOnLocations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.Seed(t, f.docs, models.CollectionMedia, map[string]map[string]any{
		"vid1": {"locationId": "loc1", "taskId": "job1", "storageUrl": "gs://bucket/vid1.mp4", "fps": 29.97},
		"vid2": {"locationId": "loc1", "taskId": "ghost-job", "storageUrl": "gs://bucket/vid2.mp4"},
		"vid3": {"locationId": "loc1"},
	})

	res, err := f.sync.SyncAll(ctx, KindMedia)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Counts.Synced)
	assert.Contains(t, res.Errors, "Media vid1: Location loc1 not found in SQL. Sync locations first.")

	testutil.Seed(t, f.docs, models.CollectionLocations, map[string]map[string]any{
		"loc1": {"assignedOrganizationId": "org1"},
	})
	testutil.Seed(t, f.docs, models.CollectionTasks, map[string]map[string]any{
		"job1": {"locationId": "loc1", "title": "Film lobby"},
	})
	require.True(t, f.sync.SyncOne(ctx, KindLocations, "loc1").Success)
	require.True(t, f.sync.SyncOne(ctx, KindTasks, "job1").Success)

	res, err = f.sync.SyncAll(ctx, KindMedia)
	require.NoError(t, err)
	assert.Equal(t, Counts{Synced: 2, Failed: 1}, res.Counts)
	assert.Equal(t, []string{"Media vid3: storageUrl: required field missing"}, res.Errors)

	media := rows(t, f.rel, models.TableMedia)
	require.Len(t, media, 2)
	assert.Equal(t, "org1", media[0]["organization_id"])
	assert.Equal(t, "job1", media[0]["job_id"])
	assert.Equal(t, "video", media[0]["media_type"])
	assert.Equal(t, "completed", media[0]["processing_status"])
	assert.Equal(t, "admin", media[0]["uploaded_by"])
	assert.Nil(t, media[1]["job_id"], "unknown job is dropped, not failed")
}

func TestSyncOne_MomentMapsTaskIDToJobID(t *testing.T) {
	f := newFixture(t)
	testutil.Seed(t, f.docs, models.CollectionMoments, map[string]map[string]any{
		"mom1": {
			"taskId":        "job1",
			"locationId":    "loc1",
			"sessionId":     "s1",
			"title":         "Open blinds",
			"momentType":    "action",
			"sequenceOrder": 2,
			"tags":          []string{"blinds", "morning"},
			"humanVerified": true,
		},
	})

	res := f.sync.SyncOne(context.Background(), KindMoments, "mom1")
	require.True(t, res.Success, res.Error)

	got := rows(t, f.rel, models.TableTasks)
	require.Len(t, got, 1)
	assert.Equal(t, "job1", got[0]["job_id"])
	assert.Equal(t, "s1", got[0]["shift_id"])
	assert.Equal(t, "action", got[0]["task_type"])
	assert.EqualValues(t, 2, got[0]["sequence_order"])
	assert.Equal(t, `["blinds","morning"]`, got[0]["tags"])
	assert.Equal(t, `[]`, got[0]["keywords"])
}

func TestSyncOne_SessionToShift(t *testing.T) {
	f := newFixture(t)
	started := time.Date(2025, 4, 7, 22, 0, 0, 0, time.UTC)
	testutil.Seed(t, f.docs, models.CollectionSessions, map[string]map[string]any{
		"s1": {
			"operatorId":   "op-1",
			"partnerOrgId": "org1",
			"locationId":   "loc1",
			"taskId":       "job1",
			"allowedHours": 6,
			"status":       "active",
			"startedAt":    started,
			"endedAt":      nil,
		},
	})

	res := f.sync.SyncOne(context.Background(), KindSessions, "s1")
	require.True(t, res.Success, res.Error)

	got := rows(t, f.rel, models.TableShifts)
	require.Len(t, got, 1)
	assert.Equal(t, "job1", got[0]["job_id"])
	assert.Equal(t, "op-1", got[0]["teleoperator_id"])
	assert.Equal(t, "org1", got[0]["organization_id"])
	assert.Equal(t, "2025-04-07", got[0]["shift_date"])
	assert.Equal(t, "active", got[0]["status"])
	assert.EqualValues(t, 6, got[0]["allowed_hours"])
	assert.Nil(t, got[0]["ended_at"])
}

func TestSyncEverything(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, WithClock(clock.Now))
	ctx := context.Background()

	testutil.Seed(t, f.docs, models.CollectionLocations, map[string]map[string]any{
		"loc1": {"name": "HQ", "assignedOrganizationId": "org1"},
	})
	testutil.Seed(t, f.docs, models.CollectionTasks, map[string]map[string]any{
		"job1": {"locationId": "loc1", "title": "Sweep", "state": "in_progress"},
		"job2": {"title": "Nowhere"},
	})
	testutil.Seed(t, f.docs, models.CollectionSessions, map[string]map[string]any{
		"s1": {"locationId": "loc1", "operatorId": "op-1", "status": "ended"},
	})
	testutil.Seed(t, f.docs, models.CollectionMoments, map[string]map[string]any{
		"mom1": {"taskId": "job1", "locationId": "loc1", "title": "Sweep hall"},
	})
	testutil.Seed(t, f.docs, models.CollectionMedia, map[string]map[string]any{
		"vid1": {"locationId": "loc1", "taskId": "job1", "storageUrl": "gs://b/v1"},
	})

	last, err := f.sync.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	full, err := f.sync.SyncEverything(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Synced 1 locations, 1 jobs, 1 sessions, 1 tasks, 1 media files", full.Message)
	assert.Equal(t, 5, full.RecordsSynced)
	assert.False(t, full.Success)
	assert.Equal(t, []string{"Job job2: locationId: required field missing"}, full.Errors)

	require.Len(t, full.Batches, len(Order))
	for i, b := range full.Batches {
		assert.Equal(t, Order[i], b.Kind)
	}

	last, err = f.sync.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.True(t, last.Equal(clock.Now()))

	meta, err := f.docs.Get(ctx, models.CollectionSyncMetadata, "sql_sync")
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Fields["recordsSynced"])
	assert.Equal(t, int64(1), meta.Fields["errors"])
	assert.Equal(t, "firebase_to_sql", meta.Fields["direction"])
}

func TestLinkMedia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.rel.UpsertRow(ctx, models.TableMedia, "v1", map[string]any{
		"organization_id": "org1", "location_id": "loc1", "job_id": "job1", "storage_url": "gs://b/v1", "media_type": "video",
	}))
	require.NoError(t, f.rel.UpsertRow(ctx, models.TableMedia, "v2", map[string]any{
		"organization_id": "org1", "location_id": "loc1", "job_id": "job1", "storage_url": "gs://b/v2", "media_type": "video",
	}))
	require.NoError(t, f.rel.UpsertRow(ctx, models.TableMedia, "other", map[string]any{
		"organization_id": "org1", "location_id": "loc1", "job_id": "job2", "storage_url": "gs://b/o", "media_type": "video",
	}))
	for _, id := range []string{"t1", "t2"} {
		require.NoError(t, f.rel.UpsertRow(ctx, models.TableTasks, id, map[string]any{
			"location_id": "loc1", "job_id": "job1", "title": id,
		}))
	}

	res, err := f.sync.LinkMedia(ctx, "job1")
	require.NoError(t, err)
	assert.Equal(t, 4, res.LinksCreated)

	_, err = f.sync.LinkMedia(ctx, "job1")
	require.NoError(t, err)

	links := rows(t, f.rel, models.TableTaskMedia)
	require.Len(t, links, 4)
	assert.Equal(t, "t1:v1", links[0]["id"])
	assert.Equal(t, "job_reference", links[0]["media_role"])
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Moments ")
	require.NoError(t, err)
	assert.Equal(t, KindMoments, k)
	assert.Equal(t, models.TableTasks, k.Table())
	assert.Equal(t, "Task", k.Label())

	assert.Equal(t, models.TableJobs, KindTasks.Table())
	assert.Equal(t, models.TableShifts, KindSessions.Table())

	_, err = ParseKind("robots")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSyncAll_LegacyJobsUnderLocations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.Seed(t, f.docs, models.CollectionLocations, map[string]map[string]any{
		"loc1": {"name": "HQ"},
		"loc2": {"name": "Depot"},
	})
	testutil.Seed(t, f.docs, models.CollectionTasks, map[string]map[string]any{
		"job1": {"locationId": "loc1", "title": "Sweep"},
	})
	testutil.Seed(t, f.docs, models.LegacyJobsCollection("loc2"), map[string]map[string]any{
		"old1": {"title": "Restock", "locationId": "loc9"},
		"old2": {"name": "Inventory"},
	})

	res, err := f.sync.SyncAll(ctx, KindTasks)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, Counts{Synced: 3}, res.Counts)

	got := rows(t, f.rel, models.TableJobs)
	require.Len(t, got, 3)
	assert.Equal(t, "job1", got[0]["id"])
	assert.Equal(t, "old1", got[1]["id"])
	assert.Equal(t, "loc2", got[1]["location_id"], "parent location wins")
	assert.Equal(t, "Restock", got[1]["title"])
	assert.Equal(t, "Inventory", got[2]["title"])
}

func TestSyncOne_VideoToRobotIntelligence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uploaded := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	testutil.Seed(t, f.docs, models.CollectionVideos, map[string]map[string]any{
		"vid1": {
			"locationId":     "loc1",
			"userId":         "op-1",
			"organizationId": "org1",
			"videoUrl":       "gs://b/vid1.mp4",
			"fileSize":       2048,
			"duration":       12.5,
			"uploadedAt":     uploaded,
			"status":         "ready",
			"taskId":         "job1",
			"accuracy":       0.75,
			"annotations":    map[string]any{"labels": []any{"mop"}},
		},
		"vid2": {"locationId": "loc1"},
	})

	res := f.sync.SyncOne(ctx, KindVideos, "vid1")
	require.True(t, res.Success, res.Error)

	got := rows(t, f.rel, models.TableRobotIntelligence)
	require.Len(t, got, 1)
	row := got[0]
	assert.Equal(t, "vid1", row["firebase_id"])
	assert.Equal(t, "job1", row["task_id"])
	assert.Equal(t, "gs://b/vid1.mp4", row["video_url"])
	assert.EqualValues(t, 2048, row["file_size"])
	assert.EqualValues(t, 0, row["errors"])
	assert.InDelta(t, 0.75, row["accuracy"], 1e-9)
	assert.Nil(t, row["completion_time"])
	assert.JSONEq(t, `{"labels":["mop"]}`, row["annotations"].(string))

	res = f.sync.SyncOne(ctx, KindVideos, "vid2")
	assert.False(t, res.Success)
	assert.Equal(t, "videoUrl: required field missing", res.Error)
}

func TestSyncVideos_StartsFromLastFullSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.Seed(t, f.docs, models.CollectionVideos, map[string]map[string]any{
		"vid1": {"locationId": "loc1", "videoUrl": "gs://b/1"},
	})

	// nothing recorded yet: everything is read
	res, err := f.sync.SyncVideos(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Synced: 1}, res.Counts)

	first, err := f.docs.Get(ctx, models.CollectionVideos, "vid1")
	require.NoError(t, err)
	testutil.Seed(t, f.docs, models.CollectionSyncMetadata, map[string]map[string]any{
		"sql_sync": {"lastSyncAt": first.UpdateTime.Add(time.Millisecond)},
	})
	time.Sleep(5 * time.Millisecond)
	testutil.Seed(t, f.docs, models.CollectionVideos, map[string]map[string]any{
		"vid2": {"locationId": "loc1", "videoUrl": "gs://b/2"},
	})

	res, err = f.sync.SyncVideos(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Synced: 1, Skipped: 1}, res.Counts)
	assert.Len(t, rows(t, f.rel, models.TableRobotIntelligence), 2)

	// an explicit window wins over the recorded one
	res, err = f.sync.SyncVideos(ctx, Since(time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, Counts{Synced: 2}, res.Counts)

	last, err := f.sync.LastSyncAt(ctx)
	require.NoError(t, err)
	assert.True(t, last.Equal(first.UpdateTime.Add(time.Millisecond)), "video passes do not move the recorded sync time")
}
