package syncer

import (
	"context"
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/balkashynov/opsportal/internal/docstore"
	"github.com/balkashynov/opsportal/internal/models"
)

// legacyJobs lists jobs still kept under their location, after the root
// tasks collection. The parent location wins over any locationId field.
// A location whose jobs cannot be listed is skipped with a warning.
func (c *Coordinator) legacyJobs(ctx context.Context, log *logrus.Entry) ([]docstore.Document, error) {
	locations, err := c.docs.List(ctx, models.CollectionLocations, nil)
	if err != nil {
		return nil, err
	}

	var out []docstore.Document
	for _, loc := range locations {
		docs, err := c.docs.List(ctx, models.LegacyJobsCollection(loc.ID), nil)
		if err != nil {
			log.WithError(err).WithField("location", loc.ID).Warn("failed to list legacy jobs")
			continue
		}
		for _, doc := range docs {
			fields := make(map[string]any, len(doc.Fields)+1)
			maps.Copy(fields, doc.Fields)
			fields["locationId"] = loc.ID
			doc.Fields = fields
			out = append(out, doc)
		}
	}
	if len(out) > 0 {
		log.WithField("documents", len(out)).Debug("found legacy jobs")
	}
	return out, nil
}

// SyncVideos syncs robot videos into robot_intelligence. Only videos updated
// since the last full pass are read unless opts set their own window; the
// recorded sync time is left for SyncEverything to advance.
func (c *Coordinator) SyncVideos(ctx context.Context, opts ...Option) (BatchResult, error) {
	since, err := c.LastSyncAt(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	return c.SyncAll(ctx, KindVideos, append([]Option{Since(since)}, opts...)...)
}
