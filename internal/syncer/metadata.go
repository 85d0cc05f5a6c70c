package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/balkashynov/opsportal/internal/docstore"
	"github.com/balkashynov/opsportal/internal/models"
)

const (
	metadataDocID = "sql_sync"
	direction     = "firebase_to_sql"
)

func (c *Coordinator) writeMetadata(ctx context.Context, full FullResult) error {
	return c.docs.Upsert(ctx, models.CollectionSyncMetadata, metadataDocID, map[string]any{
		"lastSyncAt":    full.StartedAt,
		"recordsSynced": full.RecordsSynced,
		"errors":        len(full.Errors),
		"direction":     direction,
	})
}

// LastSyncAt returns the start time of the last full pass, or the zero time
// when none has been recorded
func (c *Coordinator) LastSyncAt(ctx context.Context) (time.Time, error) {
	doc, err := c.docs.Get(ctx, models.CollectionSyncMetadata, metadataDocID)
	if errors.Is(err, docstore.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sync metadata: %w", err)
	}

	switch v := doc.Fields["lastSyncAt"].(type) {
	case time.Time:
		return v, nil
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("sync metadata has malformed lastSyncAt %v", v)
	}
}
