package syncer

import (
	"context"
	"fmt"

	"github.com/balkashynov/opsportal/internal/models"
)

const mediaRoleJobReference = "job_reference"

// LinkMedia links every media row of a job to every task row of the same
// job. Existing links are rewritten in place, so repeating it is harmless.
func (c *Coordinator) LinkMedia(ctx context.Context, jobID string) (LinkResult, error) {
	result := LinkResult{JobID: jobID}

	media, err := c.rel.QueryRows(ctx, models.TableMedia, map[string]any{"job_id": jobID})
	if err != nil {
		return result, fmt.Errorf("failed to load media for job %s: %w", jobID, err)
	}
	tasks, err := c.rel.QueryRows(ctx, models.TableTasks, map[string]any{"job_id": jobID})
	if err != nil {
		return result, fmt.Errorf("failed to load tasks for job %s: %w", jobID, err)
	}

	for _, m := range media {
		mediaID := asString(m["id"])
		for _, t := range tasks {
			taskID := asString(t["id"])
			err := c.rel.UpsertRow(ctx, models.TableTaskMedia, taskID+":"+mediaID, map[string]any{
				"task_id":    taskID,
				"media_id":   mediaID,
				"media_role": mediaRoleJobReference,
			})
			if err != nil {
				return result, fmt.Errorf("failed to link media %s to task %s: %w", mediaID, taskID, err)
			}
			result.LinksCreated++
		}
	}

	c.log.WithField("job_id", jobID).Infof("auto-linked %d media-task relationships", result.LinksCreated)
	return result, nil
}
