package portal

import (
	"context"
	"fmt"

	"github.com/balkashynov/opsportal/internal/models"
)

// Audit actions
const (
	ActionSessionStarted   = "session_started"
	ActionSessionStopped   = "session_stopped"
	ActionTaskCreated      = "task_created"
	ActionTaskTransitioned = "task_transitioned"
)

func (s *Service) audit(ctx context.Context, entityType, entityID, action, actorID string, details map[string]any) error {
	if actorID == "" {
		actorID = "system"
	}
	err := s.docs.Upsert(ctx, models.CollectionAuditLogs, s.newID(), map[string]any{
		"entityId":   entityID,
		"entityType": entityType,
		"action":     action,
		"actorId":    actorID,
		"createdAt":  s.timestamp(),
		"details":    details,
	})
	if err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
