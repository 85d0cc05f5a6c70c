package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/balkashynov/opsportal/internal/docstore"
	"github.com/balkashynov/opsportal/internal/models"
	"github.com/balkashynov/opsportal/internal/syncer"
	"github.com/balkashynov/opsportal/internal/taskmachine"
)

// MaxAllowedHours caps the length of one session
const MaxAllowedHours = 24

// StartSessionRequest holds the data needed to start a session
type StartSessionRequest struct {
	OperatorID   string
	PartnerOrgID string
	LocationID   string
	TaskID       string // optional
	AllowedHours float64
}

// StopSessionRequest ends a session, optionally closing its task
type StopSessionRequest struct {
	SessionID   string
	ResultState taskmachine.State // optional, must be terminal
}

// StartSession opens a session at a location. When a task is given it is
// moved to in_progress through the state machine (claiming it for the
// operator first if it is still available). A task already in progress is
// reassigned to the operator. Every check runs before the first write.
func (s *Service) StartSession(ctx context.Context, req StartSessionRequest) (models.Session, WriteResult, error) {
	if err := req.validate(); err != nil {
		return models.Session{}, WriteResult{}, err
	}

	location, err := s.getLocation(ctx, req.LocationID)
	if err != nil {
		return models.Session{}, WriteResult{}, err
	}
	if location.ActiveSessionID != "" {
		active, err := s.getSession(ctx, location.ActiveSessionID)
		switch {
		case err == nil && active.Active():
			return models.Session{}, WriteResult{}, fmt.Errorf("%w: session %s", ErrSessionActive, active.ID)
		case err != nil && !errors.Is(err, ErrNotFound):
			return models.Session{}, WriteResult{}, err
		}
		// stale pointer to an ended or deleted session
	}

	if req.TaskID != "" {
		task, err := s.GetTask(ctx, req.TaskID)
		if err != nil {
			return models.Session{}, WriteResult{}, err
		}
		if task.LocationID != req.LocationID {
			return models.Session{}, WriteResult{}, fmt.Errorf("%w: task %s belongs to location %s", ErrValidation, task.ID, task.LocationID)
		}
		if _, err := pathToInProgress(task.State); err != nil {
			return models.Session{}, WriteResult{}, fmt.Errorf("task %s: %w", task.ID, err)
		}
	}

	now := s.timestamp()
	session := models.Session{
		ID:           s.newID(),
		OperatorID:   req.OperatorID,
		PartnerOrgID: req.PartnerOrgID,
		LocationID:   req.LocationID,
		LocationName: location.Name,
		TaskID:       req.TaskID,
		AllowedHours: req.AllowedHours,
		Status:       models.SessionActive,
		StartedAt:    &now,
	}

	var taskID any
	if req.TaskID != "" {
		taskID = req.TaskID
	}
	err = s.docs.Upsert(ctx, models.CollectionSessions, session.ID, map[string]any{
		"operatorId":   session.OperatorID,
		"partnerOrgId": session.PartnerOrgID,
		"locationId":   session.LocationID,
		"locationName": session.LocationName,
		"taskId":       taskID,
		"allowedHours": session.AllowedHours,
		"status":       string(session.Status),
		"startedAt":    now,
		"endedAt":      nil,
		"createdAt":    now,
		"updatedAt":    now,
	})
	if err != nil {
		return models.Session{}, WriteResult{}, fmt.Errorf("failed to create session: %w", err)
	}

	err = s.docs.Upsert(ctx, models.CollectionLocations, req.LocationID, map[string]any{
		"activeSessionId": session.ID,
		"updatedAt":       now,
	})
	if err != nil {
		return session, WriteResult{DocumentWritten: true, Relational: RelationalPending},
			fmt.Errorf("session %s created but location not updated: %w", session.ID, err)
	}

	if err := s.audit(ctx, "session", session.ID, ActionSessionStarted, req.OperatorID, map[string]any{
		"locationId":    req.LocationID,
		"taskId":        taskID,
		"allowed_hours": req.AllowedHours,
	}); err != nil {
		s.log.WithError(err).Warn("session started without audit entry")
	}

	targets := []syncTarget{{syncer.KindLocations, req.LocationID}}
	if req.TaskID != "" {
		// the operator takes the task even when it is already in progress
		fields := map[string]any{
			"state":      string(taskmachine.InProgress),
			"assigneeId": req.OperatorID,
			"updatedAt":  now,
		}
		if err := s.docs.Upsert(ctx, models.CollectionTasks, req.TaskID, fields); err != nil {
			return session, WriteResult{DocumentWritten: true, Relational: RelationalPending},
				fmt.Errorf("session %s started but task %s not updated: %w", session.ID, req.TaskID, err)
		}
		targets = append(targets, syncTarget{syncer.KindTasks, req.TaskID})
	}
	targets = append(targets, syncTarget{syncer.KindSessions, session.ID})

	s.log.WithFields(logrus.Fields{
		"session_id":  session.ID,
		"location_id": req.LocationID,
		"task_id":     req.TaskID,
	}).Info("session started")

	return session, s.afterWrite(ctx, targets...), nil
}

// StopSession ends a session and clears the location's pointer to it. A
// result state, when given, must be terminal and reachable from the task's
// current state.
func (s *Service) StopSession(ctx context.Context, req StopSessionRequest) (models.Session, WriteResult, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return models.Session{}, WriteResult{}, fmt.Errorf("%w: sessionId is required", ErrValidation)
	}

	session, err := s.getSession(ctx, req.SessionID)
	if err != nil {
		return models.Session{}, WriteResult{}, err
	}
	if !session.Active() {
		return session, WriteResult{}, fmt.Errorf("%w: %s", ErrSessionEnded, session.ID)
	}

	if req.ResultState != "" {
		if !taskmachine.IsTerminal(req.ResultState) {
			return session, WriteResult{}, fmt.Errorf("%w: result state %q is not terminal", ErrInvalidState, req.ResultState)
		}
		if session.TaskID == "" {
			return session, WriteResult{}, fmt.Errorf("%w: session %s has no task to close", ErrValidation, session.ID)
		}
		task, err := s.GetTask(ctx, session.TaskID)
		if err != nil {
			return session, WriteResult{}, err
		}
		if !taskmachine.CanTransition(task.State, req.ResultState) {
			return session, WriteResult{}, fmt.Errorf("%w: task %s cannot move from %q to %q",
				ErrInvalidTransition, task.ID, task.State, req.ResultState)
		}
	}

	now := s.timestamp()
	err = s.docs.Upsert(ctx, models.CollectionSessions, session.ID, map[string]any{
		"status":    string(models.SessionEnded),
		"endedAt":   now,
		"updatedAt": now,
	})
	if err != nil {
		return session, WriteResult{}, fmt.Errorf("failed to stop session: %w", err)
	}
	session.Status = models.SessionEnded
	session.EndedAt = &now

	targets := []syncTarget{{syncer.KindSessions, session.ID}}

	if session.LocationID != "" {
		location, err := s.getLocation(ctx, session.LocationID)
		switch {
		case err == nil && location.ActiveSessionID == session.ID:
			err = s.docs.Upsert(ctx, models.CollectionLocations, session.LocationID, map[string]any{
				"activeSessionId": nil,
				"updatedAt":       now,
			})
			if err != nil {
				return session, WriteResult{DocumentWritten: true, Relational: RelationalPending},
					fmt.Errorf("session %s stopped but location not cleared: %w", session.ID, err)
			}
			targets = append([]syncTarget{{syncer.KindLocations, session.LocationID}}, targets...)
		case err != nil && !errors.Is(err, ErrNotFound):
			return session, WriteResult{DocumentWritten: true, Relational: RelationalPending}, err
		}
	}

	if req.ResultState != "" {
		err = s.docs.Upsert(ctx, models.CollectionTasks, session.TaskID, map[string]any{
			"state":     string(req.ResultState),
			"updatedAt": now,
		})
		if err != nil {
			return session, WriteResult{DocumentWritten: true, Relational: RelationalPending},
				fmt.Errorf("session %s stopped but task %s not updated: %w", session.ID, session.TaskID, err)
		}
		targets = append(targets, syncTarget{syncer.KindTasks, session.TaskID})
	}

	var resultState any
	if req.ResultState != "" {
		resultState = string(req.ResultState)
	}
	if err := s.audit(ctx, "session", session.ID, ActionSessionStopped, session.OperatorID, map[string]any{
		"result_state": resultState,
	}); err != nil {
		s.log.WithError(err).Warn("session stopped without audit entry")
	}

	s.log.WithFields(logrus.Fields{
		"session_id":   session.ID,
		"result_state": req.ResultState,
	}).Info("session stopped")

	return session, s.afterWrite(ctx, targets...), nil
}

// ActiveSession returns the running session at a location, or nil when there is none
func (s *Service) ActiveSession(ctx context.Context, locationID string) (*models.Session, error) {
	location, err := s.getLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if location.ActiveSessionID == "" {
		return nil, nil
	}

	session, err := s.getSession(ctx, location.ActiveSessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, nil
	}
	return &session, nil
}

// GetSession retrieves a session by ID
func (s *Service) GetSession(ctx context.Context, id string) (models.Session, error) {
	return s.getSession(ctx, id)
}

func (r StartSessionRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.OperatorID) == "" {
		missing = append(missing, "operatorId")
	}
	if strings.TrimSpace(r.PartnerOrgID) == "" {
		missing = append(missing, "partnerOrgId")
	}
	if strings.TrimSpace(r.LocationID) == "" {
		missing = append(missing, "locationId")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if r.AllowedHours <= 0 || r.AllowedHours > MaxAllowedHours {
		return fmt.Errorf("%w: allowed hours must be between 0 and %d", ErrValidation, MaxAllowedHours)
	}
	return nil
}

// pathToInProgress lists the transitions that bring a task from current to
// in_progress. An available task is claimed on the way.
func pathToInProgress(current taskmachine.State) ([]taskmachine.State, error) {
	switch {
	case current == taskmachine.InProgress:
		return nil, nil
	case current == taskmachine.Available:
		return []taskmachine.State{taskmachine.Claimed, taskmachine.InProgress}, nil
	case taskmachine.CanTransition(current, taskmachine.InProgress):
		return []taskmachine.State{taskmachine.InProgress}, nil
	}
	return nil, fmt.Errorf("%w: cannot start work on a %q task", ErrInvalidTransition, current)
}

func (s *Service) getLocation(ctx context.Context, id string) (models.Location, error) {
	doc, err := s.docs.Get(ctx, models.CollectionLocations, id)
	if err != nil {
		return models.Location{}, fmt.Errorf("location %s: %w", id, err)
	}
	var loc models.Location
	if err := docstore.Decode(doc, &loc); err != nil {
		return models.Location{}, err
	}
	return loc, nil
}

func (s *Service) getSession(ctx context.Context, id string) (models.Session, error) {
	doc, err := s.docs.Get(ctx, models.CollectionSessions, id)
	if err != nil {
		return models.Session{}, fmt.Errorf("session %s: %w", id, err)
	}
	var session models.Session
	if err := docstore.Decode(doc, &session); err != nil {
		return models.Session{}, err
	}
	return session, nil
}
