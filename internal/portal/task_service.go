package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/balkashynov/opsportal/internal/docstore"
	"github.com/balkashynov/opsportal/internal/models"
	"github.com/balkashynov/opsportal/internal/parser"
	"github.com/balkashynov/opsportal/internal/syncer"
	"github.com/balkashynov/opsportal/internal/taskmachine"
)

// CreateTaskRequest holds the data needed to create a new task
type CreateTaskRequest struct {
	LocationID        string
	Title             string
	Description       string
	Category          string
	Priority          string // low/medium/med/high or 1/2/3, empty for no priority
	EstimatedDuration *int   // minutes
	InitialState      taskmachine.State
	ActorID           string
}

// TaskFilter narrows ListTasks. Empty fields match everything.
type TaskFilter struct {
	LocationID string
	State      taskmachine.State
	AssigneeID string
}

// CreateTask writes a new task document in an initial state (available
// unless scheduled is asked for)
func (s *Service) CreateTask(ctx context.Context, req CreateTaskRequest) (models.Task, WriteResult, error) {
	if strings.TrimSpace(req.LocationID) == "" {
		return models.Task{}, WriteResult{}, fmt.Errorf("%w: locationId is required", ErrValidation)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Task{}, WriteResult{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if req.EstimatedDuration != nil && *req.EstimatedDuration < 0 {
		return models.Task{}, WriteResult{}, fmt.Errorf("%w: estimated duration cannot be negative", ErrValidation)
	}

	priority, err := parsePriority(req.Priority)
	if err != nil {
		return models.Task{}, WriteResult{}, err
	}

	state := req.InitialState
	if state == "" {
		state = taskmachine.Available
	}
	if !taskmachine.IsInitial(state) {
		return models.Task{}, WriteResult{}, fmt.Errorf("%w: a task cannot start as %q", ErrInvalidState, state)
	}

	now := s.timestamp()
	task := models.Task{
		ID:                s.newID(),
		LocationID:        req.LocationID,
		State:             state,
		Title:             title,
		Description:       req.Description,
		Category:          req.Category,
		Priority:          priority,
		EstimatedDuration: req.EstimatedDuration,
		CreatedAt:         &now,
		UpdatedAt:         &now,
	}

	fields := map[string]any{
		"locationId": task.LocationID,
		"state":      string(task.State),
		"title":      task.Title,
		"createdAt":  now,
		"updatedAt":  now,
	}
	if task.Description != "" {
		fields["description"] = task.Description
	}
	if task.Category != "" {
		fields["category"] = task.Category
	}
	if task.Priority != "" {
		fields["priority"] = task.Priority
	}
	if task.EstimatedDuration != nil {
		fields["estimatedDuration"] = *task.EstimatedDuration
	}

	if err := s.docs.Upsert(ctx, models.CollectionTasks, task.ID, fields); err != nil {
		return models.Task{}, WriteResult{}, fmt.Errorf("failed to create task: %w", err)
	}
	if err := s.audit(ctx, "task", task.ID, ActionTaskCreated, req.ActorID, map[string]any{
		"locationId": task.LocationID,
		"state":      string(task.State),
	}); err != nil {
		s.log.WithError(err).Warn("task created without audit entry")
	}

	s.log.WithField("task_id", task.ID).Info("task created")
	return task, s.afterWrite(ctx, syncTarget{syncer.KindTasks, task.ID}), nil
}

// GetTask retrieves a task by ID
func (s *Service) GetTask(ctx context.Context, id string) (models.Task, error) {
	doc, err := s.docs.Get(ctx, models.CollectionTasks, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %s: %w", id, err)
	}
	var task models.Task
	if err := docstore.Decode(doc, &task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// ListTasks returns tasks ordered by id
func (s *Service) ListTasks(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	where := docstore.Filter{}
	if filter.LocationID != "" {
		where["locationId"] = filter.LocationID
	}
	if filter.State != "" {
		if !taskmachine.Valid(filter.State) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidState, filter.State)
		}
		where["state"] = string(filter.State)
	}
	if filter.AssigneeID != "" {
		where["assigneeId"] = filter.AssigneeID
	}

	docs, err := s.docs.List(ctx, models.CollectionTasks, where)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]models.Task, 0, len(docs))
	for _, doc := range docs {
		var task models.Task
		if err := docstore.Decode(doc, &task); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// TransitionTask moves a task to next if the state machine allows it.
// Claiming records the actor as assignee.
func (s *Service) TransitionTask(ctx context.Context, id string, next taskmachine.State, actorID string) (models.Task, WriteResult, error) {
	if !taskmachine.Valid(next) {
		return models.Task{}, WriteResult{}, fmt.Errorf("%w: %q", ErrInvalidState, next)
	}
	if next == taskmachine.Claimed && actorID == "" {
		return models.Task{}, WriteResult{}, fmt.Errorf("%w: claiming a task needs an actor", ErrValidation)
	}

	task, err := s.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, WriteResult{}, err
	}
	from := task.State
	if !taskmachine.CanTransition(from, next) {
		return task, WriteResult{}, fmt.Errorf("%w: task %s cannot move from %q to %q", ErrInvalidTransition, id, from, next)
	}

	now := s.timestamp()
	fields := map[string]any{
		"state":     string(next),
		"updatedAt": now,
	}
	if next == taskmachine.Claimed {
		fields["assigneeId"] = actorID
		task.AssigneeID = actorID
	}
	if err := s.docs.Upsert(ctx, models.CollectionTasks, id, fields); err != nil {
		return task, WriteResult{}, fmt.Errorf("failed to update task: %w", err)
	}
	task.State = next
	task.UpdatedAt = &now

	if err := s.audit(ctx, "task", id, ActionTaskTransitioned, actorID, map[string]any{
		"from": string(from),
		"to":   string(next),
	}); err != nil {
		s.log.WithError(err).Warn("task transitioned without audit entry")
	}

	s.log.WithFields(logrus.Fields{"task_id": id, "from": from, "to": next}).Info("task transitioned")
	return task, s.afterWrite(ctx, syncTarget{syncer.KindTasks, id}), nil
}

// parsePriority normalises a priority to low, medium or high. An empty
// priority stays empty.
func parsePriority(priority string) (string, error) {
	if strings.TrimSpace(priority) == "" {
		return "", nil
	}
	normalized, ok := parser.NormalizePriority(priority)
	if !ok {
		return "", fmt.Errorf("%w: invalid priority %q (use low, medium, high or 1-3)", ErrValidation, priority)
	}
	return normalized, nil
}
