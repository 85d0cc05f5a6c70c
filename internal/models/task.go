package models

import (
	"time"

	"github.com/balkashynov/opsportal/internal/taskmachine"
)

// Collections in the document store
const (
	CollectionTasks        = "tasks"
	CollectionMoments      = "moments"
	CollectionSessions     = "sessions"
	CollectionLocations    = "locations"
	CollectionMedia        = "media"
	CollectionVideos       = "videos"
	CollectionAuditLogs    = "auditLogs"
	CollectionSyncMetadata = "_sync_metadata"
)

// LegacyJobsCollection is where jobs were kept before they moved to the
// top-level tasks collection
func LegacyJobsCollection(locationID string) string {
	return CollectionLocations + "/" + locationID + "/" + CollectionTasks
}

// Task is a unit of work at a location, stored in the "tasks" collection.
// The relational store calls this a job.
type Task struct {
	ID         string            `mapstructure:"id" json:"id"`
	LocationID string            `mapstructure:"locationId" json:"locationId"`
	State      taskmachine.State `mapstructure:"state" json:"state"`
	AssigneeID string            `mapstructure:"assigneeId" json:"assigneeId,omitempty"`

	Title             string `mapstructure:"title" json:"title"`
	Description       string `mapstructure:"description" json:"description,omitempty"`
	Category          string `mapstructure:"category" json:"category,omitempty"`
	Priority          string `mapstructure:"priority" json:"priority,omitempty"` // low, medium, high
	EstimatedDuration *int   `mapstructure:"estimatedDuration" json:"estimatedDuration,omitempty"`

	// Legacy fields still present on older documents
	PropertyID string `mapstructure:"propertyId" json:"-"`
	Name       string `mapstructure:"name" json:"-"`
	Duration   *int   `mapstructure:"duration" json:"-"`

	CreatedAt *time.Time `mapstructure:"createdAt" json:"createdAt,omitempty"`
	UpdatedAt *time.Time `mapstructure:"updatedAt" json:"updatedAt,omitempty"`
}

// Moment is an atomic, robot-executable step recorded against a task.
// The relational store calls this a task and the parent task a job.
type Moment struct {
	ID             string `mapstructure:"id"`
	TaskID         string `mapstructure:"taskId"`
	LocationID     string `mapstructure:"locationId"`
	OrganizationID string `mapstructure:"organizationId"`
	SessionID      string `mapstructure:"sessionId"`
	ShiftID        string `mapstructure:"shiftId"`

	Title        string `mapstructure:"title"`
	Description  string `mapstructure:"description"`
	MomentType   string `mapstructure:"momentType"`
	ActionVerb   string `mapstructure:"actionVerb"`
	ObjectTarget string `mapstructure:"objectTarget"`
	RoomLocation string `mapstructure:"roomLocation"`

	SequenceOrder            int  `mapstructure:"sequenceOrder"`
	EstimatedDurationSeconds *int `mapstructure:"estimatedDurationSeconds"`

	Tags          []string `mapstructure:"tags"`
	Keywords      []string `mapstructure:"keywords"`
	Source        string   `mapstructure:"source"`
	HumanVerified bool     `mapstructure:"humanVerified"`
	CreatedBy     string   `mapstructure:"createdBy"`
}
