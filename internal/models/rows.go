package models

import "time"

// Relational tables. Note the vocabulary shift: the document store's
// "tasks" land in "jobs", and its "moments" land in "tasks".
const (
	TableLocations = "locations"
	TableJobs      = "jobs"
	TableTasks     = "tasks"
	TableShifts    = "shifts"
	TableMedia     = "media"
	TableTaskMedia = "task_media"

	TableRobotIntelligence = "robot_intelligence"
)

// LocationRow mirrors a location document
type LocationRow struct {
	ID                 string  `gorm:"primaryKey;size:255"`
	OrganizationID     string  `gorm:"size:255;not null;index"`
	OrganizationName   *string `gorm:"size:255"`
	Name               string  `gorm:"size:255;not null"`
	Address            *string
	ContactName        *string `gorm:"size:255"`
	ContactPhone       *string `gorm:"size:64"`
	ContactEmail       *string `gorm:"size:255"`
	AccessInstructions *string
	ActiveSessionID    *string `gorm:"size:255"`
	Metadata           string  `gorm:"type:text"`
}

func (LocationRow) TableName() string { return TableLocations }

// JobRow mirrors a document-store task
type JobRow struct {
	ID                       string `gorm:"primaryKey;size:255"`
	LocationID               string `gorm:"size:255;not null;index"`
	Title                    string `gorm:"size:255;not null"`
	Description              *string
	Category                 *string `gorm:"size:100"`
	EstimatedDurationMinutes *int
	Priority                 *string `gorm:"size:50"`
	State                    *string `gorm:"size:32;index"`
	AssigneeID               *string `gorm:"size:255"`
	SourceUpdatedAt          *time.Time
	Metadata                 string `gorm:"type:text"`
}

func (JobRow) TableName() string { return TableJobs }

// TaskRow mirrors a document-store moment
type TaskRow struct {
	ID                       string  `gorm:"primaryKey;size:255"`
	OrganizationID           *string `gorm:"size:255"`
	LocationID               string  `gorm:"size:255;not null;index"`
	JobID                    string  `gorm:"size:255;not null;index"`
	ShiftID                  *string `gorm:"size:255"`
	Title                    string  `gorm:"size:255"`
	Description              *string
	TaskType                 *string `gorm:"size:50"`
	ActionVerb               *string `gorm:"size:100"`
	ObjectTarget             *string `gorm:"size:255"`
	RoomLocation             *string `gorm:"size:255"`
	SequenceOrder            int
	EstimatedDurationSeconds *int
	Tags                     string  `gorm:"type:text"`
	Keywords                 string  `gorm:"type:text"`
	Source                   *string `gorm:"size:50"`
	HumanVerified            bool
	CreatedBy                *string `gorm:"size:255"`
	Metadata                 string  `gorm:"type:text"`
}

func (TaskRow) TableName() string { return TableTasks }

// ShiftRow mirrors a session document
type ShiftRow struct {
	ID                   string  `gorm:"primaryKey;size:255"`
	OrganizationID       *string `gorm:"size:255;index"`
	LocationID           string  `gorm:"size:255;not null;index"`
	LocationName         *string `gorm:"size:255"`
	TeleoperatorID       *string `gorm:"size:255"`
	TeleoperatorName     *string `gorm:"size:255"`
	JobID                *string `gorm:"size:255"`
	Status               *string `gorm:"size:32"`
	ShiftDate            *string `gorm:"size:10"`
	AllowedHours         *float64
	StartedAt            *time.Time
	EndedAt              *time.Time
	TotalTasks           int
	TotalDurationMinutes int
	FirstTaskStartedAt   *time.Time
	LastTaskCompletedAt  *time.Time
	Metadata             string `gorm:"type:text"`
}

func (ShiftRow) TableName() string { return TableShifts }

// MediaRow mirrors a media document
type MediaRow struct {
	ID               string  `gorm:"primaryKey;size:255"`
	OrganizationID   string  `gorm:"size:255;not null"`
	LocationID       string  `gorm:"size:255;not null;index"`
	JobID            *string `gorm:"size:255;index"`
	ShiftID          *string `gorm:"size:255"`
	MediaType        string  `gorm:"size:32"`
	StorageURL       string  `gorm:"column:storage_url;not null"`
	ThumbnailURL     *string `gorm:"column:thumbnail_url"`
	DurationSeconds  *int
	Resolution       *string  `gorm:"size:32"`
	FPS              *float64 `gorm:"column:fps"`
	ProcessingStatus string   `gorm:"size:32"`
	AIProcessed      bool     `gorm:"column:ai_processed"`
	MomentsExtracted int
	UploadedBy       string `gorm:"size:255"`
	UploadedAt       *time.Time
	Tags             string `gorm:"type:text"`
}

func (MediaRow) TableName() string { return TableMedia }

// TaskMediaRow links a media row to a task row
type TaskMediaRow struct {
	ID        string `gorm:"primaryKey;size:511"`
	TaskID    string `gorm:"size:255;not null;index"`
	MediaID   string `gorm:"size:255;not null;index"`
	MediaRole string `gorm:"size:32"`
}

func (TaskMediaRow) TableName() string { return TableTaskMedia }

// RobotIntelligenceRow mirrors a video document, keyed by its document id
type RobotIntelligenceRow struct {
	FirebaseID     string  `gorm:"column:firebase_id;primaryKey;size:255"`
	TaskID         *string `gorm:"size:255;index"`
	LocationID     string  `gorm:"size:255;not null;index"`
	UserID         *string `gorm:"size:255"`
	OrganizationID *string `gorm:"size:255"`
	CompletionTime *float64
	Accuracy       *float64
	Errors         int
	VideoURL       string  `gorm:"column:video_url;not null"`
	ThumbnailURL   *string `gorm:"column:thumbnail_url"`
	Annotations    *string `gorm:"type:text"`
	FileSize       *int64
	Duration       *float64
	Status         *string `gorm:"size:32"`
	CreatedAt      *time.Time
	UpdatedAt      *time.Time
}

func (RobotIntelligenceRow) TableName() string { return TableRobotIntelligence }

// AllRows lists every relational model, in migration order
func AllRows() []any {
	return []any{
		&LocationRow{},
		&JobRow{},
		&TaskRow{},
		&ShiftRow{},
		&MediaRow{},
		&TaskMediaRow{},
		&RobotIntelligenceRow{},
	}
}
