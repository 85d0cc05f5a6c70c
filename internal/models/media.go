package models

import "time"

// Media is an uploaded video or image.
type Media struct {
	ID               string     `mapstructure:"id"`
	FileName         string     `mapstructure:"fileName"`
	LocationID       string     `mapstructure:"locationId"`
	TaskID           string     `mapstructure:"taskId"`
	ShiftID          string     `mapstructure:"shiftId"`
	SessionID        string     `mapstructure:"sessionId"`
	MediaType        string     `mapstructure:"mediaType"`
	StorageURL       string     `mapstructure:"storageUrl"`
	ThumbnailURL     string     `mapstructure:"thumbnailUrl"`
	DurationSeconds  *int       `mapstructure:"durationSeconds"`
	Resolution       string     `mapstructure:"resolution"`
	FPS              *float64   `mapstructure:"fps"`
	ProcessingStatus string     `mapstructure:"processingStatus"`
	AIProcessed      bool       `mapstructure:"aiProcessed"`
	MomentsExtracted int        `mapstructure:"momentsExtracted"`
	UploadedBy       string     `mapstructure:"uploadedBy"`
	UploadedAt       *time.Time `mapstructure:"uploadedAt"`
	Tags             []string   `mapstructure:"tags"`
}
