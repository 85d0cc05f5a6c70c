package models

import "time"

// Video is a robot capture with optional task scoring, stored in the
// "videos" collection.
type Video struct {
	ID             string     `mapstructure:"id"`
	UserID         string     `mapstructure:"userId"`
	LocationID     string     `mapstructure:"locationId"`
	OrganizationID string     `mapstructure:"organizationId"`
	VideoURL       string     `mapstructure:"videoUrl"`
	ThumbnailURL   string     `mapstructure:"thumbnailUrl"`
	Duration       *float64   `mapstructure:"duration"`
	FileSize       *int64     `mapstructure:"fileSize"`
	UploadedAt     *time.Time `mapstructure:"uploadedAt"`
	Status         string     `mapstructure:"status"`

	TaskID         string   `mapstructure:"taskId"`
	CompletionTime *float64 `mapstructure:"completionTime"`
	Accuracy       *float64 `mapstructure:"accuracy"`
	Errors         *int     `mapstructure:"errors"`
	Annotations    any      `mapstructure:"annotations"`
}
