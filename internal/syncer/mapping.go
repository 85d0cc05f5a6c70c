package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/balkashynov/opsportal/internal/docstore"
	"github.com/balkashynov/opsportal/internal/models"
	"github.com/balkashynov/opsportal/internal/taskmachine"
)

// MappingError means a document cannot be turned into a row
type MappingError struct {
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func missing(field string) error {
	return &MappingError{Field: field, Reason: "required field missing"}
}

// mapContext is what a mapper may consult besides the document itself
type mapContext struct {
	ctx context.Context
	rel Relational
	log *logrus.Entry
}

// mapper turns a document into relational columns (without id)
type mapper func(mc mapContext, doc docstore.Document) (map[string]any, error)

func decode(doc docstore.Document, out any) error {
	if err := docstore.Decode(doc, out); err != nil {
		return &MappingError{Reason: err.Error()}
	}
	return nil
}

func mapLocation(_ mapContext, doc docstore.Document) (map[string]any, error) {
	var loc models.Location
	if err := decode(doc, &loc); err != nil {
		return nil, err
	}

	var primary models.Contact
	if loc.PrimaryContact != nil {
		primary = *loc.PrimaryContact
	}

	metadata, err := metadataJSON(doc)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"organization_id":     firstOf(loc.AssignedOrganizationID, loc.PartnerOrgID, "unassigned"),
		"organization_name":   nullable(loc.AssignedOrganizationName),
		"name":                firstOf(loc.Name, "Unnamed"),
		"address":             nullable(loc.Address),
		"contact_name":        nullable(firstOf(loc.ContactName, loc.LegacyContactName, primary.Name)),
		"contact_phone":       nullable(firstOf(loc.ContactPhone, loc.LegacyContactPhone, primary.Phone)),
		"contact_email":       nullable(firstOf(loc.ContactEmail, loc.LegacyContactEmail, primary.Email)),
		"access_instructions": nullable(firstOf(loc.AccessInstructions, loc.LegacyAccessInstructions)),
		"active_session_id":   nullable(loc.ActiveSessionID),
		"metadata":            metadata,
	}, nil
}

func mapJob(_ mapContext, doc docstore.Document) (map[string]any, error) {
	var task models.Task
	if err := decode(doc, &task); err != nil {
		return nil, err
	}

	locationID := firstOf(task.LocationID, task.PropertyID)
	if locationID == "" {
		return nil, missing("locationId")
	}

	var state any
	if task.State != "" {
		if !taskmachine.Valid(task.State) {
			return nil, &MappingError{Field: "state", Reason: fmt.Sprintf("unknown state %q", task.State)}
		}
		state = string(task.State)
	}

	duration := task.EstimatedDuration
	if duration == nil {
		duration = task.Duration
	}

	metadata, err := metadataJSON(doc)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"location_id":                locationID,
		"title":                      firstOf(task.Title, task.Name, "Unnamed Job"),
		"description":                nullable(task.Description),
		"category":                   nullable(task.Category),
		"estimated_duration_minutes": intOrNil(duration),
		"priority":                   nullable(task.Priority),
		"state":                      state,
		"assignee_id":                nullable(task.AssigneeID),
		"source_updated_at":          timeOrNil(task.UpdatedAt),
		"metadata":                   metadata,
	}, nil
}

func mapMoment(_ mapContext, doc docstore.Document) (map[string]any, error) {
	var m models.Moment
	if err := decode(doc, &m); err != nil {
		return nil, err
	}

	if m.TaskID == "" {
		return nil, missing("taskId")
	}
	if m.LocationID == "" {
		return nil, missing("locationId")
	}

	tags, err := jsonText(m.Tags)
	if err != nil {
		return nil, err
	}
	keywords, err := jsonText(m.Keywords)
	if err != nil {
		return nil, err
	}
	metadata, err := metadataJSON(doc)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"organization_id":            nullable(m.OrganizationID),
		"location_id":                m.LocationID,
		"job_id":                     m.TaskID,
		"shift_id":                   nullable(firstOf(m.ShiftID, m.SessionID)),
		"title":                      firstOf(m.Title, "Untitled"),
		"description":                nullable(m.Description),
		"task_type":                  nullable(m.MomentType),
		"action_verb":                nullable(m.ActionVerb),
		"object_target":              nullable(m.ObjectTarget),
		"room_location":              nullable(m.RoomLocation),
		"sequence_order":             m.SequenceOrder,
		"estimated_duration_seconds": intOrNil(m.EstimatedDurationSeconds),
		"tags":                       tags,
		"keywords":                   keywords,
		"source":                     nullable(m.Source),
		"human_verified":             m.HumanVerified,
		"created_by":                 nullable(m.CreatedBy),
		"metadata":                   metadata,
	}, nil
}

func mapShift(_ mapContext, doc docstore.Document) (map[string]any, error) {
	var s models.Session
	if err := decode(doc, &s); err != nil {
		return nil, err
	}

	if s.LocationID == "" {
		return nil, missing("locationId")
	}

	shiftDate := s.Date
	if shiftDate == "" && s.StartedAt != nil && !s.StartedAt.IsZero() {
		shiftDate = s.StartedAt.UTC().Format(time.DateOnly)
	}

	var allowed any
	if s.AllowedHours > 0 {
		allowed = s.AllowedHours
	}

	metadata, err := metadataJSON(doc)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"organization_id":        nullable(firstOf(s.OrganizationID, s.PartnerOrgID)),
		"location_id":            s.LocationID,
		"location_name":          nullable(s.LocationName),
		"teleoperator_id":        nullable(firstOf(s.TeleoperatorID, s.OperatorID)),
		"teleoperator_name":      nullable(s.TeleoperatorName),
		"job_id":                 nullable(s.TaskID),
		"status":                 nullable(string(s.Status)),
		"shift_date":             nullable(shiftDate),
		"allowed_hours":          allowed,
		"started_at":             timeOrNil(s.StartedAt),
		"ended_at":               timeOrNil(s.EndedAt),
		"total_tasks":            s.TotalTasks,
		"total_duration_minutes": s.TotalDuration,
		"first_task_started_at":  timeOrNil(s.FirstTaskStartedAt),
		"last_task_completed_at": timeOrNil(s.LastTaskCompletedAt),
		"metadata":               metadata,
	}, nil
}

// mapMedia depends on rows synced earlier: the location must exist (its
// organization is copied) and the job link is kept only if the job exists.
func mapMedia(mc mapContext, doc docstore.Document) (map[string]any, error) {
	var m models.Media
	if err := decode(doc, &m); err != nil {
		return nil, err
	}

	if m.LocationID == "" {
		return nil, missing("locationId")
	}
	if m.StorageURL == "" {
		return nil, missing("storageUrl")
	}

	locations, err := mc.rel.QueryRows(mc.ctx, models.TableLocations, map[string]any{"id": m.LocationID})
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("Location %s not found in SQL. Sync locations first.", m.LocationID)
	}
	organizationID := asString(locations[0]["organization_id"])

	var jobID any
	if m.TaskID != "" {
		jobs, err := mc.rel.QueryRows(mc.ctx, models.TableJobs, map[string]any{"id": m.TaskID})
		if err != nil {
			return nil, err
		}
		if len(jobs) > 0 {
			jobID = m.TaskID
		} else {
			mc.log.WithFields(logrus.Fields{"id": doc.ID, "job_id": m.TaskID}).
				Warn("job not found in SQL, media synced without job reference")
		}
	}

	uploadedAt := timeOrNil(m.UploadedAt)
	if uploadedAt == nil && !doc.CreateTime.IsZero() {
		uploadedAt = doc.CreateTime
	}

	tags, err := jsonText(m.Tags)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"organization_id":   organizationID,
		"location_id":       m.LocationID,
		"job_id":            jobID,
		"shift_id":          nullable(firstOf(m.ShiftID, m.SessionID)),
		"media_type":        firstOf(m.MediaType, "video"),
		"storage_url":       m.StorageURL,
		"thumbnail_url":     nullable(m.ThumbnailURL),
		"duration_seconds":  intOrNil(m.DurationSeconds),
		"resolution":        nullable(m.Resolution),
		"fps":               floatOrNil(m.FPS),
		"processing_status": firstOf(m.ProcessingStatus, "completed"),
		"ai_processed":      m.AIProcessed,
		"moments_extracted": m.MomentsExtracted,
		"uploaded_by":       firstOf(m.UploadedBy, "admin"),
		"uploaded_at":       uploadedAt,
		"tags":              tags,
	}, nil
}

func mapVideo(_ mapContext, doc docstore.Document) (map[string]any, error) {
	var v models.Video
	if err := decode(doc, &v); err != nil {
		return nil, err
	}

	if v.LocationID == "" {
		return nil, missing("locationId")
	}
	if v.VideoURL == "" {
		return nil, missing("videoUrl")
	}

	uploadedAt := timeOrNil(v.UploadedAt)
	if uploadedAt == nil && !doc.CreateTime.IsZero() {
		uploadedAt = doc.CreateTime
	}

	var annotations any
	if v.Annotations != nil {
		raw, err := json.Marshal(v.Annotations)
		if err != nil {
			return nil, &MappingError{Field: "annotations", Reason: err.Error()}
		}
		annotations = string(raw)
	}

	errorCount := 0
	if v.Errors != nil {
		errorCount = *v.Errors
	}

	var fileSize any
	if v.FileSize != nil {
		fileSize = *v.FileSize
	}

	return map[string]any{
		"task_id":         nullable(v.TaskID),
		"location_id":     v.LocationID,
		"user_id":         nullable(v.UserID),
		"organization_id": nullable(v.OrganizationID),
		"completion_time": floatOrNil(v.CompletionTime),
		"accuracy":        floatOrNil(v.Accuracy),
		"errors":          errorCount,
		"video_url":       v.VideoURL,
		"thumbnail_url":   nullable(v.ThumbnailURL),
		"annotations":     annotations,
		"file_size":       fileSize,
		"duration":        floatOrNil(v.Duration),
		"status":          nullable(v.Status),
		"created_at":      uploadedAt,
		"updated_at":      uploadedAt,
	}, nil
}

// firstOf returns the first non-blank value
func firstOf(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func intOrNil(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func timeOrNil(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

func jsonText(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", &MappingError{Reason: err.Error()}
	}
	return string(raw), nil
}

// metadataJSON keeps the whole document alongside the mapped columns
func metadataJSON(doc docstore.Document) (string, error) {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return "", &MappingError{Field: "metadata", Reason: err.Error()}
	}
	return string(raw), nil
}
