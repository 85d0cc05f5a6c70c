package models

import "time"

// SessionStatus is the status of an operator session
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// Session is a bounded period of work by one operator at a location,
// stored in the "sessions" collection. The relational store calls it a shift.
type Session struct {
	ID             string        `mapstructure:"id" json:"id"`
	OperatorID     string        `mapstructure:"operatorId" json:"operatorId"`
	PartnerOrgID   string        `mapstructure:"partnerOrgId" json:"partnerOrgId,omitempty"`
	OrganizationID string        `mapstructure:"organizationId" json:"organizationId,omitempty"`
	LocationID     string        `mapstructure:"locationId" json:"locationId"`
	LocationName   string        `mapstructure:"locationName" json:"locationName,omitempty"`
	TaskID         string        `mapstructure:"taskId" json:"taskId,omitempty"`
	AllowedHours   float64       `mapstructure:"allowedHours" json:"allowedHours,omitempty"`
	Status         SessionStatus `mapstructure:"status" json:"status"`

	TeleoperatorID   string `mapstructure:"teleoperatorId" json:"-"`
	TeleoperatorName string `mapstructure:"teleoperatorName" json:"-"`

	Date          string `mapstructure:"date" json:"date,omitempty"`
	TotalTasks    int    `mapstructure:"totalTasks" json:"totalTasks,omitempty"`
	TotalDuration int    `mapstructure:"totalDuration" json:"totalDuration,omitempty"` // minutes

	StartedAt           *time.Time `mapstructure:"startedAt" json:"startedAt,omitempty"`
	EndedAt             *time.Time `mapstructure:"endedAt" json:"endedAt,omitempty"`
	FirstTaskStartedAt  *time.Time `mapstructure:"firstTaskStartedAt" json:"-"`
	LastTaskCompletedAt *time.Time `mapstructure:"lastTaskCompletedAt" json:"-"`
}

// Active reports whether the session has not been ended
func (s Session) Active() bool {
	return s.Status == SessionActive
}

// Duration returns the session length, or the time elapsed so far when still active
func (s Session) Duration(now time.Time) time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return end.Sub(*s.StartedAt)
}
