package syncer

import (
	"fmt"
	"time"
)

// Result is the outcome of syncing one document
type Result struct {
	ID      string `json:"id" yaml:"id"`
	Success bool   `json:"success" yaml:"success"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
}

// Counts tallies a batch
type Counts struct {
	Synced  int `json:"synced" yaml:"synced"`
	Failed  int `json:"failed" yaml:"failed"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// BatchResult summarises a SyncAll pass over one kind.
//
// Success means every listed document was attempted and none failed.
// Truncated is set when the time budget ran out before every document was
// attempted.
type BatchResult struct {
	Kind      Kind          `json:"kind" yaml:"kind"`
	Success   bool          `json:"success" yaml:"success"`
	Counts    Counts        `json:"counts" yaml:"counts"`
	Errors    []string      `json:"errors" yaml:"errors"`
	Truncated bool          `json:"truncated,omitempty" yaml:"truncated,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// FullResult summarises SyncEverything
type FullResult struct {
	Success       bool          `json:"success" yaml:"success"`
	Message       string        `json:"message" yaml:"message"`
	Batches       []BatchResult `json:"batches" yaml:"batches"`
	Errors        []string      `json:"errors" yaml:"errors"`
	RecordsSynced int           `json:"recordsSynced" yaml:"recordsSynced"`
	StartedAt     time.Time     `json:"startedAt" yaml:"startedAt"`
}

// Synced returns how many documents of kind were synced
func (r FullResult) Synced(kind Kind) int {
	for _, b := range r.Batches {
		if b.Kind == kind {
			return b.Counts.Synced
		}
	}
	return 0
}

func (r *FullResult) summarize() {
	r.Message = fmt.Sprintf("Synced %d locations, %d jobs, %d sessions, %d tasks, %d media files",
		r.Synced(KindLocations),
		r.Synced(KindTasks),
		r.Synced(KindSessions),
		r.Synced(KindMoments),
		r.Synced(KindMedia),
	)

	r.RecordsSynced = 0
	r.Errors = r.Errors[:0]
	truncated := false
	for _, b := range r.Batches {
		r.RecordsSynced += b.Counts.Synced
		r.Errors = append(r.Errors, b.Errors...)
		truncated = truncated || b.Truncated
	}
	r.Success = len(r.Errors) == 0 && !truncated
}

// LinkResult is the outcome of LinkMedia
type LinkResult struct {
	JobID        string `json:"jobId" yaml:"jobId"`
	LinksCreated int    `json:"linksCreated" yaml:"linksCreated"`
}
