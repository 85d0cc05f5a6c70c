// Package portal holds the operational writes of the portal: creating and
// moving tasks through their lifecycle, and starting and stopping operator
// sessions. Every write goes to the document store; the relational copy is
// refreshed by the syncer, either right away (sync on write) or by the next
// batch pass.
package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/balkashynov/opsportal/internal/docstore"
	"github.com/balkashynov/opsportal/internal/logger"
	"github.com/balkashynov/opsportal/internal/syncer"
)

// RelationalStatus says whether the relational copy reflects a write
type RelationalStatus string

const (
	RelationalPending RelationalStatus = "pending"
	RelationalSynced  RelationalStatus = "synced"
	RelationalFailed  RelationalStatus = "failed"
)

// WriteResult reports both halves of a write. The document store is the
// source of truth; a pending or failed relational status means the SQL
// copy lags until a later sync.
type WriteResult struct {
	DocumentWritten bool             `json:"documentWritten" yaml:"documentWritten"`
	Relational      RelationalStatus `json:"relational" yaml:"relational"`
	SyncError       string           `json:"syncError,omitempty" yaml:"syncError,omitempty"`
}

// Syncer is the single-document sync used after writes
type Syncer interface {
	SyncOne(ctx context.Context, kind syncer.Kind, id string) syncer.Result
}

// Service performs portal writes against the document store
type Service struct {
	docs        docstore.Store
	syncer      Syncer
	syncOnWrite bool
	now         func() time.Time
	newID       func() string
	log         *logrus.Entry
}

// Option configures a Service
type Option func(*Service)

// WithSyncOnWrite makes every write sync its documents immediately
func WithSyncOnWrite(s Syncer) Option {
	return func(svc *Service) {
		svc.syncer = s
		svc.syncOnWrite = s != nil
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		svc.now = now
	}
}

// WithIDs replaces the id generator
func WithIDs(newID func() string) Option {
	return func(svc *Service) {
		svc.newID = newID
	}
}

// WithLogger replaces the component logger
func WithLogger(entry *logrus.Entry) Option {
	return func(svc *Service) {
		svc.log = entry
	}
}

// New creates a Service
func New(docs docstore.Store, opts ...Option) *Service {
	svc := &Service{
		docs:  docs,
		now:   time.Now,
		newID: uuid.NewString,
		log:   logger.For("portal"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type syncTarget struct {
	kind syncer.Kind
	id   string
}

// afterWrite syncs the written documents when sync on write is enabled
func (s *Service) afterWrite(ctx context.Context, targets ...syncTarget) WriteResult {
	result := WriteResult{DocumentWritten: true, Relational: RelationalPending}
	if !s.syncOnWrite {
		return result
	}

	var failures []string
	for _, t := range targets {
		r := s.syncer.SyncOne(ctx, t.kind, t.id)
		if !r.Success {
			failures = append(failures, fmt.Sprintf("%s %s: %s", t.kind.Label(), t.id, r.Error))
		}
	}

	if len(failures) > 0 {
		result.Relational = RelationalFailed
		result.SyncError = strings.Join(failures, "; ")
		s.log.WithField("errors", result.SyncError).Warn("document written, relational sync failed")
		return result
	}
	result.Relational = RelationalSynced
	return result
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}
