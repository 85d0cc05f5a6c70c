package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/balkashynov/opsportal/internal/db"
	"github.com/balkashynov/opsportal/internal/docstore"
	"github.com/balkashynov/opsportal/internal/logger"
)

var (
	// ErrUnknownKind is returned for a collection with no mapping
	ErrUnknownKind = errors.New("unknown sync kind")

	// ErrUnavailable means a store could not be reached at the start of a pass
	ErrUnavailable = errors.New("store unavailable")
)

// DefaultMaxDuration bounds a pass when no budget is configured
const DefaultMaxDuration = 5 * time.Minute

// Relational is the part of the relational store the coordinator writes through
type Relational interface {
	UpsertRow(ctx context.Context, table, id string, columns map[string]any) error
	QueryRows(ctx context.Context, table string, filter map[string]any) ([]map[string]any, error)
	Ping(ctx context.Context) error
}

// Progress is reported after every attempted document
type Progress struct {
	Kind  Kind
	Done  int
	Total int
	Last  Result
}

// Coordinator copies documents into relational rows
type Coordinator struct {
	docs        docstore.Store
	rel         Relational
	log         *logrus.Entry
	workers     int
	maxDuration time.Duration
	now         func() time.Time
}

// CoordinatorOption configures a Coordinator
type CoordinatorOption func(*Coordinator)

// WithWorkers sets how many documents are synced concurrently
func WithWorkers(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMaxDuration sets the wall-clock budget of one SyncAll or SyncEverything
// call. Zero disables the budget.
func WithMaxDuration(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.maxDuration = d
	}
}

// WithLogger replaces the component logger
func WithLogger(entry *logrus.Entry) CoordinatorOption {
	return func(c *Coordinator) {
		c.log = entry
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New creates a coordinator. Defaults: one worker, DefaultMaxDuration budget.
func New(docs docstore.Store, rel Relational, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		docs:        docs,
		rel:         rel,
		log:         logger.For("syncer"),
		workers:     1,
		maxDuration: DefaultMaxDuration,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SyncOne fetches one document and upserts its row. Failures are reported
// in the result, never returned.
func (c *Coordinator) SyncOne(ctx context.Context, kind Kind, id string) Result {
	def, ok := kinds[kind]
	if !ok {
		return Result{ID: id, Error: fmt.Sprintf("%s: %q", ErrUnknownKind, kind)}
	}

	doc, err := c.docs.Get(ctx, string(kind), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return Result{ID: id, Error: def.label + " not found"}
	}
	if err != nil {
		return Result{ID: id, Error: err.Error()}
	}

	return c.syncDoc(ctx, kind, doc)
}

// syncDoc maps doc and writes its row in a single upsert
func (c *Coordinator) syncDoc(ctx context.Context, kind Kind, doc docstore.Document) Result {
	def := kinds[kind]
	log := c.log.WithFields(logrus.Fields{"kind": kind, "id": doc.ID})

	columns, err := def.mapper(mapContext{ctx: ctx, rel: c.rel, log: log}, doc)
	if err != nil {
		log.WithError(err).Warn("mapping failed")
		return Result{ID: doc.ID, Error: err.Error()}
	}

	if err := c.rel.UpsertRow(ctx, def.table, doc.ID, columns); err != nil {
		code, detail := db.ErrorDetail(err)
		log.WithError(err).WithFields(logrus.Fields{"code": code, "detail": detail}).Error("relational write failed")
		return Result{ID: doc.ID, Error: err.Error(), Code: code, Detail: detail}
	}

	log.Debug("synced")
	return Result{ID: doc.ID, Success: true}
}

type batchOptions struct {
	since    time.Time
	progress func(Progress)
}

// Option tunes a single SyncAll call
type Option func(*batchOptions)

// Since skips documents last updated before t
func Since(t time.Time) Option {
	return func(o *batchOptions) {
		o.since = t
	}
}

// OnProgress registers a callback run after each attempted document
func OnProgress(fn func(Progress)) Option {
	return func(o *batchOptions) {
		o.progress = fn
	}
}

// SyncAll syncs every document of kind. Per-document failures are collected
// in the result; the error is reserved for an unknown kind, an unreachable
// store, or a failed listing.
func (c *Coordinator) SyncAll(ctx context.Context, kind Kind, opts ...Option) (BatchResult, error) {
	if _, ok := kinds[kind]; !ok {
		return BatchResult{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if c.maxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.maxDuration)
		defer cancel()
	}

	if err := c.ping(ctx); err != nil {
		return BatchResult{}, err
	}

	return c.syncAll(ctx, kind, opts...)
}

// syncAll runs a pass under an already-budgeted context
func (c *Coordinator) syncAll(ctx context.Context, kind Kind, opts ...Option) (BatchResult, error) {
	var o batchOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := c.now()
	log := c.log.WithField("kind", kind)
	result := BatchResult{Kind: kind, Errors: []string{}}

	// budget already spent by earlier kinds
	if ctx.Err() != nil {
		result.Truncated = true
		return result, nil
	}

	docs, err := c.docs.List(ctx, string(kind), nil)
	if err != nil {
		if ctx.Err() != nil {
			result.Truncated = true
			return result, nil
		}
		return BatchResult{}, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	if kind == KindTasks {
		legacy, err := c.legacyJobs(ctx, log)
		if err != nil {
			if ctx.Err() != nil {
				result.Truncated = true
				return result, nil
			}
			return BatchResult{}, fmt.Errorf("failed to list %s: %w", kind, err)
		}
		docs = append(docs, legacy...)
	}

	pending := make([]docstore.Document, 0, len(docs))
	for _, doc := range docs {
		if !o.since.IsZero() && !doc.UpdateTime.IsZero() && doc.UpdateTime.Before(o.since) {
			result.Counts.Skipped++
			continue
		}
		pending = append(pending, doc)
	}

	log.WithFields(logrus.Fields{"documents": len(pending), "skipped": result.Counts.Skipped}).Info("sync started")

	results, attempted := c.run(ctx, kind, pending, o.progress)

	for i, r := range results {
		if !attempted[i] {
			result.Truncated = true
			continue
		}
		if r.Success {
			result.Counts.Synced++
			continue
		}
		result.Counts.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %s", kinds[kind].label, r.ID, r.Error))
	}

	result.Success = len(result.Errors) == 0 && !result.Truncated
	result.Duration = c.now().Sub(start)

	entry := log.WithFields(logrus.Fields{
		"synced":  result.Counts.Synced,
		"failed":  result.Counts.Failed,
		"skipped": result.Counts.Skipped,
	})
	if result.Truncated {
		entry.Warn("sync truncated by time budget")
	} else {
		entry.Info("sync finished")
	}

	return result, nil
}

// run attempts docs in order, or up to c.workers at a time. Once ctx is done
// no further document is started; in-flight documents finish.
func (c *Coordinator) run(ctx context.Context, kind Kind, docs []docstore.Document, progress func(Progress)) ([]Result, []bool) {
	results := make([]Result, len(docs))
	attempted := make([]bool, len(docs))
	itemCtx := context.WithoutCancel(ctx)

	var (
		mu   sync.Mutex
		done int
	)
	report := func(r Result) {
		if progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		progress(Progress{Kind: kind, Done: done, Total: len(docs), Last: r})
	}

	if c.workers <= 1 {
		for i, doc := range docs {
			if ctx.Err() != nil {
				break
			}
			attempted[i] = true
			results[i] = c.syncDoc(itemCtx, kind, doc)
			report(results[i])
		}
		return results, attempted
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		attempted[i] = true
		i, doc := i, doc
		g.Go(func() error {
			results[i] = c.syncDoc(itemCtx, kind, doc)
			report(results[i])
			return nil
		})
	}
	g.Wait()

	return results, attempted
}

// SyncEverything syncs every kind in dependency order and records the pass
// in the sync metadata document. A fatal error stops the remaining kinds.
func (c *Coordinator) SyncEverything(ctx context.Context, opts ...Option) (FullResult, error) {
	full := FullResult{StartedAt: c.now().UTC()}

	if c.maxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.maxDuration)
		defer cancel()
	}

	if err := c.ping(ctx); err != nil {
		return full, err
	}

	for _, kind := range Order {
		batch, err := c.syncAll(ctx, kind, opts...)
		if err != nil {
			full.summarize()
			return full, err
		}
		full.Batches = append(full.Batches, batch)
	}
	full.summarize()

	if err := c.writeMetadata(context.WithoutCancel(ctx), full); err != nil {
		c.log.WithError(err).Warn("failed to record sync metadata")
	}

	c.log.WithField("errors", len(full.Errors)).Info(full.Message)
	return full, nil
}

func (c *Coordinator) ping(ctx context.Context) error {
	if err := c.docs.Ping(ctx); err != nil {
		return fmt.Errorf("%w: document store: %v", ErrUnavailable, err)
	}
	if err := c.rel.Ping(ctx); err != nil {
		return fmt.Errorf("%w: relational store: %v", ErrUnavailable, err)
	}
	return nil
}
