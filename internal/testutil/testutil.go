// Package testutil holds store fixtures shared by package tests.
package testutil

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/opsportal/internal/config"
	"github.com/balkashynov/opsportal/internal/db"
	"github.com/balkashynov/opsportal/internal/docstore"
	"github.com/balkashynov/opsportal/internal/logger"
)

var update = flag.Bool("update", false, "update golden files")

// Docstore opens a local document store in a temp dir
func Docstore(t *testing.T) *docstore.LocalStore {
	t.Helper()
	s, err := docstore.OpenLocal(filepath.Join(t.TempDir(), "documents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Relational opens a migrated sqlite relational store in a temp dir
func Relational(t *testing.T) *db.Store {
	t.Helper()
	s, err := db.Open(config.RelationalConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "portal.db")})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

// Seed writes documents into collection, keyed by id
func Seed(t *testing.T, s docstore.Store, collection string, docs map[string]map[string]any) {
	t.Helper()
	for id, fields := range docs {
		require.NoError(t, s.Upsert(context.Background(), collection, id, fields))
	}
}

// Logger returns a component logger that discards output
func Logger() *logrus.Entry {
	return logger.Discard().WithField("component", "test")
}

// Clock is a settable time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at t
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Golden compares got with testdata/<name>.golden, rewriting it under -update
func Golden(t *testing.T, name string, got []byte) {
	t.Helper()
	path := filepath.Join("testdata", name+".golden")
	if *update {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, got, 0644))
		return
	}
	want, err := os.ReadFile(path)
	require.NoError(t, err, "missing golden file; run with -update")
	require.Equal(t, string(want), string(got))
}
