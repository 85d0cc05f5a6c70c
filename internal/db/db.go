package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/balkashynov/opsportal/internal/config"
	"github.com/balkashynov/opsportal/internal/models"
)

// Store is the relational side: a handful of tables keyed by string id
type Store struct {
	gdb    *gorm.DB
	driver string
}

// Open connects to the configured relational database. Migrations are not run.
func Open(cfg config.RelationalConfig) (*Store, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		// Ensure the directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dialector = sqlite.Open(cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	case "postgres":
		dialector = postgres.New(postgres.Config{
			DriverName: "postgres", // lib/pq
			DSN:        cfg.DSN,
		})
	default:
		return nil, fmt.Errorf("unknown relational driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet by default
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &Store{gdb: gdb, driver: cfg.Driver}, nil
}

// Migrate creates/updates the schema for every relational table
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.gdb.WithContext(ctx).AutoMigrate(models.AllRows()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// UpsertRow inserts a row keyed by id into table, or overwrites every given
// column of the existing row. Columns not named are left alone. The key
// column is "id" except where keyColumns says otherwise.
func (s *Store) UpsertRow(ctx context.Context, table, id string, columns map[string]any) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%s: row has no id", table)
	}

	key := keyColumn(table)
	cols := make([]string, 0, len(columns))
	for col := range columns {
		if col != key {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)

	onConflict := clause.OnConflict{Columns: []clause.Column{{Name: key}}}
	if len(cols) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.AssignmentColumns(cols)
	}

	// gorm mutates the map it is given
	values := make(map[string]any, len(columns)+1)
	for k, v := range columns {
		values[k] = v
	}
	values[key] = id

	if err := s.gdb.WithContext(ctx).Table(table).Clauses(onConflict).Create(values).Error; err != nil {
		return fmt.Errorf("upsert %s %s: %w", table, id, err)
	}
	return nil
}

// QueryRows returns the rows of table matching every column=value in filter,
// ordered by id
func (s *Store) QueryRows(ctx context.Context, table string, filter map[string]any) ([]map[string]any, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	q := s.gdb.WithContext(ctx).Table(table)
	if len(filter) > 0 {
		q = q.Where(filter)
	}

	var rows []map[string]any
	if err := q.Order(keyColumn(table)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	return rows, nil
}

// Exists reports whether table has a row with the given id
func (s *Store) Exists(ctx context.Context, table, id string) (bool, error) {
	if err := checkTable(table); err != nil {
		return false, err
	}
	var count int64
	if err := s.gdb.WithContext(ctx).Table(table).Where(keyColumn(table)+" = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("lookup %s %s: %w", table, id, err)
	}
	return count > 0, nil
}

// ShiftsInRange returns finished shifts that started within [start, end),
// oldest first
func (s *Store) ShiftsInRange(ctx context.Context, start, end time.Time) ([]models.ShiftRow, error) {
	var shifts []models.ShiftRow

	err := s.gdb.WithContext(ctx).
		Where("started_at >= ? AND started_at < ? AND ended_at IS NOT NULL", start, end).
		Order("started_at ASC").
		Find(&shifts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load shifts: %w", err)
	}
	return shifts, nil
}

// Driver returns the configured driver name
func (s *Store) Driver() string {
	return s.driver
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ErrorDetail extracts the server code and detail from a database error.
// Both are empty for errors that carry neither.
func ErrorDetail(err error) (code, detail string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		detail = pqErr.Detail
		if detail == "" {
			detail = pqErr.Hint
		}
		return string(pqErr.Code), detail
	}
	return "", ""
}

var knownTables = []string{
	models.TableLocations,
	models.TableJobs,
	models.TableTasks,
	models.TableShifts,
	models.TableMedia,
	models.TableTaskMedia,
	models.TableRobotIntelligence,
}

// keyColumns names the tables not keyed by "id"
var keyColumns = map[string]string{
	models.TableRobotIntelligence: "firebase_id",
}

func keyColumn(table string) string {
	if col, ok := keyColumns[table]; ok {
		return col
	}
	return "id"
}

func checkTable(table string) error {
	if !slices.Contains(knownTables, table) {
		return fmt.Errorf("unknown table %q", table)
	}
	return nil
}
