package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/glebarez/sqlite"
	"google.golang.org/protobuf/encoding/protojson"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// documentRecord is one document row in the local backend. Fields holds
// the document's Firestore map value in its JSON form.
type documentRecord struct {
	Collection string `gorm:"primaryKey;size:255"`
	ID         string `gorm:"primaryKey;size:255"`
	Fields     string `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRecord) TableName() string { return "documents" }

// LocalStore keeps documents in a sqlite file.
type LocalStore struct {
	gdb *gorm.DB
}

// OpenLocal opens (creating if needed) the sqlite document file at path
func OpenLocal(path string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create docstore directory: %w", err)
	}

	gdb, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open docstore: %w", err)
	}

	// one writer at a time keeps sqlite from returning SQLITE_BUSY
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(&documentRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate docstore: %w", err)
	}

	return &LocalStore{gdb: gdb}, nil
}

// Get implements Store
func (s *LocalStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var rec documentRecord
	err := s.gdb.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, err
	}
	return rec.document()
}

// List implements Store
func (s *LocalStore) List(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	var recs []documentRecord
	err := s.gdb.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(recs))
	for _, rec := range recs {
		doc, err := rec.document()
		if err != nil {
			return nil, err
		}
		if filter.Matches(doc) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Upsert implements Store
func (s *LocalStore) Upsert(ctx context.Context, collection, id string, fields map[string]any) error {
	incoming, err := normalizeFields(fields)
	if err != nil {
		return fmt.Errorf("%s/%s: %w", collection, id, err)
	}

	return s.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec documentRecord
		err := tx.Where("collection = ? AND id = ?", collection, id).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = documentRecord{Collection: collection, ID: id}
			if err := rec.setFields(incoming); err != nil {
				return err
			}
			return tx.Create(&rec).Error
		case err != nil:
			return err
		}
		if len(incoming) == 0 {
			return nil
		}

		existing, err := rec.fields()
		if err != nil {
			return err
		}
		for k, v := range incoming {
			existing[k] = v
		}
		if err := rec.setFields(existing); err != nil {
			return err
		}
		return tx.Save(&rec).Error
	})
}

// Ping implements Store
func (s *LocalStore) Ping(ctx context.Context) error {
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close implements Store
func (s *LocalStore) Close() error {
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *documentRecord) fields() (map[string]any, error) {
	var m firestorepb.MapValue
	if err := protojson.Unmarshal([]byte(r.Fields), &m); err != nil {
		return nil, fmt.Errorf("corrupt document %s/%s: %w", r.Collection, r.ID, err)
	}
	return fromFields(m.GetFields())
}

func (r *documentRecord) setFields(fields map[string]any) error {
	values, err := toFields(fields)
	if err != nil {
		return err
	}
	raw, err := protojson.Marshal(&firestorepb.MapValue{Fields: values})
	if err != nil {
		return err
	}
	r.Fields = string(raw)
	return nil
}

func (r *documentRecord) document() (Document, error) {
	fields, err := r.fields()
	if err != nil {
		return Document{}, err
	}
	return Document{
		ID:         r.ID,
		Fields:     fields,
		CreateTime: r.CreatedAt.UTC(),
		UpdateTime: r.UpdatedAt.UTC(),
	}, nil
}
