package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/balkashynov/opsportal/internal/config"
)

const (
	// datastoreScope is the OAuth scope for Firestore
	datastoreScope = "https://www.googleapis.com/auth/datastore"

	// DefaultPageSize is used when the configured page size is not positive
	DefaultPageSize = 300

	// APITimeout bounds each individual Firestore call
	APITimeout = 15 * time.Second

	pingCollection = "_sync_metadata"
)

// FirestoreStore implements Store over the Firestore client.
type FirestoreStore struct {
	client   *firestore.Client
	pageSize int
}

// NewFirestore builds a Firestore-backed store from configuration.
// Credentials come from cfg.CredentialsFile, or Application Default
// Credentials when it is empty. A non-empty cfg.Endpoint (an emulator) is
// dialled without TLS or authentication.
func NewFirestore(ctx context.Context, cfg config.DocstoreConfig) (*FirestoreStore, error) {
	var opts []option.ClientOption

	switch {
	case cfg.Endpoint != "":
		conn, err := grpc.NewClient(cfg.Endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("failed to dial firestore endpoint: %w", err)
		}
		opts = append(opts, option.WithGRPCConn(conn), option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, datastoreScope)
		if err != nil {
			return nil, fmt.Errorf("invalid credentials file: %w", err)
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	default:
		creds, err := google.FindDefaultCredentials(ctx, datastoreScope)
		if err != nil {
			return nil, fmt.Errorf("no Google credentials available: %w", err)
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	}

	return NewFirestoreWithOptions(ctx, cfg.ProjectID, cfg.DatabaseID, cfg.PageSize, opts...)
}

// NewFirestoreWithOptions creates a store with explicit client options (for testing).
func NewFirestoreWithOptions(ctx context.Context, projectID, databaseID string, pageSize int, opts ...option.ClientOption) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	if databaseID == "" {
		databaseID = "(default)"
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreStore{client: client, pageSize: pageSize}, nil
}

// Get implements Store
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return Document{}, wrapError(err, collection, id)
	}
	return fromSnapshot(snap)
}

// List implements Store. Documents are read a page at a time in id order.
func (s *FirestoreStore) List(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	var docs []Document

	query := s.client.Collection(collection).OrderBy(firestore.DocumentID, firestore.Asc).Limit(s.pageSize)
	last := ""
	for {
		page := query
		if last != "" {
			page = query.StartAfter(last)
		}

		pageCtx, cancel := context.WithTimeout(ctx, APITimeout)
		snaps, err := page.Documents(pageCtx).GetAll()
		cancel()
		if err != nil {
			return nil, wrapError(err, collection, "")
		}

		for _, snap := range snaps {
			doc, err := fromSnapshot(snap)
			if err != nil {
				return nil, err
			}
			if filter.Matches(doc) {
				docs = append(docs, doc)
			}
		}

		if len(snaps) < s.pageSize {
			return docs, nil
		}
		last = snaps[len(snaps)-1].Ref.ID
	}
}

// Upsert implements Store. Each top-level field is its own merge path, so
// nested maps are replaced whole and other fields are left alone.
func (s *FirestoreStore) Upsert(ctx context.Context, collection, id string, fields map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	normalized, err := normalizeFields(fields)
	if err != nil {
		return fmt.Errorf("%s/%s: %w", collection, id, err)
	}
	ref := s.client.Collection(collection).Doc(id)

	// a set without merge paths would replace the document
	if len(normalized) == 0 {
		_, err := ref.Create(ctx, map[string]any{})
		if err != nil && status.Code(err) != codes.AlreadyExists {
			return wrapError(err, collection, id)
		}
		return nil
	}

	paths := make([]firestore.FieldPath, 0, len(normalized))
	for k := range normalized {
		paths = append(paths, firestore.FieldPath{k})
	}
	if _, err := ref.Set(ctx, normalized, firestore.Merge(paths...)); err != nil {
		return wrapError(err, collection, id)
	}
	return nil
}

// Ping implements Store by reading at most one document.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := s.client.Collection(pingCollection).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("firestore unreachable: %w", err)
	}
	return nil
}

// Close implements Store
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func wrapError(err error, collection, id string) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return fmt.Errorf("firestore %s: %w", collection, err)
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (Document, error) {
	fields, err := normalizeFields(snap.Data())
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", snap.Ref.Path, err)
	}
	return Document{
		ID:         snap.Ref.ID,
		Fields:     fields,
		CreateTime: snap.CreateTime.UTC(),
		UpdateTime: snap.UpdateTime.UTC(),
	}, nil
}
