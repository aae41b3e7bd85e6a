package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// Store handles audit event persistence to database
type Store struct {
	db *sql.DB
}

// NewStore creates a new audit store from AUDIT_DATABASE_URL
// Returns nil if AUDIT_DATABASE_URL is not set (audit DB disabled)
func NewStore() (*Store, error) {
	dbURL := os.Getenv("AUDIT_DATABASE_URL")
	if dbURL == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB creates a store with an existing database connection
// Useful for testing with sqlmock
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveTimeout bounds a single audit write.
const SaveTimeout = 2 * time.Second

// Save persists an audit event to the database
func (s *Store) Save(event Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), SaveTimeout)
	defer cancel()
	return s.SaveContext(ctx, event)
}

// SaveContext persists an audit event, bounded by ctx. The organization,
// subject, action and result columns are lifted out of the structured data
// so they can be indexed.
func (s *Store) SaveContext(ctx context.Context, event Event) error {
	if s.db == nil {
		return nil
	}

	sdata := event.StructuredData()
	sdataJSON, err := json.Marshal(sdata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (timestamp, facility, severity, message_id, organization_id, subject, action, result, message, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		time.Now().UTC(),
		event.Facility(),
		int(event.Severity()),
		event.MessageID(),
		nullable(sdata[SDIDSubject]["organization"]),
		nullable(subjectOf(sdata)),
		nullable(sdata[SDIDAction]["operation"]),
		nullable(sdata[SDIDAction]["result"]),
		event.Message(),
		sdataJSON,
	)

	return err
}

// DB returns the underlying database connection (for testing)
func (s *Store) DB() *sql.DB {
	return s.db
}

// subjectOf prefers the acting user over the subject user.
func subjectOf(sd map[string]map[string]string) string {
	if user := sd[SDIDAuth]["user"]; user != "" {
		return user
	}
	return sd[SDIDSubject]["user"]
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
