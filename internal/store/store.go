// Package store provides the SQLite + FTS5 knowledge store.
//
// All archive data lives in a single SQLite database file:
// - Events with their extracted facts (personnel, facilities, clinical
//   events, category/support links) and owned attachments
// - The patient-identifier record, merged additively across events
// - User-edited taxonomy categories, layered over the built-ins
// - The personnel/facility entity registry
// - FTS5 full-text search index over event titles and content
//
// The store is written by one ingestion process at a time; mutation is
// transactional and the curation entrypoints additionally write a file
// backup first so a failed write can be rolled back to the exact prior
// state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hurttlocker/chronicle/internal/extract"
	"github.com/hurttlocker/chronicle/internal/taxonomy"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.chronicle/chronicle.db"

// ErrNotFound is returned when the requested event does not exist.
var ErrNotFound = errors.New("event not found")

// Event is one medically relevant occurrence derived from one source
// note. Identity is derived from the source note, never user-assigned.
type Event struct {
	ID             string                  `json:"id"`
	SourceRef      string                  `json:"source_ref,omitempty"`
	Date           string                  `json:"date"` // YYYY-MM-DD
	Title          string                  `json:"title"`
	Content        string                  `json:"content"`
	Specialty      string                  `json:"specialty"`
	SpecialtyConf  float64                 `json:"specialty_confidence"`
	Personnel      []extract.PersonnelRef  `json:"personnel,omitempty"`
	Facilities     []extract.FacilityRef   `json:"facilities,omitempty"`
	ClinicalEvents []extract.ClinicalEvent `json:"clinical_events,omitempty"`
	CategoryLinks  []extract.CategoryLink  `json:"category_links,omitempty"`
	SupportLinks   []extract.SupportLink   `json:"support_links,omitempty"`
	Identifiers    map[string]string       `json:"identifiers,omitempty"`
	Links          map[string]string       `json:"links,omitempty"`
	Tags           []string                `json:"tags,omitempty"`
	Attachments    []Attachment            `json:"attachments,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// Attachment is one binary resource owned by exactly one Event.
// Deleting the Event deletes its Attachments.
type Attachment struct {
	ID            int64                 `json:"id"`
	EventID       string                `json:"event_id"`
	FileName      string                `json:"file_name"`
	MimeType      string                `json:"mime_type"`
	StoragePath   string                `json:"storage_path"`
	ExtractedText string                `json:"extracted_text,omitempty"`
	MedicalInfo   *extract.MedicalFacts `json:"medical_info,omitempty"`
	ProcessedAt   *time.Time            `json:"processed_at,omitempty"`
}

// EventEdit is a partial scalar update for one event. Nil fields are
// left unchanged.
type EventEdit struct {
	Title     *string
	Date      *string
	Content   *string
	Specialty *string
}

// Entity is one row of the personnel/facility canonical-name registry.
type Entity struct {
	Kind      string    `json:"kind"` // "personnel" or "facility"
	Name      string    `json:"name"`
	Label     string    `json:"label"` // role for personnel, type for facilities
	Specialty string    `json:"specialty"`
	FirstSeen time.Time `json:"first_seen"`
}

// SearchResult is one keyword-search hit.
type SearchResult struct {
	Event   *Event
	Score   float64
	Snippet string
}

// UpsertReport summarizes one UpsertEvents call.
type UpsertReport struct {
	Added  int
	Merged int
}

// StoreStats holds observability statistics about the store.
type StoreStats struct {
	EventCount        int64
	AttachmentCount   int64
	PersonnelCount    int64
	FacilityCount     int64
	IdentifierCount   int64
	CategoryOverrides int64
	EarliestDate      string
	LatestDate        string
	DBSizeBytes       int64
}

// StoreConfig holds configuration for NewStore.
type StoreConfig struct {
	DBPath string
}

// Store defines the knowledge-store interface consumed by the pipeline
// and the presentation layer.
type Store interface {
	// Events
	UpsertEvents(ctx context.Context, events []*Event) (*UpsertReport, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context) ([]*Event, error)
	EditEvent(ctx context.Context, id string, edit EventEdit) error
	DeleteEvent(ctx context.Context, id string) error

	// Curation
	MergeEvents(ctx context.Context, idA, idB string) (string, error)
	RenameEntity(ctx context.Context, kind, oldName, newName string) (bool, error)

	// Search
	SearchEvents(ctx context.Context, query string, limit int) ([]*SearchResult, error)

	// Patient identifiers
	PatientIdentifiers(ctx context.Context) (map[string]string, error)

	// Taxonomy overrides
	CategoryOverrides(ctx context.Context) ([]taxonomy.Category, error)
	SaveCategoryOverride(ctx context.Context, c taxonomy.Category) error
	DeleteCategoryOverride(ctx context.Context, name string) (bool, error)

	// Entity registry
	Entities(ctx context.Context, kind string) ([]Entity, error)

	// Observability
	Stats(ctx context.Context) (*StoreStats, error)

	// Maintenance
	Vacuum(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store using SQLite + FTS5.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := openDatabase(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// openDatabase opens a connection and applies the standard pragmas.
func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}
	return db, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Vacuum runs VACUUM on the database. Manual only, never automatic.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
