package store

import "fmt"

// migrate creates the schema if missing. The schema is additive; new
// columns get ALTER TABLE guards here rather than a migration table.
func (s *SQLiteStore) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			source_ref TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			specialty TEXT NOT NULL DEFAULT 'Unknown',
			specialty_confidence REAL NOT NULL DEFAULT 0,
			personnel TEXT NOT NULL DEFAULT '[]',
			facilities TEXT NOT NULL DEFAULT '[]',
			clinical_events TEXT NOT NULL DEFAULT '[]',
			category_links TEXT NOT NULL DEFAULT '[]',
			support_links TEXT NOT NULL DEFAULT '[]',
			identifiers TEXT NOT NULL DEFAULT '{}',
			links TEXT NOT NULL DEFAULT '{}',
			tags TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(date)`,
		`CREATE INDEX IF NOT EXISTS idx_events_specialty ON events(specialty)`,

		`CREATE TABLE IF NOT EXISTS attachments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			file_name TEXT NOT NULL DEFAULT '',
			mime_type TEXT NOT NULL DEFAULT '',
			storage_path TEXT NOT NULL DEFAULT '',
			extracted_text TEXT NOT NULL DEFAULT '',
			medical_info TEXT,
			processed_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_event ON attachments(event_id)`,

		`CREATE TABLE IF NOT EXISTS patient_identifiers (
			kind TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			source_event_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			name TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL DEFAULT 'MODERATE',
			keywords TEXT NOT NULL DEFAULT '[]',
			details TEXT NOT NULL DEFAULT '[]',
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS entities (
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			specialty TEXT NOT NULL DEFAULT 'Unknown',
			first_seen TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (kind, name)
		)`,

		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
			title, content,
			content='events',
			content_rowid='rowid',
			tokenize='porter unicode61'
		)`,
		`CREATE TRIGGER IF NOT EXISTS events_ai AFTER INSERT ON events BEGIN
			INSERT INTO events_fts(rowid, title, content)
			VALUES (new.rowid, new.title, new.content);
		END`,
		`CREATE TRIGGER IF NOT EXISTS events_ad AFTER DELETE ON events BEGIN
			INSERT INTO events_fts(events_fts, rowid, title, content)
			VALUES ('delete', old.rowid, old.title, old.content);
		END`,
		`CREATE TRIGGER IF NOT EXISTS events_au AFTER UPDATE ON events BEGIN
			INSERT INTO events_fts(events_fts, rowid, title, content)
			VALUES ('delete', old.rowid, old.title, old.content);
			INSERT INTO events_fts(rowid, title, content)
			VALUES (new.rowid, new.title, new.content);
		END`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration statement failed: %w", err)
		}
	}
	return nil
}
