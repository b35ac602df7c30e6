package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// withBackup runs fn inside a transaction, guarded by a file-level
// backup. If fn or the commit fails, the backup is restored so the
// database file is byte-for-byte what it was before the call.
// In-memory databases skip the file backup; the transaction alone
// provides rollback there.
func (s *SQLiteStore) withBackup(ctx context.Context, fn func(tx *sql.Tx) error) error {
	backup, err := s.backupFile(ctx)
	if err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}

	runErr := func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()
		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	}()

	if runErr != nil {
		if backup != "" {
			if rerr := s.restoreFromBackup(backup); rerr != nil {
				return fmt.Errorf("%w (backup restore also failed: %v)", runErr, rerr)
			}
		}
		return runErr
	}
	if backup != "" {
		os.Remove(backup)
	}
	return nil
}

// backupFile writes a compact copy of the database next to it.
// Returns "" for in-memory databases.
func (s *SQLiteStore) backupFile(ctx context.Context) (string, error) {
	if s.dbPath == ":memory:" {
		return "", nil
	}
	path := s.dbPath + ".backup"
	os.Remove(path)
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return "", err
	}
	return path, nil
}

// restoreFromBackup replaces the live database file with the backup
// and reopens the connection.
func (s *SQLiteStore) restoreFromBackup(backup string) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	if err := os.Rename(backup, s.dbPath); err != nil {
		return fmt.Errorf("restoring backup: %w", err)
	}
	os.Remove(s.dbPath + "-wal")
	os.Remove(s.dbPath + "-shm")
	db, err := openDatabase(s.dbPath)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

// MergeEvents merges event B into event A and deletes B. The surviving
// event keeps A's id, date and specialty; titles join with " + ",
// bodies with a blank line; list fields union; B's identifiers fill
// gaps in A's; B's attachments move to A. Returns the surviving id.
func (s *SQLiteStore) MergeEvents(ctx context.Context, idA, idB string) (string, error) {
	if idA == idB {
		return "", fmt.Errorf("cannot merge event %s with itself", idA)
	}
	err := s.withBackup(ctx, func(tx *sql.Tx) error {
		a, err := getEventTx(ctx, tx, idA)
		if err != nil {
			return fmt.Errorf("loading event %s: %w", idA, err)
		}
		b, err := getEventTx(ctx, tx, idB)
		if err != nil {
			return fmt.Errorf("loading event %s: %w", idB, err)
		}

		a.Title = a.Title + " + " + b.Title
		a.Content = a.Content + "\n\n" + b.Content
		a.Personnel = unionPersonnel(a.Personnel, b.Personnel)
		a.Facilities = unionFacilities(a.Facilities, b.Facilities)
		a.ClinicalEvents = unionClinical(a.ClinicalEvents, b.ClinicalEvents)
		a.CategoryLinks = unionCategories(a.CategoryLinks, b.CategoryLinks)
		a.SupportLinks = unionSupports(a.SupportLinks, b.SupportLinks)
		a.Identifiers = fillIdentifierGaps(a.Identifiers, b.Identifiers)
		a.Links = fillMapGaps(a.Links, b.Links)
		a.Tags = unionStrings(a.Tags, b.Tags)

		if err := updateEvent(ctx, tx, a); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE attachments SET event_id = ? WHERE event_id = ?`, idA, idB); err != nil {
			return fmt.Errorf("moving attachments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, idB); err != nil {
			return fmt.Errorf("deleting merged event %s: %w", idB, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return idA, nil
}

// RenameEntity rewrites a personnel or facility name across every
// event and the entity registry. Kind is "personnel" or "facility".
// Returns false when no event referenced the old name.
func (s *SQLiteStore) RenameEntity(ctx context.Context, kind, oldName, newName string) (bool, error) {
	switch kind {
	case "personnel", "facility":
	default:
		return false, fmt.Errorf("unknown entity kind %q", kind)
	}
	if strings.TrimSpace(newName) == "" {
		return false, fmt.Errorf("new name must not be empty")
	}

	changed := false
	err := s.withBackup(ctx, func(tx *sql.Tx) error {
		events, err := listEventsTx(ctx, tx)
		if err != nil {
			return err
		}
		for _, ev := range events {
			touched := false
			if kind == "personnel" {
				for i := range ev.Personnel {
					if ev.Personnel[i].Name == oldName {
						ev.Personnel[i].Name = newName
						touched = true
					}
				}
			} else {
				for i := range ev.Facilities {
					if ev.Facilities[i].Name == oldName {
						ev.Facilities[i].Name = newName
						touched = true
					}
				}
			}
			if touched {
				changed = true
				if err := updateEvent(ctx, tx, ev); err != nil {
					return err
				}
			}
		}

		// Registry follows the events. If the new name already has a
		// row, drop the old one instead of colliding.
		if changed {
			if _, err := tx.ExecContext(ctx,
				`UPDATE OR IGNORE entities SET name = ? WHERE kind = ? AND name = ?`,
				newName, kind, oldName); err != nil {
				return fmt.Errorf("renaming entity: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM entities WHERE kind = ? AND name = ?`, kind, oldName); err != nil {
				return fmt.Errorf("removing stale entity: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func listEventsTx(ctx context.Context, tx *sql.Tx) ([]*Event, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, source_ref, date, title, content, specialty, specialty_confidence,
			personnel, facilities, clinical_events, category_links, support_links,
			identifiers, links, tags, created_at, updated_at
		FROM events ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
