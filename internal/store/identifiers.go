package store

import (
	"context"
	"database/sql"
	"fmt"
)

// recordIdentifiers feeds the patient-identifier record from one
// event. INSERT OR IGNORE makes the record first-writer-wins: once a
// kind is set, later events never overwrite it.
func recordIdentifiers(ctx context.Context, tx *sql.Tx, ev *Event) error {
	for kind, value := range ev.Identifiers {
		if value == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO patient_identifiers (kind, value, source_event_id)
			VALUES (?, ?, ?)`, kind, value, ev.ID)
		if err != nil {
			return fmt.Errorf("recording identifier %s: %w", kind, err)
		}
	}
	return nil
}

// PatientIdentifiers returns the accumulated patient-identifier record.
func (s *SQLiteStore) PatientIdentifiers(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, value FROM patient_identifiers`)
	if err != nil {
		return nil, fmt.Errorf("loading identifiers: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			return nil, fmt.Errorf("scanning identifier: %w", err)
		}
		out[kind] = value
	}
	return out, rows.Err()
}
