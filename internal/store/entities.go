package store

import (
	"context"
	"database/sql"
	"fmt"
)

// recordEntities registers the personnel and facilities referenced by
// one event. First sighting wins; re-ingestion never churns the
// registry.
func recordEntities(ctx context.Context, tx *sql.Tx, ev *Event) error {
	for _, p := range ev.Personnel {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entities (kind, name, label, specialty)
			VALUES ('personnel', ?, ?, ?)
			ON CONFLICT (kind, name) DO NOTHING`, p.Name, p.Role, p.Specialty)
		if err != nil {
			return fmt.Errorf("recording personnel %s: %w", p.Name, err)
		}
	}
	for _, f := range ev.Facilities {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entities (kind, name, label, specialty)
			VALUES ('facility', ?, ?, ?)
			ON CONFLICT (kind, name) DO NOTHING`, f.Name, f.Type, f.Specialty)
		if err != nil {
			return fmt.Errorf("recording facility %s: %w", f.Name, err)
		}
	}
	return nil
}

// Entities returns the registry rows for one kind ("personnel" or
// "facility"), or all rows when kind is empty.
func (s *SQLiteStore) Entities(ctx context.Context, kind string) ([]Entity, error) {
	query := `SELECT kind, name, label, specialty, first_seen FROM entities`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY kind, name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.Kind, &e.Name, &e.Label, &e.Specialty, &e.FirstSeen); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
