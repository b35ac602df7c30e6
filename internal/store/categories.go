package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hurttlocker/chronicle/internal/taxonomy"
)

// CategoryOverrides returns user-edited categories, to be layered over
// the built-in taxonomy with taxonomy.WithCategoryOverrides.
func (s *SQLiteStore) CategoryOverrides(ctx context.Context) ([]taxonomy.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, severity, keywords, details FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("loading category overrides: %w", err)
	}
	defer rows.Close()

	var out []taxonomy.Category
	for rows.Next() {
		var c taxonomy.Category
		var keywords, details string
		if err := rows.Scan(&c.Name, &c.Description, &c.Severity, &keywords, &details); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &c.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshaling keywords for %s: %w", c.Name, err)
		}
		if err := json.Unmarshal([]byte(details), &c.Details); err != nil {
			return nil, fmt.Errorf("unmarshaling details for %s: %w", c.Name, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveCategoryOverride writes one user-edited category. The name keys
// the override: a built-in category of the same name is replaced at
// load time, any other name adds a new category.
func (s *SQLiteStore) SaveCategoryOverride(ctx context.Context, c taxonomy.Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("category name must not be empty")
	}
	switch c.Severity {
	case taxonomy.SeveritySevere, taxonomy.SeverityHigh, taxonomy.SeverityModerate:
	default:
		return fmt.Errorf("invalid severity %q", c.Severity)
	}

	keywords, err := json.Marshal(c.Keywords)
	if err != nil {
		return fmt.Errorf("marshaling keywords: %w", err)
	}
	details, err := json.Marshal(c.Details)
	if err != nil {
		return fmt.Errorf("marshaling details: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO categories (name, description, severity, keywords, details, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			description = excluded.description,
			severity = excluded.severity,
			keywords = excluded.keywords,
			details = excluded.details,
			updated_at = excluded.updated_at`,
		c.Name, c.Description, c.Severity, string(keywords), string(details), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving category %s: %w", c.Name, err)
	}
	return nil
}

// DeleteCategoryOverride removes one override, reverting the category
// to its built-in definition (or removing it, for custom names).
// Returns false when no override with that name existed.
func (s *SQLiteStore) DeleteCategoryOverride(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("deleting category %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
