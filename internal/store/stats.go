package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Stats returns archive statistics for the stats command and MCP tool.
func (s *SQLiteStore) Stats(ctx context.Context) (*StoreStats, error) {
	st := &StoreStats{}

	counts := []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM events`, &st.EventCount},
		{`SELECT COUNT(*) FROM attachments`, &st.AttachmentCount},
		{`SELECT COUNT(*) FROM entities WHERE kind = 'personnel'`, &st.PersonnelCount},
		{`SELECT COUNT(*) FROM entities WHERE kind = 'facility'`, &st.FacilityCount},
		{`SELECT COUNT(*) FROM patient_identifiers`, &st.IdentifierCount},
		{`SELECT COUNT(*) FROM categories`, &st.CategoryOverrides},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("counting rows: %w", err)
		}
	}

	var earliest, latest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(date), MAX(date) FROM events WHERE date != ''`).Scan(&earliest, &latest)
	if err != nil {
		return nil, fmt.Errorf("reading date range: %w", err)
	}
	st.EarliestDate = earliest.String
	st.LatestDate = latest.String

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("reading page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("reading page size: %w", err)
	}
	st.DBSizeBytes = pageCount * pageSize

	return st, nil
}
