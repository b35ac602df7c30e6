package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SearchEvents runs a keyword search over event titles and content via
// FTS5, ranked by bm25. The query is split on whitespace and each term
// quoted, so user input never reaches the FTS query parser raw.
func (s *SQLiteStore) SearchEvents(ctx context.Context, query string, limit int) ([]*SearchResult, error) {
	match := buildMatchQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT e.id, bm25(events_fts) AS score,
			snippet(events_fts, 1, '[', ']', '…', 12) AS snip
		FROM events_fts
		JOIN events e ON e.rowid = events_fts.rowid
		WHERE events_fts MATCH ?
		ORDER BY score ASC
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("searching events: %w", err)
	}
	defer rows.Close()

	type hit struct {
		id      string
		score   float64
		snippet string
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.id, &h.score, &h.snippet); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(hits))
	for _, h := range hits {
		ev, err := getEventTx(ctx, tx, h.id)
		if err != nil {
			return nil, err
		}
		results = append(results, &SearchResult{Event: ev, Score: h.score, Snippet: h.snippet})
	}
	return results, nil
}

// buildMatchQuery quotes each whitespace-separated term so FTS5
// operators in user input are treated as literals.
func buildMatchQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, `""`)
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " ")
}
