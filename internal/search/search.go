// Package search runs hybrid archive search: an FTS5 keyword lane and
// an optional semantic lane, fused with reciprocal rank fusion. When
// the semantic index is absent or empty the keyword lane stands alone.
package search

import (
	"context"
	"fmt"

	"github.com/hurttlocker/chronicle/internal/semantic"
	"github.com/hurttlocker/chronicle/internal/store"
)

// Result is one ranked search hit.
type Result struct {
	EventID   string  `json:"event_id"`
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	Specialty string  `json:"specialty"`
	Snippet   string  `json:"snippet,omitempty"`
	Score     float64 `json:"score"`
	MatchType string  `json:"match_type"` // "keyword", "semantic" or "hybrid"
}

// Searcher fuses the store's keyword lane with the semantic index.
type Searcher struct {
	store    store.Store
	semantic *semantic.Index
	cfg      RRFConfig
}

// NewSearcher creates a Searcher. A nil semantic index limits results
// to the keyword lane.
func NewSearcher(st store.Store, sem *semantic.Index) *Searcher {
	return &Searcher{store: st, semantic: sem, cfg: DefaultRRFConfig()}
}

// Search returns up to k fused results.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = 10
	}

	keyword, err := s.keywordLane(ctx, query, k)
	if err != nil {
		return nil, err
	}
	semanticLane, err := s.semanticLane(ctx, query, k)
	if err != nil {
		return nil, err
	}

	if len(semanticLane) == 0 {
		if len(keyword) > k {
			keyword = keyword[:k]
		}
		return keyword, nil
	}
	return FuseRRF(keyword, semanticLane, k, s.cfg), nil
}

func (s *Searcher) keywordLane(ctx context.Context, query string, k int) ([]Result, error) {
	// Over-fetch so fusion has candidates beyond the final cut.
	hits, err := s.store.SearchEvents(ctx, query, k*3)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			EventID:   h.Event.ID,
			Title:     h.Event.Title,
			Date:      h.Event.Date,
			Specialty: h.Event.Specialty,
			Snippet:   h.Snippet,
			Score:     -h.Score, // bm25 is negative-better; flip for display
			MatchType: "keyword",
		})
	}
	return results, nil
}

// semanticLane queries the vector index and keeps the best chunk per
// event, preserving rank order. Capability absence yields an empty
// lane, not an error.
func (s *Searcher) semanticLane(ctx context.Context, query string, k int) ([]Result, error) {
	if s.semantic == nil || !s.semantic.Available() {
		return nil, nil
	}
	hits, err := s.semantic.Query(ctx, query, k*3)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	seen := make(map[string]bool)
	var results []Result
	for _, h := range hits {
		if seen[h.Chunk.EventID] {
			continue
		}
		seen[h.Chunk.EventID] = true

		ev, err := s.store.GetEvent(ctx, h.Chunk.EventID)
		if err != nil {
			// Index can lag the store after curation; skip stale hits.
			continue
		}
		results = append(results, Result{
			EventID:   ev.ID,
			Title:     ev.Title,
			Date:      ev.Date,
			Specialty: ev.Specialty,
			Snippet:   snippetOf(h.Chunk.Text),
			Score:     float64(h.Score),
			MatchType: "semantic",
		})
	}
	return results, nil
}

const snippetLen = 160

func snippetOf(text string) string {
	if len(text) <= snippetLen {
		return text
	}
	return text[:snippetLen] + "…"
}
