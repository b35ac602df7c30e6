package search

import (
	"math"
	"testing"
)

func results(ids ...string) []Result {
	out := make([]Result, len(ids))
	for i, id := range ids {
		out[i] = Result{EventID: id, Title: "Event " + id}
	}
	return out
}

func TestFuseRRFBothLanes(t *testing.T) {
	keyword := results("a", "b", "c")
	semantic := results("b", "a", "d")

	got := FuseRRF(keyword, semantic, 0, DefaultRRFConfig())
	if len(got) != 4 {
		t.Fatalf("got %d results, want 4", len(got))
	}
	// a: ranks 1+2, b: ranks 2+1 — identical fused scores; tie breaks
	// on event id, so a precedes b and both outrank single-lane hits.
	if got[0].EventID != "a" || got[1].EventID != "b" {
		t.Errorf("order = %s, %s; want a, b", got[0].EventID, got[1].EventID)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("not sorted at %d", i)
		}
	}
	for _, r := range got {
		if r.MatchType != "hybrid" {
			t.Errorf("match type = %q", r.MatchType)
		}
	}
}

func TestFuseRRFExactScores(t *testing.T) {
	keyword := results("a")
	semantic := results("a")
	got := FuseRRF(keyword, semantic, 0, RRFConfig{K: 60, KeywordWeight: 1, SemanticWeight: 1})
	want := 1.0/61 + 1.0/61
	if math.Abs(got[0].Score-want) > 1e-12 {
		t.Errorf("score = %.12f, want %.12f", got[0].Score, want)
	}
}

func TestFuseRRFSingleLane(t *testing.T) {
	got := FuseRRF(results("a", "b"), nil, 0, DefaultRRFConfig())
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].EventID != "a" {
		t.Errorf("first = %s, want a", got[0].EventID)
	}
	for _, r := range got {
		if r.Score <= 0 {
			t.Errorf("score for %s = %f, want positive", r.EventID, r.Score)
		}
	}
}

func TestFuseRRFDisjointLanes(t *testing.T) {
	got := FuseRRF(results("a"), results("b"), 0, DefaultRRFConfig())
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	// Rank-1 in either lane with the other lane's penalty: symmetric,
	// so the id tiebreak decides.
	if got[0].EventID != "a" || got[1].EventID != "b" {
		t.Errorf("order = %s, %s", got[0].EventID, got[1].EventID)
	}
}

func TestFuseRRFLimit(t *testing.T) {
	got := FuseRRF(results("a", "b", "c", "d"), nil, 2, DefaultRRFConfig())
	if len(got) != 2 {
		t.Errorf("got %d results, want limit of 2", len(got))
	}
}

func TestFuseRRFKeepsSemanticSnippetWhenKeywordLacksOne(t *testing.T) {
	keyword := []Result{{EventID: "a"}}
	semantic := []Result{{EventID: "a", Snippet: "seizure diary"}}
	got := FuseRRF(keyword, semantic, 0, DefaultRRFConfig())
	if got[0].Snippet != "seizure diary" {
		t.Errorf("snippet = %q", got[0].Snippet)
	}
}

func TestNormalizeRRFConfigDefaults(t *testing.T) {
	cfg := normalizeRRFConfig(RRFConfig{})
	if cfg.K != defaultRRFK || cfg.KeywordWeight != 1.0 || cfg.SemanticWeight != 1.0 {
		t.Errorf("normalized = %+v", cfg)
	}
}
