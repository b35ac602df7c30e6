package search

import (
	"math"
	"sort"
)

const defaultRRFK = 60

// RRFConfig holds parameters for reciprocal rank fusion.
type RRFConfig struct {
	K              int
	KeywordWeight  float64
	SemanticWeight float64
}

// DefaultRRFConfig returns the default fusion configuration.
func DefaultRRFConfig() RRFConfig {
	return RRFConfig{
		K:              defaultRRFK,
		KeywordWeight:  1.0,
		SemanticWeight: 1.0,
	}
}

// FuseRRF merges ranked keyword and semantic result lists with
// reciprocal rank fusion. An event absent from one lane gets that
// lane's penalty rank (list length + 1), so single-lane hits still
// score but dual-lane hits rank above them.
func FuseRRF(keyword, semantic []Result, limit int, cfg RRFConfig) []Result {
	cfg = normalizeRRFConfig(cfg)

	keywordPenalty := len(keyword) + 1
	semanticPenalty := len(semantic) + 1

	type fused struct {
		result       Result
		keywordRank  int
		semanticRank int
	}
	byEvent := make(map[string]*fused)

	for i, r := range keyword {
		byEvent[r.EventID] = &fused{
			result:       r,
			keywordRank:  i + 1,
			semanticRank: semanticPenalty,
		}
	}
	for i, r := range semantic {
		if entry, ok := byEvent[r.EventID]; ok {
			entry.semanticRank = i + 1
			if entry.result.Snippet == "" {
				entry.result.Snippet = r.Snippet
			}
		} else {
			byEvent[r.EventID] = &fused{
				result:       r,
				keywordRank:  keywordPenalty,
				semanticRank: i + 1,
			}
		}
	}

	merged := make([]Result, 0, len(byEvent))
	for _, entry := range byEvent {
		score := cfg.KeywordWeight/float64(cfg.K+entry.keywordRank) +
			cfg.SemanticWeight/float64(cfg.K+entry.semanticRank)
		entry.result.Score = score
		entry.result.MatchType = "hybrid"
		merged = append(merged, entry.result)
	}

	sort.Slice(merged, func(i, j int) bool {
		delta := merged[i].Score - merged[j].Score
		if math.Abs(delta) <= 1e-12 {
			return merged[i].EventID < merged[j].EventID
		}
		return delta > 0
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func normalizeRRFConfig(cfg RRFConfig) RRFConfig {
	if cfg.K <= 0 {
		cfg.K = defaultRRFK
	}
	if cfg.KeywordWeight == 0 {
		cfg.KeywordWeight = 1.0
	}
	if cfg.SemanticWeight == 0 {
		cfg.SemanticWeight = 1.0
	}
	return cfg
}
