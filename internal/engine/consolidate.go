package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aue-natural/pricewatch/internal/model"
	"github.com/aue-natural/pricewatch/internal/scoring"
)

const engineVersion = "hybrid-embeddings-v1"

// Consolidate merges the primary and recovery pair sets, recomputes the
// unmatched complement, assigns confidence tiers and ranks, and builds the
// run summary. No unordered product pair survives twice: a recovery pair
// duplicating a primary pair is dropped.
func Consolidate(rows []model.ProductRecord, primary, recovery []model.MatchPair, cfg scoring.MatcherConfig, embeddingModel string) ([]model.MatchPair, []model.UnmatchedRecord, model.RunSummary) {
	seen := make(map[string]struct{}, len(primary)+len(recovery))
	pairs := make([]model.MatchPair, 0, len(primary)+len(recovery))

	for _, p := range primary {
		if _, dup := seen[p.PairKey()]; dup {
			continue
		}
		seen[p.PairKey()] = struct{}{}
		pairs = append(pairs, p)
	}
	dropped := 0
	for _, p := range recovery {
		if _, dup := seen[p.PairKey()]; dup {
			dropped++
			continue
		}
		seen[p.PairKey()] = struct{}{}
		pairs = append(pairs, p)
	}
	if dropped > 0 {
		zap.L().Info("engine: dropped recovery pairs already matched by primary pass", zap.Int("dropped", dropped))
	}

	for i := range pairs {
		pairs[i].ConfidenceTier = model.TierFor(pairs[i].Similarity, cfg.HighTierCut, cfg.MediumTierCut, cfg.LowTierCut)
	}
	assignRanks(pairs)

	unmatched := Unmatched(rows, pairs, "no match >= minimum similarity after both passes")
	summary := buildSummary(rows, pairs, unmatched, cfg, embeddingModel)

	zap.L().Info("engine: run consolidated",
		zap.Int("pairs", len(pairs)),
		zap.Int("unmatched", len(unmatched)),
		zap.Float64("coverage_pct", summary.CoveragePercentage),
	)
	return pairs, unmatched, summary
}

// assignRanks dense-ranks each product's outgoing pairs by descending
// similarity: rank 1 is the best match, tied scores share a rank, and no
// rank is skipped after a tie.
func assignRanks(pairs []model.MatchPair) {
	byProduct := make(map[string][]int)
	for i, p := range pairs {
		byProduct[p.Product1.Key()] = append(byProduct[p.Product1.Key()], i)
	}

	for _, idxs := range byProduct {
		sort.SliceStable(idxs, func(a, b int) bool {
			return pairs[idxs[a]].Similarity > pairs[idxs[b]].Similarity
		})

		rank := 0
		prev := -1.0
		for _, i := range idxs {
			if pairs[i].Similarity != prev {
				rank++
				prev = pairs[i].Similarity
			}
			pairs[i].Rank = rank
		}
	}
}

func buildSummary(rows []model.ProductRecord, pairs []model.MatchPair, unmatched []model.UnmatchedRecord, cfg scoring.MatcherConfig, embeddingModel string) model.RunSummary {
	products := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		products[r.ProductID] = struct{}{}
	}
	matched := make(map[string]struct{}, len(pairs)*2)
	for _, p := range pairs {
		matched[p.Product1.ProductID] = struct{}{}
		matched[p.Product2.ProductID] = struct{}{}
	}

	coverage := 0.0
	if len(products) > 0 {
		coverage = float64(len(matched)) / float64(len(products)) * 100
	}

	summary := model.RunSummary{
		RunID:         uuid.New().String(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EngineVersion: engineVersion,

		TotalProducts:      len(products),
		MatchedProducts:    len(matched),
		UnmatchedProducts:  len(unmatched),
		CoveragePercentage: coverage,

		TotalPairs:    len(pairs),
		PairsBySource: make(map[model.MatchSource]int),
		TierCounts:    make(map[model.ConfidenceTier]int),

		EmbeddingModel: embeddingModel,
		LexicalWeight:  cfg.LexicalWeight,
		SemanticWeight: cfg.SemanticWeight,
		MinSimilarity:  cfg.MinSimilarity,
	}

	var sumLex, sumSem, sumHybrid float64
	for _, p := range pairs {
		summary.PairsBySource[p.Source]++
		summary.TierCounts[p.ConfidenceTier]++
		sumLex += p.LexicalSimilarity
		sumSem += p.SemanticSimilarity
		sumHybrid += p.HybridSimilarity
		if p.SemanticSimilarity >= 80 {
			summary.SemanticHighMatches++
		}
	}
	if len(pairs) > 0 {
		n := float64(len(pairs))
		summary.AvgLexicalSimilarity = sumLex / n
		summary.AvgSemanticSimilarity = sumSem / n
		summary.AvgHybridSimilarity = sumHybrid / n
	}
	return summary
}
