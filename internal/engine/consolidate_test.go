package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aue-natural/pricewatch/internal/model"
	"github.com/aue-natural/pricewatch/internal/scoring"
)

func pair(a, b model.ProductRecord, score float64, source model.MatchSource) model.MatchPair {
	return model.MatchPair{Product1: a, Product2: b, Similarity: score, Source: source}
}

func TestConsolidateDropsDuplicateRecoveryPairs(t *testing.T) {
	a := record("p1", "Shea Body Butter", "Aue", "Skin", "Coles")
	b := record("p2", "Shea Body Butter", "Aue", "Skin", "Woolworths")
	cfg := scoring.DefaultMatcherConfig()

	primary := []model.MatchPair{pair(a, b, 92, model.SourcePrimary)}
	// Same unordered pair, sides flipped.
	recovery := []model.MatchPair{pair(b, a, 70, model.SourceRecovery)}

	pairs, _, summary := Consolidate([]model.ProductRecord{a, b}, primary, recovery, cfg, "m")
	require.Len(t, pairs, 1)
	assert.Equal(t, model.SourcePrimary, pairs[0].Source)
	assert.Equal(t, 92.0, pairs[0].Similarity)
	assert.Equal(t, 1, summary.PairsBySource[model.SourcePrimary])
	assert.Zero(t, summary.PairsBySource[model.SourceRecovery])
}

func TestConsolidateAssignsTiers(t *testing.T) {
	a := record("p1", "A", "", "Skin", "Coles")
	b := record("p2", "B", "", "Skin", "Woolworths")
	c := record("p3", "C", "", "Skin", "Aldi")
	d := record("p4", "D", "", "Skin", "Coles")
	cfg := scoring.DefaultMatcherConfig()

	primary := []model.MatchPair{
		pair(a, b, 95, model.SourcePrimary),
		pair(a, c, 75, model.SourcePrimary),
		pair(a, d, 66, model.SourcePrimary),
	}

	pairs, _, summary := Consolidate([]model.ProductRecord{a, b, c, d}, primary, nil, cfg, "m")
	require.Len(t, pairs, 3)
	assert.Equal(t, model.TierHigh, pairs[0].ConfidenceTier)
	assert.Equal(t, model.TierMedium, pairs[1].ConfidenceTier)
	assert.Equal(t, model.TierLow, pairs[2].ConfidenceTier)
	assert.Equal(t, 1, summary.TierCounts[model.TierHigh])
	assert.Equal(t, 1, summary.TierCounts[model.TierMedium])
	assert.Equal(t, 1, summary.TierCounts[model.TierLow])
}

func TestConsolidateDenseRanks(t *testing.T) {
	a := record("p1", "A", "", "Skin", "Coles")
	b := record("p2", "B", "", "Skin", "Woolworths")
	c := record("p3", "C", "", "Skin", "Aldi")
	d := record("p4", "D", "", "Skin", "Iga")
	cfg := scoring.DefaultMatcherConfig()

	primary := []model.MatchPair{
		pair(a, b, 95, model.SourcePrimary),
		pair(a, c, 80, model.SourcePrimary),
		pair(a, d, 80, model.SourcePrimary),
	}

	pairs, _, _ := Consolidate([]model.ProductRecord{a, b, c, d}, primary, nil, cfg, "m")
	require.Len(t, pairs, 3)

	ranks := make(map[float64]int)
	for _, p := range pairs {
		ranks[p.Similarity] = p.Rank
	}
	assert.Equal(t, 1, ranks[95])
	assert.Equal(t, 2, ranks[80], "tied scores share a dense rank")
}

func TestConsolidateCoverageAndUnmatched(t *testing.T) {
	a := record("p1", "A", "", "Skin", "Coles")
	b := record("p2", "B", "", "Skin", "Woolworths")
	c := record("p3", "C", "", "Skin", "Aldi")
	d := record("p4", "D", "", "Skin", "Iga")
	cfg := scoring.DefaultMatcherConfig()

	primary := []model.MatchPair{pair(a, b, 90, model.SourcePrimary)}

	pairs, unmatched, summary := Consolidate([]model.ProductRecord{a, b, c, d}, primary, nil, cfg, "test-model")
	assert.Len(t, pairs, 1)
	assert.Len(t, unmatched, 2)

	assert.Equal(t, 4, summary.TotalProducts)
	assert.Equal(t, 2, summary.MatchedProducts)
	assert.Equal(t, 2, summary.UnmatchedProducts)
	assert.InDelta(t, 50.0, summary.CoveragePercentage, 0.001)
	assert.Equal(t, "test-model", summary.EmbeddingModel)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "hybrid-embeddings-v1", summary.EngineVersion)

	// No unmatched product appears in any pair.
	inPairs := map[string]struct{}{}
	for _, p := range pairs {
		inPairs[p.Product1.ProductID] = struct{}{}
		inPairs[p.Product2.ProductID] = struct{}{}
	}
	for _, u := range unmatched {
		assert.NotContains(t, inPairs, u.ProductID)
	}
}

func TestConsolidateEmptyInput(t *testing.T) {
	cfg := scoring.DefaultMatcherConfig()
	pairs, unmatched, summary := Consolidate(nil, nil, nil, cfg, "m")

	assert.Empty(t, pairs)
	assert.Empty(t, unmatched)
	assert.Zero(t, summary.TotalProducts)
	assert.Zero(t, summary.CoveragePercentage)
}

func TestConsolidateAverages(t *testing.T) {
	a := record("p1", "A", "", "Skin", "Coles")
	b := record("p2", "B", "", "Skin", "Woolworths")
	c := record("p3", "C", "", "Skin", "Aldi")
	cfg := scoring.DefaultMatcherConfig()

	p1 := pair(a, b, 90, model.SourcePrimary)
	p1.LexicalSimilarity, p1.SemanticSimilarity, p1.HybridSimilarity = 80, 90, 84
	p2 := pair(a, c, 70, model.SourceRecovery)
	p2.LexicalSimilarity, p2.HybridSimilarity = 70, 70

	pairs, _, summary := Consolidate([]model.ProductRecord{a, b, c}, []model.MatchPair{p1}, []model.MatchPair{p2}, cfg, "m")
	require.Len(t, pairs, 2)

	assert.InDelta(t, 75.0, summary.AvgLexicalSimilarity, 0.001)
	assert.InDelta(t, 45.0, summary.AvgSemanticSimilarity, 0.001)
	assert.InDelta(t, 77.0, summary.AvgHybridSimilarity, 0.001)
	assert.Equal(t, 1, summary.SemanticHighMatches)
	assert.Equal(t, 1, summary.PairsBySource[model.SourcePrimary])
	assert.Equal(t, 1, summary.PairsBySource[model.SourceRecovery])
}
