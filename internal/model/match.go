package model

// ConfidenceTier buckets a match score for downstream filtering.
type ConfidenceTier string

const (
	TierHigh    ConfidenceTier = "HIGH"
	TierMedium  ConfidenceTier = "MEDIUM"
	TierLow     ConfidenceTier = "LOW"
	TierVeryLow ConfidenceTier = "VERY_LOW"
)

// MatchSource tags which pass produced a pair.
type MatchSource string

const (
	SourcePrimary  MatchSource = "primary"
	SourceRecovery MatchSource = "recovery"
)

// MatchPair is one accepted same-product match between two listings.
// Component scores are kept alongside the final score for observability.
// Rank is assigned by the consolidator once all pairs for a run are known;
// everything else is immutable after creation.
type MatchPair struct {
	Product1 ProductRecord `json:"product_1"`
	Product2 ProductRecord `json:"product_2"`

	Similarity         float64 `json:"similarity"`
	LexicalSimilarity  float64 `json:"lexical_similarity"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
	HybridSimilarity   float64 `json:"hybrid_similarity"`
	BrandSimilarity    float64 `json:"brand_similarity"`
	SizeSimilarity     float64 `json:"size_similarity"`

	ConfidenceTier ConfidenceTier `json:"confidence_tier"`
	Source         MatchSource    `json:"source"`
	Rank           int            `json:"rank"`
}

// PairKey returns the unordered identity of the pair. A pair between the
// same two (product, retailer) rows hashes to the same key regardless of
// which side is product_1.
func (m MatchPair) PairKey() string {
	a, b := m.Product1.Key(), m.Product2.Key()
	if a > b {
		a, b = b, a
	}
	return a + "||" + b
}

// RunSummary is the JSON summary emitted with every completed run.
type RunSummary struct {
	RunID         string `json:"run_id"`
	Timestamp     string `json:"timestamp"`
	EngineVersion string `json:"engine_version"`

	TotalProducts      int     `json:"total_products"`
	MatchedProducts    int     `json:"matched_products"`
	UnmatchedProducts  int     `json:"unmatched_products"`
	CoveragePercentage float64 `json:"coverage_percentage"`

	TotalPairs    int                    `json:"total_pairs"`
	PairsBySource map[MatchSource]int    `json:"pairs_by_source"`
	TierCounts    map[ConfidenceTier]int `json:"tier_counts"`

	EmbeddingModel string  `json:"embedding_model,omitempty"`
	LexicalWeight  float64 `json:"lexical_weight"`
	SemanticWeight float64 `json:"semantic_weight"`
	MinSimilarity  float64 `json:"min_similarity"`

	AvgLexicalSimilarity  float64 `json:"avg_lexical_similarity"`
	AvgSemanticSimilarity float64 `json:"avg_semantic_similarity"`
	AvgHybridSimilarity   float64 `json:"avg_hybrid_similarity"`
	SemanticHighMatches   int     `json:"semantic_high_matches"`
}

// TierFor maps a final score onto a confidence tier using the given cuts.
func TierFor(score, high, medium, low float64) ConfidenceTier {
	switch {
	case score >= high:
		return TierHigh
	case score >= medium:
		return TierMedium
	case score >= low:
		return TierLow
	default:
		return TierVeryLow
	}
}
