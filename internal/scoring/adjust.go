package scoring

import (
	"strings"

	"github.com/aue-natural/pricewatch/internal/model"
)

// Neutral component value reported when a signal is missing on either side.
// It keeps the component observable without implying a match or a mismatch.
const neutralSimilarity = 50.0

// HybridSimilarity blends a lexical and a semantic name score.
func HybridSimilarity(lexical, semantic float64, cfg MatcherConfig) float64 {
	return cfg.LexicalWeight*lexical + cfg.SemanticWeight*semantic
}

// BrandAdjust compares two normalized brands. Returns the reported brand
// similarity component and the additive effect on the final score. Either
// side missing is brand-neutral.
func BrandAdjust(b1, b2 string, cfg MatcherConfig) (similarity, effect float64) {
	if b1 == "" || b2 == "" {
		return neutralSimilarity, 0
	}
	if b1 == b2 {
		return 100, cfg.BrandMatchBonus
	}
	return 0, -cfg.BrandMismatchPenalty
}

// RecoveryBrandAdjust applies the recovery pass's softer brand policy.
func RecoveryBrandAdjust(b1, b2 string, cfg MatcherConfig) (similarity, effect float64) {
	if b1 == "" || b2 == "" {
		return neutralSimilarity, 0
	}
	if b1 == b2 {
		return 100, cfg.RecoveryBrandMatchBonus
	}
	return 0, -cfg.RecoveryBrandMismatchPenalty
}

// SizeAdjust compares the size of two records. Same unit within the exact
// band counts as an exact size match; within the tolerance band it is close;
// beyond it, or across units, it is a mismatch. A missing size on either
// side is neutral.
func SizeAdjust(p1, p2 model.ProductRecord, cfg MatcherConfig) (similarity, effect float64) {
	if !p1.HasSize() || !p2.HasSize() {
		return neutralSimilarity, 0
	}
	if normUnit(p1.SizeUnit) != normUnit(p2.SizeUnit) {
		return 0, -cfg.SizeMismatchPenalty
	}

	diff := relativeDiff(*p1.SizeValue, *p2.SizeValue)
	switch {
	case diff < 0:
		return neutralSimilarity, 0
	case diff <= cfg.SizeExactBand:
		return 100, cfg.SizeExactBonus
	case diff <= cfg.SizeToleranceBand:
		return neutralSimilarity, cfg.SizeCloseBonus
	default:
		return 0, -cfg.SizeMismatchPenalty
	}
}

// RecoverySizeAdjust is the recovery pass's size policy: a tighter close
// band with milder effects, since the pass already targets likely matches.
func RecoverySizeAdjust(p1, p2 model.ProductRecord, cfg MatcherConfig) (similarity, effect float64) {
	if !p1.HasSize() || !p2.HasSize() {
		return neutralSimilarity, 0
	}
	if normUnit(p1.SizeUnit) != normUnit(p2.SizeUnit) {
		return 10, -5
	}

	diff := relativeDiff(*p1.SizeValue, *p2.SizeValue)
	switch {
	case diff < 0:
		return neutralSimilarity, 0
	case diff == 0:
		return 100, 15
	case diff <= 0.10:
		return 80, 10
	default:
		return 30, 0
	}
}

// SubcategoryAdjust returns the additive effect of comparing two subcategory
// tags. Untagged on either side is neutral.
func SubcategoryAdjust(t1, t2 string, cfg MatcherConfig) float64 {
	if t1 == "" || t2 == "" {
		return 0
	}
	if t1 == t2 {
		return cfg.SubcategoryMatchBonus
	}
	return -cfg.SubcategoryMismatchPenalty
}

// Clamp bounds a score to [0, 100].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// relativeDiff returns (bigger-smaller)/bigger, or -1 when undefined
// (both values zero).
func relativeDiff(a, b float64) float64 {
	bigger, smaller := a, b
	if smaller > bigger {
		bigger, smaller = smaller, bigger
	}
	if bigger == 0 {
		return -1
	}
	return (bigger - smaller) / bigger
}

func normUnit(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}
