package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// MatcherConfig holds every tunable the matching passes use. The numbers are
// policy, not law: all of them are overridable through configuration.
type MatcherConfig struct {
	// Hybrid blend between lexical and semantic name similarity.
	LexicalWeight  float64 `yaml:"lexical_weight" mapstructure:"lexical_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" mapstructure:"semantic_weight"`

	// Inner blend between the token-set ratio and Jaccard overlap.
	FuzzBlendWeight    float64 `yaml:"fuzz_blend_weight" mapstructure:"fuzz_blend_weight"`
	JaccardBlendWeight float64 `yaml:"jaccard_blend_weight" mapstructure:"jaccard_blend_weight"`

	// Acceptance thresholds per pass.
	MinSimilarity         float64 `yaml:"min_similarity" mapstructure:"min_similarity"`
	RecoveryMinSimilarity float64 `yaml:"recovery_min_similarity" mapstructure:"recovery_min_similarity"`

	// Confidence tier cuts.
	HighTierCut   float64 `yaml:"high_tier_cut" mapstructure:"high_tier_cut"`
	MediumTierCut float64 `yaml:"medium_tier_cut" mapstructure:"medium_tier_cut"`
	LowTierCut    float64 `yaml:"low_tier_cut" mapstructure:"low_tier_cut"`

	// Brand adjustments.
	BrandMatchBonus      float64 `yaml:"brand_match_bonus" mapstructure:"brand_match_bonus"`
	BrandMismatchPenalty float64 `yaml:"brand_mismatch_penalty" mapstructure:"brand_mismatch_penalty"`

	// Size adjustments. ExactBand and ToleranceBand are relative differences.
	SizeExactBand        float64 `yaml:"size_exact_band" mapstructure:"size_exact_band"`
	SizeToleranceBand    float64 `yaml:"size_tolerance_band" mapstructure:"size_tolerance_band"`
	SizeExactBonus       float64 `yaml:"size_exact_bonus" mapstructure:"size_exact_bonus"`
	SizeCloseBonus       float64 `yaml:"size_close_bonus" mapstructure:"size_close_bonus"`
	SizeMismatchPenalty  float64 `yaml:"size_mismatch_penalty" mapstructure:"size_mismatch_penalty"`

	// Subcategory adjustments.
	SubcategoryMatchBonus      float64 `yaml:"subcategory_match_bonus" mapstructure:"subcategory_match_bonus"`
	SubcategoryMismatchPenalty float64 `yaml:"subcategory_mismatch_penalty" mapstructure:"subcategory_mismatch_penalty"`

	// Recovery-pass overrides. The recovery pass targets obvious misses from
	// the stricter primary pass, so its brand handling is softer and it adds
	// score floors for near-certain cases.
	RecoveryBrandMatchBonus      float64 `yaml:"recovery_brand_match_bonus" mapstructure:"recovery_brand_match_bonus"`
	RecoveryBrandMismatchPenalty float64 `yaml:"recovery_brand_mismatch_penalty" mapstructure:"recovery_brand_mismatch_penalty"`
	RecoveryLexicalFloor         float64 `yaml:"recovery_lexical_floor" mapstructure:"recovery_lexical_floor"`
	RecoverySameBrandLexicalCut  float64 `yaml:"recovery_same_brand_lexical_cut" mapstructure:"recovery_same_brand_lexical_cut"`
	RecoverySameBrandBonus       float64 `yaml:"recovery_same_brand_bonus" mapstructure:"recovery_same_brand_bonus"`
}

// DefaultMatcherConfig returns the documented default policy set.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		LexicalWeight:  0.6,
		SemanticWeight: 0.4,

		FuzzBlendWeight:    0.6,
		JaccardBlendWeight: 0.4,

		MinSimilarity:         65,
		RecoveryMinSimilarity: 60,

		HighTierCut:   88,
		MediumTierCut: 70,
		LowTierCut:    65,

		BrandMatchBonus:      20,
		BrandMismatchPenalty: 25,

		SizeExactBand:       0.05,
		SizeToleranceBand:   0.20,
		SizeExactBonus:      20,
		SizeCloseBonus:      10,
		SizeMismatchPenalty: 10,

		SubcategoryMatchBonus:      10,
		SubcategoryMismatchPenalty: 15,

		RecoveryBrandMatchBonus:      25,
		RecoveryBrandMismatchPenalty: 15,
		RecoveryLexicalFloor:         95,
		RecoverySameBrandLexicalCut:  70,
		RecoverySameBrandBonus:       10,
	}
}

// ValidateConfig checks that a MatcherConfig is internally consistent.
func ValidateConfig(c MatcherConfig) error {
	var errs []string

	if math.Abs(c.LexicalWeight+c.SemanticWeight-1) > 0.01 {
		errs = append(errs, fmt.Sprintf("lexical_weight + semantic_weight must sum to 1, got %.2f", c.LexicalWeight+c.SemanticWeight))
	}
	if math.Abs(c.FuzzBlendWeight+c.JaccardBlendWeight-1) > 0.01 {
		errs = append(errs, fmt.Sprintf("fuzz_blend_weight + jaccard_blend_weight must sum to 1, got %.2f", c.FuzzBlendWeight+c.JaccardBlendWeight))
	}
	for name, w := range map[string]float64{
		"lexical_weight":       c.LexicalWeight,
		"semantic_weight":      c.SemanticWeight,
		"fuzz_blend_weight":    c.FuzzBlendWeight,
		"jaccard_blend_weight": c.JaccardBlendWeight,
	} {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	for name, t := range map[string]float64{
		"min_similarity":          c.MinSimilarity,
		"recovery_min_similarity": c.RecoveryMinSimilarity,
		"high_tier_cut":           c.HighTierCut,
		"medium_tier_cut":         c.MediumTierCut,
		"low_tier_cut":            c.LowTierCut,
	} {
		if t < 0 || t > 100 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 100", name))
		}
	}
	if c.HighTierCut < c.MediumTierCut || c.MediumTierCut < c.LowTierCut {
		errs = append(errs, "tier cuts must be ordered high >= medium >= low")
	}

	if c.SizeExactBand < 0 || c.SizeExactBand > 1 {
		errs = append(errs, "size_exact_band must be between 0 and 1")
	}
	if c.SizeToleranceBand < c.SizeExactBand || c.SizeToleranceBand > 1 {
		errs = append(errs, "size_tolerance_band must be between size_exact_band and 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
