package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKeyUnordered(t *testing.T) {
	a := ProductRecord{ProductID: "p1", RetailerNormalized: "coles"}
	b := ProductRecord{ProductID: "p2", RetailerNormalized: "woolworths"}

	forward := MatchPair{Product1: a, Product2: b}
	reversed := MatchPair{Product1: b, Product2: a}

	assert.Equal(t, forward.PairKey(), reversed.PairKey())
}

func TestPairKeyDistinguishesRetailers(t *testing.T) {
	a := ProductRecord{ProductID: "p1", RetailerNormalized: "coles"}
	b := ProductRecord{ProductID: "p1", RetailerNormalized: "woolworths"}
	c := ProductRecord{ProductID: "p1", RetailerNormalized: "aldi"}

	assert.NotEqual(t,
		MatchPair{Product1: a, Product2: b}.PairKey(),
		MatchPair{Product1: a, Product2: c}.PairKey(),
	)
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score float64
		want  ConfidenceTier
	}{
		{95, TierHigh},
		{88, TierHigh},
		{87.9, TierMedium},
		{70, TierMedium},
		{69, TierLow},
		{65, TierLow},
		{64.9, TierVeryLow},
		{0, TierVeryLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.score, 88, 70, 65), "score %.1f", tt.score)
	}
}

func TestProductKey(t *testing.T) {
	p := ProductRecord{ProductID: "p1", RetailerNormalized: "coles"}
	assert.Equal(t, "p1|coles", p.Key())
}

func TestHasSize(t *testing.T) {
	v := 200.0
	assert.True(t, ProductRecord{SizeValue: &v, SizeUnit: "ml"}.HasSize())
	assert.False(t, ProductRecord{SizeValue: &v}.HasSize())
	assert.False(t, ProductRecord{SizeUnit: "ml"}.HasSize())
	assert.False(t, ProductRecord{}.HasSize())
}
