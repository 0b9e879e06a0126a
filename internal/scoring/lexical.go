// Package scoring implements the similarity metrics and attribute
// adjustments used to decide whether two listings are the same product.
package scoring

import (
	"sort"
	"strings"

	"github.com/aue-natural/pricewatch/internal/normalize"
)

// JaccardOverlap returns the token-set Jaccard similarity of two normalized
// strings, scaled to [0, 100]. Defined as 0 when either token set is empty.
// Works well for retail titles where word order is noisy.
func JaccardOverlap(a, b string) float64 {
	aTokens := normalize.Tokens(a)
	bTokens := normalize.Tokens(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}

	inter := 0
	for tok := range aTokens {
		if _, ok := bTokens[tok]; ok {
			inter++
		}
	}
	union := len(aTokens) + len(bTokens) - inter
	return float64(inter) / float64(union) * 100
}

// TokenSetRatio is a fuzzy string metric tolerant of word reordering and
// subset containment. Both sides are reduced to sorted unique token sets;
// the score is the best indel ratio among the shared-token string and each
// side's full token string, scaled to [0, 100].
func TokenSetRatio(a, b string) float64 {
	aTokens := normalize.Tokens(a)
	bTokens := normalize.Tokens(b)
	if len(aTokens) == 0 && len(bTokens) == 0 {
		return 0
	}

	var inter, diffA, diffB []string
	for tok := range aTokens {
		if _, ok := bTokens[tok]; ok {
			inter = append(inter, tok)
		} else {
			diffA = append(diffA, tok)
		}
	}
	for tok := range bTokens {
		if _, ok := aTokens[tok]; !ok {
			diffB = append(diffB, tok)
		}
	}
	sort.Strings(inter)
	sort.Strings(diffA)
	sort.Strings(diffB)

	sect := strings.Join(inter, " ")
	combined1 := joinNonEmpty(sect, strings.Join(diffA, " "))
	combined2 := joinNonEmpty(sect, strings.Join(diffB, " "))

	best := indelRatio(sect, combined1)
	if r := indelRatio(sect, combined2); r > best {
		best = r
	}
	if r := indelRatio(combined1, combined2); r > best {
		best = r
	}
	return best * 100
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

// indelRatio returns the normalized insert/delete similarity of two strings
// in [0, 1]: 1 - distance/(len(a)+len(b)), where distance counts one per
// inserted or deleted rune (substitution costs two).
func indelRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	lcs := lcsLength(ra, rb)
	dist := total - 2*lcs
	return 1 - float64(dist)/float64(total)
}

// lcsLength computes the longest-common-subsequence length with a rolling
// single-row table.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// LexicalSimilarity blends the token-set ratio and Jaccard overlap of two
// normalized names into one lexical score in [0, 100].
func LexicalSimilarity(a, b string, cfg MatcherConfig) float64 {
	return cfg.FuzzBlendWeight*TokenSetRatio(a, b) + cfg.JaccardBlendWeight*JaccardOverlap(a, b)
}
