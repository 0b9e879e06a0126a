// Package engine implements the blocking & pairing passes and the match
// consolidator: rows are partitioned by category, scored pairwise within
// each block, and the surviving pairs merged across passes into a final
// match set with tiers and ranks.
package engine

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aue-natural/pricewatch/internal/embed"
	"github.com/aue-natural/pricewatch/internal/model"
	"github.com/aue-natural/pricewatch/internal/normalize"
	"github.com/aue-natural/pricewatch/internal/scoring"
)

// Engine scores candidate pairs within category blocks. The same machinery
// serves both passes; the recovery pass relaxes thresholds and adds score
// floors for near-certain misses.
type Engine struct {
	cfg        scoring.MatcherConfig
	embeddings *embed.Cache
	workers    int
}

// New creates an engine. workers bounds how many category blocks are scored
// concurrently; values below 1 mean sequential.
func New(cfg scoring.MatcherConfig, embeddings *embed.Cache, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{cfg: cfg, embeddings: embeddings, workers: workers}
}

// Prepare collapses rows that are exact duplicates on every matching-relevant
// field, keeping the first occurrence. Rows are expected to be normalized.
func Prepare(rows []model.ProductRecord) []model.ProductRecord {
	seen := make(map[string]struct{}, len(rows))
	out := make([]model.ProductRecord, 0, len(rows))
	for _, p := range rows {
		key := p.ProductID + "|" + p.RetailerNormalized + "|" + p.NameNormalized + "|" +
			p.BrandNormalized + "|" + p.CategoryNormalized + "|" + sizeKey(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	if removed := len(rows) - len(out); removed > 0 {
		zap.L().Info("engine: collapsed exact duplicate rows", zap.Int("removed", removed))
	}
	return out
}

func sizeKey(p model.ProductRecord) string {
	if !p.HasSize() {
		return ""
	}
	return strconv.FormatFloat(*p.SizeValue, 'g', -1, 64) + p.SizeUnit
}

// PrimaryPass runs hybrid lexical+semantic matching over the full prepared
// dataset and returns the accepted pairs plus the unmatched complement.
func (e *Engine) PrimaryPass(ctx context.Context, rows []model.ProductRecord) ([]model.MatchPair, []model.UnmatchedRecord, error) {
	if err := e.warmEmbeddings(ctx, rows); err != nil {
		return nil, nil, err
	}

	pairs, err := e.runBlocks(ctx, rows, e.scorePrimary)
	if err != nil {
		return nil, nil, err
	}
	unmatched := Unmatched(rows, pairs, "no match >= minimum similarity (primary)")
	return pairs, unmatched, nil
}

// RecoveryPass runs relaxed lexical-only matching over the rows the primary
// pass left unmatched. Its input is treated as immutable.
func (e *Engine) RecoveryPass(ctx context.Context, unmatched []model.UnmatchedRecord) ([]model.MatchPair, error) {
	rows := make([]model.ProductRecord, len(unmatched))
	for i, u := range unmatched {
		rows[i] = u.ProductRecord
	}
	return e.runBlocks(ctx, rows, e.scoreRecovery)
}

// warmEmbeddings batch-embeds every distinct normalized name up front, so
// concurrent block workers only ever read the cache.
func (e *Engine) warmEmbeddings(ctx context.Context, rows []model.ProductRecord) error {
	if e.embeddings == nil {
		return eris.New("engine: embedding cache not configured")
	}

	seen := make(map[string]struct{}, len(rows))
	var names []string
	for _, p := range rows {
		if _, ok := seen[p.NameNormalized]; ok {
			continue
		}
		seen[p.NameNormalized] = struct{}{}
		names = append(names, p.NameNormalized)
	}

	if _, err := e.embeddings.EmbedBatch(ctx, names); err != nil {
		return eris.Wrap(err, "engine: warm embeddings")
	}
	return nil
}

// scoreFunc scores one candidate pair. ok=false means below threshold.
type scoreFunc func(ctx context.Context, a, b model.ProductRecord) (model.MatchPair, bool, error)

// runBlocks partitions rows by normalized category and scores every
// unordered pair within each block. Blocks are independent and scored on
// separate workers.
func (e *Engine) runBlocks(ctx context.Context, rows []model.ProductRecord, score scoreFunc) ([]model.MatchPair, error) {
	blocks := make(map[string][]model.ProductRecord)
	for _, p := range rows {
		blocks[p.CategoryNormalized] = append(blocks[p.CategoryNormalized], p)
	}

	var mu sync.Mutex
	var pairs []model.MatchPair

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for category, block := range blocks {
		g.Go(func() error {
			log := zap.L().With(zap.String("category", categoryLabel(category)))
			log.Debug("engine: scoring block", zap.Int("rows", len(block)))

			blockPairs, err := e.scoreBlock(gctx, block, score)
			if err != nil {
				return err
			}

			mu.Lock()
			pairs = append(pairs, blockPairs...)
			mu.Unlock()

			log.Debug("engine: block complete", zap.Int("pairs", len(blockPairs)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pairs, nil
}

func (e *Engine) scoreBlock(ctx context.Context, block []model.ProductRecord, score scoreFunc) ([]model.MatchPair, error) {
	var pairs []model.MatchPair
	for i := 0; i < len(block); i++ {
		for j := i + 1; j < len(block); j++ {
			a, b := block[i], block[j]

			// Same listing observed twice: nothing to match.
			if a.ProductID == b.ProductID && a.RetailerNormalized == b.RetailerNormalized {
				continue
			}
			// A generic title must not match a specific one.
			if normalize.IsGenericTitle(a.NameNormalized) != normalize.IsGenericTitle(b.NameNormalized) {
				continue
			}

			pair, ok, err := score(ctx, a, b)
			if err != nil {
				return nil, err
			}
			if ok {
				pairs = append(pairs, pair)
			}
		}
	}
	return pairs, nil
}

// scorePrimary applies the hybrid name score plus brand, size and
// subcategory adjustments, accepting pairs at or above MinSimilarity.
func (e *Engine) scorePrimary(ctx context.Context, a, b model.ProductRecord) (model.MatchPair, bool, error) {
	lexical := scoring.LexicalSimilarity(a.NameNormalized, b.NameNormalized, e.cfg)
	semantic, err := e.embeddings.Similarity(ctx, a.NameNormalized, b.NameNormalized)
	if err != nil {
		return model.MatchPair{}, false, eris.Wrap(err, "engine: semantic similarity")
	}
	hybrid := scoring.HybridSimilarity(lexical, semantic, e.cfg)

	score := hybrid

	brandSim, brandEffect := scoring.BrandAdjust(a.BrandNormalized, b.BrandNormalized, e.cfg)
	score += brandEffect

	sizeSim, sizeEffect := scoring.SizeAdjust(a, b, e.cfg)
	score += sizeEffect

	score += scoring.SubcategoryAdjust(a.SubcategoryTag, b.SubcategoryTag, e.cfg)

	score = scoring.Clamp(score)
	if score < e.cfg.MinSimilarity {
		return model.MatchPair{}, false, nil
	}

	return model.MatchPair{
		Product1:           a,
		Product2:           b,
		Similarity:         score,
		LexicalSimilarity:  lexical,
		SemanticSimilarity: semantic,
		HybridSimilarity:   hybrid,
		BrandSimilarity:    brandSim,
		SizeSimilarity:     sizeSim,
		Source:             model.SourcePrimary,
	}, true, nil
}

// scoreRecovery scores from the lexical signal alone, with three overrides
// for near-certain matches the primary pass's stricter penalties rejected:
// an identical product ID forces a perfect score, near-identical text floors
// the score, and a shared brand with strong text earns an extra bonus.
func (e *Engine) scoreRecovery(_ context.Context, a, b model.ProductRecord) (model.MatchPair, bool, error) {
	lexical := scoring.LexicalSimilarity(a.NameNormalized, b.NameNormalized, e.cfg)
	score := lexical

	brandSim, brandEffect := scoring.RecoveryBrandAdjust(a.BrandNormalized, b.BrandNormalized, e.cfg)
	score += brandEffect

	sizeSim, sizeEffect := scoring.RecoverySizeAdjust(a, b, e.cfg)
	score += sizeEffect

	sameBrand := a.BrandNormalized != "" && a.BrandNormalized == b.BrandNormalized
	switch {
	case a.ProductID == b.ProductID:
		score = 100
	case lexical >= e.cfg.RecoveryLexicalFloor:
		if score < e.cfg.RecoveryLexicalFloor {
			score = e.cfg.RecoveryLexicalFloor
		}
	case sameBrand && lexical >= e.cfg.RecoverySameBrandLexicalCut:
		score += e.cfg.RecoverySameBrandBonus
	}

	score = scoring.Clamp(score)
	if score < e.cfg.RecoveryMinSimilarity {
		return model.MatchPair{}, false, nil
	}

	return model.MatchPair{
		Product1:          a,
		Product2:          b,
		Similarity:        score,
		LexicalSimilarity: lexical,
		HybridSimilarity:  lexical,
		BrandSimilarity:   brandSim,
		SizeSimilarity:    sizeSim,
		Source:            model.SourceRecovery,
	}, true, nil
}

// Unmatched returns the rows whose product ID appears on neither side of any
// pair, each labeled with the given reason.
func Unmatched(rows []model.ProductRecord, pairs []model.MatchPair, reason string) []model.UnmatchedRecord {
	matched := make(map[string]struct{}, len(pairs)*2)
	for _, p := range pairs {
		matched[p.Product1.ProductID] = struct{}{}
		matched[p.Product2.ProductID] = struct{}{}
	}

	var out []model.UnmatchedRecord
	for _, row := range rows {
		if _, ok := matched[row.ProductID]; ok {
			continue
		}
		out = append(out, model.UnmatchedRecord{ProductRecord: row, Reason: reason})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func categoryLabel(category string) string {
	if category == "" {
		return "unknown"
	}
	return category
}
