// Package export writes a consolidated match run out for downstream
// consumers: CSV + JSON for the database loader, an xlsx workbook for BI.
package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aue-natural/pricewatch/internal/model"
)

// pairRow is the flat match-pairs table schema: the pair's scores plus the
// original attribute columns from both sides.
type pairRow struct {
	Product1ID   string  `csv:"product_1_id"`
	Product2ID   string  `csv:"product_2_id"`
	Product1Name string  `csv:"product_1_name"`
	Product2Name string  `csv:"product_2_name"`
	Brand1       string  `csv:"brand_1"`
	Brand2       string  `csv:"brand_2"`
	Category     string  `csv:"category"`
	SizeValue1   string  `csv:"size_value_1"`
	SizeUnit1    string  `csv:"size_unit_1"`
	SizeValue2   string  `csv:"size_value_2"`
	SizeUnit2    string  `csv:"size_unit_2"`
	Price1       string  `csv:"price_1"`
	Price2       string  `csv:"price_2"`
	Currency1    string  `csv:"currency_1"`
	Currency2    string  `csv:"currency_2"`
	Retailer1    string  `csv:"retailer_1"`
	Retailer2    string  `csv:"retailer_2"`
	Similarity   float64 `csv:"similarity"`
	Lexical      float64 `csv:"lexical_similarity"`
	Semantic     float64 `csv:"semantic_similarity"`
	Hybrid       float64 `csv:"hybrid_similarity"`
	Brand        float64 `csv:"brand_similarity"`
	Size         float64 `csv:"size_similarity"`
	Tier         string  `csv:"confidence_tier"`
	Source       string  `csv:"match_source"`
	Rank         int     `csv:"match_rank"`
}

func toPairRow(p model.MatchPair) pairRow {
	return pairRow{
		Product1ID:   p.Product1.ProductID,
		Product2ID:   p.Product2.ProductID,
		Product1Name: p.Product1.Name,
		Product2Name: p.Product2.Name,
		Brand1:       p.Product1.Brand,
		Brand2:       p.Product2.Brand,
		Category:     p.Product1.Category,
		SizeValue1:   floatCell(p.Product1.SizeValue),
		SizeUnit1:    p.Product1.SizeUnit,
		SizeValue2:   floatCell(p.Product2.SizeValue),
		SizeUnit2:    p.Product2.SizeUnit,
		Price1:       floatCell(p.Product1.Price),
		Price2:       floatCell(p.Product2.Price),
		Currency1:    p.Product1.Currency,
		Currency2:    p.Product2.Currency,
		Retailer1:    p.Product1.Retailer,
		Retailer2:    p.Product2.Retailer,
		Similarity:   p.Similarity,
		Lexical:      p.LexicalSimilarity,
		Semantic:     p.SemanticSimilarity,
		Hybrid:       p.HybridSimilarity,
		Brand:        p.BrandSimilarity,
		Size:         p.SizeSimilarity,
		Tier:         string(p.ConfidenceTier),
		Source:       string(p.Source),
		Rank:         p.Rank,
	}
}

// unmatchedRow is the flat unmatched-products table schema.
type unmatchedRow struct {
	ProductID string `csv:"product_id"`
	Name      string `csv:"product_name"`
	Brand     string `csv:"brand_name"`
	Category  string `csv:"category_name"`
	SizeValue string `csv:"size_value"`
	SizeUnit  string `csv:"size_unit"`
	Price     string `csv:"price"`
	Currency  string `csv:"currency"`
	Retailer  string `csv:"retailer_name"`
	Reason    string `csv:"reason_unmatched"`
}

func toUnmatchedRow(u model.UnmatchedRecord) unmatchedRow {
	return unmatchedRow{
		ProductID: u.ProductID,
		Name:      u.Name,
		Brand:     u.Brand,
		Category:  u.Category,
		SizeValue: floatCell(u.SizeValue),
		SizeUnit:  u.SizeUnit,
		Price:     floatCell(u.Price),
		Currency:  u.Currency,
		Retailer:  u.Retailer,
		Reason:    u.Reason,
	}
}

// WriteCSV writes matches.csv, unmatched.csv and summary.json into dir.
func WriteCSV(dir string, summary model.RunSummary, pairs []model.MatchPair, unmatched []model.UnmatchedRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}

	pairRows := make([]pairRow, len(pairs))
	for i, p := range pairs {
		pairRows[i] = toPairRow(p)
	}
	if err := writeCSVFile(filepath.Join(dir, "matches.csv"), pairRows); err != nil {
		return err
	}

	unmatchedRows := make([]unmatchedRow, len(unmatched))
	for i, u := range unmatched {
		unmatchedRows[i] = toUnmatchedRow(u)
	}
	if err := writeCSVFile(filepath.Join(dir, "unmatched.csv"), unmatchedRows); err != nil {
		return err
	}

	summaryJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal summary")
	}
	if err := os.WriteFile(filepath.Join(dir, "summary.json"), summaryJSON, 0o644); err != nil {
		return eris.Wrap(err, "export: write summary")
	}

	zap.L().Info("export: wrote csv outputs",
		zap.String("dir", dir),
		zap.Int("pairs", len(pairs)),
		zap.Int("unmatched", len(unmatched)),
	)
	return nil
}

// WriteProducts writes raw product records to a CSV file. Used by the dedup
// filter command to hand the surviving rows to a downstream matching run.
func WriteProducts(path string, rows []model.ProductRecord) error {
	return writeCSVFile(path, rows)
}

func writeCSVFile[T any](path string, rows []T) error {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrapf(err, "export: marshal %s", filepath.Base(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", filepath.Base(path))
	}
	return nil
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
