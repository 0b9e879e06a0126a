package export

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/aue-natural/pricewatch/internal/model"
)

var pairHeader = []string{
	"product_1_id", "product_2_id", "product_1_name", "product_2_name",
	"brand_1", "brand_2", "category",
	"size_value_1", "size_unit_1", "size_value_2", "size_unit_2",
	"price_1", "price_2", "currency_1", "currency_2",
	"retailer_1", "retailer_2",
	"similarity", "lexical_similarity", "semantic_similarity",
	"hybrid_similarity", "brand_similarity", "size_similarity",
	"confidence_tier", "match_source", "match_rank",
}

var unmatchedHeader = []string{
	"product_id", "product_name", "brand_name", "category_name",
	"size_value", "size_unit", "price", "currency", "retailer_name",
	"reason_unmatched",
}

// WriteWorkbook writes a three-sheet xlsx workbook (Matches, Unmatched,
// Summary) for BI consumption.
func WriteWorkbook(path string, summary model.RunSummary, pairs []model.MatchPair, unmatched []model.UnmatchedRecord) error {
	f := xlsx.NewFile()

	if err := addPairsSheet(f, pairs); err != nil {
		return err
	}
	if err := addUnmatchedSheet(f, unmatched); err != nil {
		return err
	}
	if err := addSummarySheet(f, summary); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	zap.L().Info("export: wrote workbook", zap.String("path", path))
	return nil
}

func addPairsSheet(f *xlsx.File, pairs []model.MatchPair) error {
	sheet, err := f.AddSheet("Matches")
	if err != nil {
		return eris.Wrap(err, "export: add Matches sheet")
	}
	addStringRow(sheet, pairHeader)

	for _, p := range pairs {
		r := toPairRow(p)
		addStringRow(sheet, []string{
			r.Product1ID, r.Product2ID, r.Product1Name, r.Product2Name,
			r.Brand1, r.Brand2, r.Category,
			r.SizeValue1, r.SizeUnit1, r.SizeValue2, r.SizeUnit2,
			r.Price1, r.Price2, r.Currency1, r.Currency2,
			r.Retailer1, r.Retailer2,
			scoreCell(r.Similarity), scoreCell(r.Lexical), scoreCell(r.Semantic),
			scoreCell(r.Hybrid), scoreCell(r.Brand), scoreCell(r.Size),
			r.Tier, r.Source, strconv.Itoa(r.Rank),
		})
	}
	return nil
}

func addUnmatchedSheet(f *xlsx.File, unmatched []model.UnmatchedRecord) error {
	sheet, err := f.AddSheet("Unmatched")
	if err != nil {
		return eris.Wrap(err, "export: add Unmatched sheet")
	}
	addStringRow(sheet, unmatchedHeader)

	for _, u := range unmatched {
		r := toUnmatchedRow(u)
		addStringRow(sheet, []string{
			r.ProductID, r.Name, r.Brand, r.Category,
			r.SizeValue, r.SizeUnit, r.Price, r.Currency, r.Retailer,
			r.Reason,
		})
	}
	return nil
}

func addSummarySheet(f *xlsx.File, summary model.RunSummary) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add Summary sheet")
	}

	rows := [][]string{
		{"run_id", summary.RunID},
		{"timestamp", summary.Timestamp},
		{"engine_version", summary.EngineVersion},
		{"total_products", strconv.Itoa(summary.TotalProducts)},
		{"matched_products", strconv.Itoa(summary.MatchedProducts)},
		{"unmatched_products", strconv.Itoa(summary.UnmatchedProducts)},
		{"coverage_percentage", scoreCell(summary.CoveragePercentage)},
		{"total_pairs", strconv.Itoa(summary.TotalPairs)},
	}
	for source, n := range summary.PairsBySource {
		rows = append(rows, []string{fmt.Sprintf("pairs_%s", source), strconv.Itoa(n)})
	}
	for tier, n := range summary.TierCounts {
		rows = append(rows, []string{fmt.Sprintf("tier_%s", tier), strconv.Itoa(n)})
	}

	for _, r := range rows {
		addStringRow(sheet, r)
	}
	return nil
}

func addStringRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func scoreCell(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
