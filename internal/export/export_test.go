package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aue-natural/pricewatch/internal/model"
)

func sampleRun() (model.RunSummary, []model.MatchPair, []model.UnmatchedRecord) {
	size := 200.0
	price := 24.99

	summary := model.RunSummary{
		RunID:              "run-1",
		EngineVersion:      "hybrid-embeddings-v1",
		TotalProducts:      3,
		MatchedProducts:    2,
		UnmatchedProducts:  1,
		CoveragePercentage: 66.7,
		TotalPairs:         1,
		PairsBySource:      map[model.MatchSource]int{model.SourcePrimary: 1},
		TierCounts:         map[model.ConfidenceTier]int{model.TierHigh: 1},
	}
	pairs := []model.MatchPair{{
		Product1: model.ProductRecord{
			ProductID: "p1", Name: "Shea Body Butter", Brand: "Aue",
			Category: "Skin", SizeValue: &size, SizeUnit: "ml",
			Price: &price, Currency: "AUD", Retailer: "Coles",
		},
		Product2: model.ProductRecord{
			ProductID: "p2", Name: "Shea Butter", Brand: "Aue",
			Category: "Skin", Retailer: "Woolworths",
		},
		Similarity:     91.5,
		ConfidenceTier: model.TierHigh,
		Source:         model.SourcePrimary,
		Rank:           1,
	}}
	unmatched := []model.UnmatchedRecord{{
		ProductRecord: model.ProductRecord{ProductID: "p3", Name: "Retinol Serum"},
		Reason:        "no match >= minimum similarity after both passes",
	}}
	return summary, pairs, unmatched
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	summary, pairs, unmatched := sampleRun()

	require.NoError(t, WriteCSV(dir, summary, pairs, unmatched))

	matches, err := os.ReadFile(filepath.Join(dir, "matches.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(matches)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "product_1_id")
	assert.Contains(t, lines[0], "confidence_tier")
	assert.Contains(t, lines[1], "p1")
	assert.Contains(t, lines[1], "91.5")
	assert.Contains(t, lines[1], "HIGH")

	unmatchedData, err := os.ReadFile(filepath.Join(dir, "unmatched.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(unmatchedData), "reason_unmatched")
	assert.Contains(t, string(unmatchedData), "p3")

	summaryData, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	var got model.RunSummary
	require.NoError(t, json.Unmarshal(summaryData, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.InDelta(t, 66.7, got.CoveragePercentage, 0.001)
}

func TestWriteCSVCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	summary, pairs, unmatched := sampleRun()

	require.NoError(t, WriteCSV(dir, summary, pairs, unmatched))
	_, err := os.Stat(filepath.Join(dir, "matches.csv"))
	assert.NoError(t, err)
}

func TestWriteProducts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.csv")
	size := 200.0
	rows := []model.ProductRecord{{
		ProductID: "p1", Name: "Shea Body Butter", Brand: "Aue",
		SizeValue: &size, SizeUnit: "ml", Retailer: "Coles",
	}}

	require.NoError(t, WriteProducts(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "product_id")
	assert.Contains(t, string(data), "Shea Body Butter")
}

func TestToPairRow(t *testing.T) {
	_, pairs, _ := sampleRun()
	row := toPairRow(pairs[0])

	assert.Equal(t, "p1", row.Product1ID)
	assert.Equal(t, "p2", row.Product2ID)
	assert.Equal(t, "200", row.SizeValue1)
	assert.Equal(t, "", row.SizeValue2, "missing size renders empty, not zero")
	assert.Equal(t, "24.99", row.Price1)
	assert.Equal(t, "HIGH", row.Tier)
	assert.Equal(t, "primary", row.Source)
	assert.Equal(t, 1, row.Rank)
}

func TestFloatCell(t *testing.T) {
	assert.Equal(t, "", floatCell(nil))
	v := 1.5
	assert.Equal(t, "1.5", floatCell(&v))
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.xlsx")
	summary, pairs, unmatched := sampleRun()

	require.NoError(t, WriteWorkbook(path, summary, pairs, unmatched))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
