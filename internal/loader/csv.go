package loader

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aue-natural/pricewatch/internal/model"
)

// csvRow is the column layout of a collected batch file. Everything except
// the ID and name is optional; numeric and date fields arrive as text and
// are parsed leniently.
type csvRow struct {
	ProductID string `csv:"product_id"`
	Name      string `csv:"product_name"`
	Brand     string `csv:"brand_name,omitempty"`
	Category  string `csv:"category_name,omitempty"`
	SizeValue string `csv:"size_value,omitempty"`
	SizeUnit  string `csv:"size_unit,omitempty"`
	Price     string `csv:"price,omitempty"`
	Currency  string `csv:"currency,omitempty"`
	Retailer  string `csv:"retailer_name,omitempty"`
	URL       string `csv:"url,omitempty"`
	Thumbnail string `csv:"thumbnail,omitempty"`
	Collected string `csv:"date_collected,omitempty"`
}

// ReadCSV loads a collected batch file into product records. Rows missing a
// product ID or name are dropped with a warning count; unparseable numeric
// fields degrade to absent values.
func ReadCSV(path string) ([]model.ProductRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, eris.Wrap(err, "loader: read csv header")
	}

	var records []model.ProductRecord
	skipped := 0
	for {
		var row csvRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "loader: decode csv row")
		}

		if row.ProductID == "" || row.Name == "" {
			skipped++
			continue
		}
		records = append(records, rowToRecord(row))
	}

	if skipped > 0 {
		zap.L().Warn("loader: skipped rows missing product_id or name",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	zap.L().Info("loader: read batch file", zap.String("path", path), zap.Int("rows", len(records)))
	return records, nil
}

func rowToRecord(row csvRow) model.ProductRecord {
	rec := model.ProductRecord{
		ProductID: row.ProductID,
		Name:      row.Name,
		Brand:     row.Brand,
		Category:  row.Category,
		SizeUnit:  row.SizeUnit,
		Currency:  row.Currency,
		Retailer:  row.Retailer,
		URL:       row.URL,
		Thumbnail: row.Thumbnail,
	}
	rec.SizeValue = parseFloat(row.SizeValue)
	if rec.SizeValue == nil {
		// Size is a value+unit pair; half a pair is no size at all.
		rec.SizeUnit = ""
	}
	rec.Price = parseFloat(row.Price)
	rec.CollectedAt = parseTime(row.Collected)
	return rec
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
