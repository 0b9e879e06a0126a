// Package loader reads product rows into the matcher from the price
// warehouse or from collected batch files.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aue-natural/pricewatch/internal/model"
)

// Config configures the warehouse loader.
type Config struct {
	URL    string `yaml:"url" mapstructure:"url"`
	Schema string `yaml:"schema" mapstructure:"schema"`
}

// querier abstracts pool query operations for testing.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Postgres loads product/price/retailer rows from the warehouse.
type Postgres struct {
	pool   querier
	schema string
}

// NewPostgres connects to the warehouse.
func NewPostgres(ctx context.Context, cfg Config) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, eris.Wrap(err, "loader: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "loader: ping")
	}
	schema := cfg.Schema
	if schema == "" {
		schema = "aue"
	}
	return &Postgres{pool: pool, schema: schema}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() { p.pool.Close() }

const productFrameSQL = `
SELECT
    p.product_id,
    p.product_name,
    b.brand_name,
    c.category_name,
    p.size_value,
    p.size_unit,
    s.price,
    s.currency,
    s.date_collected,
    r.retailer_name
FROM %[1]s.product p
LEFT JOIN %[1]s.brand b
    ON p.brand_id = b.brand_id
LEFT JOIN %[1]s.category c
    ON p.category_id = c.category_id
LEFT JOIN %[1]s.stg_price_snapshot s
    ON p.product_id = s.product_id
LEFT JOIN %[1]s.retailer r
    ON s.retailer_id = r.retailer_id`

// LoadProducts reads the full product frame joined with brand, category,
// latest price snapshot and retailer. Optional columns come back as NULL and
// map to empty/nil fields.
func (p *Postgres) LoadProducts(ctx context.Context) ([]model.ProductRecord, error) {
	rows, err := p.pool.Query(ctx, frameSQL(p.schema))
	if err != nil {
		return nil, eris.Wrap(err, "loader: query product frame")
	}
	defer rows.Close()

	var records []model.ProductRecord
	for rows.Next() {
		rec, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "loader: rows iteration")
	}

	zap.L().Info("loader: loaded product frame", zap.Int("rows", len(records)))
	return records, nil
}

func frameSQL(schema string) string {
	return fmt.Sprintf(productFrameSQL, schema)
}

func scanProduct(rows pgx.Rows) (model.ProductRecord, error) {
	var rec model.ProductRecord
	var brand, category, sizeUnit, currency, retailer *string
	var sizeValue, price *float64
	var collectedAt *time.Time

	err := rows.Scan(
		&rec.ProductID, &rec.Name, &brand, &category,
		&sizeValue, &sizeUnit, &price, &currency,
		&collectedAt, &retailer,
	)
	if err != nil {
		return rec, eris.Wrap(err, "loader: scan row")
	}

	rec.Brand = deref(brand)
	rec.Category = deref(category)
	rec.SizeUnit = deref(sizeUnit)
	rec.Currency = deref(currency)
	rec.Retailer = deref(retailer)
	rec.SizeValue = sizeValue
	rec.Price = price
	rec.CollectedAt = collectedAt
	return rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
