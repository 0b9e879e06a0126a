package model

import "time"

// ProductRecord is one observed retail listing. The same real-world product
// typically appears as several records, one per retailer, each with its own
// product ID. Brand, category, size, price and retailer are all optional
// upstream; missing values degrade to neutral scoring, never to an error.
type ProductRecord struct {
	ProductID   string     `json:"product_id" csv:"product_id"`
	Name        string     `json:"product_name" csv:"product_name"`
	Brand       string     `json:"brand_name,omitempty" csv:"brand_name"`
	Category    string     `json:"category_name,omitempty" csv:"category_name"`
	SizeValue   *float64   `json:"size_value,omitempty" csv:"size_value"`
	SizeUnit    string     `json:"size_unit,omitempty" csv:"size_unit"`
	Price       *float64   `json:"price,omitempty" csv:"price"`
	Currency    string     `json:"currency,omitempty" csv:"currency"`
	Retailer    string     `json:"retailer_name,omitempty" csv:"retailer_name"`
	URL         string     `json:"url,omitempty" csv:"url"`
	Thumbnail   string     `json:"thumbnail,omitempty" csv:"thumbnail"`
	CollectedAt *time.Time `json:"date_collected,omitempty" csv:"date_collected"`

	// Derived during preparation, never supplied upstream.
	NameNormalized     string `json:"-" csv:"-"`
	BrandNormalized    string `json:"-" csv:"-"`
	CategoryNormalized string `json:"-" csv:"-"`
	RetailerNormalized string `json:"-" csv:"-"`
	SubcategoryTag     string `json:"-" csv:"-"`
}

// HasSize reports whether the record carries a complete size (value + unit).
func (p ProductRecord) HasSize() bool {
	return p.SizeValue != nil && p.SizeUnit != ""
}

// Key identifies a record uniquely within a run: the same catalog product
// listed by two retailers is two distinct keys.
func (p ProductRecord) Key() string {
	return p.ProductID + "|" + p.RetailerNormalized
}

// UnmatchedRecord is a product left without any qualifying pair after both
// matching passes.
type UnmatchedRecord struct {
	ProductRecord
	Reason string `json:"reason_unmatched" csv:"reason_unmatched"`
}
