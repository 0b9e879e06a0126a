package normalize

import "github.com/aue-natural/pricewatch/internal/model"

// Record fills the derived normalized fields on a product record in place.
func Record(p *model.ProductRecord) {
	p.NameNormalized = Text(p.Name)
	p.BrandNormalized = Text(p.Brand)
	p.CategoryNormalized = Text(p.Category)
	p.RetailerNormalized = Text(p.Retailer)
	p.SubcategoryTag = Subcategory(p.NameNormalized)
}

// Records normalizes a whole batch and drops rows missing the two fields
// matching cannot work without: a product ID and a name.
func Records(rows []model.ProductRecord) []model.ProductRecord {
	out := make([]model.ProductRecord, 0, len(rows))
	for _, p := range rows {
		if p.ProductID == "" || p.Name == "" {
			continue
		}
		Record(&p)
		out = append(out, p)
	}
	return out
}
