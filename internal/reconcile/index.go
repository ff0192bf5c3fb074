package reconcile

import (
	"strings"

	"catalog-service/internal/models"
)

// Index is a per-batch lookup over a catalog snapshot. It is never shared
// between batches.
type Index struct {
	bySKU        map[string]*models.Product
	byDimensions map[string]*models.Product
	collisions   int
}

// BuildIndex indexes the snapshot by SKU and by dimensional key in one pass.
// When two products share a dimensional key the later one wins and the
// collision is counted.
func BuildIndex(products []models.Product) *Index {
	idx := &Index{
		bySKU:        make(map[string]*models.Product, len(products)),
		byDimensions: make(map[string]*models.Product, len(products)),
	}

	for i := range products {
		p := &products[i]
		if sku := skuKey(p.SKU); sku != "" {
			idx.bySKU[sku] = p
		}

		key := DimensionKey(p.BrandName, p.Name, p.Width, p.Profile, p.Diameter)
		if _, exists := idx.byDimensions[key]; exists {
			idx.collisions++
		}
		idx.byDimensions[key] = p
	}

	return idx
}

// LookupBySKU finds a product by stock-keeping code, case-insensitively
func (idx *Index) LookupBySKU(code string) (*models.Product, bool) {
	key := skuKey(code)
	if key == "" {
		return nil, false
	}
	p, ok := idx.bySKU[key]
	return p, ok
}

// LookupByDimensions finds a product by brand, name and dimensional triple
func (idx *Index) LookupByDimensions(brand, name, width, profile, diameter string) (*models.Product, bool) {
	p, ok := idx.byDimensions[DimensionKey(brand, name, width, profile, diameter)]
	return p, ok
}

// Collisions is the number of snapshot products that shadowed an earlier
// product with the same dimensional key
func (idx *Index) Collisions() int {
	return idx.collisions
}

// Len is the number of distinct dimensional keys
func (idx *Index) Len() int {
	return len(idx.byDimensions)
}

// DimensionKey builds the composite key. Brand and name compare
// case-insensitively; dimension tokens go through the same normalization
// as import rows so "16" and "R16" agree.
func DimensionKey(brand, name, width, profile, diameter string) string {
	return strings.Join([]string{
		strings.ToLower(cleanString(brand)),
		strings.ToLower(cleanString(name)),
		strings.TrimSpace(width),
		strings.TrimSpace(profile),
		NormalizeDiameter(diameter),
	}, "|")
}

func skuKey(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
