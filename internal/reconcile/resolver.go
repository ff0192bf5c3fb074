package reconcile

import (
	"fmt"
	"strings"
	"unicode"

	"catalog-service/internal/models"
)

// SKUHintPrefix marks a model cell that names an existing product by SKU,
// e.g. "SKU: TNR-195-60-R15".
const SKUHintPrefix = "SKU:"

// DefaultStock is the stock given to products created by an import
const DefaultStock = 10

// Options tunes what the resolver puts into new products
type Options struct {
	DefaultStock int
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{DefaultStock: DefaultStock}
}

// MatchTier says which lookup found the existing product
type MatchTier string

const (
	MatchBySKU        MatchTier = "sku"
	MatchByDimensions MatchTier = "dimensions"
)

// MatchDecision is either UpdateExisting or CreateNew.
type MatchDecision interface {
	isMatchDecision()
}

// UpdateExisting targets a product already in the catalog. Merged is the
// existing product with only price and image overwritten.
type UpdateExisting struct {
	Existing  models.Product
	Merged    models.Product
	MatchedBy MatchTier
}

// CreateNew carries a complete new product, SKU included
type CreateNew struct {
	Product models.Product
}

func (UpdateExisting) isMatchDecision() {}
func (CreateNew) isMatchDecision()      {}

// ParseSKUHint returns the SKU named by a "SKU: <code>" model cell
func ParseSKUHint(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if len(t) < len(SKUHintPrefix) || !strings.EqualFold(t[:len(SKUHintPrefix)], SKUHintPrefix) {
		return "", false
	}
	sku := strings.TrimSpace(t[len(SKUHintPrefix):])
	if sku == "" {
		return "", false
	}
	return sku, true
}

// Resolve decides between updating an existing product and creating a new
// one. SKU hints are tried first, then the dimensional key; the first hit
// wins. A miss on both creates, so ambiguous input produces a duplicate
// rather than overwriting the wrong product.
func Resolve(c Candidate, rawModelText string, idx *Index, opts Options) MatchDecision {
	if sku, ok := ParseSKUHint(rawModelText); ok {
		if existing, found := idx.LookupBySKU(sku); found {
			return updateExisting(*existing, c, MatchBySKU)
		}
	}

	if existing, found := idx.LookupByDimensions(c.Brand, c.Name, c.Width, c.Profile, c.Diameter); found {
		return updateExisting(*existing, c, MatchByDimensions)
	}

	return CreateNew{Product: newProduct(c, rawModelText, opts)}
}

func updateExisting(existing models.Product, c Candidate, tier MatchTier) UpdateExisting {
	merged := existing
	merged.Price = c.Price
	if c.ImageURL != "" {
		image := c.ImageURL
		merged.ImageURL = &image
	}
	return UpdateExisting{Existing: existing, Merged: merged, MatchedBy: tier}
}

func newProduct(c Candidate, rawModelText string, opts Options) models.Product {
	model := rawModelText
	if sku, ok := ParseSKUHint(rawModelText); ok {
		model = sku
	}

	description := fmt.Sprintf("%s %s tire, size %s/%s %s.", c.Brand, c.Name, c.Width, c.Profile, c.Diameter)
	product := models.Product{
		SKU:         SynthesizeSKU(c.Brand, model, c.Width, c.Profile, c.Diameter),
		BrandName:   c.Brand,
		Name:        c.Name,
		Description: &description,
		Price:       c.Price,
		Width:       c.Width,
		Profile:     c.Profile,
		Diameter:    c.Diameter,
		Stock:       opts.DefaultStock,
		Rating:      0,
		ReviewCount: 0,
		Status:      models.ProductStatusActive,
	}
	if c.ImageURL != "" {
		image := c.ImageURL
		product.ImageURL = &image
	}
	return product
}

// SynthesizeSKU builds "BRA-MOD-205-55-R16" from three-character initials of
// brand and model plus the dimensions. Distinct models sharing initials and
// size collide; the store's unique index reports that as a per-row error.
func SynthesizeSKU(brand, model, width, profile, diameter string) string {
	return strings.Join([]string{
		initials(brand, 3),
		initials(model, 3),
		width,
		profile,
		NormalizeDiameter(diameter),
	}, "-")
}

func initials(s string, n int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if b.Len() >= n {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}
