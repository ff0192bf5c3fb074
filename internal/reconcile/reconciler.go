package reconcile

import (
	"strings"

	"catalog-service/internal/models"
)

// Plan is the outcome of reconciling one batch: every input row ends up in
// exactly one of ToUpdate, ToCreate or Rejected, in input order.
type Plan struct {
	ToUpdate   []models.Product
	ToCreate   []models.Product
	Rejected   []Rejection
	Collisions int
}

// Total is the number of rows the plan accounts for
func (p *Plan) Total() int {
	return len(p.ToUpdate) + len(p.ToCreate) + len(p.Rejected)
}

// Reconcile matches a batch of rows against a catalog snapshot. It does no
// I/O; the caller supplies the snapshot and the brand directory.
func Reconcile(rows []models.ImportRow, catalog []models.Product, brands []models.Brand, opts Options) *Plan {
	idx := BuildIndex(catalog)

	brandsByName := make(map[string]models.Brand, len(brands))
	for _, b := range brands {
		brandsByName[strings.ToLower(cleanString(b.Name))] = b
	}

	plan := &Plan{
		ToUpdate:   make([]models.Product, 0, len(rows)),
		ToCreate:   make([]models.Product, 0),
		Rejected:   make([]Rejection, 0),
		Collisions: idx.Collisions(),
	}

	for _, row := range rows {
		candidate, rejection := Normalize(row)
		if rejection != nil {
			plan.Rejected = append(plan.Rejected, *rejection)
			continue
		}

		switch d := Resolve(candidate, row.Model, idx, opts).(type) {
		case UpdateExisting:
			plan.ToUpdate = append(plan.ToUpdate, d.Merged)
		case CreateNew:
			product := d.Product
			if brand, ok := brandsByName[strings.ToLower(candidate.Brand)]; ok {
				id := brand.ID
				product.BrandID = &id
				product.BrandLogo = brand.LogoURL
			}
			plan.ToCreate = append(plan.ToCreate, product)
		}
	}

	return plan
}
