package reconcile

import (
	"context"
	"fmt"

	"catalog-service/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store is the part of the catalog store the applier writes through. Each
// call is atomic for one record; nothing spans records.
type Store interface {
	FindBrandByName(ctx context.Context, name string) (*models.Brand, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, changes map[string]interface{}) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
}

// ApplyResult holds the records written and one message per record that
// failed, in application order
type ApplyResult struct {
	Applied []models.Product
	Errors  []string
}

// AppliedCount is the number of records written
func (r ApplyResult) AppliedCount() int {
	return len(r.Applied)
}

// Applier writes reconciled records one at a time. A failing record is
// reported and skipped; it never stops the rest of the batch.
type Applier struct {
	store  Store
	logger *logrus.Entry
}

func NewApplier(store Store, logger *logrus.Entry) *Applier {
	return &Applier{
		store:  store,
		logger: logger.WithField("component", "bulk-applier"),
	}
}

// ApplyUpdates writes price and image (plus brand fields where they can be
// resolved) for each product. Once started it runs to completion even if
// ctx is cancelled.
func (a *Applier) ApplyUpdates(ctx context.Context, items []models.Product) ApplyResult {
	ctx = context.WithoutCancel(ctx)
	result := ApplyResult{
		Applied: make([]models.Product, 0, len(items)),
		Errors:  make([]string, 0),
	}

	for _, item := range items {
		changes, brandNote := a.updateChanges(ctx, item)

		updated, err := a.store.UpdateProduct(ctx, item.ID, changes)
		if err != nil {
			msg := describeFailure(item, err)
			if brandNote != "" {
				msg += "; " + brandNote
			}
			a.logger.WithFields(logrus.Fields{
				"productID": item.ID.String(),
				"sku":       item.SKU,
			}).WithError(err).Warn("Catalog update failed")
			result.Errors = append(result.Errors, msg)
			continue
		}

		result.Applied = append(result.Applied, *updated)
	}

	return result
}

// ApplyCreates inserts each new product
func (a *Applier) ApplyCreates(ctx context.Context, items []models.Product) ApplyResult {
	ctx = context.WithoutCancel(ctx)
	result := ApplyResult{
		Applied: make([]models.Product, 0, len(items)),
		Errors:  make([]string, 0),
	}

	for _, item := range items {
		product := item
		if err := a.store.CreateProduct(ctx, &product); err != nil {
			a.logger.WithFields(logrus.Fields{
				"sku":   item.SKU,
				"brand": item.BrandName,
				"name":  item.Name,
			}).WithError(err).Warn("Catalog create failed")
			result.Errors = append(result.Errors, describeFailure(item, err))
			continue
		}

		result.Applied = append(result.Applied, product)
	}

	return result
}

// updateChanges builds the sparse column set for an update. Records that
// name a brand without a brand ID get a best-effort directory lookup; on a
// miss or lookup error the record's own brand fields are kept. A lookup
// error is returned as a note for the record's error message.
func (a *Applier) updateChanges(ctx context.Context, item models.Product) (map[string]interface{}, string) {
	changes := map[string]interface{}{
		"price": item.Price,
	}
	if item.ImageURL != nil {
		changes["image_url"] = *item.ImageURL
	}

	if item.BrandID != nil || item.BrandName == "" {
		return changes, ""
	}

	brand, err := a.store.FindBrandByName(ctx, item.BrandName)
	switch {
	case err != nil:
		a.logger.WithField("brand", item.BrandName).WithError(err).Warn("Brand lookup failed, keeping record brand fields")
		changes["brand_name"] = item.BrandName
		changes["brand_logo"] = item.BrandLogo
		return changes, fmt.Sprintf("brand lookup for %q failed: %v", item.BrandName, err)
	case brand == nil:
		changes["brand_name"] = item.BrandName
		changes["brand_logo"] = item.BrandLogo
	default:
		changes["brand_id"] = brand.ID
		changes["brand_name"] = brand.Name
		changes["brand_logo"] = brand.LogoURL
	}
	return changes, ""
}

func describeFailure(item models.Product, err error) string {
	sku := item.SKU
	if sku == "" {
		sku = "(no sku)"
	}
	return fmt.Sprintf("%s (%s %s %s/%s %s): %v", sku, item.BrandName, item.Name, item.Width, item.Profile, item.Diameter, err)
}
