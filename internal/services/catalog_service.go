package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/reconcile"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	// ErrCatalogUnavailable means the baseline catalog could not be read;
	// no write has been attempted.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrEmptyBatch         = errors.New("batch contains no records")
	ErrBatchTooLarge      = errors.New("batch exceeds the row limit")
)

// CatalogStore is everything a batch needs from the catalog store
type CatalogStore interface {
	reconcile.Store
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListBrands(ctx context.Context) ([]models.Brand, error)
}

// EventPublisher receives one event per applied write
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, product *models.Product, actorID string) error
	PublishProductPriceChanged(ctx context.Context, product *models.Product, oldPrice, newPrice decimal.Decimal, actorID string) error
}

// ReportStore persists finished batch results
type ReportStore interface {
	SaveReport(ctx context.Context, result *models.BatchResult) (string, error)
}

// Config holds the batch limits and defaults
type Config struct {
	MaxRows      int
	DefaultStock int
}

// CatalogService runs import and price-adjustment batches: read the
// snapshot, reconcile in memory, then apply record by record.
type CatalogService struct {
	store     CatalogStore
	applier   *reconcile.Applier
	publisher EventPublisher
	reports   ReportStore
	opts      reconcile.Options
	maxRows   int
	logger    *logrus.Entry
}

// NewCatalogService wires the service. publisher and reports may be nil.
func NewCatalogService(store CatalogStore, publisher EventPublisher, reports ReportStore, cfg Config, logger *logrus.Logger) *CatalogService {
	opts := reconcile.DefaultOptions()
	if cfg.DefaultStock > 0 {
		opts.DefaultStock = cfg.DefaultStock
	}
	entry := logrus.NewEntry(logger)
	return &CatalogService{
		store:     store,
		applier:   reconcile.NewApplier(store, entry),
		publisher: publisher,
		reports:   reports,
		opts:      opts,
		maxRows:   cfg.MaxRows,
		logger:    entry.WithField("component", "catalog-service"),
	}
}

// ImportRows reconciles a batch of external rows against the catalog and,
// unless validateOnly is set, applies the resulting updates and creates.
// An error is returned only when the batch could not start; per-record
// failures are reported inside the result.
func (s *CatalogService) ImportRows(ctx context.Context, rows []models.ImportRow, validateOnly bool, actorID string) (*models.BatchResult, error) {
	startTime := time.Now()

	if len(rows) == 0 {
		return nil, ErrEmptyBatch
	}
	if s.maxRows > 0 && len(rows) > s.maxRows {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrBatchTooLarge, len(rows), s.maxRows)
	}

	catalog, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing products: %w", ErrCatalogUnavailable, err)
	}
	brands, err := s.store.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing brands: %w", ErrCatalogUnavailable, err)
	}

	plan := reconcile.Reconcile(rows, catalog, brands, s.opts)
	if plan.Collisions > 0 {
		s.logger.WithField("collisions", plan.Collisions).Warn("Catalog has products sharing a brand/name/size key; the last one is matched")
	}

	result := &models.BatchResult{
		Operation:    models.BatchOperationImport,
		ValidateOnly: validateOnly,
		Total:        len(rows),
		Rejected:     len(plan.Rejected),
		Errors:       make([]string, 0, len(plan.Rejected)),
		Collisions:   plan.Collisions,
	}
	for _, rejection := range plan.Rejected {
		result.Errors = append(result.Errors, rejection.Error())
	}

	if validateOnly {
		result.Updated = len(plan.ToUpdate)
		result.Created = len(plan.ToCreate)
		return s.finish(ctx, result, startTime), nil
	}

	oldPrices := make(map[uuid.UUID]decimal.Decimal, len(catalog))
	for _, p := range catalog {
		oldPrices[p.ID] = p.Price
	}

	if actorID != "" {
		for i := range plan.ToCreate {
			plan.ToCreate[i].CreatedBy = &actorID
		}
	}

	updates := s.applier.ApplyUpdates(ctx, plan.ToUpdate)
	creates := s.applier.ApplyCreates(ctx, plan.ToCreate)

	result.Updated = updates.AppliedCount()
	result.Created = creates.AppliedCount()
	result.Errors = append(result.Errors, updates.Errors...)
	result.Errors = append(result.Errors, creates.Errors...)

	s.publishPriceChanges(ctx, updates.Applied, oldPrices, actorID)
	s.publishCreates(ctx, creates.Applied, actorID)

	return s.finish(ctx, result, startTime), nil
}

// AdjustPrices applies a percentage to every product, or to the listed
// products when productIDs is non-empty, through the same per-record update
// path as imports.
func (s *CatalogService) AdjustPrices(ctx context.Context, percent float64, productIDs []uuid.UUID, actorID string) (*models.BatchResult, error) {
	startTime := time.Now()

	if err := reconcile.ValidatePercentage(percent); err != nil {
		return nil, err
	}

	var products []models.Product
	var err error
	if len(productIDs) > 0 {
		products, err = s.store.GetProductsByIDs(ctx, productIDs)
	} else {
		products, err = s.store.ListProducts(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading products: %w", ErrCatalogUnavailable, err)
	}
	if len(products) == 0 {
		return nil, ErrEmptyBatch
	}

	adjusted, err := reconcile.AdjustPrices(products, percent)
	if err != nil {
		return nil, err
	}

	oldPrices := make(map[uuid.UUID]decimal.Decimal, len(products))
	for _, p := range products {
		oldPrices[p.ID] = p.Price
	}

	updates := s.applier.ApplyUpdates(ctx, adjusted)

	result := &models.BatchResult{
		Operation: models.BatchOperationPriceAdjustment,
		Total:     len(products),
		Updated:   updates.AppliedCount(),
		Errors:    updates.Errors,
	}

	s.publishPriceChanges(ctx, updates.Applied, oldPrices, actorID)

	return s.finish(ctx, result, startTime), nil
}

func (s *CatalogService) finish(ctx context.Context, result *models.BatchResult, startTime time.Time) *models.BatchResult {
	result.Status = result.Outcome()
	result.CompletedAt = time.Now()
	result.ProcessingMs = time.Since(startTime).Milliseconds()

	if s.reports != nil {
		if _, err := s.reports.SaveReport(ctx, result); err != nil {
			s.logger.WithError(err).Warn("Failed to store batch report")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"operation":    result.Operation,
		"validateOnly": result.ValidateOnly,
		"total":        result.Total,
		"updated":      result.Updated,
		"created":      result.Created,
		"errors":       len(result.Errors),
		"status":       result.Status,
		"reportID":     result.ReportID,
	}).Info("Catalog batch finished")

	return result
}

func (s *CatalogService) publishPriceChanges(ctx context.Context, applied []models.Product, oldPrices map[uuid.UUID]decimal.Decimal, actorID string) {
	if s.publisher == nil {
		return
	}
	for i := range applied {
		product := &applied[i]
		oldPrice, ok := oldPrices[product.ID]
		if ok && oldPrice.Equal(product.Price) {
			continue
		}
		if err := s.publisher.PublishProductPriceChanged(ctx, product, oldPrice, product.Price, actorID); err != nil {
			s.logger.WithField("productID", product.ID.String()).WithError(err).Warn("Failed to publish price change")
		}
	}
}

func (s *CatalogService) publishCreates(ctx context.Context, applied []models.Product, actorID string) {
	if s.publisher == nil {
		return
	}
	for i := range applied {
		if err := s.publisher.PublishProductCreated(ctx, &applied[i], actorID); err != nil {
			s.logger.WithField("productID", applied[i].ID.String()).WithError(err).Warn("Failed to publish product creation")
		}
	}
}
