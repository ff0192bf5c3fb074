package repository

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-service/internal/models"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Cache TTL constants
const (
	ProductCacheTTL     = 5 * time.Minute // Single product cache
	ProductListCacheTTL = 2 * time.Minute // Product list cache (shorter due to frequent changes)
)

const (
	productListKeyPrefix  = "products:list"
	productListKeyPattern = productListKeyPrefix + ":*"
)

// ErrProductNotFound is returned when an update targets a missing product
var ErrProductNotFound = errors.New("product not found")

type CatalogRepository struct {
	db    *gorm.DB
	cache *cache.CacheLayer
}

func NewCatalogRepository(db *gorm.DB, redis *redis.Client) *CatalogRepository {
	repo := &CatalogRepository{db: db}

	if redis != nil {
		repo.cache = cache.NewCacheLayerFromClient(redis, cache.CacheConfig{
			L1Enabled:  true,
			L1MaxItems: 2000,
			L1TTL:      30 * time.Second,
			DefaultTTL: ProductCacheTTL,
			KeyPrefix:  "catalog:",
		})
	}

	return repo
}

// generateListCacheKey creates a deterministic cache key for list queries
func generateListCacheKey(prefix string, params interface{}) string {
	data, _ := json.Marshal(params)
	hash := md5.Sum(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

func productCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("product:%s", id.String())
}

// invalidateProductCaches drops the single-product entry and every cached
// list page
func (r *CatalogRepository) invalidateProductCaches(ctx context.Context, productID *uuid.UUID) {
	if r.cache == nil {
		return
	}

	if productID != nil {
		_ = r.cache.Delete(ctx, productCacheKey(*productID))
	}
	_ = r.cache.DeletePattern(ctx, productListKeyPattern)
}

// Snapshot reads used by reconciliation. These always hit the database.

// ListProducts returns the whole catalog in creation order
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetProductsByIDs returns the listed products in creation order
func (r *CatalogRepository) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// ListBrands returns the brand directory
func (r *CatalogRepository) ListBrands(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&brands).Error; err != nil {
		return nil, err
	}
	return brands, nil
}

// FindBrandByName looks a brand up case-insensitively. A miss is (nil, nil).
func (r *CatalogRepository) FindBrandByName(ctx context.Context, name string) (*models.Brand, error) {
	var brand models.Brand
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&brand).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// Single-record writes used by the bulk applier

// UpdateProduct applies a sparse set of column changes and returns the
// product as stored afterwards
func (r *CatalogRepository) UpdateProduct(ctx context.Context, id uuid.UUID, changes map[string]interface{}) (*models.Product, error) {
	changes["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrProductNotFound
	}

	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}

	r.invalidateProductCaches(ctx, &id)
	return &product, nil
}

// CreateProduct inserts a new product, assigning its ID
func (r *CatalogRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return err
	}

	r.invalidateProductCaches(ctx, nil)
	return nil
}

// Cached reads for the catalog API

type productPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
}

// GetProducts lists products with optional brand/diameter/status filters
func (r *CatalogRepository) GetProducts(ctx context.Context, req *models.ListProductsRequest) ([]models.Product, int64, error) {
	if r.cache == nil {
		page, err := r.queryProducts(ctx, req)
		if err != nil {
			return nil, 0, err
		}
		return page.Products, page.Total, nil
	}

	var page productPage
	err := r.cache.GetOrSetJSON(ctx, generateListCacheKey(productListKeyPrefix, req), &page, ProductListCacheTTL, func() (any, error) {
		return r.queryProducts(ctx, req)
	})
	if err != nil {
		return nil, 0, err
	}
	return page.Products, page.Total, nil
}

func (r *CatalogRepository) queryProducts(ctx context.Context, req *models.ListProductsRequest) (*productPage, error) {
	page := &productPage{}

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if req.Brand != "" {
		query = query.Where("LOWER(brand_name) = ?", strings.ToLower(req.Brand))
	}
	if req.Diameter != "" {
		query = query.Where("diameter = ?", req.Diameter)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("brand_name ASC, name ASC").Offset(offset).Limit(req.Limit).Find(&page.Products).Error; err != nil {
		return nil, err
	}
	return page, nil
}

// GetProductByID retrieves a product by ID with caching
func (r *CatalogRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if r.cache == nil {
		return r.queryProduct(ctx, id)
	}

	// the loader error is kept so callers can still match gorm.ErrRecordNotFound
	var loadErr error
	var product models.Product
	err := r.cache.GetOrSetJSON(ctx, productCacheKey(id), &product, ProductCacheTTL, func() (any, error) {
		p, err := r.queryProduct(ctx, id)
		loadErr = err
		return p, err
	})
	if loadErr != nil {
		return nil, loadErr
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *CatalogRepository) queryProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
