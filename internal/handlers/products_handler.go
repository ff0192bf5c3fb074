package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogReader serves the read side of the catalog
type CatalogReader interface {
	GetProducts(ctx context.Context, req *models.ListProductsRequest) ([]models.Product, int64, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListBrands(ctx context.Context) ([]models.Brand, error)
}

type ProductsHandler struct {
	repo            CatalogReader
	defaultPageSize int
	maxPageSize     int
	// visibleStatus pins every read to one status; empty serves all
	visibleStatus models.ProductStatus
}

func NewProductsHandler(repo CatalogReader, defaultPageSize, maxPageSize int) *ProductsHandler {
	if defaultPageSize < 1 {
		defaultPageSize = 20
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = defaultPageSize
	}
	return &ProductsHandler{
		repo:            repo,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// NewStorefrontHandler serves the public catalog, which only shows active products
func NewStorefrontHandler(repo CatalogReader, defaultPageSize, maxPageSize int) *ProductsHandler {
	h := NewProductsHandler(repo, defaultPageSize, maxPageSize)
	h.visibleStatus = models.ProductStatusActive
	return h
}

// GetProducts retrieves the product list with brand/diameter filters and pagination
func (h *ProductsHandler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.defaultPageSize)))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > h.maxPageSize {
		limit = h.defaultPageSize
	}

	req := &models.ListProductsRequest{
		Brand: c.Query("brand"),
		Page:  page,
		Limit: limit,
	}
	if diameter := c.Query("diameter"); diameter != "" {
		req.Diameter = reconcile.NormalizeDiameter(diameter)
	}
	if h.visibleStatus != "" {
		req.Status = h.visibleStatus
	} else if status := c.Query("status"); status != "" {
		req.Status = models.ProductStatus(strings.ToUpper(strings.TrimSpace(status)))
	}

	products, total, err := h.repo.GetProducts(c.Request.Context(), req)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve products")
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, models.ProductListResponse{
		Success: true,
		Data:    products,
		Pagination: &models.PaginationInfo{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrevious: page > 1,
		},
	})
}

// GetProduct retrieves a single product by ID
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID format")
		return
	}

	product, err := h.repo.GetProductByID(c.Request.Context(), productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve product")
		return
	}
	if h.visibleStatus != "" && product.Status != h.visibleStatus {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
		return
	}

	c.JSON(http.StatusOK, models.ProductResponse{
		Success: true,
		Data:    product,
	})
}

// GetBrands lists the brand directory
func (h *ProductsHandler) GetBrands(c *gin.Context) {
	brands, err := h.repo.ListBrands(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve brands")
		return
	}

	c.JSON(http.StatusOK, models.BrandListResponse{
		Success: true,
		Data:    brands,
	})
}
