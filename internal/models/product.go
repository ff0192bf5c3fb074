package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

// JSON type for PostgreSQL JSONB (object/map)
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// JSONArray type for PostgreSQL JSONB (array)
type JSONArray []interface{}

func (j JSONArray) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONArray, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Product is one sellable tire variant: a named model in a specific
// width/profile/diameter. Brand + name + the dimensional triple is expected to
// be unique among active products, but nothing in the schema enforces it.
type Product struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SKU         string          `json:"sku" gorm:"not null;index:idx_products_sku,unique"`
	BrandID     *uuid.UUID      `json:"brandId,omitempty" gorm:"type:uuid;index"`
	BrandName   string          `json:"brandName" gorm:"not null;index:idx_products_dimensions"`
	BrandLogo   *string         `json:"brandLogo,omitempty"`
	Name        string          `json:"name" gorm:"not null;index:idx_products_dimensions"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	ImageURL    *string         `json:"imageUrl,omitempty" gorm:"column:image_url"`
	Width       string          `json:"width" gorm:"not null;index:idx_products_dimensions"`
	Profile     string          `json:"profile" gorm:"not null;index:idx_products_dimensions"`
	Diameter    string          `json:"diameter" gorm:"not null;index:idx_products_dimensions"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	Rating      float64         `json:"rating" gorm:"not null;default:0"`
	ReviewCount int             `json:"reviewCount" gorm:"not null;default:0"`
	Tags        *JSONArray      `json:"tags,omitempty" gorm:"type:jsonb"`
	Status      ProductStatus   `json:"status" gorm:"not null;default:'ACTIVE';index"`
	Metadata    *JSON           `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
	CreatedBy   *string         `json:"createdBy,omitempty"`
	UpdatedBy   *string         `json:"updatedBy,omitempty"`
}

// Brand is an entry of the brand directory
type Brand struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string          `json:"name" gorm:"not null;uniqueIndex"`
	LogoURL   *string         `json:"logoUrl,omitempty" gorm:"column:logo_url"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// ListProductsRequest filters the catalog read API
type ListProductsRequest struct {
	Brand    string        `form:"brand"`
	Diameter string        `form:"diameter"`
	Status   ProductStatus `form:"status"`
	Page     int           `form:"page"`
	Limit    int           `form:"limit"`
}

type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

type ProductResponse struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data"`
	Message *string  `json:"message,omitempty"`
}

type ProductListResponse struct {
	Success    bool            `json:"success"`
	Data       []Product       `json:"data"`
	Pagination *PaginationInfo `json:"pagination"`
}

type BrandListResponse struct {
	Success bool    `json:"success"`
	Data    []Brand `json:"data"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details *JSON  `json:"details,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the Brand model
func (Brand) TableName() string {
	return "brands"
}
