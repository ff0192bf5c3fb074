package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// BatchOperation names what produced a batch result
type BatchOperation string

const (
	BatchOperationImport          BatchOperation = "import"
	BatchOperationPriceAdjustment BatchOperation = "price_adjustment"
)

// BatchOutcome is the three-way status a caller renders
type BatchOutcome string

const (
	BatchOutcomeSuccess BatchOutcome = "success"
	BatchOutcomePartial BatchOutcome = "partial"
	BatchOutcomeFailure BatchOutcome = "failure"
)

// FlexString accepts either a JSON string or a JSON number. Spreadsheet
// exports disagree on whether rim and price are text or numeric.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// ImportRow is one raw external catalog row as produced by the spreadsheet
// parser. Row is the 1-based sheet row number used in diagnostics (0 when
// unknown, e.g. rows submitted as JSON).
type ImportRow struct {
	Row   int        `json:"row,omitempty"`
	Brand string     `json:"brand"`
	Model string     `json:"model"`
	Size  string     `json:"size"`
	Rim   FlexString `json:"rim"`
	Price FlexString `json:"price"`
	Image string     `json:"image,omitempty"`
}

// Label identifies the row in error messages
func (r ImportRow) Label() string {
	label := strings.Join(strings.Fields(fmt.Sprintf("%s %s %s rim %s", r.Brand, r.Model, r.Size, r.Rim)), " ")
	if r.Row > 0 {
		return fmt.Sprintf("row %d (%s)", r.Row, label)
	}
	return label
}

// ImportRowsRequest is the JSON alternative to a file upload
type ImportRowsRequest struct {
	Rows         []ImportRow `json:"rows" binding:"required"`
	ValidateOnly bool        `json:"validateOnly"`
}

// AdjustPricesRequest applies a percentage to every product, or only to the
// listed product IDs when any are given
type AdjustPricesRequest struct {
	Percent    *float64 `json:"percent" binding:"required"`
	ProductIDs []string `json:"productIds,omitempty"`
}

// BatchResult is what a batch operation reports back. Every input record is
// accounted for either as a success (Updated/Created) or as an entry in
// Errors, rejections included.
type BatchResult struct {
	ReportID     string         `json:"reportId,omitempty"`
	Operation    BatchOperation `json:"operation"`
	ValidateOnly bool           `json:"validateOnly,omitempty"`
	Total        int            `json:"total"`
	Updated      int            `json:"updated"`
	Created      int            `json:"created"`
	Rejected     int            `json:"rejected"`
	Errors       []string       `json:"errors"`
	Collisions   int            `json:"collisions,omitempty"`
	Status       BatchOutcome   `json:"status"`
	ProcessingMs int64          `json:"processingMs"`
	CompletedAt  time.Time      `json:"completedAt"`
}

// Successes is the number of records applied (or that would be applied in
// validate-only mode)
func (r *BatchResult) Successes() int {
	return r.Updated + r.Created
}

// Outcome classifies the result. Any error with at least one success is a
// partial success, never collapsed into either extreme.
func (r *BatchResult) Outcome() BatchOutcome {
	switch {
	case len(r.Errors) == 0:
		return BatchOutcomeSuccess
	case r.Successes() > 0:
		return BatchOutcomePartial
	default:
		return BatchOutcomeFailure
	}
}

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity     string                 `json:"entity"`
	Version    string                 `json:"version"`
	Columns    []ImportTemplateColumn `json:"columns"`
	SampleData []map[string]string    `json:"sampleData,omitempty"`
}

// CatalogImportColumns returns the column definitions for catalog import
func CatalogImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "brand", Description: "Brand name", Required: true, Type: "string", Example: "Michelin"},
		{Name: "model", Description: "Model name, or 'SKU: <code>' to target an existing product", Required: true, Type: "string", Example: "Primacy 4"},
		{Name: "size", Description: "Width/profile, optionally followed by R and diameter", Required: true, Type: "string", Example: "205/55R16"},
		{Name: "rim", Description: "Rim diameter, with or without leading R", Required: true, Type: "string", Example: "16"},
		{Name: "price", Description: "Unit price, greater than zero", Required: true, Type: "number", Example: "129.90"},
		{Name: "image", Description: "Product image URL", Required: false, Type: "string", Example: ""},
	}
}

// CatalogImportTemplate returns the template definition for catalog rows
func CatalogImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "catalog",
		Version: "1.0",
		Columns: CatalogImportColumns(),
		SampleData: []map[string]string{
			{"brand": "Michelin", "model": "Primacy 4", "size": "205/55R16", "rim": "16", "price": "129.90"},
			{"brand": "Nokian", "model": "SKU: NOK-HAK-195-65-R15", "size": "195/65", "rim": "R15", "price": "98.50"},
		},
	}
}
