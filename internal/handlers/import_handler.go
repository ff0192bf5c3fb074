package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/reconcile"
	"catalog-service/internal/repository"
	"catalog-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// CatalogBatcher runs import and price-adjustment batches
type CatalogBatcher interface {
	ImportRows(ctx context.Context, rows []models.ImportRow, validateOnly bool, actorID string) (*models.BatchResult, error)
	AdjustPrices(ctx context.Context, percent float64, productIDs []uuid.UUID, actorID string) (*models.BatchResult, error)
}

// ReportReader loads stored batch results
type ReportReader interface {
	GetReport(ctx context.Context, id string) (*models.BatchResult, error)
}

// columnAliases maps accepted header spellings onto ImportRow fields
var columnAliases = map[string][]string{
	"brand": {"brand", "brandname", "brand_name"},
	"model": {"model", "name", "product", "productname"},
	"size":  {"size", "tiresize", "tire_size"},
	"rim":   {"rim", "diameter", "r"},
	"price": {"price", "cost"},
	"image": {"image", "imageurl", "image_url", "image url", "img"},
}

type ImportHandler struct {
	batcher CatalogBatcher
	reports ReportReader
}

func NewImportHandler(batcher CatalogBatcher, reports ReportReader) *ImportHandler {
	return &ImportHandler{
		batcher: batcher,
		reports: reports,
	}
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/catalog/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	template := models.CatalogImportTemplate()

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// generateCSVTemplate generates and downloads a CSV template (headers only)
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=catalog_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

// templateNotes is the matching summary printed under the template columns
var templateNotes = []string{
	"A model cell of the form 'SKU: <code>' updates the product with that SKU.",
	"Otherwise brand + model + width/profile + rim identify the product.",
	"Matched products get the new price, and the image when one is given.",
	"Unmatched rows create new products with a generated SKU.",
}

// generateXLSXTemplate writes a "Catalog" sheet with headers and sample rows
// and a "Notes" sheet describing the columns
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Catalog"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	priceStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4})

	header := make([]interface{}, len(template.Columns))
	for i, col := range template.Columns {
		header[i] = col.Name
		if col.Required {
			header[i] = col.Name + " *"
		}
	}
	f.SetSheetRow(sheetName, "A1", &header)
	lastCol, _ := excelize.ColumnNumberToName(len(template.Columns))
	f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle)
	f.SetColWidth(sheetName, "A", lastCol, 20)

	for r, sample := range template.SampleData {
		values := make([]interface{}, len(template.Columns))
		for i, col := range template.Columns {
			values[i] = sample[col.Name]
			if col.Name == "price" {
				if price, err := decimal.NewFromString(sample[col.Name]); err == nil {
					values[i] = price.InexactFloat64()
				}
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		f.SetSheetRow(sheetName, cell, &values)
	}
	for i, col := range template.Columns {
		if col.Name == "price" && len(template.SampleData) > 0 {
			top, _ := excelize.CoordinatesToCellName(i+1, 2)
			bottom, _ := excelize.CoordinatesToCellName(i+1, len(template.SampleData)+1)
			f.SetCellStyle(sheetName, top, bottom, priceStyle)
		}
	}

	f.NewSheet("Notes")
	row := 1
	for _, note := range templateNotes {
		f.SetCellValue("Notes", fmt.Sprintf("A%d", row), note)
		row++
	}
	row++
	for _, col := range template.Columns {
		f.SetCellValue("Notes", fmt.Sprintf("A%d", row), fmt.Sprintf("%s: %s", col.Name, col.Description))
		row++
	}
	f.SetColWidth("Notes", "A", "A", 90)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=catalog_import_template.xlsx")

	f.Write(c.Writer)
}

// ImportCatalog reconciles an uploaded spreadsheet (or a JSON row list)
// against the catalog
// POST /api/v1/catalog/import
func (h *ImportHandler) ImportCatalog(c *gin.Context) {
	userID := c.GetString("user_id")

	var rows []models.ImportRow
	var validateOnly bool

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			respondError(c, http.StatusBadRequest, "FILE_REQUIRED", "Please upload a CSV or Excel file")
			return
		}
		defer file.Close()

		validateOnly = c.DefaultPostForm("validateOnly", "false") == "true"

		filename := strings.ToLower(header.Filename)
		var records []map[string]string
		var parseErr error
		switch {
		case strings.HasSuffix(filename, ".csv"):
			records, parseErr = parseCSV(file)
		case strings.HasSuffix(filename, ".xlsx"):
			records, parseErr = parseXLSX(file)
		default:
			respondError(c, http.StatusBadRequest, "INVALID_FORMAT", "Only CSV and XLSX files are supported")
			return
		}
		if parseErr != nil {
			respondError(c, http.StatusBadRequest, "PARSE_ERROR", parseErr.Error())
			return
		}
		rows = rowsFromRecords(records)
	} else {
		var req models.ImportRowsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		rows = req.Rows
		validateOnly = req.ValidateOnly
	}

	if len(rows) == 0 {
		respondError(c, http.StatusBadRequest, "EMPTY_FILE", "The file contains no data rows")
		return
	}

	result, err := h.batcher.ImportRows(c.Request.Context(), rows, validateOnly, userID)
	if err != nil {
		respondBatchError(c, err)
		return
	}

	respondBatch(c, result)
}

// GetImportReport returns a stored batch result
// GET /api/v1/catalog/imports/:id
func (h *ImportHandler) GetImportReport(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid report ID format")
		return
	}

	report, err := h.reports.GetReport(c.Request.Context(), id)
	if errors.Is(err, repository.ErrReportNotFound) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Import report not found or expired")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve import report")
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    report,
	})
}

// respondBatch maps the batch outcome onto an HTTP status: 200 when every
// record succeeded, 207 Multi-Status for partial success, 422 when nothing
// could be applied.
func respondBatch(c *gin.Context, result *models.BatchResult) {
	status := http.StatusOK
	switch result.Status {
	case models.BatchOutcomePartial:
		status = http.StatusMultiStatus
	case models.BatchOutcomeFailure:
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

func respondBatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyBatch):
		respondError(c, http.StatusBadRequest, "EMPTY_BATCH", err.Error())
	case errors.Is(err, services.ErrBatchTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, "BATCH_TOO_LARGE", err.Error())
	case errors.Is(err, reconcile.ErrInvalidPercentage):
		respondError(c, http.StatusBadRequest, "INVALID_PERCENTAGE", err.Error())
	case errors.Is(err, services.ErrCatalogUnavailable):
		respondError(c, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "The catalog could not be read; nothing was changed")
	default:
		respondError(c, http.StatusInternalServerError, "BATCH_FAILED", err.Error())
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
}

// rowsFromRecords maps header-keyed records onto import rows. Fully blank
// lines are dropped; anything else is kept so validation can report it.
func rowsFromRecords(records []map[string]string) []models.ImportRow {
	rows := make([]models.ImportRow, 0, len(records))
	for _, record := range records {
		row := models.ImportRow{
			Brand: lookupColumn(record, "brand"),
			Model: lookupColumn(record, "model"),
			Size:  lookupColumn(record, "size"),
			Rim:   models.FlexString(lookupColumn(record, "rim")),
			Price: models.FlexString(lookupColumn(record, "price")),
			Image: lookupColumn(record, "image"),
		}
		if row.Brand == "" && row.Model == "" && row.Size == "" && row.Rim == "" && row.Price == "" && row.Image == "" {
			continue
		}
		fmt.Sscanf(record["_row"], "%d", &row.Row)
		rows = append(rows, row)
	}
	return rows
}

func lookupColumn(record map[string]string, field string) string {
	for _, alias := range columnAliases[field] {
		if v, ok := record[alias]; ok && v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(h))
	h = strings.TrimSuffix(h, " *")
	return strings.TrimSpace(h)
}

// parseCSV parses a CSV file into rows
func parseCSV(file io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range headers {
		headers[i] = normalizeHeader(strings.TrimPrefix(headers[i], "\ufeff"))
	}

	var rows []map[string]string
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", lineNum+1, err)
		}

		row := make(map[string]string)
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = fmt.Sprintf("%d", lineNum+1)
		rows = append(rows, row)
		lineNum++
	}

	return rows, nil
}

// parseXLSX parses an Excel file into rows
func parseXLSX(file io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, "Catalog") {
			sheetName = name
			break
		}
	}

	// raw values keep number-formatted cells like "#,##0.00" as plain numbers
	excelRows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}

	headers := excelRows[0]
	for i := range headers {
		headers[i] = normalizeHeader(headers[i])
	}

	var rows []map[string]string
	for rowIdx, excelRow := range excelRows[1:] {
		row := make(map[string]string)
		for i, value := range excelRow {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = fmt.Sprintf("%d", rowIdx+2)
		rows = append(rows, row)
	}

	return rows, nil
}
