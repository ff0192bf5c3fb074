package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalog-service/internal/models"
	"catalog-service/internal/reconcile"
	"catalog-service/internal/repository"
	"catalog-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// MockCatalogBatcher is a mock implementation of CatalogBatcher
type MockCatalogBatcher struct {
	mock.Mock
}

func (m *MockCatalogBatcher) ImportRows(ctx context.Context, rows []models.ImportRow, validateOnly bool, actorID string) (*models.BatchResult, error) {
	args := m.Called(ctx, rows, validateOnly, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchResult), args.Error(1)
}

func (m *MockCatalogBatcher) AdjustPrices(ctx context.Context, percent float64, productIDs []uuid.UUID, actorID string) (*models.BatchResult, error) {
	args := m.Called(ctx, percent, productIDs, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchResult), args.Error(1)
}

// MockReportReader is a mock implementation of ReportReader
type MockReportReader struct {
	mock.Mock
}

func (m *MockReportReader) GetReport(ctx context.Context, id string) (*models.BatchResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchResult), args.Error(1)
}

func setupImportRouter(batcher *MockCatalogBatcher, reports *MockReportReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", "staff-1")
		c.Next()
	})

	importHandler := NewImportHandler(batcher, reports)
	pricingHandler := NewPricingHandler(batcher)

	router.GET("/catalog/import/template", importHandler.GetImportTemplate)
	router.POST("/catalog/import", importHandler.ImportCatalog)
	router.GET("/catalog/imports/:id", importHandler.GetImportReport)
	router.POST("/catalog/prices/adjust", pricingHandler.AdjustPrices)
	return router
}

func batchResult(updated, created int, errs ...string) *models.BatchResult {
	result := &models.BatchResult{
		Operation: models.BatchOperationImport,
		Total:     updated + created + len(errs),
		Updated:   updated,
		Created:   created,
		Errors:    append([]string{}, errs...),
	}
	result.Status = result.Outcome()
	return result
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postFile(router *gin.Engine, path, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", filename)
	part.Write(content)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportCatalog_StatusFollowsOutcome(t *testing.T) {
	tests := []struct {
		name   string
		result *models.BatchResult
		status int
	}{
		{"success", batchResult(2, 1), http.StatusOK},
		{"partial", batchResult(1, 0, "row 3 (x): price is required"), http.StatusMultiStatus},
		{"failure", batchResult(0, 0, "row 2 (x): brand is required"), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batcher := new(MockCatalogBatcher)
			router := setupImportRouter(batcher, new(MockReportReader))

			batcher.On("ImportRows", mock.Anything, mock.Anything, false, "staff-1").Return(tt.result, nil)

			w := postJSON(router, "/catalog/import", models.ImportRowsRequest{
				Rows: []models.ImportRow{{Brand: "Michelin", Model: "Primacy 4", Size: "205/55", Rim: "16", Price: "120"}},
			})

			assert.Equal(t, tt.status, w.Code)

			var body models.BatchResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.result.Status, body.Status)
			assert.Equal(t, tt.result.Updated, body.Updated)
			assert.Equal(t, len(tt.result.Errors), len(body.Errors))
		})
	}
}

func TestImportCatalog_JSONValidateOnly(t *testing.T) {
	batcher := new(MockCatalogBatcher)
	router := setupImportRouter(batcher, new(MockReportReader))

	batcher.On("ImportRows", mock.Anything, mock.MatchedBy(func(rows []models.ImportRow) bool {
		return len(rows) == 1 && rows[0].Rim == "16" && rows[0].Price == "129.9"
	}), true, "staff-1").Return(batchResult(1, 0), nil)

	req, _ := http.NewRequest(http.MethodPost, "/catalog/import", strings.NewReader(
		`{"validateOnly":true,"rows":[{"brand":"Michelin","model":"Primacy 4","size":"205/55","rim":16,"price":129.9}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	batcher.AssertExpectations(t)
}

func TestImportCatalog_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"catalog unavailable", fmt.Errorf("%w: listing products: %w", services.ErrCatalogUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE"},
		{"too large", fmt.Errorf("%w: 6000 rows, limit 5000", services.ErrBatchTooLarge), http.StatusRequestEntityTooLarge, "BATCH_TOO_LARGE"},
		{"empty", services.ErrEmptyBatch, http.StatusBadRequest, "EMPTY_BATCH"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "BATCH_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batcher := new(MockCatalogBatcher)
			router := setupImportRouter(batcher, new(MockReportReader))

			batcher.On("ImportRows", mock.Anything, mock.Anything, false, "staff-1").Return(nil, tt.err)

			w := postJSON(router, "/catalog/import", models.ImportRowsRequest{
				Rows: []models.ImportRow{{Brand: "Michelin"}},
			})

			assert.Equal(t, tt.status, w.Code)

			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestImportCatalog_EmptyRows(t *testing.T) {
	batcher := new(MockCatalogBatcher)
	router := setupImportRouter(batcher, new(MockReportReader))

	w := postJSON(router, "/catalog/import", map[string]interface{}{"rows": []interface{}{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	batcher.AssertNotCalled(t, "ImportRows", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestImportCatalog_CSVUpload(t *testing.T) {
	batcher := new(MockCatalogBatcher)
	router := setupImportRouter(batcher, new(MockReportReader))

	csvData := "Brand *,Name,Size,Diameter,Price,Image URL\n" +
		"Michelin,Primacy 4,205/55R16,16,\"2 581,00\",\n" +
		",,,,,\n" +
		"Nokian,SKU: NOK-HAK-195-65-R15,195/65,R15,98.50,https://cdn.example.com/hakka.jpg\n"

	batcher.On("ImportRows", mock.Anything, mock.MatchedBy(func(rows []models.ImportRow) bool {
		if len(rows) != 2 {
			return false
		}
		first, second := rows[0], rows[1]
		return first.Row == 2 && first.Brand == "Michelin" && first.Model == "Primacy 4" &&
			first.Rim == "16" && first.Price == "2 581,00" &&
			second.Row == 4 && second.Model == "SKU: NOK-HAK-195-65-R15" && second.Rim == "R15"
	}), true, "staff-1").Return(batchResult(1, 1), nil)

	w := postFile(router, "/catalog/import", "prices.CSV", []byte(csvData), map[string]string{"validateOnly": "true"})

	assert.Equal(t, http.StatusOK, w.Code)
	batcher.AssertExpectations(t)
}

func TestImportCatalog_XLSXUploadPrefersCatalogSheet(t *testing.T) {
	batcher := new(MockCatalogBatcher)
	router := setupImportRouter(batcher, new(MockReportReader))

	f := excelize.NewFile()
	f.SetSheetRow("Sheet1", "A1", &[]interface{}{"notes"})
	f.SetSheetRow("Sheet1", "A2", &[]interface{}{"ignore me"})
	f.NewSheet("Catalog")
	f.SetSheetRow("Catalog", "A1", &[]interface{}{"brand *", "model *", "size *", "rim *", "price *", "image"})
	f.SetSheetRow("Catalog", "A2", &[]interface{}{"Continental", "EcoContact 6", "185/65", "15", "90", ""})
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	batcher.On("ImportRows", mock.Anything, mock.MatchedBy(func(rows []models.ImportRow) bool {
		return len(rows) == 1 && rows[0].Brand == "Continental" && rows[0].Rim == "15" && rows[0].Price == "90" && rows[0].Row == 2
	}), false, "staff-1").Return(batchResult(0, 1), nil)

	w := postFile(router, "/catalog/import", "catalog.xlsx", buf.Bytes(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	batcher.AssertExpectations(t)
}

func TestImportCatalog_XLSXNumericCellsUseRawValues(t *testing.T) {
	batcher := new(MockCatalogBatcher)
	router := setupImportRouter(batcher, new(MockReportReader))

	f := excelize.NewFile()
	f.SetSheetRow("Sheet1", "A1", &[]interface{}{"brand", "model", "size", "rim", "price", "image"})
	f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Michelin", "Pilot Sport 4", "225/45R17", 17, 1299.0, ""})
	f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Nokian", "Hakka Green 3", "195/65", 15, 98.5, ""})

	// "#,##0.00" on the price column and "0.00" on the rim column
	priceStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	require.NoError(t, err)
	rimStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "E2", "E3", priceStyle))
	require.NoError(t, f.SetCellStyle("Sheet1", "D2", "D3", rimStyle))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	var received []models.ImportRow
	batcher.On("ImportRows", mock.Anything, mock.Anything, false, "staff-1").Run(func(args mock.Arguments) {
		received = args.Get(1).([]models.ImportRow)
	}).Return(batchResult(0, 2), nil)

	w := postFile(router, "/catalog/import", "catalog.xlsx", buf.Bytes(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, received, 2)
	assert.Equal(t, models.FlexString("1299"), received[0].Price)
	assert.Equal(t, models.FlexString("17"), received[0].Rim)
	assert.Equal(t, models.FlexString("98.5"), received[1].Price)
	assert.Equal(t, models.FlexString("15"), received[1].Rim)

	first, rejection := reconcile.Normalize(received[0])
	require.Nil(t, rejection)
	assert.Equal(t, "1299.00", first.Price.StringFixed(2))
	assert.Equal(t, "R17", first.Diameter)
}

func TestImportCatalog_RejectsUnknownFileType(t *testing.T) {
	batcher := new(MockCatalogBatcher)
	router := setupImportRouter(batcher, new(MockReportReader))

	w := postFile(router, "/catalog/import", "prices.pdf", []byte("%PDF"), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_FORMAT")
}

func TestGetImportTemplate(t *testing.T) {
	router := setupImportRouter(new(MockCatalogBatcher), new(MockReportReader))

	req, _ := http.NewRequest(http.MethodGet, "/catalog/import/template?format=csv", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "brand,model,size,rim,price,image\n", w.Body.String())

	req, _ = http.NewRequest(http.MethodGet, "/catalog/import/template?format=xlsx", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	records, err := parseXLSX(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Michelin", records[0]["brand"])
	assert.Equal(t, "129.9", records[0]["price"], "formatted sample price reads back as a plain number")
	assert.Equal(t, "SKU: NOK-HAK-195-65-R15", records[1]["model"])

	tmpl, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Catalog", "Notes"}, tmpl.GetSheetList())

	req, _ = http.NewRequest(http.MethodGet, "/catalog/import/template", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entity":"catalog"`)
}

func TestGetImportReport(t *testing.T) {
	reports := new(MockReportReader)
	router := setupImportRouter(new(MockCatalogBatcher), reports)

	found := uuid.New().String()
	missing := uuid.New().String()
	stored := batchResult(3, 0)
	stored.ReportID = found

	reports.On("GetReport", mock.Anything, found).Return(stored, nil)
	reports.On("GetReport", mock.Anything, missing).Return(nil, repository.ErrReportNotFound)

	req, _ := http.NewRequest(http.MethodGet, "/catalog/imports/"+found, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), found)

	req, _ = http.NewRequest(http.MethodGet, "/catalog/imports/"+missing, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req, _ = http.NewRequest(http.MethodGet, "/catalog/imports/not-a-uuid", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdjustPricesHandler(t *testing.T) {
	batcher := new(MockCatalogBatcher)
	router := setupImportRouter(batcher, new(MockReportReader))

	id := uuid.New()
	result := batchResult(1, 0)
	result.Operation = models.BatchOperationPriceAdjustment
	batcher.On("AdjustPrices", mock.Anything, 10.0, []uuid.UUID{id}, "staff-1").Return(result, nil)

	w := postJSON(router, "/catalog/prices/adjust", map[string]interface{}{"percent": 10, "productIds": []string{id.String()}})
	assert.Equal(t, http.StatusOK, w.Code)
	batcher.AssertExpectations(t)
}

func TestAdjustPricesHandler_BadInput(t *testing.T) {
	batcher := new(MockCatalogBatcher)
	router := setupImportRouter(batcher, new(MockReportReader))

	w := postJSON(router, "/catalog/prices/adjust", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/catalog/prices/adjust", map[string]interface{}{"percent": 5, "productIds": []string{"nope"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ID")

	batcher.On("AdjustPrices", mock.Anything, 0.0, []uuid.UUID{}, "staff-1").Return(nil, reconcile.ErrInvalidPercentage)
	w = postJSON(router, "/catalog/prices/adjust", map[string]interface{}{"percent": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_PERCENTAGE")
}
