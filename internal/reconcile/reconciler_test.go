package reconcile

import (
	"testing"

	"catalog-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_PartitionsEveryRow(t *testing.T) {
	primacy := testProduct("MIC-PRI-205-55-R16", "Michelin", "Primacy 4", "205", "55", "R16", 100)
	nordway := testProduct("TNR-195-60-R15", "Tunga", "Nordway", "195", "60", "R15", 70)
	catalog := []models.Product{primacy, nordway}

	rows := []models.ImportRow{
		{Row: 2, Brand: "Michelin", Model: "Primacy 4", Size: "205/55", Rim: "16", Price: "120"},
		{Row: 3, Brand: "Continental", Model: "EcoContact 6", Size: "185/65", Rim: "15", Price: "90"},
		{Row: 4, Brand: "Tunga", Model: "SKU: TNR-195-60-R15", Size: "195/60", Rim: "15", Price: "72"},
		{Row: 5, Brand: "Nokian", Model: "Hakka", Size: "bad", Rim: "15", Price: "80"},
		{Row: 6, Brand: "Nokian", Model: "Hakka", Size: "195/65", Rim: "15", Price: "0"},
	}

	plan := Reconcile(rows, catalog, nil, DefaultOptions())

	assert.Equal(t, len(rows), plan.Total())
	require.Len(t, plan.ToUpdate, 2)
	require.Len(t, plan.ToCreate, 1)
	require.Len(t, plan.Rejected, 2)

	// input order is kept within each partition
	assert.Equal(t, primacy.ID, plan.ToUpdate[0].ID)
	assert.Equal(t, "120.00", plan.ToUpdate[0].Price.StringFixed(2))
	assert.Equal(t, nordway.ID, plan.ToUpdate[1].ID)
	assert.Equal(t, "72.00", plan.ToUpdate[1].Price.StringFixed(2))

	assert.Equal(t, "CON-ECO-185-65-R15", plan.ToCreate[0].SKU)

	assert.Equal(t, 5, plan.Rejected[0].Row.Row)
	assert.Equal(t, 6, plan.Rejected[1].Row.Row)
}

func TestReconcile_DoesNotModifySnapshot(t *testing.T) {
	primacy := testProduct("MIC-PRI-205-55-R16", "Michelin", "Primacy 4", "205", "55", "R16", 100)
	catalog := []models.Product{primacy}

	rows := []models.ImportRow{
		{Brand: "Michelin", Model: "Primacy 4", Size: "205/55", Rim: "16", Price: "120", Image: "https://cdn.example.com/p4.jpg"},
	}
	Reconcile(rows, catalog, nil, DefaultOptions())

	assert.Equal(t, "100.00", catalog[0].Price.StringFixed(2))
	assert.Nil(t, catalog[0].ImageURL)
}

func TestReconcile_ReimportIsIdempotent(t *testing.T) {
	catalog := []models.Product{
		testProduct("MIC-PRI-205-55-R16", "Michelin", "Primacy 4", "205", "55", "R16", 100),
	}
	rows := []models.ImportRow{
		{Brand: "Michelin", Model: "Primacy 4", Size: "205/55", Rim: "16", Price: "120"},
		{Brand: "Continental", Model: "EcoContact 6", Size: "185/65", Rim: "15", Price: "90"},
		{Brand: "Nokian", Model: "Hakka Green 3", Size: "195/65 R15", Rim: "R15", Price: "85"},
	}

	first := Reconcile(rows, catalog, nil, DefaultOptions())
	require.Len(t, first.ToCreate, 2)

	// apply the first plan to the snapshot
	applied := make([]models.Product, 0, len(catalog)+len(first.ToCreate))
	applied = append(applied, first.ToUpdate...)
	for _, p := range first.ToCreate {
		p.ID = uuid.New()
		applied = append(applied, p)
	}

	second := Reconcile(rows, applied, nil, DefaultOptions())

	assert.Empty(t, second.ToCreate)
	assert.Empty(t, second.Rejected)
	require.Len(t, second.ToUpdate, len(rows))
	for i, p := range second.ToUpdate {
		assert.Equal(t, applied[i].ID, p.ID)
		assert.True(t, applied[i].Price.Equal(p.Price))
	}
}

func TestReconcile_CreatesPickUpBrandDirectory(t *testing.T) {
	logo := "https://cdn.example.com/michelin.svg"
	michelin := models.Brand{ID: uuid.New(), Name: "Michelin", LogoURL: &logo}

	rows := []models.ImportRow{
		{Brand: "michelin", Model: "CrossClimate 2", Size: "225/45", Rim: "17", Price: "150"},
		{Brand: "Unknown Make", Model: "Road 1", Size: "225/45", Rim: "17", Price: "60"},
	}

	plan := Reconcile(rows, nil, []models.Brand{michelin}, DefaultOptions())

	require.Len(t, plan.ToCreate, 2)
	require.NotNil(t, plan.ToCreate[0].BrandID)
	assert.Equal(t, michelin.ID, *plan.ToCreate[0].BrandID)
	assert.Equal(t, &logo, plan.ToCreate[0].BrandLogo)
	// the row's own brand spelling is kept on the record
	assert.Equal(t, "michelin", plan.ToCreate[0].BrandName)

	assert.Nil(t, plan.ToCreate[1].BrandID)
	assert.Nil(t, plan.ToCreate[1].BrandLogo)
}

func TestReconcile_ReportsCollisions(t *testing.T) {
	catalog := []models.Product{
		testProduct("A-1", "Michelin", "Primacy 4", "205", "55", "R16", 100),
		testProduct("A-2", "Michelin", "Primacy 4", "205", "55", "R16", 105),
	}

	plan := Reconcile(nil, catalog, nil, DefaultOptions())

	assert.Equal(t, 1, plan.Collisions)
	assert.Zero(t, plan.Total())
}
