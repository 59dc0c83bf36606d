package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"dataset-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultCatalog(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, c.Len())
	for _, cat := range models.Categories {
		assert.Len(t, c.ByCategory(cat), 5, "category %s", cat)
	}

	p, ok := c.ByID("TECH-LAP-001")
	require.True(t, ok)
	assert.Equal(t, models.CategoryLaptops, p.Category)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("1199.00")))

	mouse, ok := c.ByID("TECH-KEY-003")
	require.True(t, ok)
	assert.Contains(t, mouse.Name, "Mouse")
	assert.Equal(t, models.CategoryKeyboards, mouse.Category)

	outOfStock := 0
	for _, p := range c.Products() {
		if !p.InStock {
			outOfStock++
		}
	}
	assert.Greater(t, outOfStock, 0)
}

func TestProducts_ReturnsCopy(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	products := c.Products()
	products[0].Name = "changed"

	p, _ := c.ByID(products[0].ProductID)
	assert.NotEqual(t, "changed", p.Name)
}

func TestNew_Validation(t *testing.T) {
	valid := models.Product{ProductID: "TECH-X-001", Name: "x", Category: models.CategoryAudio, Price: decimal.NewFromInt(10)}

	tests := []struct {
		name     string
		products []models.Product
	}{
		{name: "empty", products: nil},
		{name: "missing id", products: []models.Product{{Name: "x", Category: models.CategoryAudio, Price: decimal.NewFromInt(1)}}},
		{name: "duplicate id", products: []models.Product{valid, valid}},
		{name: "unknown category", products: []models.Product{{ProductID: "A", Category: "Phones", Price: decimal.NewFromInt(1)}}},
		{name: "zero price", products: []models.Product{{ProductID: "A", Category: models.CategoryAudio, Price: decimal.Zero}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.products)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	body := `[{"product_id":"TECH-AUD-100","name":"Test Speaker","category":"Audio","price":"19.99","in_stock":true}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.HasCategory(models.CategoryAudio))
	assert.False(t, c.HasCategory(models.CategoryLaptops))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
