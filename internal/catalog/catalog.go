package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"dataset-service/internal/models"
)

//go:embed products.json
var defaultProducts []byte

// ErrInvalidCatalog is returned when a product list fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the read-only product list shared by every generation stage.
// It is built once and passed explicitly; callers must not mutate the
// products it hands out.
type Catalog struct {
	products   []models.Product
	byID       map[string]int
	byCategory map[models.Category][]int
}

// Load returns the catalog shipped with the service.
func Load() (*Catalog, error) {
	return parse(defaultProducts)
}

// LoadFile loads a catalog from a JSON array of products.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return parse(data)
}

// New validates products and wraps them in a Catalog.
func New(products []models.Product) (*Catalog, error) {
	c := &Catalog{
		products:   make([]models.Product, len(products)),
		byID:       make(map[string]int, len(products)),
		byCategory: make(map[models.Category][]int),
	}
	copy(c.products, products)

	if len(products) == 0 {
		return nil, fmt.Errorf("%w: no products", ErrInvalidCatalog)
	}
	for i, p := range c.products {
		if p.ProductID == "" {
			return nil, fmt.Errorf("%w: product at index %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := c.byID[p.ProductID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %s", ErrInvalidCatalog, p.ProductID)
		}
		if !models.IsValidCategory(p.Category) {
			return nil, fmt.Errorf("%w: product %s has unknown category %q", ErrInvalidCatalog, p.ProductID, p.Category)
		}
		if !p.Price.IsPositive() {
			return nil, fmt.Errorf("%w: product %s has non-positive price %s", ErrInvalidCatalog, p.ProductID, p.Price)
		}
		c.products[i].Price = p.Price.Round(2)
		c.byID[p.ProductID] = i
		c.byCategory[p.Category] = append(c.byCategory[p.Category], i)
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	var products []models.Product
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&products); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return New(products)
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Products returns a copy of every product in catalog order.
func (c *Catalog) Products() []models.Product {
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

// ByID looks up a product by identifier.
func (c *Catalog) ByID(id string) (models.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Product{}, false
	}
	return c.products[i], true
}

// ByCategory returns the products of a category in catalog order.
func (c *Catalog) ByCategory(category models.Category) []models.Product {
	idx := c.byCategory[category]
	out := make([]models.Product, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.products[i])
	}
	return out
}

// HasCategory reports whether at least one product belongs to category.
func (c *Catalog) HasCategory(category models.Category) bool {
	return len(c.byCategory[category]) > 0
}
