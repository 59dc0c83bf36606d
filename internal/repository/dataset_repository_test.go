package repository

import (
	"context"
	"testing"

	"dataset-service/internal/builder"
	"dataset-service/internal/catalog"
	"dataset-service/internal/config"
	"dataset-service/internal/generator"
	"dataset-service/internal/models"
	"dataset-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepository(t *testing.T) (DatasetRepository, *generator.Dataset) {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, config.StoreConfig{Driver: "sqlite", SQLite: config.SQLiteConfig{Path: store.MemoryPath}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(db) })

	cat, err := catalog.Load()
	require.NoError(t, err)
	ds, err := generator.Generate(cat, generator.DefaultOptions())
	require.NoError(t, err)
	_, err = builder.Build(ctx, db, ds)
	require.NoError(t, err)

	return NewDatasetRepository(db), ds
}

func TestDatasetRepository_ListsEverything(t *testing.T) {
	ctx := context.Background()
	repo, ds := setupRepository(t)

	customers, err := repo.Customers(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, len(ds.Customers))

	products, err := repo.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, products, len(ds.Products))

	orders, err := repo.Orders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, len(ds.Orders))

	items, err := repo.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, len(ds.Items))
	assert.Equal(t, int64(1), items[0].OrderItemID)
}

func TestDatasetRepository_CustomerByEmail(t *testing.T) {
	ctx := context.Background()
	repo, ds := setupRepository(t)
	want := ds.Customers[7]

	got, err := repo.CustomerByEmail(ctx, "  "+want.Email+" ")
	require.NoError(t, err)
	assert.Equal(t, want.CustomerID, got.CustomerID)

	n, err := repo.CountCustomersByEmail(ctx, want.Email)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.CustomerByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatasetRepository_OrdersByCustomer(t *testing.T) {
	ctx := context.Background()
	repo, ds := setupRepository(t)
	customerID := ds.Orders[0].CustomerID

	want := 0
	for _, o := range ds.Orders {
		if o.CustomerID == customerID {
			want++
		}
	}

	orders, err := repo.OrdersByCustomer(ctx, customerID, 0)
	require.NoError(t, err)
	require.Len(t, orders, want)
	for i := 1; i < len(orders); i++ {
		assert.False(t, orders[i].OrderDate.After(orders[i-1].OrderDate), "not newest first")
	}

	limited, err := repo.OrdersByCustomer(ctx, customerID, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, orders[0].OrderID, limited[0].OrderID)
}

func TestDatasetRepository_OrderAndItems(t *testing.T) {
	ctx := context.Background()
	repo, ds := setupRepository(t)

	var target models.Order
	for _, o := range ds.Orders {
		if o.Status == models.StatusDelivered {
			target = o
			break
		}
	}

	order, err := repo.OrderByID(ctx, " "+target.OrderID)
	require.NoError(t, err)
	assert.Equal(t, target.Status, order.Status)
	require.NotNil(t, order.TrackingNumber)
	assert.Equal(t, *target.TrackingNumber, *order.TrackingNumber)

	lines, err := repo.ItemsByOrder(ctx, target.OrderID)
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	sum := decimal.Zero
	for _, l := range lines {
		assert.NotEmpty(t, l.ProductName)
		assert.True(t, models.IsValidCategory(l.Category), string(l.Category))
		sum = sum.Add(l.LineTotal)
	}
	assert.True(t, sum.Round(2).Equal(order.TotalAmount), "%s != %s", sum, order.TotalAmount)

	_, err = repo.OrderByID(ctx, "ORD-1999-0001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatasetRepository_ProductByIDOrName(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	tests := []struct {
		name    string
		query   string
		wantID  string
		wantErr bool
	}{
		{name: "exact id", query: "TECH-KEY-003", wantID: "TECH-KEY-003"},
		{name: "lower-case id", query: "tech-key-003", wantID: "TECH-KEY-003"},
		{name: "name fragment", query: "mouse", wantID: "TECH-KEY-003"},
		{name: "no match", query: "toaster", wantErr: true},
		{name: "blank", query: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.ProductByIDOrName(ctx, tt.query)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			require.NoError(t, err)
			ids := make([]string, len(products))
			for i, p := range products {
				ids[i] = p.ProductID
			}
			assert.Contains(t, ids, tt.wantID)
		})
	}
}

func TestDatasetRepository_ProductsByCategory(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	all, err := repo.ProductsByCategory(ctx, models.CategoryAudio, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	inStock := true
	stocked, err := repo.ProductsByCategory(ctx, "", &inStock)
	require.NoError(t, err)
	outOfStock := false
	missing, err := repo.ProductsByCategory(ctx, "", &outOfStock)
	require.NoError(t, err)

	assert.NotEmpty(t, missing)
	assert.Equal(t, 25, len(stocked)+len(missing))
	for _, p := range missing {
		assert.False(t, p.InStock)
	}
}

func TestDatasetRepository_TopBundles(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	bundles, err := repo.TopBundles(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, bundles)
	assert.LessOrEqual(t, len(bundles), 5)
	for i, b := range bundles {
		assert.Less(t, b.FirstID, b.SecondID)
		assert.NotEmpty(t, b.FirstName)
		assert.Positive(t, b.Orders)
		if i > 0 {
			assert.LessOrEqual(t, b.Orders, bundles[i-1].Orders)
		}
	}
}
