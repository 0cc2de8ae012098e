package importer

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"platesync/internal/models"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	nextID     int
	categories map[string]*models.Category
	products   map[string]*models.Product
	attrs      map[string][]models.ProductAttribute
	variants   map[string][]models.ProductVariant

	failSave bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		categories: map[string]*models.Category{},
		products:   map[string]*models.Product{},
		attrs:      map[string][]models.ProductAttribute{},
		variants:   map[string][]models.ProductVariant{},
	}
}

func (f *fakeStore) genID() string {
	f.nextID++
	return fmt.Sprintf("local-%d", f.nextID)
}

func (f *fakeStore) UpsertCategoryByName(ctx context.Context, category *models.Category) (bool, error) {
	if existing, ok := f.categories[category.Name]; ok {
		existing.Description = category.Description
		existing.MenuOrder = category.MenuOrder
		existing.VendorID = category.VendorID
		*category = *existing
		return false, nil
	}
	category.ID = f.genID()
	clone := *category
	f.categories[category.Name] = &clone
	return true, nil
}

func (f *fakeStore) FindProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	for _, p := range f.products {
		if p.SKU == sku {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = f.genID()
	}
	clone := *product
	f.products[product.ID] = &clone
	return nil
}

func (f *fakeStore) SaveProduct(ctx context.Context, product *models.Product) error {
	if f.failSave {
		return fmt.Errorf("save refused")
	}
	clone := *product
	f.products[product.ID] = &clone
	return nil
}

func (f *fakeStore) ReplaceVariants(ctx context.Context, productID string, attributes []models.ProductAttribute, variants []models.ProductVariant) error {
	f.attrs[productID] = attributes
	f.variants[productID] = variants
	return nil
}

func (f *fakeStore) ListPublishedProductIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id, p := range f.products {
		if !p.DeletedAt.Valid {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) ListOutOfStockProductIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id, p := range f.products {
		if !p.DeletedAt.Valid && p.StockStatus == models.StockStatusOutOfStock {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) FindProductIDsByVendorID(ctx context.Context, vendorID string) ([]string, error) {
	var ids []string
	for id, p := range f.products {
		if !p.DeletedAt.Valid && p.VendorID == vendorID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) SetStockStatus(ctx context.Context, productID string, status models.StockStatus) error {
	p, ok := f.products[productID]
	if !ok {
		return fmt.Errorf("product %s not found", productID)
	}
	p.StockStatus = status
	return nil
}

func (f *fakeStore) TrashProduct(ctx context.Context, productID string) error {
	p, ok := f.products[productID]
	if !ok {
		return fmt.Errorf("product %s not found", productID)
	}
	p.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

// fakeStock returns a canned unavailable-items map.
type fakeStock struct {
	balances map[string]float64
	err      error
}

func (f *fakeStock) FetchUnavailableItems(ctx context.Context, orgID string) (map[string]float64, error) {
	return f.balances, f.err
}

// fakeQueue records enqueued tasks and dispatches.
type fakeQueue struct {
	tasks      []models.ImportTask
	dispatches int
	drains     int
}

func (f *fakeQueue) Enqueue(ctx context.Context, task models.ImportTask) error {
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeQueue) Dispatch(ctx context.Context) error {
	f.dispatches++
	return nil
}

func (f *fakeQueue) Drain(ctx context.Context, batchSize int) error {
	f.drains++
	return nil
}

// fakeFetcher serves one snapshot.
type fakeFetcher struct {
	snapshot *models.RemoteSnapshot
	err      error
}

func (f *fakeFetcher) FetchCatalog(ctx context.Context, orgID string) (*models.RemoteSnapshot, error) {
	return f.snapshot, f.err
}
