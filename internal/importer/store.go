package importer

import (
	"context"

	"platesync/internal/models"
)

// Store is the contract the engine needs from the local commerce catalog.
// internal/store provides the gorm implementation; tests use an in-memory one.
type Store interface {
	// UpsertCategoryByName matches on exact name, updates in place or
	// creates, and reports whether a new row was created.
	UpsertCategoryByName(ctx context.Context, category *models.Category) (bool, error)

	// FindProductBySKU returns (nil, nil) when no product carries the SKU.
	// Trashed products are found too, so a re-import can restore them.
	FindProductBySKU(ctx context.Context, sku string) (*models.Product, error)

	CreateProduct(ctx context.Context, product *models.Product) error
	SaveProduct(ctx context.Context, product *models.Product) error

	// ReplaceVariants swaps a product's attribute and variant sets for the
	// given ones. Pass empty slices to strip a product down to simple.
	ReplaceVariants(ctx context.Context, productID string, attributes []models.ProductAttribute, variants []models.ProductVariant) error

	ListPublishedProductIDs(ctx context.Context) ([]string, error)
	ListOutOfStockProductIDs(ctx context.Context) ([]string, error)
	FindProductIDsByVendorID(ctx context.Context, vendorID string) ([]string, error)

	SetStockStatus(ctx context.Context, productID string, status models.StockStatus) error

	// TrashProduct soft-deletes a product and its variants.
	TrashProduct(ctx context.Context, productID string) error
}

// TaskQueue decouples the orchestrator from the async queue implementation.
type TaskQueue interface {
	Enqueue(ctx context.Context, task models.ImportTask) error
	// Dispatch fires the first drain trigger after a batch of enqueues.
	Dispatch(ctx context.Context) error
	// Drain runs one tick: pop up to batchSize tasks, materialize them, and
	// either re-trigger or reconcile when the backlog is empty.
	Drain(ctx context.Context, batchSize int) error
}

// CatalogFetcher and StockFetcher are the vendor API surface the engine
// consumes. Fetch errors surface as-is; the engine never retries.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context, orgID string) (*models.RemoteSnapshot, error)
}

type StockFetcher interface {
	// FetchUnavailableItems returns vendor product id -> remaining balance,
	// merged across terminals by minimum.
	FetchUnavailableItems(ctx context.Context, orgID string) (map[string]float64, error)
}
