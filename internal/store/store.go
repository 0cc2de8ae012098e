package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"platesync/internal/models"
)

// Store is the gorm-backed local commerce catalog.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpsertCategoryByName matches on exact name. A trashed category with the
// same name is restored rather than duplicated.
func (s *Store) UpsertCategoryByName(ctx context.Context, category *models.Category) (bool, error) {
	var existing models.Category
	err := s.db.WithContext(ctx).Unscoped().
		Where("name = ?", category.Name).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
			return false, fmt.Errorf("create category %q: %w", category.Name, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("find category %q: %w", category.Name, err)
	}

	existing.Description = category.Description
	existing.MenuOrder = category.MenuOrder
	existing.VendorID = category.VendorID
	existing.DeletedAt = gorm.DeletedAt{}

	if err := s.db.WithContext(ctx).Unscoped().Save(&existing).Error; err != nil {
		return false, fmt.Errorf("update category %q: %w", category.Name, err)
	}

	*category = existing
	return false, nil
}

// FindProductBySKU returns (nil, nil) when no product carries the SKU.
// Trashed products are found too, so a re-import can restore them.
func (s *Store) FindProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Unscoped().
		Where("sku = ?", sku).
		First(&product).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product by sku %q: %w", sku, err)
	}
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("create product %q: %w", product.SKU, err)
	}
	return nil
}

func (s *Store) SaveProduct(ctx context.Context, product *models.Product) error {
	// Unscoped so a restore (DeletedAt cleared in memory) reaches the row.
	if err := s.db.WithContext(ctx).Unscoped().Save(product).Error; err != nil {
		return fmt.Errorf("save product %q: %w", product.SKU, err)
	}
	return nil
}

// ReplaceVariants swaps the product's attribute and variant sets in one
// transaction. Old rows are removed for real, not trashed; stale variant SKUs
// must free their unique index for the incoming set.
func (s *Store) ReplaceVariants(ctx context.Context, productID string, attributes []models.ProductAttribute, variants []models.ProductVariant) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).
			Delete(&models.ProductAttribute{}).Error; err != nil {
			return fmt.Errorf("clear attributes of %s: %w", productID, err)
		}
		if err := tx.Unscoped().Where("product_id = ?", productID).
			Delete(&models.ProductVariant{}).Error; err != nil {
			return fmt.Errorf("clear variants of %s: %w", productID, err)
		}

		if len(attributes) > 0 {
			if err := tx.Create(&attributes).Error; err != nil {
				return fmt.Errorf("insert attributes of %s: %w", productID, err)
			}
		}
		if len(variants) > 0 {
			if err := tx.Create(&variants).Error; err != nil {
				return fmt.Errorf("insert variants of %s: %w", productID, err)
			}
		}
		return nil
	})
}

func (s *Store) ListPublishedProductIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list published products: %w", err)
	}
	return ids, nil
}

func (s *Store) ListOutOfStockProductIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("stock_status = ?", models.StockStatusOutOfStock).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list out-of-stock products: %w", err)
	}
	return ids, nil
}

func (s *Store) FindProductIDsByVendorID(ctx context.Context, vendorID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("vendor_id = ?", vendorID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("find products of vendor item %s: %w", vendorID, err)
	}
	return ids, nil
}

func (s *Store) SetStockStatus(ctx context.Context, productID string, status models.StockStatus) error {
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_status", status).Error
	if err != nil {
		return fmt.Errorf("set stock status of %s: %w", productID, err)
	}
	return nil
}

// TrashProduct soft-deletes a product and its variants together.
func (s *Store) TrashProduct(ctx context.Context, productID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).
			Delete(&models.ProductVariant{}).Error; err != nil {
			return fmt.Errorf("trash variants of %s: %w", productID, err)
		}
		if err := tx.Where("id = ?", productID).
			Delete(&models.Product{}).Error; err != nil {
			return fmt.Errorf("trash product %s: %w", productID, err)
		}
		return nil
	})
}

// ListProducts and GetProduct back the read-only HTTP endpoints.
func (s *Store) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Preload("Attributes").
		Preload("Variants").
		Order("menu_order asc, name asc").
		Limit(limit).Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Preload("Attributes").
		Preload("Variants").
		Where("id = ?", id).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &product, nil
}
