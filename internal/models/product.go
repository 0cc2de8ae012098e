package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductKind string

const (
	ProductKindSimple   ProductKind = "simple"
	ProductKindVariable ProductKind = "variable"
)

type StockStatus string

const (
	StockStatusInStock    StockStatus = "instock"
	StockStatusOutOfStock StockStatus = "outofstock"
)

type Product struct {
	ID               string      `json:"id" gorm:"type:uuid;primary_key"`
	SKU              string      `json:"sku" gorm:"uniqueIndex;not null"`
	Name             string      `json:"name" gorm:"not null"`
	Kind             ProductKind `json:"kind" gorm:"default:simple"`
	Description      *string     `json:"description"`
	ShortDescription *string     `json:"short_description"`
	Price            float64     `json:"price" gorm:"type:decimal(10,2)"`
	SalePrice        float64     `json:"sale_price" gorm:"type:decimal(10,2)"`
	Weight           float64     `json:"weight"`
	MenuOrder        int         `json:"menu_order"`
	StockStatus      StockStatus `json:"stock_status" gorm:"default:instock;index"`
	CategoryID       *string     `json:"category_id" gorm:"type:uuid;index"`
	Images           []string    `json:"images" gorm:"serializer:json"`
	Tags             []string    `json:"tags" gorm:"serializer:json"`
	Nutrition        *Nutrition  `json:"nutrition" gorm:"serializer:json"`

	// Vendor round-trip identifiers.
	VendorID         string `json:"vendor_id" gorm:"index"`
	VendorCategoryID string `json:"vendor_category_id"`

	Attributes []ProductAttribute `json:"attributes" gorm:"foreignKey:ProductID"`
	Variants   []ProductVariant   `json:"variants" gorm:"foreignKey:ProductID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// ProductAttribute is one variation dimension: a size axis or one modifier
// group. Values are deduplicated by name within an attribute.
type ProductAttribute struct {
	ID        string   `json:"id" gorm:"type:uuid;primary_key"`
	ProductID string   `json:"product_id" gorm:"type:uuid;index;not null"`
	Name      string   `json:"name" gorm:"not null"`
	Position  int      `json:"position"`
	Values    []string `json:"values" gorm:"serializer:json"`
}

func (a *ProductAttribute) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// ProductVariant is one purchasable combination of attribute values.
type ProductVariant struct {
	ID         string            `json:"id" gorm:"type:uuid;primary_key"`
	ProductID  string            `json:"product_id" gorm:"type:uuid;index;not null"`
	SKU        string            `json:"sku" gorm:"uniqueIndex;not null"`
	Price      float64           `json:"price" gorm:"type:decimal(10,2)"`
	SalePrice  float64           `json:"sale_price" gorm:"type:decimal(10,2)"`
	Weight     float64           `json:"weight"`
	Selections map[string]string `json:"selections" gorm:"serializer:json"`

	VendorSizeID      string   `json:"vendor_size_id"`
	VendorModifierIDs []string `json:"vendor_modifier_ids" gorm:"serializer:json"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return nil
}
