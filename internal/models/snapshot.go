package models

// Vendor-side catalog types. One fetch produces one snapshot; it is cached
// until the next fetch replaces it and is read-only during an import run.

type ProductType string

const (
	ProductTypeDish     ProductType = "Dish"
	ProductTypeGood     ProductType = "Good"
	ProductTypeService  ProductType = "Service"
	ProductTypeModifier ProductType = "Modifier"
)

type CategorySnapshot struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	ParentID        *string  `json:"parent_id"`
	Order           int      `json:"order"`
	IsModifierGroup bool     `json:"is_modifier_group"`
	IsDeleted       bool     `json:"is_deleted"`
	IsPublished     bool     `json:"is_published"`
	Description     string   `json:"description"`
	ImageURLs       []string `json:"image_urls"`
	SEOTitle        string   `json:"seo_title"`
	SEODescription  string   `json:"seo_description"`
}

// CategoryNode is a CategorySnapshot with its resolved children. Trees are
// rebuilt from the flat list on every read and never persisted.
type CategoryNode struct {
	CategorySnapshot
	Children []*CategoryNode `json:"children"`
}

type SizeRef struct {
	SizeID    string   `json:"size_id"`
	Price     float64  `json:"price"`
	SalePrice float64  `json:"sale_price"`
	Weight    float64  `json:"weight"`
	ImageURLs []string `json:"image_urls"`
}

type ModifierRef struct {
	ModifierID string  `json:"modifier_id"`
	Price      float64 `json:"price"`
	Weight     float64 `json:"weight"`
}

type ModifierGroupRef struct {
	GroupID string        `json:"group_id"`
	Items   []ModifierRef `json:"items"`
}

type NutritionFacts struct {
	Energy        float64 `json:"energy"`
	Proteins      float64 `json:"proteins"`
	Fat           float64 `json:"fat"`
	Carbohydrates float64 `json:"carbohydrates"`
}

type Nutrition struct {
	Per100g NutritionFacts `json:"per_100g"`
	PerItem NutritionFacts `json:"per_item"`
}

type ProductSnapshot struct {
	ID               string      `json:"id"`
	SKU              string      `json:"sku"`
	Name             string      `json:"name"`
	Type             ProductType `json:"type"`
	ParentCategoryID string      `json:"parent_category_id"`

	// ParentCategoryIDs carries every category the vendor lists the product
	// under. ParentCategoryID stays the primary one.
	ParentCategoryIDs []string `json:"parent_category_ids,omitempty"`

	VendorCategoryID string             `json:"vendor_category_id"`
	IsDeleted        bool               `json:"is_deleted"`
	IsPublished      bool               `json:"is_published"`
	Order            int                `json:"order"`
	Weight           float64            `json:"weight"`
	Price            float64            `json:"price"`
	SalePrice        float64            `json:"sale_price"`
	Description      string             `json:"description"`
	AdditionalInfo   string             `json:"additional_info"`
	Sizes            []SizeRef          `json:"sizes"`
	ModifierGroups   []ModifierGroupRef `json:"modifier_groups"`
	Images           []string           `json:"images"`
	Tags             []string           `json:"tags"`
	Nutrition        Nutrition          `json:"nutrition"`
}

// SizeSnapshot names a size dimension value shared across products.
type SizeSnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RemoteSnapshot is one fetched copy of the vendor catalog.
type RemoteSnapshot struct {
	Revision   int64              `json:"revision"`
	Categories []CategorySnapshot `json:"categories"`
	Products   []ProductSnapshot  `json:"products"`
	Sizes      []SizeSnapshot     `json:"sizes"`
}

// ImportTask is one unit of queued async work. Immutable once enqueued.
type ImportTask struct {
	Product            ProductSnapshot   `json:"product"`
	TargetCategoryID   string            `json:"target_category_id"`
	Sizes              map[string]string `json:"sizes"`
	Modifiers          map[string]string `json:"modifiers"`
	ModifierGroupNames map[string]string `json:"modifier_group_names"`
}
