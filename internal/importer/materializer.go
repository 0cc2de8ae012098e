package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"platesync/internal/config"
	"platesync/internal/logger"
	"platesync/internal/models"
)

const sizeAttributeName = "Size"

// Materializer turns one ProductSnapshot into a simple or variable local
// product. Materializing the same snapshot twice yields the same entity:
// the upsert matches on SKU and replaces attribute/variant sets in place.
type Materializer struct {
	store Store
	cfg   config.ImportConfig
	log   *logger.Logger
}

func NewMaterializer(store Store, cfg config.ImportConfig, log *logger.Logger) *Materializer {
	return &Materializer{store: store, cfg: cfg, log: log}
}

// dimension is one independent variation axis: the size list or one modifier
// group. Values are deduplicated by name.
type dimension struct {
	name   string
	isSize bool
	values []dimensionValue
}

type dimensionValue struct {
	name      string
	vendorID  string
	price     float64
	salePrice float64
	weight    float64
}

func (m *Materializer) Materialize(ctx context.Context, task models.ImportTask, rl *RunLog) Outcome {
	p := task.Product
	label := p.Name
	if label == "" {
		label = p.SKU
	}
	if label == "" {
		label = p.ID
	}

	if p.ID == "" || p.SKU == "" || p.Name == "" {
		rl.Errorf("product %s doesn't have required data", label)
		return Outcome{Kind: OutcomeExcluded, Name: label}
	}

	if p.IsDeleted {
		rl.Errorf("product %s is deleted upstream", p.Name)
		return Outcome{Kind: OutcomeExcluded, Name: p.Name}
	}

	existing, err := m.store.FindProductBySKU(ctx, p.SKU)
	if err != nil {
		rl.Errorf("product %s: lookup by SKU %s failed: %v", p.Name, p.SKU, err)
		return Outcome{Kind: OutcomeFailed, Name: p.Name}
	}
	if existing != nil && existing.VendorID != "" && existing.VendorID != p.ID {
		rl.Errorf("product %s: SKU %s already belongs to another vendor item", p.Name, p.SKU)
		return Outcome{Kind: OutcomeExcluded, Name: p.Name}
	}

	sizeDim := m.buildSizeDimension(p, task.Sizes, rl)
	groupDims := m.buildGroupDimensions(p, task.Modifiers, task.ModifierGroupNames, rl)
	dims := combineDimensions(sizeDim, groupDims, p.Name, rl)

	// Variation sources that all got skipped leave nothing to expand.
	if len(dims) == 0 && hasVariantSource(p) {
		rl.Errorf("product %s doesn't have attributes", p.Name)
		return Outcome{Kind: OutcomeFailed, Name: p.Name}
	}

	entity := existing
	created := false
	if entity == nil {
		entity = &models.Product{SKU: p.SKU}
		created = true
	}

	applySnapshotFields(entity, p, task.TargetCategoryID)

	if len(dims) == 0 {
		entity.Kind = models.ProductKindSimple
	} else {
		entity.Kind = models.ProductKindVariable
	}

	if created {
		if err := m.store.CreateProduct(ctx, entity); err != nil {
			rl.Errorf("product %s insert error: %v", p.Name, err)
			return Outcome{Kind: OutcomeFailed, Name: p.Name}
		}
	} else {
		if err := m.store.SaveProduct(ctx, entity); err != nil {
			rl.Errorf("product %s update error: %v", p.Name, err)
			return Outcome{Kind: OutcomeFailed, Name: p.Name}
		}
	}

	if entity.Kind == models.ProductKindVariable {
		attrs, variants := expandVariants(p.SKU, p.Price, p.SalePrice, p.Weight, dims, m.cfg.VariantCap)
		for i := range attrs {
			attrs[i].ProductID = entity.ID
		}
		for i := range variants {
			variants[i].ProductID = entity.ID
		}
		if err := m.store.ReplaceVariants(ctx, entity.ID, attrs, variants); err != nil {
			rl.Errorf("product %s: replacing variants failed: %v", p.Name, err)
			return Outcome{Kind: OutcomeFailed, Name: p.Name}
		}
		rl.Noticef("product %s has %d variation(s)", p.Name, len(variants))
	} else if !created {
		// A product that used to be variable sheds its variants.
		if err := m.store.ReplaceVariants(ctx, entity.ID, nil, nil); err != nil {
			rl.Errorf("product %s: clearing variants failed: %v", p.Name, err)
			return Outcome{Kind: OutcomeFailed, Name: p.Name}
		}
	}

	if created {
		rl.Noticef("product %s has been inserted", p.Name)
		return Outcome{Kind: OutcomeInserted, Name: p.Name, ProductID: entity.ID}
	}
	rl.Noticef("product %s has been updated", p.Name)
	return Outcome{Kind: OutcomeUpdated, Name: p.Name, ProductID: entity.ID}
}

func applySnapshotFields(entity *models.Product, p models.ProductSnapshot, categoryID string) {
	entity.Name = p.Name
	entity.Price = p.Price
	entity.SalePrice = p.SalePrice
	entity.Weight = p.Weight
	entity.MenuOrder = p.Order
	entity.VendorID = p.ID
	entity.VendorCategoryID = p.VendorCategoryID
	entity.Images = p.Images
	entity.Tags = p.Tags
	entity.DeletedAt.Valid = false

	if p.Description != "" {
		desc := p.Description
		entity.Description = &desc
	}
	if p.AdditionalInfo != "" {
		short := p.AdditionalInfo
		entity.ShortDescription = &short
	}
	if p.Nutrition != (models.Nutrition{}) {
		n := p.Nutrition
		entity.Nutrition = &n
	}
	if categoryID != "" {
		cid := categoryID
		entity.CategoryID = &cid
	}
	if entity.StockStatus == "" {
		entity.StockStatus = models.StockStatusInStock
	}
}

// hasVariantSource reports whether the snapshot carries anything that could
// become a variation axis. Sizes without an id never do; they are the
// default-size shape of a simple product.
func hasVariantSource(p models.ProductSnapshot) bool {
	for _, size := range p.Sizes {
		if size.SizeID != "" {
			return true
		}
	}
	for _, group := range p.ModifierGroups {
		if len(group.Items) > 0 {
			return true
		}
	}
	return false
}

// buildSizeDimension returns nil when the product only has its default size,
// which is the simple-product shape. A size entry without an id is skipped
// but does not abort the product.
func (m *Materializer) buildSizeDimension(p models.ProductSnapshot, sizeNames map[string]string, rl *RunLog) *dimension {
	if len(p.Sizes) == 0 {
		return nil
	}
	if len(p.Sizes) == 1 && p.Sizes[0].SizeID == "" {
		return nil
	}

	dim := &dimension{name: sizeAttributeName, isSize: true}
	seen := map[string]bool{}

	for i, size := range p.Sizes {
		if size.SizeID == "" {
			rl.Noticef("product %s: size #%d doesn't have an id, skipped", p.Name, i+1)
			continue
		}
		name := sizeNames[size.SizeID]
		if name == "" {
			name = fmt.Sprintf("Size %d", i+1)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		dim.values = append(dim.values, dimensionValue{
			name:      name,
			vendorID:  size.SizeID,
			price:     size.Price,
			salePrice: size.SalePrice,
			weight:    size.Weight,
		})
	}

	if len(dim.values) == 0 {
		return nil
	}
	return dim
}

func (m *Materializer) buildGroupDimensions(p models.ProductSnapshot, modifierNames, groupNames map[string]string, rl *RunLog) []dimension {
	var dims []dimension

	for i, group := range p.ModifierGroups {
		groupName := groupNames[group.GroupID]
		if groupName == "" {
			groupName = fmt.Sprintf("Modifier %d", i+1)
		}

		if group.GroupID == "" || len(group.Items) == 0 {
			rl.Noticef("product %s: modifier group %s doesn't have an id or is empty, skipped", p.Name, groupName)
			continue
		}

		dim := dimension{name: groupName}
		seen := map[string]bool{}

		for j, item := range group.Items {
			if item.ModifierID == "" {
				rl.Noticef("product %s: modifier #%d of group %s doesn't have an id, skipped", p.Name, j+1, groupName)
				continue
			}
			name := modifierNames[item.ModifierID]
			if name == "" {
				name = fmt.Sprintf("Option %d", j+1)
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			dim.values = append(dim.values, dimensionValue{
				name:     name,
				vendorID: item.ModifierID,
				price:    item.Price,
				weight:   item.Weight,
			})
		}

		if len(dim.values) == 0 {
			continue
		}
		dims = append(dims, dim)
	}

	return dims
}

// combineDimensions decides which axes enter variant generation. When a
// product has both sizes and modifier groups, only the first group joins the
// size axis; the remaining groups are dropped with a notice.
func combineDimensions(sizeDim *dimension, groupDims []dimension, productName string, rl *RunLog) []dimension {
	switch {
	case sizeDim == nil:
		return groupDims
	case len(groupDims) == 0:
		return []dimension{*sizeDim}
	default:
		if len(groupDims) > 1 {
			rl.Noticef("product %s has sizes and %d modifier groups; only the first group is combined", productName, len(groupDims))
		}
		return []dimension{*sizeDim, groupDims[0]}
	}
}

// expandVariants walks the cartesian product of the dimension value sets in
// declaration order and assigns each combination the SKU
// {base}-{i}[-{j}...] with 1-based indices. limit bounds the total combination
// count; 0 means unlimited. Price and weight come from the selected size when
// a size axis exists, otherwise from the product.
func expandVariants(baseSKU string, basePrice, baseSalePrice, baseWeight float64, dims []dimension, limit int) ([]models.ProductAttribute, []models.ProductVariant) {
	if len(dims) == 0 {
		return nil, nil
	}

	attrs := make([]models.ProductAttribute, 0, len(dims))
	for i, dim := range dims {
		values := make([]string, 0, len(dim.values))
		for _, v := range dim.values {
			values = append(values, v.name)
		}
		attrs = append(attrs, models.ProductAttribute{
			Name:     dim.name,
			Position: i,
			Values:   values,
		})
	}

	var variants []models.ProductVariant
	idx := make([]int, len(dims))

	for {
		if limit > 0 && len(variants) >= limit {
			break
		}

		parts := make([]string, 0, len(dims)+1)
		parts = append(parts, baseSKU)
		selections := make(map[string]string, len(dims))

		price, salePrice, weight := basePrice, baseSalePrice, baseWeight
		vendorSizeID := ""
		var vendorModifierIDs []string

		for i, dim := range dims {
			value := dim.values[idx[i]]
			parts = append(parts, strconv.Itoa(idx[i]+1))
			selections[dim.name] = value.name

			if dim.isSize {
				price = value.price
				salePrice = value.salePrice
				weight = value.weight
				vendorSizeID = value.vendorID
			} else {
				vendorModifierIDs = append(vendorModifierIDs, value.vendorID)
			}
		}

		variants = append(variants, models.ProductVariant{
			SKU:               strings.Join(parts, "-"),
			Price:             price,
			SalePrice:         salePrice,
			Weight:            weight,
			Selections:        selections,
			VendorSizeID:      vendorSizeID,
			VendorModifierIDs: vendorModifierIDs,
		})

		// Odometer increment, last dimension fastest.
		i := len(dims) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(dims[i].values) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			break
		}
	}

	return attrs, variants
}
