package importer

import (
	"context"
	"fmt"
	"sort"

	"platesync/internal/cache"
	"platesync/internal/catalog"
	"platesync/internal/config"
	"platesync/internal/logger"
	"platesync/internal/models"
)

// Cache key names for one fetched snapshot. Dishes and goods are the large
// collections and get chunked; the rest fit in single entries except the
// category list, whose payloads are heavy enough to chunk at their own size.
const (
	cacheKeyDishes     = "dishes"
	cacheKeyGoods      = "goods"
	cacheKeyServices   = "services"
	cacheKeyModifiers  = "modifiers"
	cacheKeySizes      = "sizes"
	cacheKeyCategories = "categories"
	cacheKeyRevision   = "revision"
)

// Orchestrator sequences one sync cycle: fetch, cache, tree, per-category
// materialization, reconciliation. It owns no state between calls; everything
// lives in the cache, the queue, or the local store.
type Orchestrator struct {
	cache   *cache.Store
	store   Store
	fetcher CatalogFetcher
	mat     *Materializer
	rec     *Reconciler
	queue   TaskQueue
	cfg     config.ImportConfig
	orgID   string
	log     *logger.Logger
}

func NewOrchestrator(
	cacheStore *cache.Store,
	store Store,
	fetcher CatalogFetcher,
	mat *Materializer,
	rec *Reconciler,
	queue TaskQueue,
	cfg config.ImportConfig,
	orgID string,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		cache:   cacheStore,
		store:   store,
		fetcher: fetcher,
		mat:     mat,
		rec:     rec,
		queue:   queue,
		cfg:     cfg,
		orgID:   orgID,
		log:     log,
	}
}

// RefreshResult reports what one fetch put into the cache.
type RefreshResult struct {
	Revision int64                  `json:"revision"`
	Groups   int                    `json:"groups"`
	Products int                    `json:"products"`
	Tree     []*models.CategoryNode `json:"tree"`
}

// ImportResult is the caller-facing outcome of one import run. On the async
// path the counts reflect what was enqueued, not what was materialized.
type ImportResult struct {
	ImportedGroups   int      `json:"imported_groups"`
	ImportedProducts int      `json:"imported_products"`
	Inserted         []string `json:"inserted"`
	Updated          []string `json:"updated"`
	Excluded         []string `json:"excluded"`
	Notices          []string `json:"notices"`
	Errors           []string `json:"errors"`
	Async            bool     `json:"async"`
	Enqueued         int      `json:"enqueued,omitempty"`
}

// Refresh fetches the vendor catalog and replaces the cached snapshot. The
// category forest is rebuilt from the fresh list and returned for display.
func (o *Orchestrator) Refresh(ctx context.Context) (*RefreshResult, error) {
	snap, err := o.fetcher.FetchCatalog(ctx, o.orgID)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	dishes := map[string]models.ProductSnapshot{}
	goods := map[string]models.ProductSnapshot{}
	services := map[string]models.ProductSnapshot{}
	modifiers := map[string]models.ProductSnapshot{}

	for _, p := range snap.Products {
		switch p.Type {
		case models.ProductTypeDish:
			dishes[p.ID] = p
		case models.ProductTypeGood:
			goods[p.ID] = p
		case models.ProductTypeService:
			services[p.ID] = p
		case models.ProductTypeModifier:
			modifiers[p.ID] = p
		default:
			o.log.Warn("refresh: product %s has unknown type %q, skipped", p.ID, p.Type)
		}
	}

	if len(dishes) > 0 {
		if err := cache.PutChunked(ctx, o.cache, cacheKeyDishes, dishes, o.cfg.ChunkSize); err != nil {
			return nil, err
		}
	}
	if len(goods) > 0 {
		if err := cache.PutChunked(ctx, o.cache, cacheKeyGoods, goods, o.cfg.ChunkSize); err != nil {
			return nil, err
		}
	}
	if err := cache.PutValue(ctx, o.cache, cacheKeyServices, services); err != nil {
		return nil, err
	}
	if err := cache.PutValue(ctx, o.cache, cacheKeyModifiers, modifiers); err != nil {
		return nil, err
	}

	sizes := make(map[string]string, len(snap.Sizes))
	for _, s := range snap.Sizes {
		sizes[s.ID] = s.Name
	}
	if err := cache.PutValue(ctx, o.cache, cacheKeySizes, sizes); err != nil {
		return nil, err
	}

	categories := make(map[string]models.CategorySnapshot, len(snap.Categories))
	for _, c := range snap.Categories {
		categories[c.ID] = c
	}
	if len(categories) > 0 {
		if err := cache.PutChunked(ctx, o.cache, cacheKeyCategories, categories, o.cfg.CategoryChunkSize); err != nil {
			return nil, err
		}
	}

	if err := cache.PutValue(ctx, o.cache, cacheKeyRevision, snap.Revision); err != nil {
		return nil, err
	}

	o.log.Info("refresh: cached revision %d, %d categories, %d products",
		snap.Revision, len(snap.Categories), len(snap.Products))

	return &RefreshResult{
		Revision: snap.Revision,
		Groups:   len(snap.Categories),
		Products: len(snap.Products),
		Tree:     catalog.BuildTree(snap.Categories),
	}, nil
}

// Tree rebuilds the category forest from the cached snapshot.
func (o *Orchestrator) Tree(ctx context.Context) ([]*models.CategoryNode, error) {
	categories, err := cache.GetChunked[models.CategorySnapshot](ctx, o.cache, cacheKeyCategories)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("no cached catalog, refresh first")
	}

	flat := make([]models.CategorySnapshot, 0, len(categories))
	for _, c := range categories {
		flat = append(flat, c)
	}
	return catalog.BuildTree(flat), nil
}

// Import materializes the products of the chosen vendor categories, either
// synchronously or by enqueueing for the drain worker. Zero resolvable
// categories is a phase failure; a single bad category is only a notice.
func (o *Orchestrator) Import(ctx context.Context, categoryIDs []string) (*ImportResult, error) {
	if len(categoryIDs) == 0 {
		return nil, fmt.Errorf("no categories selected")
	}

	categories, err := cache.GetChunked[models.CategorySnapshot](ctx, o.cache, cacheKeyCategories)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("no cached catalog, refresh first")
	}

	products, err := o.cachedProducts(ctx)
	if err != nil {
		return nil, err
	}

	sizes, err := cache.GetValue[map[string]string](ctx, o.cache, cacheKeySizes)
	if err != nil {
		return nil, err
	}
	modifierProducts, err := cache.GetValue[map[string]models.ProductSnapshot](ctx, o.cache, cacheKeyModifiers)
	if err != nil {
		return nil, err
	}

	modifierNames := make(map[string]string, len(modifierProducts))
	for id, m := range modifierProducts {
		modifierNames[id] = m.Name
	}
	groupNames := map[string]string{}
	for id, c := range categories {
		if c.IsModifierGroup {
			groupNames[id] = c.Name
		}
	}

	ids := make([]string, len(categoryIDs))
	copy(ids, categoryIDs)
	if o.cfg.ReverseCategories {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}

	rl := NewRunLog(o.log)
	importedGroups := 0
	var tasks []models.ImportTask
	taskIndex := map[string]int{}

	for _, id := range ids {
		cat, ok := categories[id]
		if !ok {
			rl.Errorf("category %s is not in the cached catalog", id)
			continue
		}
		if err := catalog.ValidateForImport(cat); err != nil {
			rl.Noticef("%v, skipped", err)
			continue
		}

		entity := &models.Category{
			Name:      cat.Name,
			MenuOrder: cat.Order,
			VendorID:  cat.ID,
		}
		if cat.Description != "" {
			desc := cat.Description
			entity.Description = &desc
		}

		created, err := o.store.UpsertCategoryByName(ctx, entity)
		if err != nil {
			rl.Errorf("category %s: upsert failed: %v", cat.Name, err)
			continue
		}
		if created {
			rl.Noticef("category %s has been created", cat.Name)
		} else {
			rl.Noticef("category %s has been updated", cat.Name)
		}
		importedGroups++

		for _, p := range categoryProducts(products, cat.ID) {
			task := models.ImportTask{
				Product:            p,
				TargetCategoryID:   entity.ID,
				Sizes:              sizes,
				Modifiers:          modifierNames,
				ModifierGroupNames: groupNames,
			}
			if o.cfg.MultiCategory {
				tasks = append(tasks, task)
				continue
			}
			// Single-category mode: a product listed under several chosen
			// categories lands in the one processed last.
			if i, seen := taskIndex[p.ID]; seen {
				tasks[i] = task
				continue
			}
			taskIndex[p.ID] = len(tasks)
			tasks = append(tasks, task)
		}
	}

	if importedGroups == 0 {
		return nil, fmt.Errorf("none of the selected categories could be imported: %v", rl.Errors)
	}

	if o.cfg.Async {
		enqueued := 0
		for _, task := range tasks {
			if err := o.queue.Enqueue(ctx, task); err != nil {
				rl.Errorf("product %s: enqueue failed: %v", task.Product.Name, err)
				continue
			}
			enqueued++
		}
		if enqueued > 0 {
			if err := o.queue.Dispatch(ctx); err != nil {
				rl.Errorf("queue dispatch failed: %v", err)
			}
		}
		return &ImportResult{
			ImportedGroups: importedGroups,
			Notices:        rl.Notices,
			Errors:         rl.Errors,
			Async:          true,
			Enqueued:       enqueued,
		}, nil
	}

	var stats Statistics
	for _, task := range tasks {
		stats.Record(o.mat.Materialize(ctx, task, rl))
	}

	if err := o.rec.Run(ctx, stats, rl); err != nil {
		rl.Errorf("reconciliation failed: %v", err)
	}

	return &ImportResult{
		ImportedGroups:   importedGroups,
		ImportedProducts: stats.Imported,
		Inserted:         stats.Inserted,
		Updated:          stats.Updated,
		Excluded:         stats.Excluded,
		Notices:          rl.Notices,
		Errors:           rl.Errors,
	}, nil
}

// RunScheduledDrain is the external-trigger entry point for one queue tick.
func (o *Orchestrator) RunScheduledDrain(ctx context.Context) error {
	return o.queue.Drain(ctx, o.cfg.BatchSize)
}

// cachedProducts merges the importable product sets. Partial chunk expiry in
// any one set degrades to fewer products, not an error.
func (o *Orchestrator) cachedProducts(ctx context.Context) (map[string]models.ProductSnapshot, error) {
	out := map[string]models.ProductSnapshot{}

	for _, name := range []string{cacheKeyDishes, cacheKeyGoods} {
		set, err := cache.GetChunked[models.ProductSnapshot](ctx, o.cache, name)
		if err != nil {
			return nil, err
		}
		for id, p := range set {
			out[id] = p
		}
	}

	services, err := cache.GetValue[map[string]models.ProductSnapshot](ctx, o.cache, cacheKeyServices)
	if err != nil {
		return nil, err
	}
	for id, p := range services {
		out[id] = p
	}

	return out, nil
}

// categoryProducts picks the published products of one vendor category,
// ordered by menu order with name as the tie-break.
func categoryProducts(products map[string]models.ProductSnapshot, categoryID string) []models.ProductSnapshot {
	var out []models.ProductSnapshot
	for _, p := range products {
		if !p.IsPublished {
			continue
		}
		if belongsTo(p, categoryID) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func belongsTo(p models.ProductSnapshot, categoryID string) bool {
	if p.ParentCategoryID == categoryID {
		return true
	}
	for _, id := range p.ParentCategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}
