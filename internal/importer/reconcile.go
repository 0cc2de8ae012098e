package importer

import (
	"context"

	"platesync/internal/config"
	"platesync/internal/logger"
	"platesync/internal/models"
)

// Reconciler runs after materialization settles: it trashes local products
// the vendor no longer publishes and projects the vendor stop list onto
// stock statuses. Both passes are optional and flag-controlled.
type Reconciler struct {
	store Store
	stock StockFetcher
	cfg   config.ImportConfig
	orgID string
	log   *logger.Logger
}

func NewReconciler(store Store, stock StockFetcher, cfg config.ImportConfig, orgID string, log *logger.Logger) *Reconciler {
	return &Reconciler{store: store, stock: stock, cfg: cfg, orgID: orgID, log: log}
}

// Run executes the enabled passes. Per-product failures are logged and do not
// stop the sweep; only a failure to list candidates aborts.
func (r *Reconciler) Run(ctx context.Context, stats Statistics, rl *RunLog) error {
	if r.cfg.DeleteStale {
		if err := r.deleteStale(ctx, stats.ProductIDs, rl); err != nil {
			return err
		}
	}
	if r.cfg.StockProjection {
		if err := r.projectStock(ctx, rl); err != nil {
			return err
		}
	}
	return nil
}

// deleteStale trashes every published product the run did not touch. An empty
// touched set means the run imported nothing, and sweeping then would trash
// the whole catalog, so the pass is skipped.
func (r *Reconciler) deleteStale(ctx context.Context, touched []string, rl *RunLog) error {
	if len(touched) == 0 {
		rl.Noticef("stale sweep skipped: no products were imported")
		return nil
	}

	published, err := r.store.ListPublishedProductIDs(ctx)
	if err != nil {
		return err
	}

	touchedSet := make(map[string]bool, len(touched))
	for _, id := range touched {
		touchedSet[id] = true
	}

	trashed := 0
	for _, id := range published {
		if touchedSet[id] {
			continue
		}
		if err := r.store.TrashProduct(ctx, id); err != nil {
			rl.Errorf("product %s: trash failed: %v", id, err)
			continue
		}
		trashed++
	}

	rl.Noticef("stale sweep trashed %d product(s)", trashed)
	return nil
}

// projectStock resets every out-of-stock product back to in stock, then marks
// out of stock whatever the vendor stop list reports at or below the
// threshold. Stop-list entries with no matching local product are logged.
func (r *Reconciler) projectStock(ctx context.Context, rl *RunLog) error {
	outOfStock, err := r.store.ListOutOfStockProductIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range outOfStock {
		if err := r.store.SetStockStatus(ctx, id, models.StockStatusInStock); err != nil {
			rl.Errorf("product %s: stock reset failed: %v", id, err)
		}
	}

	balances, err := r.stock.FetchUnavailableItems(ctx, r.orgID)
	if err != nil {
		return err
	}

	marked := 0
	for vendorID, balance := range balances {
		if balance > r.cfg.OutOfStockThreshold {
			continue
		}
		ids, err := r.store.FindProductIDsByVendorID(ctx, vendorID)
		if err != nil {
			rl.Errorf("vendor item %s: lookup failed: %v", vendorID, err)
			continue
		}
		if len(ids) == 0 {
			rl.Noticef("vendor item %s is on the stop list but has no local product", vendorID)
			continue
		}
		for _, id := range ids {
			if err := r.store.SetStockStatus(ctx, id, models.StockStatusOutOfStock); err != nil {
				rl.Errorf("product %s: marking out of stock failed: %v", id, err)
				continue
			}
			marked++
		}
	}

	rl.Noticef("stock projection marked %d product(s) out of stock", marked)
	return nil
}
