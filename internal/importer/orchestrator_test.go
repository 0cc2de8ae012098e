package importer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platesync/internal/cache"
	"platesync/internal/config"
	"platesync/internal/logger"
	"platesync/internal/models"
)

type memKV struct {
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}}
}

func (m *memKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func testSnapshot() *models.RemoteSnapshot {
	return &models.RemoteSnapshot{
		Revision: 7,
		Categories: []models.CategorySnapshot{
			{ID: "cat-pizza", Name: "Pizza", Order: 1, IsPublished: true},
			{ID: "cat-drinks", Name: "Drinks", Order: 2, IsPublished: true},
			{ID: "cat-hidden", Name: "Hidden", Order: 3},
			{ID: "grp-toppings", Name: "Toppings", IsModifierGroup: true, IsPublished: true},
		},
		Sizes: []models.SizeSnapshot{{ID: "size-s", Name: "Small"}},
		Products: []models.ProductSnapshot{
			{
				ID: "p1", SKU: "PZ-1", Name: "Margherita", Type: models.ProductTypeDish,
				ParentCategoryID: "cat-pizza", IsPublished: true, Order: 2, Price: 9,
			},
			{
				ID: "p2", SKU: "PZ-2", Name: "Diavola", Type: models.ProductTypeDish,
				ParentCategoryID: "cat-pizza", IsPublished: true, Order: 1, Price: 11,
			},
			{
				ID: "p3", SKU: "DR-1", Name: "Cola", Type: models.ProductTypeGood,
				ParentCategoryID: "cat-drinks", IsPublished: true, Price: 2,
			},
			{
				ID: "p4", SKU: "PZ-3", Name: "Unlisted", Type: models.ProductTypeDish,
				ParentCategoryID: "cat-pizza",
			},
			{
				ID: "mod1", SKU: "", Name: "Extra cheese", Type: models.ProductTypeModifier,
			},
		},
	}
}

func newTestOrchestrator(t *testing.T, cfg config.ImportConfig, snap *models.RemoteSnapshot) (*Orchestrator, *fakeStore, *fakeQueue) {
	t.Helper()

	cacheStore := cache.NewStore(newMemKV(), "test_", time.Hour, logger.Nop())
	st := newFakeStore()
	mat := NewMaterializer(st, cfg, logger.Nop())
	rec := NewReconciler(st, &fakeStock{}, cfg, "org", logger.Nop())
	fq := &fakeQueue{}
	fetcher := &fakeFetcher{snapshot: snap}

	return NewOrchestrator(cacheStore, st, fetcher, mat, rec, fq, cfg, "org", logger.Nop()), st, fq
}

func TestRefreshCachesSnapshot(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, testImportConfig(), testSnapshot())

	result, err := orch.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(7), result.Revision)
	assert.Equal(t, 4, result.Groups)
	assert.Equal(t, 5, result.Products)

	// Toppings is a modifier group and stays out of the forest.
	require.Len(t, result.Tree, 3)
	assert.Equal(t, "Pizza", result.Tree[0].Name)

	tree, err := orch.Tree(context.Background())
	require.NoError(t, err)
	assert.Len(t, tree, 3)
}

func TestImportWithoutRefreshFails(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, testImportConfig(), testSnapshot())

	_, err := orch.Import(context.Background(), []string{"cat-pizza"})
	assert.Error(t, err)
}

func TestImportSyncPath(t *testing.T) {
	orch, st, _ := newTestOrchestrator(t, testImportConfig(), testSnapshot())

	_, err := orch.Refresh(context.Background())
	require.NoError(t, err)

	result, err := orch.Import(context.Background(), []string{"cat-pizza", "cat-hidden"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ImportedGroups)
	assert.Equal(t, 2, result.ImportedProducts)
	assert.Len(t, result.Inserted, 2)
	assert.NotEmpty(t, result.Notices)

	// Unpublished category skipped, unpublished product skipped.
	assert.Contains(t, st.categories, "Pizza")
	assert.NotContains(t, st.categories, "Hidden")
	assert.Len(t, st.products, 2)

	// Menu order decides materialization order: Diavola before Margherita.
	assert.Equal(t, "Diavola", result.Inserted[0])
	assert.Equal(t, "Margherita", result.Inserted[1])
}

func TestImportNoResolvableCategories(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, testImportConfig(), testSnapshot())

	_, err := orch.Refresh(context.Background())
	require.NoError(t, err)

	_, err = orch.Import(context.Background(), []string{"cat-hidden", "grp-toppings", "nope"})
	assert.Error(t, err)
}

func TestImportAsyncEnqueues(t *testing.T) {
	cfg := testImportConfig()
	cfg.Async = true
	orch, st, fq := newTestOrchestrator(t, cfg, testSnapshot())

	_, err := orch.Refresh(context.Background())
	require.NoError(t, err)

	result, err := orch.Import(context.Background(), []string{"cat-pizza"})
	require.NoError(t, err)

	assert.True(t, result.Async)
	assert.Equal(t, 2, result.Enqueued)
	assert.Len(t, fq.tasks, 2)
	assert.Equal(t, 1, fq.dispatches)

	// Nothing materialized yet.
	assert.Empty(t, st.products)
}

func TestImportLastCategoryWins(t *testing.T) {
	snap := testSnapshot()
	snap.Products = append(snap.Products, models.ProductSnapshot{
		ID: "shared", SKU: "SH-1", Name: "Combo", Type: models.ProductTypeDish,
		ParentCategoryID:  "cat-pizza",
		ParentCategoryIDs: []string{"cat-pizza", "cat-drinks"},
		IsPublished:       true,
	})

	cfg := testImportConfig()
	cfg.Async = true
	orch, st, fq := newTestOrchestrator(t, cfg, snap)

	_, err := orch.Refresh(context.Background())
	require.NoError(t, err)

	_, err = orch.Import(context.Background(), []string{"cat-pizza", "cat-drinks"})
	require.NoError(t, err)

	var comboTasks []models.ImportTask
	for _, task := range fq.tasks {
		if task.Product.ID == "shared" {
			comboTasks = append(comboTasks, task)
		}
	}
	require.Len(t, comboTasks, 1)
	assert.Equal(t, st.categories["Drinks"].ID, comboTasks[0].TargetCategoryID)
}

func TestImportMultiCategory(t *testing.T) {
	snap := testSnapshot()
	snap.Products = append(snap.Products, models.ProductSnapshot{
		ID: "shared", SKU: "SH-1", Name: "Combo", Type: models.ProductTypeDish,
		ParentCategoryID:  "cat-pizza",
		ParentCategoryIDs: []string{"cat-pizza", "cat-drinks"},
		IsPublished:       true,
	})

	cfg := testImportConfig()
	cfg.Async = true
	cfg.MultiCategory = true
	orch, _, fq := newTestOrchestrator(t, cfg, snap)

	_, err := orch.Refresh(context.Background())
	require.NoError(t, err)

	_, err = orch.Import(context.Background(), []string{"cat-pizza", "cat-drinks"})
	require.NoError(t, err)

	count := 0
	for _, task := range fq.tasks {
		if task.Product.ID == "shared" {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestRunScheduledDrain(t *testing.T) {
	orch, _, fq := newTestOrchestrator(t, testImportConfig(), testSnapshot())

	require.NoError(t, orch.RunScheduledDrain(context.Background()))
	assert.Equal(t, 1, fq.drains)
}
