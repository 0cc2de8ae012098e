package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"platesync/internal/config"
	"platesync/internal/importer"
	"platesync/internal/logger"
	"platesync/internal/models"
)

type memBacklog struct {
	items      [][]byte
	checkpoint []byte
	hasCheck   bool
}

func (m *memBacklog) Push(ctx context.Context, payload []byte) error {
	m.items = append(m.items, payload)
	return nil
}

func (m *memBacklog) Peek(ctx context.Context, n int) ([][]byte, error) {
	if n > len(m.items) {
		n = len(m.items)
	}
	out := make([][]byte, n)
	copy(out, m.items[:n])
	return out, nil
}

func (m *memBacklog) Discard(ctx context.Context, n int) error {
	if n > len(m.items) {
		n = len(m.items)
	}
	m.items = m.items[n:]
	return nil
}

func (m *memBacklog) Len(ctx context.Context) (int64, error) {
	return int64(len(m.items)), nil
}

func (m *memBacklog) LoadCheckpoint(ctx context.Context) ([]byte, bool, error) {
	return m.checkpoint, m.hasCheck, nil
}

func (m *memBacklog) SaveCheckpoint(ctx context.Context, payload []byte) error {
	m.checkpoint = payload
	m.hasCheck = true
	return nil
}

func (m *memBacklog) ClearCheckpoint(ctx context.Context) error {
	m.checkpoint = nil
	m.hasCheck = false
	return nil
}

type memTrigger struct {
	dispatches int
}

func (m *memTrigger) Dispatch(ctx context.Context) error {
	m.dispatches++
	return nil
}

// memStore is the minimal in-memory catalog the drained tasks write into.
type memStore struct {
	nextID   int
	products map[string]*models.Product
	order    []string
}

func newMemStore() *memStore {
	return &memStore{products: map[string]*models.Product{}}
}

func (s *memStore) UpsertCategoryByName(ctx context.Context, category *models.Category) (bool, error) {
	return false, nil
}

func (s *memStore) FindProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	for _, p := range s.products {
		if p.SKU == sku {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		s.nextID++
		product.ID = fmt.Sprintf("local-%d", s.nextID)
	}
	clone := *product
	s.products[product.ID] = &clone
	s.order = append(s.order, product.ID)
	return nil
}

func (s *memStore) SaveProduct(ctx context.Context, product *models.Product) error {
	clone := *product
	s.products[product.ID] = &clone
	return nil
}

func (s *memStore) ReplaceVariants(ctx context.Context, productID string, attributes []models.ProductAttribute, variants []models.ProductVariant) error {
	return nil
}

func (s *memStore) ListPublishedProductIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id, p := range s.products {
		if !p.DeletedAt.Valid {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *memStore) ListOutOfStockProductIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *memStore) FindProductIDsByVendorID(ctx context.Context, vendorID string) ([]string, error) {
	return nil, nil
}

func (s *memStore) SetStockStatus(ctx context.Context, productID string, status models.StockStatus) error {
	return nil
}

func (s *memStore) TrashProduct(ctx context.Context, productID string) error {
	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("product %s not found", productID)
	}
	p.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

// hookStore lets a test observe the backlog while a task materializes.
type hookStore struct {
	*memStore
	onCreate func()
}

func (h *hookStore) CreateProduct(ctx context.Context, product *models.Product) error {
	if h.onCreate != nil {
		h.onCreate()
	}
	return h.memStore.CreateProduct(ctx, product)
}

type memStock struct{}

func (memStock) FetchUnavailableItems(ctx context.Context, orgID string) (map[string]float64, error) {
	return nil, nil
}

func newTestQueue(st importer.Store, cfg config.ImportConfig) (*Queue, *memBacklog, *memTrigger) {
	backlog := &memBacklog{}
	trigger := &memTrigger{}
	mat := importer.NewMaterializer(st, cfg, logger.Nop())
	rec := importer.NewReconciler(st, memStock{}, cfg, "org", logger.Nop())
	return New(backlog, trigger, mat, rec, logger.Nop()), backlog, trigger
}

func task(id, sku, name string) models.ImportTask {
	return models.ImportTask{
		Product: models.ProductSnapshot{ID: id, SKU: sku, Name: name},
	}
}

func TestDrainProcessesFIFO(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	q, backlog, trigger := newTestQueue(st, config.ImportConfig{})

	require.NoError(t, q.Enqueue(ctx, task("v1", "A", "first")))
	require.NoError(t, q.Enqueue(ctx, task("v2", "B", "second")))
	require.NoError(t, q.Enqueue(ctx, task("v3", "C", "third")))

	require.NoError(t, q.Drain(ctx, 2))

	// First two tasks materialized in order, one pending, trigger fired.
	require.Len(t, st.order, 2)
	assert.Equal(t, "A", st.products[st.order[0]].SKU)
	assert.Equal(t, "B", st.products[st.order[1]].SKU)
	assert.Equal(t, 1, trigger.dispatches)
	assert.True(t, backlog.hasCheck)

	require.NoError(t, q.Drain(ctx, 2))

	require.Len(t, st.order, 3)
	assert.Equal(t, "C", st.products[st.order[2]].SKU)
	assert.Equal(t, 1, trigger.dispatches)
	assert.False(t, backlog.hasCheck)
	n, _ := backlog.Len(ctx)
	assert.Zero(t, n)
}

func TestDrainKeepsTasksDurableUntilMaterialized(t *testing.T) {
	ctx := context.Background()
	st := &hookStore{memStore: newMemStore()}
	q, backlog, _ := newTestQueue(st, config.ImportConfig{})

	require.NoError(t, q.Enqueue(ctx, task("v1", "A", "first")))
	require.NoError(t, q.Enqueue(ctx, task("v2", "B", "second")))

	var seen []int64
	st.onCreate = func() {
		n, err := backlog.Len(ctx)
		require.NoError(t, err)
		seen = append(seen, n)
	}

	require.NoError(t, q.Drain(ctx, 2))

	// Both tasks were still in durable storage while their batch ran, so a
	// tick dying mid-batch leaves them in place to re-run.
	assert.Equal(t, []int64{2, 2}, seen)

	n, err := backlog.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrainReconcilesOnceWhenEmpty(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()

	stale := &models.Product{SKU: "OLD", Name: "stale", VendorID: "gone"}
	require.NoError(t, st.CreateProduct(ctx, stale))

	q, _, _ := newTestQueue(st, config.ImportConfig{DeleteStale: true})

	require.NoError(t, q.Enqueue(ctx, task("v1", "A", "fresh")))
	require.NoError(t, q.Enqueue(ctx, task("v2", "B", "fresher")))

	// Stale product survives the first tick; the sweep runs at the end.
	require.NoError(t, q.Drain(ctx, 1))
	assert.False(t, st.products[stale.ID].DeletedAt.Valid)

	require.NoError(t, q.Drain(ctx, 1))
	assert.True(t, st.products[stale.ID].DeletedAt.Valid)

	fresh, err := st.FindProductBySKU(ctx, "A")
	require.NoError(t, err)
	assert.False(t, fresh.DeletedAt.Valid)
}

func TestDrainStrayTick(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()

	stale := &models.Product{SKU: "OLD", Name: "stale"}
	require.NoError(t, st.CreateProduct(ctx, stale))

	q, _, trigger := newTestQueue(st, config.ImportConfig{DeleteStale: true})

	// Empty backlog, no checkpoint: nothing happens.
	require.NoError(t, q.Drain(ctx, 5))
	assert.Zero(t, trigger.dispatches)
	assert.False(t, st.products[stale.ID].DeletedAt.Valid)
}

func TestDrainAccumulatesStatsAcrossTicks(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	q, backlog, _ := newTestQueue(st, config.ImportConfig{})

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, task(
			fmt.Sprintf("v%d", i),
			fmt.Sprintf("SKU-%d", i),
			fmt.Sprintf("item %d", i),
		)))
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Drain(ctx, 2))
	}

	assert.Len(t, st.products, 5)
	assert.False(t, backlog.hasCheck)
	n, _ := backlog.Len(ctx)
	assert.Zero(t, n)
}

func TestDrainDropsUndecodableTask(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	q, backlog, _ := newTestQueue(st, config.ImportConfig{})

	require.NoError(t, backlog.Push(ctx, []byte("not json")))
	require.NoError(t, q.Enqueue(ctx, task("v1", "A", "good")))

	require.NoError(t, q.Drain(ctx, 5))

	assert.Len(t, st.products, 1)
}
