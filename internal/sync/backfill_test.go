package sync

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordersync/internal/notion"
	"ordersync/internal/shopify"
)

type fakeGetter struct {
	orders map[int64]*shopify.Order
}

func (f *fakeGetter) GetOrder(ctx context.Context, id int64) (*shopify.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, &shopify.StatusError{StatusCode: 404, Status: "404 Not Found"}
	}
	return o, nil
}

type fakeWalker struct {
	mu    sync.Mutex
	pages [][]notion.Page

	updates   map[string]map[string]notion.Property
	updateErr error
}

func newFakeWalker(pages ...[]notion.Page) *fakeWalker {
	return &fakeWalker{pages: pages, updates: map[string]map[string]notion.Property{}}
}

func (f *fakeWalker) QueryPage(ctx context.Context, dataSourceID, cursor, dateProperty string) ([]notion.Page, string, error) {
	idx := 0
	if cursor != "" {
		idx = int(cursor[0] - '0')
	}
	if idx >= len(f.pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(f.pages) {
		next = string(rune('0' + idx + 1))
	}
	return f.pages[idx], next, nil
}

func (f *fakeWalker) UpdatePageProperties(ctx context.Context, pageID string, properties map[string]notion.Property) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[pageID] = properties
	return nil
}

func backfillPage(id string, orderID int64, filled map[string]string) notion.Page {
	props := map[string]notion.Property{
		PropOrderID: notion.NumberProp(float64(orderID)),
	}
	for name, v := range filled {
		props[name] = notion.SelectProp(v)
	}
	return notion.Page{ID: id, Properties: props}
}

func newTestBackfill(g *fakeGetter, w *fakeWalker) *Backfill {
	return &Backfill{
		Orders:         g,
		Store:          w,
		ShopifyLimiter: fastLimiter(),
		NotionLimiter:  fastLimiter(),
		DataSourceID:   "ds1",
		Concurrency:    2,
	}
}

func TestBackfillFillsOnlyMissingFields(t *testing.T) {
	o := sampleOrder()
	getter := &fakeGetter{orders: map[int64]*shopify.Order{o.ID: o}}
	walker := newFakeWalker([]notion.Page{
		backfillPage("p1", o.ID, map[string]string{PropChannel: "POS"}),
	})

	sum, err := newTestBackfill(getter, walker).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Updated)

	props := walker.updates["p1"]
	require.NotNil(t, props)
	assert.NotContains(t, props, PropChannel)
	assert.Contains(t, props, PropPayment)
	assert.Contains(t, props, PropFulfillment)
	assert.Contains(t, props, PropDelivery)
	assert.Contains(t, props, PropMethod)
}

func TestBackfillSkipsCompleteRecords(t *testing.T) {
	o := sampleOrder()
	full := map[string]string{
		PropChannel:     "Online Store",
		PropPayment:     "Paid",
		PropFulfillment: "unfulfilled",
		PropDelivery:    "pending",
		PropMethod:      "Standard Shipping",
	}
	getter := &fakeGetter{orders: map[int64]*shopify.Order{o.ID: o}}
	walker := newFakeWalker([]notion.Page{backfillPage("p1", o.ID, full)})

	sum, err := newTestBackfill(getter, walker).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.Updated)
	assert.Empty(t, walker.updates)
}

func TestBackfillSkipsRecordsWithoutOrderID(t *testing.T) {
	getter := &fakeGetter{orders: map[int64]*shopify.Order{}}
	walker := newFakeWalker([]notion.Page{
		{ID: "manual", Properties: map[string]notion.Property{}},
	})

	sum, err := newTestBackfill(getter, walker).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.Errored)
}

func TestBackfillCountsFetchFailures(t *testing.T) {
	getter := &fakeGetter{orders: map[int64]*shopify.Order{}}
	walker := newFakeWalker([]notion.Page{backfillPage("p1", 42, nil)})

	sum, err := newTestBackfill(getter, walker).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Errored)
}

func TestBackfillConflictExhaustIsSilentSkip(t *testing.T) {
	fastConflictPolicy(t)

	o := sampleOrder()
	getter := &fakeGetter{orders: map[int64]*shopify.Order{o.ID: o}}
	walker := newFakeWalker([]notion.Page{backfillPage("p1", o.ID, nil)})
	walker.updateErr = conflictErr()

	sum, err := newTestBackfill(getter, walker).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.ConflictSkips)
	assert.Zero(t, sum.Errored)
	assert.Zero(t, sum.Updated)
}

func TestBackfillWalksAllPages(t *testing.T) {
	o := sampleOrder()
	getter := &fakeGetter{orders: map[int64]*shopify.Order{o.ID: o}}
	walker := newFakeWalker(
		[]notion.Page{backfillPage("p1", o.ID, nil), backfillPage("p2", o.ID, nil)},
		[]notion.Page{backfillPage("p3", o.ID, nil)},
	)

	sum, err := newTestBackfill(getter, walker).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Processed)
	assert.Equal(t, 3, sum.Updated)
	assert.Len(t, walker.updates, 3)
}

func TestBackfillDryRun(t *testing.T) {
	o := sampleOrder()
	getter := &fakeGetter{orders: map[int64]*shopify.Order{o.ID: o}}
	walker := newFakeWalker([]notion.Page{backfillPage("p1", o.ID, nil)})

	b := newTestBackfill(getter, walker)
	b.DryRun = true
	sum, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Updated)
	assert.Empty(t, walker.updates)
}
