package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"ordersync/internal/notion"
	"ordersync/internal/ratelimit"
	"ordersync/internal/retry"
	"ordersync/internal/shopify"
)

// OrderSource fetches orders from the commerce platform.
type OrderSource interface {
	ListOrders(ctx context.Context, w shopify.Window) ([]shopify.Order, error)
}

// RecordStore is the destination the engine reconciles against.
type RecordStore interface {
	QueryByOrderNumber(ctx context.Context, dataSourceID string, orderID int64, idProperty string) (*notion.Page, error)
	CreatePage(ctx context.Context, dataSourceID string, properties map[string]notion.Property, children []notion.Block) (*notion.Page, error)
	UpdatePageProperties(ctx context.Context, pageID string, properties map[string]notion.Property) error
}

// Summary is the aggregate result of one reconciliation run. Conflict
// skips are counted apart from fulfilled skips so operators can tell
// "nothing to do" from "gave up under live edits".
type Summary struct {
	TotalOrders   int `json:"totalOrders"`
	Created       int `json:"notionCreated"`
	Updated       int `json:"notionUpdated"`
	Skipped       int `json:"notionSkipped"`
	ConflictSkips int `json:"notionConflictSkips"`
	Errors        int `json:"notionErrors"`
}

type Engine struct {
	Source OrderSource
	Store  RecordStore

	ShopifyLimiter *ratelimit.Limiter
	NotionLimiter  *ratelimit.Limiter

	DataSourceID string
	DryRun       bool

	// pause after each store-mutating call; overridable in tests.
	InterOrderDelay time.Duration
}

const defaultInterOrderDelay = 350 * time.Millisecond

// Run fetches the window's orders and applies the create/update/skip
// policy to each. Per-order failures are counted and logged, never fatal;
// a failed fetch aborts the whole run.
func (e *Engine) Run(ctx context.Context, w shopify.Window) (Summary, error) {
	delay := e.InterOrderDelay
	if delay <= 0 {
		delay = defaultInterOrderDelay
	}

	var orders []shopify.Order
	err := e.ShopifyLimiter.Execute(ctx, func(ctx context.Context) error {
		var err error
		orders, err = e.Source.ListOrders(ctx, w)
		return err
	})
	if err != nil {
		return Summary{}, fmt.Errorf("fetch orders: %w", err)
	}

	sum := Summary{TotalOrders: len(orders)}
	for i := range orders {
		o := &orders[i]

		wrote, err := e.processOrder(ctx, o, &sum)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			log.Printf("sync: order %s: %v", o.Name, err)
			sum.Errors++
		}
		if wrote {
			if err := sleepCtxEngine(ctx, delay); err != nil {
				return sum, err
			}
		}

		if (i+1)%25 == 0 {
			log.Printf("sync: processed %d/%d (created=%d updated=%d skipped=%d)",
				i+1, len(orders), sum.Created, sum.Updated, sum.Skipped)
		}
	}

	return sum, nil
}

// processOrder applies one of the three terminal actions. It reports
// whether a store-mutating call was issued.
func (e *Engine) processOrder(ctx context.Context, o *shopify.Order, sum *Summary) (bool, error) {
	var existing *notion.Page
	err := e.NotionLimiter.Execute(ctx, func(ctx context.Context) error {
		var err error
		existing, err = e.Store.QueryByOrderNumber(ctx, e.DataSourceID, o.ID, PropOrderID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("lookup: %w", err)
	}

	if existing == nil {
		return e.createRecord(ctx, o, sum)
	}

	// Fulfilled orders are terminal: the source side no longer changes,
	// so no write is issued at all.
	if o.Fulfilled() {
		sum.Skipped++
		return false, nil
	}

	return e.updateStatus(ctx, o, existing, sum)
}

func (e *Engine) createRecord(ctx context.Context, o *shopify.Order, sum *Summary) (bool, error) {
	if e.DryRun {
		sum.Created++
		return false, nil
	}

	props := MapProperties(o)
	blocks := BuildBlocks(o)

	err := e.NotionLimiter.Execute(ctx, func(ctx context.Context) error {
		_, err := e.Store.CreatePage(ctx, e.DataSourceID, props, blocks)
		return err
	})
	if err != nil {
		// Someone else created the record between lookup and create.
		if notion.IsConflict(err) {
			sum.Skipped++
			return true, nil
		}
		return true, fmt.Errorf("create: %w", err)
	}

	sum.Created++
	return true, nil
}

func (e *Engine) updateStatus(ctx context.Context, o *shopify.Order, page *notion.Page, sum *Summary) (bool, error) {
	if e.DryRun {
		sum.Updated++
		return false, nil
	}

	props := StatusProperties(o)

	err := retry.Do(ctx, retry.DefaultConflict, notion.IsConflict, func(ctx context.Context) error {
		return e.NotionLimiter.Execute(ctx, func(ctx context.Context) error {
			return e.Store.UpdatePageProperties(ctx, page.ID, props)
		})
	})
	if err != nil {
		// Repeated conflicts almost always mean a human is editing the
		// record right now; leave it alone and flag the run.
		if notion.IsConflict(err) {
			log.Printf("sync: order %s: conflict retries exhausted, skipping", o.Name)
			sum.ConflictSkips++
			return true, nil
		}
		return true, fmt.Errorf("update status: %w", err)
	}

	sum.Updated++
	return true, nil
}

func sleepCtxEngine(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
