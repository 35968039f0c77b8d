package sync

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ordersync/internal/notion"
	"ordersync/internal/ratelimit"
	"ordersync/internal/retry"
	"ordersync/internal/shopify"
)

// OrderGetter fetches a single order by id for cross-referencing.
type OrderGetter interface {
	GetOrder(ctx context.Context, id int64) (*shopify.Order, error)
}

// RecordWalker pages through every record in the destination store.
type RecordWalker interface {
	QueryPage(ctx context.Context, dataSourceID, cursor, dateProperty string) ([]notion.Page, string, error)
	UpdatePageProperties(ctx context.Context, pageID string, properties map[string]notion.Property) error
}

type BackfillSummary struct {
	Processed     int           `json:"processed"`
	Updated       int           `json:"updated"`
	Skipped       int           `json:"skipped"`
	ConflictSkips int           `json:"conflictSkips"`
	Errored       int           `json:"errored"`
	Elapsed       time.Duration `json:"-"`
}

type Backfill struct {
	Orders OrderGetter
	Store  RecordWalker

	ShopifyLimiter *ratelimit.Limiter
	NotionLimiter  *ratelimit.Limiter

	DataSourceID string
	DryRun       bool

	// records processed in parallel within one page; pages are sequential.
	Concurrency int
}

const defaultBackfillConcurrency = 3

// Run walks every record newest-first and fills in only missing select
// fields from the corresponding order. Populated fields are never
// overwritten. A record that keeps conflicting is silently skipped; any
// other per-record error is fatal for that record only.
func (b *Backfill) Run(ctx context.Context) (BackfillSummary, error) {
	start := time.Now()

	workers := b.Concurrency
	if workers <= 0 {
		workers = defaultBackfillConcurrency
	}

	var (
		mu  sync.Mutex
		sum BackfillSummary
	)

	cursor := ""
	page := 0
	for {
		page++

		var records []notion.Page
		var next string
		err := b.NotionLimiter.Execute(ctx, func(ctx context.Context) error {
			var err error
			records, next, err = b.Store.QueryPage(ctx, b.DataSourceID, cursor, PropDate)
			return err
		})
		if err != nil {
			return sum, fmt.Errorf("walk records page %d: %w", page, err)
		}

		sem := make(chan struct{}, workers)
		var wg sync.WaitGroup
		for i := range records {
			rec := &records[i]

			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()

				outcome := b.processRecord(ctx, rec)

				mu.Lock()
				sum.Processed++
				switch outcome {
				case backfillUpdated:
					sum.Updated++
				case backfillSkipped:
					sum.Skipped++
				case backfillConflict:
					sum.ConflictSkips++
				case backfillErrored:
					sum.Errored++
				}
				mu.Unlock()
			}()
		}
		wg.Wait()

		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		log.Printf("backfill: page %d done (processed=%d updated=%d skipped=%d)",
			page, sum.Processed, sum.Updated, sum.Skipped)

		if next == "" {
			break
		}
		cursor = next
	}

	sum.Elapsed = time.Since(start)
	return sum, nil
}

type backfillOutcome int

const (
	backfillUpdated backfillOutcome = iota
	backfillSkipped
	backfillConflict
	backfillErrored
)

func (b *Backfill) processRecord(ctx context.Context, rec *notion.Page) backfillOutcome {
	if !recordMissingFields(rec) {
		return backfillSkipped
	}

	orderID := int64(rec.NumberValue(PropOrderID))
	if orderID == 0 {
		// Manually created page without an order id; nothing to fill from.
		return backfillSkipped
	}

	var order *shopify.Order
	err := b.ShopifyLimiter.Execute(ctx, func(ctx context.Context) error {
		var err error
		order, err = b.Orders.GetOrder(ctx, orderID)
		return err
	})
	if err != nil {
		log.Printf("backfill: record %s: fetch order %d: %v", rec.ID, orderID, err)
		return backfillErrored
	}

	props := BackfillProperties(order, rec)
	if len(props) == 0 {
		return backfillSkipped
	}

	if b.DryRun {
		return backfillUpdated
	}

	err = retry.Do(ctx, retry.DefaultConflict, notion.IsConflict, func(ctx context.Context) error {
		return b.NotionLimiter.Execute(ctx, func(ctx context.Context) error {
			return b.Store.UpdatePageProperties(ctx, rec.ID, props)
		})
	})
	if err != nil {
		if notion.IsConflict(err) {
			log.Printf("backfill: record %s: conflict retries exhausted, skipping", rec.ID)
			return backfillConflict
		}
		log.Printf("backfill: record %s: %v", rec.ID, err)
		return backfillErrored
	}

	return backfillUpdated
}

func recordMissingFields(rec *notion.Page) bool {
	for _, name := range []string{PropChannel, PropPayment, PropFulfillment, PropDelivery, PropMethod} {
		if rec.SelectName(name) == "" {
			return true
		}
	}
	return false
}
