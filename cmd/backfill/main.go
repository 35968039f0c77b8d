// Command backfill walks every record in the destination database and
// fills in select fields that older syncs left empty, without touching
// fields that already have values.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordersync/internal/config"
	"ordersync/internal/notion"
	"ordersync/internal/ratelimit"
	"ordersync/internal/shopify"
	"ordersync/internal/sync"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
	concurrency := flag.Int("concurrency", 3, "records processed in parallel per page")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *dryRun, *concurrency); err != nil {
		log.Printf("backfill: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dryRun bool, concurrency int) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	shopClient := shopify.NewClient(cfg.ShopifyDomain, cfg.ShopifyToken, cfg.ShopifyAPIVersion, nil)
	notionClient := notion.NewClient(cfg.NotionToken, nil)

	dataSourceID := cfg.NotionDataSourceID
	if dataSourceID == "" {
		dataSourceID, err = notionClient.ResolveDataSourceID(ctx, cfg.NotionDatabaseID)
		if err != nil {
			return err
		}
	}

	b := &sync.Backfill{
		Orders:         shopClient,
		Store:          notionClient,
		ShopifyLimiter: ratelimit.New(cfg.ShopifyRPS, cfg.ShopifyConcurrency),
		NotionLimiter:  ratelimit.New(cfg.NotionRPS, cfg.NotionConcurrency),
		DataSourceID:   dataSourceID,
		DryRun:         dryRun,
		Concurrency:    concurrency,
	}

	sum, err := b.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("processed:      %d\n", sum.Processed)
	fmt.Printf("updated:        %d\n", sum.Updated)
	fmt.Printf("skipped:        %d\n", sum.Skipped)
	fmt.Printf("conflict skips: %d\n", sum.ConflictSkips)
	fmt.Printf("errored:        %d\n", sum.Errored)
	fmt.Printf("elapsed:        %s\n", sum.Elapsed.Round(time.Second))
	if dryRun {
		fmt.Println("dry run: no records were written")
	}
	return nil
}
