// Package etl feeds the analytics bucket: it fetches a window of orders
// and writes per-day Parquet aggregates under a Hive-style prefix.
package etl

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"ordersync/internal/awsutil"
	"ordersync/internal/config"
	"ordersync/internal/export"
	"ordersync/internal/ratelimit"
	"ordersync/internal/shopify"
)

// DailyMetrics is triggered by an EventBridge schedule.
//
// Env:
// - ANALYTICS_BUCKET (required)
// - DAILY_METRICS_PREFIX (default "daily_metrics/")
// - ETL_DAYS_BACK (default "1")  // number of days including today
func DailyMetrics(ctx context.Context, _ events.CloudWatchEvent) (map[string]any, error) {
	bucket := strings.TrimSpace(os.Getenv("ANALYTICS_BUCKET"))
	if bucket == "" {
		return nil, fmt.Errorf("missing env ANALYTICS_BUCKET")
	}
	prefix := strings.TrimSpace(os.Getenv("DAILY_METRICS_PREFIX"))

	daysBack := 1
	if v := strings.TrimSpace(os.Getenv("ETL_DAYS_BACK")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 90 {
			daysBack = n
		}
	}

	cfg, err := config.LoadShopify(ctx)
	if err != nil {
		return nil, err
	}

	shopClient := shopify.NewClient(cfg.ShopifyDomain, cfg.ShopifyToken, cfg.ShopifyAPIVersion, nil)
	limiter := ratelimit.New(cfg.ShopifyRPS, cfg.ShopifyConcurrency)

	now := time.Now().UTC()
	window := shopify.Window{
		CreatedAtMin: now.AddDate(0, 0, -daysBack).Format(time.RFC3339),
		CreatedAtMax: now.Format(time.RFC3339),
	}

	var orders []shopify.Order
	err = limiter.Execute(ctx, func(ctx context.Context) error {
		var err error
		orders, err = shopClient.ListOrders(ctx, window)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}

	rows := export.AggregateDaily(cfg.ShopifyDomain, orders)

	awsCfg, err := awsutil.LoadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	written, err := export.NewMetricsWriter(awsCfg, bucket, prefix).WriteRows(ctx, rows)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"ok":        true,
		"orders":    len(orders),
		"days_back": daysBack,
		"written":   written,
		"bucket":    bucket,
	}, nil
}
