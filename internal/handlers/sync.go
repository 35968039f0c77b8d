package handlers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"ordersync/internal/alerts"
	"ordersync/internal/awsutil"
	"ordersync/internal/config"
	"ordersync/internal/notion"
	"ordersync/internal/ratelimit"
	"ordersync/internal/runlog"
	"ordersync/internal/shopify"
	"ordersync/internal/sync"
)

// SyncHandler runs one reconciliation pass over the last day's orders.
// Triggered on a schedule through API Gateway; callers can pass dryRun=1
// to count without writing, and from/to (RFC3339) to override the window.
func SyncHandler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return errResp(500, err.Error())
	}

	dryRun := isTruthy(req.QueryStringParameters["dryRun"])
	window := resolveWindow(cfg, req.QueryStringParameters, time.Now().UTC())

	engine, err := buildEngine(ctx, cfg, dryRun)
	if err != nil {
		return errResp(500, err.Error())
	}

	started := time.Now().UTC()
	sum, err := engine.Run(ctx, window)
	if err != nil {
		log.Printf("sync: run failed: %v", err)
		return errResp(500, err.Error())
	}

	recordRun(ctx, cfg, "sync", dryRun, started, sum)

	return jsonResp(200, map[string]any{
		"ok":                  true,
		"dryRun":              dryRun,
		"totalOrders":         sum.TotalOrders,
		"notionCreated":       sum.Created,
		"notionUpdated":       sum.Updated,
		"notionSkipped":       sum.Skipped,
		"notionConflictSkips": sum.ConflictSkips,
		"notionErrors":        sum.Errors,
	})
}

// resolveWindow picks the fetch window: last 24h by default, widened by
// the CREATED_AT_MIN/CREATED_AT_MAX env pins for manual runs, with
// from/to query params taking precedence over both.
func resolveWindow(cfg *config.Config, params map[string]string, now time.Time) shopify.Window {
	window := shopify.LastDay(now)
	if cfg.CreatedAtMin != "" {
		window.CreatedAtMin = cfg.CreatedAtMin
	}
	if cfg.CreatedAtMax != "" {
		window.CreatedAtMax = cfg.CreatedAtMax
	}
	if v := strings.TrimSpace(params["from"]); v != "" {
		window.CreatedAtMin = v
	}
	if v := strings.TrimSpace(params["to"]); v != "" {
		window.CreatedAtMax = v
	}
	return window
}

// buildEngine assembles clients, limiters, and the resolved data source
// id into a ready engine. Resolution happens once per run on purpose:
// caching the id across runs would hide database re-creation.
func buildEngine(ctx context.Context, cfg *config.Config, dryRun bool) (*sync.Engine, error) {
	shopClient := shopify.NewClient(cfg.ShopifyDomain, cfg.ShopifyToken, cfg.ShopifyAPIVersion, nil)
	notionClient := notion.NewClient(cfg.NotionToken, nil)

	dataSourceID := cfg.NotionDataSourceID
	if dataSourceID == "" {
		var err error
		dataSourceID, err = notionClient.ResolveDataSourceID(ctx, cfg.NotionDatabaseID)
		if err != nil {
			return nil, err
		}
	}

	return &sync.Engine{
		Source:         shopClient,
		Store:          notionClient,
		ShopifyLimiter: ratelimit.New(cfg.ShopifyRPS, cfg.ShopifyConcurrency),
		NotionLimiter:  ratelimit.New(cfg.NotionRPS, cfg.NotionConcurrency),
		DataSourceID:   dataSourceID,
		DryRun:         dryRun,
	}, nil
}

// recordRun appends the run log entry and raises the conflict alert.
// Both are best-effort.
func recordRun(ctx context.Context, cfg *config.Config, source string, dryRun bool, started time.Time, sum sync.Summary) {
	if cfg.RunLogTable == "" && cfg.AlertsTopicArn == "" {
		return
	}

	awsCfg, err := awsutil.LoadConfig(ctx)
	if err != nil {
		log.Printf("%s: load aws config: %v", source, err)
		return
	}

	rl := runlog.New(dynamodb.NewFromConfig(awsCfg), cfg.RunLogTable)
	if err := rl.Append(ctx, runlog.Entry{
		SK:            started.Format(time.RFC3339Nano),
		Source:        source,
		DryRun:        dryRun,
		TotalOrders:   sum.TotalOrders,
		Created:       sum.Created,
		Updated:       sum.Updated,
		Skipped:       sum.Skipped,
		ConflictSkips: sum.ConflictSkips,
		Errors:        sum.Errors,
		ElapsedMS:     time.Since(started).Milliseconds(),
	}); err != nil {
		log.Printf("%s: append run log: %v", source, err)
	}

	pub := alerts.NewPublisher(awsCfg, cfg.AlertsTopicArn)
	if err := pub.ConflictSkips(ctx, source, sum.ConflictSkips); err != nil {
		log.Printf("%s: publish alert: %v", source, err)
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
