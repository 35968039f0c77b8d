package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"ordersync/internal/awsutil"
	"ordersync/internal/config"
	"ordersync/internal/runlog"
)

// StatusHandler returns the recent run history from the run log.
// Query params: source (default "sync"), limit (default 20, max 100).
func StatusHandler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return errResp(500, err.Error())
	}
	if cfg.RunLogTable == "" {
		return errResp(500, "RUN_LOG_TABLE is not set")
	}

	source := strings.TrimSpace(req.QueryStringParameters["source"])
	if source == "" {
		source = "sync"
	}

	limit := int32(20)
	if s := strings.TrimSpace(req.QueryStringParameters["limit"]); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = int32(n)
		}
	}

	awsCfg, err := awsutil.LoadConfig(ctx)
	if err != nil {
		return errResp(500, "failed to init aws config")
	}

	rl := runlog.New(dynamodb.NewFromConfig(awsCfg), cfg.RunLogTable)
	entries, err := rl.Recent(ctx, source, limit)
	if err != nil {
		return errResp(500, err.Error())
	}
	if entries == nil {
		entries = []runlog.Entry{}
	}

	return jsonResp(200, map[string]any{
		"ok":     true,
		"source": source,
		"runs":   entries,
	})
}
