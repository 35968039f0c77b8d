package handlers

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
)

// HealthHandler answers liveness checks without touching any upstream.
func HealthHandler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return jsonResp(200, map[string]any{
		"ok":      true,
		"service": "ordersync",
	})
}
