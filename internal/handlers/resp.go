// Package handlers holds the Lambda entry handlers behind cmd/. Each
// handler wires the clients it needs from environment config, runs, and
// answers API Gateway with a JSON body.
package handlers

import (
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
)

func jsonResp(status int, v any) (events.APIGatewayV2HTTPResponse, error) {
	b, _ := json.Marshal(v)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"content-type":                "application/json",
			"access-control-allow-origin": "*",
		},
		Body: string(b),
	}, nil
}

func errResp(status int, msg string) (events.APIGatewayV2HTTPResponse, error) {
	return jsonResp(status, map[string]any{
		"ok":    false,
		"error": msg,
	})
}
