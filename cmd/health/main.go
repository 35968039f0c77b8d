package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"ordersync/internal/handlers"
)

func main() {
	lambda.Start(handlers.HealthHandler)
}
