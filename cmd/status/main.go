package main

import (
	"ordersync/internal/handlers"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	lambda.Start(handlers.StatusHandler)
}
