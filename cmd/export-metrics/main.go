package main

import (
	"ordersync/internal/etl"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	lambda.Start(etl.DailyMetrics)
}
