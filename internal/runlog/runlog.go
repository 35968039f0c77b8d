// Package runlog appends one DynamoDB item per sync run and serves the
// recent history to the status endpoint. It is an audit trail only: the
// synchronizer never reads it to decide what to sync, so a lost write
// costs nothing but visibility.
package runlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Entry mirrors the DynamoDB item.
// PK = RUN#<source>, SK = RFC3339Nano start time.
type Entry struct {
	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"startedAt"`

	Source        string `dynamodbav:"Source" json:"source"`
	DryRun        bool   `dynamodbav:"DryRun" json:"dryRun"`
	TotalOrders   int    `dynamodbav:"TotalOrders" json:"totalOrders"`
	Created       int    `dynamodbav:"Created" json:"created"`
	Updated       int    `dynamodbav:"Updated" json:"updated"`
	Skipped       int    `dynamodbav:"Skipped" json:"skipped"`
	ConflictSkips int    `dynamodbav:"ConflictSkips" json:"conflictSkips"`
	Errors        int    `dynamodbav:"Errors" json:"errors"`
	ElapsedMS     int64  `dynamodbav:"ElapsedMS" json:"elapsedMs"`
}

type Log struct {
	client *dynamodb.Client
	table  string
}

// New returns nil when no table is configured; a nil log is a no-op.
func New(client *dynamodb.Client, table string) *Log {
	if strings.TrimSpace(table) == "" {
		return nil
	}
	return &Log{client: client, table: table}
}

func runPK(source string) string {
	return fmt.Sprintf("RUN#%s", source)
}

// Append records one finished run. Errors are returned for logging but
// must never abort the caller.
func (l *Log) Append(ctx context.Context, e Entry) error {
	if l == nil {
		return nil
	}

	e.PK = runPK(e.Source)
	if e.SK == "" {
		e.SK = time.Now().UTC().Format(time.RFC3339Nano)
	}

	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal run entry: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put run entry: %w", err)
	}
	return nil
}

// Recent returns the newest n runs for one source.
func (l *Log) Recent(ctx context.Context, source string, n int32) ([]Entry, error) {
	if l == nil {
		return nil, nil
	}
	if n <= 0 || n > 100 {
		n = 20
	}

	out, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.table),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: runPK(source)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(n),
	})
	if err != nil {
		return nil, fmt.Errorf("query run log: %w", err)
	}

	var entries []Entry
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal run log: %w", err)
	}
	return entries, nil
}
