// Package alerts publishes operator warnings over SNS. It exists so a run
// that skipped records after exhausting conflict retries is visible to a
// human, separately from ordinary fulfilled-order skips.
package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type Publisher struct {
	client   *sns.Client
	topicArn string
}

// NewPublisher returns nil when no topic is configured; callers treat a
// nil publisher as alerts-disabled.
func NewPublisher(cfg aws.Config, topicArn string) *Publisher {
	if strings.TrimSpace(topicArn) == "" {
		return nil
	}
	return &Publisher{client: sns.NewFromConfig(cfg), topicArn: topicArn}
}

// ConflictSkips warns that records were left stale because another writer
// kept winning. Failures here are returned but callers never treat them
// as fatal: alerting must not break the sync.
func (p *Publisher) ConflictSkips(ctx context.Context, source string, count int) error {
	if p == nil || count == 0 {
		return nil
	}

	subject := fmt.Sprintf("ordersync: %d conflict-skipped record(s)", count)
	message := fmt.Sprintf(
		"Run source: %s\nTime: %s\n\n%d record(s) were skipped after exhausting conflict retries.\n"+
			"If no one was editing these records, investigate: repeated conflicts can hide a writer bug.",
		source, time.Now().UTC().Format(time.RFC3339), count)

	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
