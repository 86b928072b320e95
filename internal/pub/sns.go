package pub

import (
	"authbot/internal/metrics"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	log "github.com/sirupsen/logrus"
)

const (
	EventSource = "authbot"

	DefaultPublishTimeout = 3 * time.Second
)

// snsAPI is the part of *sns.Client the publisher needs.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher sends auth events as JSON messages to an SNS topic.
type SNSPublisher struct {
	cli     snsAPI
	timeout time.Duration
}

func NewSNS(cli snsAPI) *SNSPublisher {
	return &SNSPublisher{cli: cli, timeout: DefaultPublishTimeout}
}

// PublishRaw publishes payload as is, bounded by the publisher timeout.
func (p *SNSPublisher) PublishRaw(ctx context.Context, arn string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.cli.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(arn),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"content-type": stringAttr("application/json"),
			"event-source": stringAttr(EventSource),
		},
	})
	if err != nil {
		metrics.EventPublished(metrics.ResultError)
		return fmt.Errorf("sns publish to %s: %w", arn, err)
	}
	metrics.EventPublished(metrics.ResultOK)
	log.WithFields(log.Fields{
		"topic":     arn,
		"messageID": aws.ToString(out.MessageId),
	}).Debug("Auth event published")
	return nil
}

func stringAttr(v string) snstypes.MessageAttributeValue {
	return snstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}

// Noop drops every message. Used when no events topic is configured.
type Noop struct{}

func (Noop) PublishRaw(context.Context, string, []byte) error {
	return nil
}
