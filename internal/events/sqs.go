package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

const defaultRegion = "eu-central-1"

type SQSPublisher struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSPublisher sends every event as one message to queueURL. Credentials
// come from the default AWS chain; endpoint overrides the service URL.
func NewSQSPublisher(ctx context.Context, queueURL, region, endpoint string) (*SQSPublisher, error) {
	if queueURL == "" {
		return nil, errors.New("sqs: queue_url is required")
	}
	if region == "" {
		region = defaultRegion
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("sqs: unable to load SDK config: %w", err)
	}
	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &SQSPublisher{client: client, queueURL: queueURL}, nil
}

func (p *SQSPublisher) Name() string {
	return "sqs"
}

func (p *SQSPublisher) Publish(ctx context.Context, data []byte) error {
	_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(data)),
	})
	if err != nil {
		return fmt.Errorf("sqs: failed to send message: %w", err)
	}
	return nil
}

func (p *SQSPublisher) Close() error {
	return nil
}
