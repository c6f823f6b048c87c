package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
)

// SQSAPI is the subset of the SQS client used here.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends alerts to an AWS SQS queue.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
	now      func() time.Time
}

// NewSQSPublisher loads the default AWS config for region and targets queueURL.
func NewSQSPublisher(ctx context.Context, region, queueURL string) (*SQSPublisher, error) {
	if strings.TrimSpace(queueURL) == "" {
		return nil, fmt.Errorf("ALERT_SQS_QUEUE_URL is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if strings.TrimSpace(region) != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSQSPublisherWithClient(sqs.NewFromConfig(cfg), queueURL), nil
}

// NewSQSPublisherWithClient builds a publisher over an existing client.
func NewSQSPublisherWithClient(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL, now: time.Now}
}

// Publish delivers one alert.
func (p *SQSPublisher) Publish(ctx context.Context, alert analysis.Alert) error {
	payload, err := EncodeMessage(alert, p.now())
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"severity": {DataType: aws.String("String"), StringValue: aws.String(alert.Severity)},
			"camera":   {DataType: aws.String("String"), StringValue: aws.String(alert.CameraName)},
		},
	})
	if err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}

func (p *SQSPublisher) Close() error { return nil }
