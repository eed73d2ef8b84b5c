package aws

import (
	"context"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSAPI is the subset of the SQS client used by the queue broker.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
}

// NewSQSClient creates an SQS client from AWS config.
func NewSQSClient(cfg sdkaws.Config) *sqs.Client {
	return sqs.NewFromConfig(cfg)
}

// SQSQueueName maps a logical queue name to a valid SQS queue name.
// SQS names allow only alphanumerics, hyphens and underscores.
func SQSQueueName(logical string) string {
	return strings.ReplaceAll(logical, ".", "-")
}

// GetQueueURL retrieves the URL for a logical queue name.
func GetQueueURL(ctx context.Context, client SQSAPI, logical string) (string, error) {
	name := SQSQueueName(logical)
	result, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: &name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get queue URL for %s: %w", name, err)
	}
	if result.QueueUrl == nil {
		return "", fmt.Errorf("queue %s has no URL", name)
	}
	return *result.QueueUrl, nil
}
