package aws

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	calls  int
	values map[string]string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[*in.SecretId]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: sdkaws.String(v)}, nil
}

func TestSecretsClient_CachesValues(t *testing.T) {
	fake := &fakeSecrets{values: map[string]string{"notification/WEBHOOK_SECRET": "s3cr3t"}}
	client := newSecretsClient(fake)

	v, err := client.GetSecret(context.Background(), "notification/WEBHOOK_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", v)

	_, err = client.GetSecret(context.Background(), "notification/WEBHOOK_SECRET")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)

	_, err = client.GetSecret(context.Background(), "missing")
	assert.Error(t, err)
}

func TestSecretsClient_GetJSONSecret(t *testing.T) {
	fake := &fakeSecrets{values: map[string]string{
		"db":  `{"POSTGRES_USER":"pay","POSTGRES_PASSWORD":"pw"}`,
		"bad": `not-json`,
	}}
	client := newSecretsClient(fake)

	m, err := client.GetJSONSecret(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, "pay", m["POSTGRES_USER"])

	_, err = client.GetJSONSecret(context.Background(), "bad")
	assert.Error(t, err)
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestMetricsClient_DisabledSendsNothing(t *testing.T) {
	fake := &fakeCloudWatch{}
	m := &MetricsClient{client: fake, namespace: "Test", enabled: false}

	require.NoError(t, m.RecordCount(context.Background(), MetricPaymentSucceeded, nil))
	assert.Empty(t, fake.inputs)

	var nilClient *MetricsClient
	assert.NoError(t, nilClient.RecordCount(context.Background(), MetricPaymentFailed, nil))
	assert.False(t, nilClient.IsEnabled())
}

func TestMetricsClient_RecordCountSortsDimensions(t *testing.T) {
	fake := &fakeCloudWatch{}
	m := &MetricsClient{client: fake, namespace: "Test", enabled: true}

	err := m.RecordCount(context.Background(), MetricPaymentSucceeded, map[string]string{
		"Service": "payment-service",
		"Method":  "card",
	})
	require.NoError(t, err)
	require.Len(t, fake.inputs, 1)

	datum := fake.inputs[0].MetricData[0]
	assert.Equal(t, MetricPaymentSucceeded, *datum.MetricName)
	assert.Equal(t, 1.0, *datum.Value)
	require.Len(t, datum.Dimensions, 2)
	assert.Equal(t, "Method", *datum.Dimensions[0].Name)
	assert.Equal(t, "Service", *datum.Dimensions[1].Name)
}

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{}, f.err
}

func TestSNSClient_Publish(t *testing.T) {
	fake := &fakeSNS{}
	client := &SNSClient{client: fake}

	err := client.Publish(context.Background(), "arn:aws:sns:eu-west-2:000000000000:payment-events", "payment.succeeded", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, *fake.input.Message)
	assert.Equal(t, "payment.succeeded", *fake.input.MessageAttributes["event_type"].StringValue)

	assert.Error(t, client.Publish(context.Background(), "", "x", nil))

	fake.err = errors.New("throttled")
	assert.Error(t, client.Publish(context.Background(), "arn", "", nil))
}

type fakeQueueURLs struct {
	sqsAPIStub
}

func (fakeQueueURLs) GetQueueUrl(_ context.Context, in *sqs.GetQueueUrlInput, _ ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	return &sqs.GetQueueUrlOutput{QueueUrl: sdkaws.String("http://localhost:4566/000000000000/" + *in.QueueName)}, nil
}

type sqsAPIStub struct{}

func (sqsAPIStub) SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return &sqs.SendMessageOutput{}, nil
}
func (sqsAPIStub) ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}
func (sqsAPIStub) DeleteMessage(context.Context, *sqs.DeleteMessageInput, ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	return &sqs.DeleteMessageOutput{}, nil
}
func (sqsAPIStub) ChangeMessageVisibility(context.Context, *sqs.ChangeMessageVisibilityInput, ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func TestGetQueueURL_MapsDots(t *testing.T) {
	url, err := GetQueueURL(context.Background(), fakeQueueURLs{}, "payment.succeeded")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4566/000000000000/payment-succeeded", url)
	assert.Equal(t, "payment-failed", SQSQueueName("payment.failed"))
}
