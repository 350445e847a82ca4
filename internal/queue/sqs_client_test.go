package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSClientSendEncodesMessage(t *testing.T) {
	api := &fakeSQS{}
	client := NewSQSClientWithAPI(api, "https://sqs.example/queue")

	require.NoError(t, client.Send(context.Background(), Message{ReportID: "r-1", TextKey: "k", Version: MessageVersion}))
	require.NotNil(t, api.input)
	assert.Equal(t, "https://sqs.example/queue", aws.ToString(api.input.QueueUrl))

	decoded, err := DecodeMessage([]byte(aws.ToString(api.input.MessageBody)))
	require.NoError(t, err)
	assert.Equal(t, "r-1", decoded.ReportID)
}

func TestSQSClientSendWrapsError(t *testing.T) {
	boom := errors.New("throttled")
	client := NewSQSClientWithAPI(&fakeSQS{err: boom}, "q")

	err := client.Send(context.Background(), Message{ReportID: "r"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestNewSQSClientRequiresURL(t *testing.T) {
	_, err := NewSQSClient(context.Background(), " ", "")
	assert.Error(t, err)
}
