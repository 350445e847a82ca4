package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"labreport-backend/internal/queue"
	"labreport-backend/internal/reports"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err error
}

func (f fakeProcessor) ProcessQueued(ctx context.Context, msg queue.Message) (reports.Outcome, error) {
	return reports.Outcome{ReportID: msg.ReportID, Success: f.err == nil}, f.err
}

func sqsMessage(id, body string) sqstypes.Message {
	return sqstypes.Message{
		MessageId:     aws.String("m-" + id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(body),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func encoded(t *testing.T, msg queue.Message) string {
	t.Helper()
	b, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(b)
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	body := encoded(t, queue.Message{ReportID: "report-1", RequestID: "req-1"})

	handleMessage(context.Background(), client, "queue", fakeProcessor{}, sqsMessage("1", body))

	if len(client.deleted) != 1 || client.deleted[0] != "r-1" {
		t.Fatalf("expected delete of r-1, got %v", client.deleted)
	}
}

func TestWorkerDoesNotDeleteOnFailure(t *testing.T) {
	client := &fakeSQS{}
	body := encoded(t, queue.Message{ReportID: "report-2", RequestID: "req-2"})

	handleMessage(context.Background(), client, "queue", fakeProcessor{err: errors.New("boom")}, sqsMessage("2", body))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesWhenReportIsGone(t *testing.T) {
	client := &fakeSQS{}
	body := encoded(t, queue.Message{ReportID: "report-3"})

	handleMessage(context.Background(), client, "queue", fakeProcessor{err: reports.ErrNotFound}, sqsMessage("3", body))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}

	handleMessage(context.Background(), client, "queue", fakeProcessor{}, sqsMessage("4", "{bad-json"))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := receiveCount(sqsMessage("5", "")); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}
