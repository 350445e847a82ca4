package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"labreport-backend/internal/bootstrap"
	"labreport-backend/internal/shared/config"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/telemetry"
	"labreport-backend/internal/workerproc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("load config", zap.Error(err))
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		zap.L().Fatal("init logger", zap.Error(err))
	}
	defer zap.L().Sync() //nolint:errcheck

	queueURL := strings.TrimSpace(cfg.Queue.SQSQueueURL)
	if queueURL == "" {
		zap.L().Fatal("SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	visibilitySeconds := cfg.Queue.VisibilitySecs
	concurrency := max(1, cfg.Queue.WorkerConcurrency)
	shutdownTimeout := time.Duration(cfg.Queue.ShutdownTimeoutSecs) * time.Second

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Queue.Region))
	if err != nil {
		zap.L().Fatal("load aws config", zap.Error(err))
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		zap.L().Fatal("bootstrap build", zap.Error(err))
	}
	defer app.Close()

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	zap.L().Info("worker started",
		zap.String("queue", queueURL),
		zap.Int("concurrency", concurrency),
		zap.Int("visibility_secs", visibilitySeconds),
	)

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(visibilitySeconds),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.IncJobsReceived()
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				// In-flight jobs finish even after shutdown is requested.
				handleMessage(context.WithoutCancel(ctx), sqsClient, queueURL, app.ReportsService, m)
			}(msg)
		}
	}

	zap.L().Info("shutdown requested", zap.Duration("wait", shutdownTimeout))
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		zap.L().Warn("shutdown timeout reached; exiting with in-flight jobs")
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func handleMessage(ctx context.Context, client sqsAPI, queueURL string, p workerproc.Processor, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	decoded, err := workerproc.HandleMessage(ctx, p, body)
	if err == nil {
		if deleteMessage(ctx, client, queueURL, msg, decoded.ReportID, decoded.RequestID) {
			telemetry.Info("worker.report.completed", baseFields(msg, decoded.ReportID, decoded.RequestID))
			metrics.IncJobsCompleted()
		}
		return
	}

	meta := workerproc.ComputeMeta(body)
	fields := baseFields(msg, decoded.ReportID, decoded.RequestID)
	fields["body_len"] = meta.BodyLen
	if meta.BodySHA != "" {
		fields["body_sha256"] = meta.BodySHA
	}
	fields["error"] = err

	if workerproc.Unrecoverable(err) {
		telemetry.Error("worker.report.dropped", fields)
		if deleteMessage(ctx, client, queueURL, msg, decoded.ReportID, decoded.RequestID) {
			metrics.IncJobsDeletedUnrecoverable()
		}
		return
	}

	// Left on the queue; SQS redelivers after the visibility timeout.
	telemetry.Error("worker.report.failed", fields)
	metrics.IncJobsFailed()
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, reportID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, reportID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.report.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, reportID, requestID)
		fields["error"] = err
		telemetry.Error("worker.report.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, reportID, requestID string) map[string]any {
	fields := map[string]any{
		"report_id":      reportID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
