package reports

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"labreport-backend/internal/queue"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/storage/object"
	"labreport-backend/internal/shared/telemetry"
)

// Enqueue stages rawText in the object store and queues the report for the
// worker.
func (s *Service) Enqueue(ctx context.Context, reportID, rawText string) error {
	if s.Queue == nil {
		return ErrQueueDisabled
	}
	if s.Store == nil {
		return ErrStoreDisabled
	}
	if strings.TrimSpace(rawText) == "" {
		return ErrEmptyText
	}
	if _, err := s.Repo.GetByID(ctx, reportID); err != nil {
		return err
	}

	key := reportObjectKey(reportID, "input.txt")
	if _, err := s.Store.SaveWithKey(ctx, key, "text/plain; charset=utf-8", strings.NewReader(rawText)); err != nil {
		return eris.Wrap(err, "stage report text")
	}

	msg := queue.NewMessage(reportID, key, requestIDFromContext(ctx), time.Now())
	if err := s.Queue.Send(ctx, msg); err != nil {
		return eris.Wrap(err, "enqueue report")
	}
	metrics.IncJobsEnqueued()
	telemetry.Info("report.enqueued", map[string]any{
		"request_id": msg.RequestID,
		"report_id":  reportID,
		"text_key":   key,
	})
	return nil
}

// ProcessQueued loads the staged text for a queued report and runs the
// pipeline. Reports already past pending or processing are skipped.
func (s *Service) ProcessQueued(ctx context.Context, msg queue.Message) (Outcome, error) {
	if msg.RequestID != "" {
		ctx = WithRequestID(ctx, msg.RequestID)
	}
	report, err := s.Repo.GetByID(ctx, msg.ReportID)
	if err != nil {
		return Outcome{}, err
	}
	switch report.ProcessingStatus {
	case StatusCompleted, StatusRejected:
		telemetry.Info("report.queued_skip", map[string]any{
			"request_id": msg.RequestID,
			"report_id":  msg.ReportID,
			"status":     report.ProcessingStatus,
		})
		return Outcome{ReportID: msg.ReportID, Success: report.ProcessingStatus == StatusCompleted}, nil
	}
	if s.Store == nil {
		return Outcome{}, ErrStoreDisabled
	}

	key := msg.TextKey
	if key == "" {
		key = reportObjectKey(msg.ReportID, "input.txt")
	}
	raw, err := object.ReadAll(ctx, s.Store, key)
	if err != nil {
		return Outcome{}, eris.Wrapf(err, "read staged text %s", key)
	}
	return s.Analyze(ctx, msg.ReportID, string(raw))
}
