package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"labreport-backend/internal/shared/storage/object"
	"labreport-backend/internal/shared/telemetry"
)

// Create stores the uploaded file and records a pending report for the
// session's profile.
func (s *Service) Create(ctx context.Context, sess Session, fileName, fileType string, body io.Reader) (Report, error) {
	if !sess.Valid() || strings.TrimSpace(fileName) == "" {
		return Report{}, ErrInvalidInput
	}
	if s.Store == nil {
		return Report{}, ErrStoreDisabled
	}

	storageKey, _, mimeType, err := s.Store.Save(ctx, sess.UserID, fileName, body)
	if err != nil {
		if errors.Is(err, object.ErrInvalidFileName) {
			return Report{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return Report{}, eris.Wrap(err, "store upload")
	}
	if fileType == "" {
		fileType = mimeType
	}

	now := time.Now().UTC()
	report := Report{
		ID:               uuid.NewString(),
		UserID:           sess.UserID,
		ProfileID:        sess.ProfileID,
		FileName:         fileName,
		FilePath:         storageKey,
		FileType:         fileType,
		ValidationStatus: ValidationPending,
		ProcessingStatus: StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Repo.Create(ctx, report); err != nil {
		if delErr := s.Store.Delete(ctx, storageKey); delErr != nil {
			telemetry.Warn("report.upload_cleanup_failed", map[string]any{
				"request_id": requestIDFromContext(ctx),
				"key":        storageKey,
				"error":      delErr,
			})
		}
		return Report{}, eris.Wrap(err, "create report")
	}
	telemetry.Info("report.created", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"report_id":  report.ID,
		"profile_id": sess.ProfileID,
		"file_type":  fileType,
	})
	return report, nil
}

// Get returns a report owned by the session's profile.
func (s *Service) Get(ctx context.Context, sess Session, reportID string) (Report, error) {
	report, err := s.Repo.GetByID(ctx, reportID)
	if err != nil {
		return Report{}, err
	}
	if report.UserID != sess.UserID || report.ProfileID != sess.ProfileID {
		return Report{}, ErrForbidden
	}
	return report, nil
}

// List returns the session profile's reports, newest first.
func (s *Service) List(ctx context.Context, sess Session, limit, offset int) ([]Report, error) {
	if !sess.Valid() {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByOwner(ctx, sess.UserID, sess.ProfileID, limit, offset)
}

// Delete removes the record and then the uploaded file. A missing file is
// not an error.
func (s *Service) Delete(ctx context.Context, sess Session, reportID string) error {
	report, err := s.Get(ctx, sess, reportID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, reportID); err != nil {
		return err
	}
	if s.Store == nil {
		return nil
	}
	keys := []string{report.FilePath, reportObjectKey(reportID, "input.txt"), reportObjectKey(reportID, "extraction.txt")}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, object.ErrNotFound) {
			telemetry.Warn("report.object_delete_failed", map[string]any{
				"request_id": requestIDFromContext(ctx),
				"report_id":  reportID,
				"key":        key,
				"error":      err,
			})
		}
	}
	return nil
}

// Summary is the dashboard grouping of a profile's reports.
type Summary struct {
	Completed  []Report `json:"completed"`
	InProgress []Report `json:"in_progress"`
	Failed     []Report `json:"failed"`
	Rejected   []Report `json:"rejected"`
	Total      int      `json:"total"`
}

// Summary groups the session profile's reports by lifecycle state.
func (s *Service) Summary(ctx context.Context, sess Session) (Summary, error) {
	list, err := s.List(ctx, sess, 0, 0)
	if err != nil {
		return Summary{}, err
	}
	return groupReports(list), nil
}

func groupReports(list []Report) Summary {
	out := Summary{
		Completed:  []Report{},
		InProgress: []Report{},
		Failed:     []Report{},
		Rejected:   []Report{},
		Total:      len(list),
	}
	for _, r := range list {
		switch {
		case r.ProcessingStatus == StatusRejected || r.ValidationStatus == ValidationRejected:
			out.Rejected = append(out.Rejected, r)
		case r.ProcessingStatus == StatusFailed:
			out.Failed = append(out.Failed, r)
		case r.ProcessingStatus == StatusCompleted && r.ValidationStatus == ValidationValidated:
			out.Completed = append(out.Completed, r)
		default:
			out.InProgress = append(out.InProgress, r)
		}
	}
	return out
}
