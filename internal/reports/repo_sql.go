package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"
)

const maxListLimit = 500

const reportColumns = `id, user_id, profile_id, file_name, file_path, file_type, report_type,
       validation_status, validation_message, processing_status, ocr_text,
       detailed_analysis, prediction_details, analysis_results, predictions,
       patient_friendly_analysis, created_at, updated_at`

// SQLRepo implements Repo on Postgres or SQLite through sqlx. Queries are
// written with ? placeholders and rebound for the handle's driver.
type SQLRepo struct {
	DB  *sqlx.DB
	Now func() time.Time
}

// NewSQLRepo constructs a SQLRepo.
func NewSQLRepo(db *sqlx.DB) *SQLRepo {
	return &SQLRepo{DB: db}
}

type reportRow struct {
	ID                      string         `db:"id"`
	UserID                  string         `db:"user_id"`
	ProfileID               string         `db:"profile_id"`
	FileName                string         `db:"file_name"`
	FilePath                string         `db:"file_path"`
	FileType                string         `db:"file_type"`
	ReportType              string         `db:"report_type"`
	ValidationStatus        string         `db:"validation_status"`
	ValidationMessage       string         `db:"validation_message"`
	ProcessingStatus        string         `db:"processing_status"`
	OCRText                 string         `db:"ocr_text"`
	DetailedAnalysis        sql.NullString `db:"detailed_analysis"`
	PredictionDetails       sql.NullString `db:"prediction_details"`
	AnalysisResults         sql.NullString `db:"analysis_results"`
	Predictions             sql.NullString `db:"predictions"`
	PatientFriendlyAnalysis string         `db:"patient_friendly_analysis"`
	CreatedAt               time.Time      `db:"created_at"`
	UpdatedAt               time.Time      `db:"updated_at"`
}

func (row reportRow) toReport() Report {
	r := Report{
		ID:                      row.ID,
		UserID:                  row.UserID,
		ProfileID:               row.ProfileID,
		FileName:                row.FileName,
		FilePath:                row.FilePath,
		FileType:                row.FileType,
		ReportType:              row.ReportType,
		ValidationStatus:        row.ValidationStatus,
		ValidationMessage:       row.ValidationMessage,
		ProcessingStatus:        row.ProcessingStatus,
		OCRText:                 row.OCRText,
		PatientFriendlyAnalysis: row.PatientFriendlyAnalysis,
		CreatedAt:               row.CreatedAt,
		UpdatedAt:               row.UpdatedAt,
	}
	// Malformed JSON columns read as empty; Canonicalize copes with gaps.
	unmarshalColumn(row.DetailedAnalysis, &r.DetailedAnalysis)
	unmarshalColumn(row.PredictionDetails, &r.PredictionDetails)
	unmarshalColumn(row.AnalysisResults, &r.AnalysisResults)
	unmarshalColumn(row.Predictions, &r.Predictions)
	return r
}

func unmarshalColumn[T any](col sql.NullString, dst *[]T) {
	if !col.Valid || strings.TrimSpace(col.String) == "" {
		return
	}
	var out []T
	if err := json.Unmarshal([]byte(col.String), &out); err != nil {
		return
	}
	*dst = out
}

func marshalColumn(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (r *SQLRepo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Create inserts a new report.
func (r *SQLRepo) Create(ctx context.Context, report Report) error {
	const query = `
INSERT INTO medical_reports (
	id, user_id, profile_id, file_name, file_path, file_type, report_type,
	validation_status, validation_message, processing_status, ocr_text,
	patient_friendly_analysis, created_at, updated_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := r.now()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(query),
		report.ID,
		report.UserID,
		report.ProfileID,
		report.FileName,
		report.FilePath,
		report.FileType,
		report.ReportType,
		report.ValidationStatus,
		report.ValidationMessage,
		report.ProcessingStatus,
		report.OCRText,
		report.PatientFriendlyAnalysis,
		report.CreatedAt,
		now,
	)
	if err != nil {
		return eris.Wrapf(err, "insert report %s", report.ID)
	}
	return nil
}

// GetByID returns a report by ID.
func (r *SQLRepo) GetByID(ctx context.Context, reportID string) (Report, error) {
	query := `SELECT ` + reportColumns + ` FROM medical_reports WHERE id = ?`
	var row reportRow
	if err := r.DB.GetContext(ctx, &row, r.DB.Rebind(query), reportID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Report{}, ErrNotFound
		}
		return Report{}, eris.Wrapf(err, "select report %s", reportID)
	}
	return row.toReport(), nil
}

// Update writes only the columns the patch sets, plus updated_at.
func (r *SQLRepo) Update(ctx context.Context, reportID string, patch Patch) error {
	sets := make([]string, 0, 11)
	args := make([]any, 0, 12)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.ReportType != nil {
		add("report_type", *patch.ReportType)
	}
	if patch.ValidationStatus != nil {
		add("validation_status", *patch.ValidationStatus)
	}
	if patch.ValidationMessage != nil {
		add("validation_message", *patch.ValidationMessage)
	}
	if patch.ProcessingStatus != nil {
		add("processing_status", *patch.ProcessingStatus)
	}
	if patch.OCRText != nil {
		add("ocr_text", *patch.OCRText)
	}
	if patch.PatientFriendlyAnalysis != nil {
		add("patient_friendly_analysis", *patch.PatientFriendlyAnalysis)
	}
	if a := patch.analysis; a != nil {
		columns := []struct {
			name  string
			value any
		}{
			{"detailed_analysis", a.detailed},
			{"prediction_details", a.predictionDetails},
			{"analysis_results", a.analysisResults},
			{"predictions", a.predictions},
		}
		for _, c := range columns {
			encoded, err := marshalColumn(c.value)
			if err != nil {
				return eris.Wrapf(err, "encode %s", c.name)
			}
			add(c.name, encoded)
		}
	}
	add("updated_at", r.now())
	args = append(args, reportID)

	query := `UPDATE medical_reports SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query), args...)
	if err != nil {
		return eris.Wrapf(err, "update report %s", reportID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOwner returns a profile's reports, newest first.
func (r *SQLRepo) ListByOwner(ctx context.Context, userID, profileID string, limit, offset int) ([]Report, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + reportColumns + ` FROM medical_reports
WHERE user_id = ? AND profile_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`
	var rows []reportRow
	if err := r.DB.SelectContext(ctx, &rows, r.DB.Rebind(query), userID, profileID, limit, offset); err != nil {
		return nil, eris.Wrap(err, "list reports")
	}
	out := make([]Report, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toReport())
	}
	return out, nil
}

// Delete removes a report row.
func (r *SQLRepo) Delete(ctx context.Context, reportID string) error {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`DELETE FROM medical_reports WHERE id = ?`), reportID)
	if err != nil {
		return eris.Wrapf(err, "delete report %s", reportID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*SQLRepo)(nil)
