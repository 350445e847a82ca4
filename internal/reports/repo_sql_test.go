package reports

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*SQLRepo, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &SQLRepo{DB: sqlx.NewDb(conn, "pgx"), Now: func() time.Time { return fixed }}, mock
}

func TestSQLRepoUpdateWritesOnlySetColumns(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE medical_reports SET processing_status = $1, patient_friendly_analysis = $2, updated_at = $3 WHERE id = $4`)).
		WithArgs(StatusCompleted, "narrative", sqlmock.AnyArg(), "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "r1", Patch{
		ProcessingStatus:        strPtr(StatusCompleted),
		PatientFriendlyAnalysis: strPtr("narrative"),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepoUpdateWritesMirrorsWithAnalysis(t *testing.T) {
	repo, mock := newMockRepo(t)
	params, preds := sampleAnalysis()

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE medical_reports SET detailed_analysis = $1, prediction_details = $2, analysis_results = $3, predictions = $4, updated_at = $5 WHERE id = $6`)).
		WithArgs(
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			`[{"test":"Glucose","value":"180","range":"70-100","status":"abnormal","icon":"⚠️"},{"test":"Albumin","value":"4.1","range":"3.5-5.0","status":"normal","icon":"✅"}]`,
			`[{"risk_level":"High","condition":"Diabetes","recommendation":"High glucose"}]`,
			sqlmock.AnyArg(),
			"r1",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "r1", Patch{}.WithAnalysis(params, preds)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepoUpdateMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE medical_reports SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "nope", Patch{ProcessingStatus: strPtr(StatusFailed)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM medical_reports WHERE id = \\$1").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLRepoGetByIDToleratesBadJSON(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "profile_id", "file_name", "file_path", "file_type", "report_type",
		"validation_status", "validation_message", "processing_status", "ocr_text",
		"detailed_analysis", "prediction_details", "analysis_results", "predictions",
		"patient_friendly_analysis", "created_at", "updated_at",
	}).AddRow(
		"r1", "u1", "p1", "a.pdf", "u1/a.pdf", "application/pdf", "medical",
		"validated", "ok", "completed", "text",
		"not json", nil, `[{"test":"Urea","value":"28","range":"15-45","status":"normal","icon":"✅"}]`, nil,
		"", now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM medical_reports").WithArgs("r1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Empty(t, got.DetailedAnalysis)
	require.Len(t, got.AnalysisResults, 1)

	view := got.View()
	assert.True(t, view.Legacy)
	require.Len(t, view.Parameters, 1)
	assert.Equal(t, "Urea", view.Parameters[0].Parameter)
}

func TestSQLRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO medical_reports").
		WithArgs("r1", "u1", "p1", "a.pdf", "u1/a.pdf", "application/pdf", "",
			ValidationPending, "", StatusPending, "", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), Report{
		ID: "r1", UserID: "u1", ProfileID: "p1", FileName: "a.pdf", FilePath: "u1/a.pdf",
		FileType: "application/pdf", ValidationStatus: ValidationPending, ProcessingStatus: StatusPending,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
