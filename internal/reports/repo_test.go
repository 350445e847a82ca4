package reports

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labreport-backend/internal/labdata"
	"labreport-backend/internal/shared/storage/db"
)

func sampleAnalysis() ([]labdata.Parameter, []labdata.Prediction) {
	params := []labdata.Parameter{
		{Parameter: "Glucose", Value: "180", Unit: "mg/dL", ReportRange: "70-100", NormalRange: "70-100", Status: labdata.StatusAbnormal, Provenance: labdata.ProvenanceModel},
		{Parameter: "Albumin", Value: "4.1", Unit: "g/dL", NormalRange: "3.5-5.0", Status: labdata.StatusNormal, Provenance: labdata.ProvenanceCatalogueBackfill},
	}
	preds := []labdata.Prediction{
		{Condition: "Diabetes", Confidence: labdata.ConfidenceHigh, LinkedValues: []string{"Glucose"}, Reason: "High glucose", Citation: "ADA", Provenance: labdata.ProvenanceModel},
	}
	return params, preds
}

func TestPatchWithAnalysisDerivesMirrors(t *testing.T) {
	params, preds := sampleAnalysis()
	patch := Patch{}.WithAnalysis(params, preds)
	require.True(t, patch.HasAnalysis())

	var r Report
	patch.Apply(&r)

	require.Len(t, r.AnalysisResults, 2)
	assert.Equal(t, labdata.LegacyParameter{Test: "Glucose", Value: "180", Range: "70-100", Status: "abnormal", Icon: "⚠️"}, r.AnalysisResults[0])
	assert.Equal(t, labdata.LegacyParameter{Test: "Albumin", Value: "4.1", Range: "3.5-5.0", Status: "normal", Icon: "✅"}, r.AnalysisResults[1])
	require.Len(t, r.Predictions, 1)
	assert.Equal(t, labdata.LegacyPrediction{RiskLevel: "High", Condition: "Diabetes", Recommendation: "High glucose"}, r.Predictions[0])
}

func TestPatchIsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, Patch{ProcessingStatus: strPtr(StatusFailed)}.IsEmpty())
	assert.False(t, Patch{}.WithAnalysis(nil, nil).IsEmpty())
}

// repoContract runs the same behavior checks against every Repo.
func repoContract(t *testing.T, repo Repo) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"r-old", "r-new", "r-other"} {
		profile := "p1"
		if id == "r-other" {
			profile = "p2"
		}
		require.NoError(t, repo.Create(ctx, Report{
			ID: id, UserID: "u1", ProfileID: profile, FileName: id + ".pdf",
			ProcessingStatus: StatusPending, ValidationStatus: ValidationPending,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	got, err := repo.GetByID(ctx, "r-old")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.ProcessingStatus)
	assert.Empty(t, got.DetailedAnalysis)

	params, preds := sampleAnalysis()
	require.NoError(t, repo.Update(ctx, "r-old", Patch{
		ProcessingStatus: strPtr(StatusCompleted),
		ValidationStatus: strPtr(ValidationValidated),
	}.WithAnalysis(params, preds)))

	got, err = repo.GetByID(ctx, "r-old")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.ProcessingStatus)
	assert.Equal(t, ValidationValidated, got.ValidationStatus)
	assert.Equal(t, "r-old.pdf", got.FileName)
	assert.Equal(t, params, got.DetailedAnalysis)
	assert.Equal(t, preds, got.PredictionDetails)
	assert.Equal(t, labdata.MirrorParameters(params), got.AnalysisResults)
	assert.Equal(t, labdata.MirrorPredictions(preds), got.Predictions)

	// A later narrative-only patch leaves the analysis columns alone.
	require.NoError(t, repo.Update(ctx, "r-old", Patch{PatientFriendlyAnalysis: strPtr("## Summary")}))
	got, err = repo.GetByID(ctx, "r-old")
	require.NoError(t, err)
	assert.Equal(t, "## Summary", got.PatientFriendlyAnalysis)
	assert.Len(t, got.DetailedAnalysis, 2)

	list, err := repo.ListByOwner(ctx, "u1", "p1", 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r-new", list[0].ID)
	assert.Equal(t, "r-old", list[1].ID)

	list, err = repo.ListByOwner(ctx, "u1", "p1", 1, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r-old", list[0].ID)

	assert.ErrorIs(t, repo.Update(ctx, "missing", Patch{ProcessingStatus: strPtr(StatusFailed)}), ErrNotFound)
	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "r-new"))
	_, err = repo.GetByID(ctx, "r-new")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "r-new"), ErrNotFound)
}

func TestMemoryRepoContract(t *testing.T) {
	repoContract(t, NewMemoryRepo())
}

func TestSQLRepoContractSQLite(t *testing.T) {
	dsn, err := db.SQLiteDSN(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	handle, err := db.Connect(context.Background(), db.DriverSQLite, dsn, db.SQLiteOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), handle))

	repoContract(t, NewSQLRepo(handle))
}

func TestMemoryRepoHonorsCanceledContext(t *testing.T) {
	repo := NewMemoryRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, repo.Create(ctx, Report{ID: "x"}))
}
