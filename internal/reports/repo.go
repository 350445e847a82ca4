package reports

import (
	"context"

	"labreport-backend/internal/labdata"
)

// Repo defines persistence operations for reports.
type Repo interface {
	Create(ctx context.Context, report Report) error
	GetByID(ctx context.Context, reportID string) (Report, error)
	Update(ctx context.Context, reportID string, patch Patch) error
	ListByOwner(ctx context.Context, userID, profileID string, limit, offset int) ([]Report, error)
	Delete(ctx context.Context, reportID string) error
}

// Patch is a partial update. Nil fields are left untouched; the store always
// sets updated_at.
type Patch struct {
	ReportType              *string
	ValidationStatus        *string
	ValidationMessage       *string
	ProcessingStatus        *string
	OCRText                 *string
	PatientFriendlyAnalysis *string

	analysis *analysisColumns
}

type analysisColumns struct {
	detailed          []labdata.Parameter
	predictionDetails []labdata.Prediction
	analysisResults   []labdata.LegacyParameter
	predictions       []labdata.LegacyPrediction
}

// WithAnalysis sets the canonical rows and derives both legacy mirrors from
// them, so the four columns are always written together.
func (p Patch) WithAnalysis(params []labdata.Parameter, preds []labdata.Prediction) Patch {
	if params == nil {
		params = []labdata.Parameter{}
	}
	if preds == nil {
		preds = []labdata.Prediction{}
	}
	p.analysis = &analysisColumns{
		detailed:          params,
		predictionDetails: preds,
		analysisResults:   labdata.MirrorParameters(params),
		predictions:       labdata.MirrorPredictions(preds),
	}
	return p
}

// HasAnalysis reports whether WithAnalysis was applied.
func (p Patch) HasAnalysis() bool { return p.analysis != nil }

// IsEmpty reports whether the patch changes nothing besides updated_at.
func (p Patch) IsEmpty() bool {
	return p.ReportType == nil && p.ValidationStatus == nil && p.ValidationMessage == nil &&
		p.ProcessingStatus == nil && p.OCRText == nil && p.PatientFriendlyAnalysis == nil && p.analysis == nil
}

// Apply writes the patch onto r. Store implementations share it so the
// in-memory and SQL stores agree on semantics.
func (p Patch) Apply(r *Report) {
	if p.ReportType != nil {
		r.ReportType = *p.ReportType
	}
	if p.ValidationStatus != nil {
		r.ValidationStatus = *p.ValidationStatus
	}
	if p.ValidationMessage != nil {
		r.ValidationMessage = *p.ValidationMessage
	}
	if p.ProcessingStatus != nil {
		r.ProcessingStatus = *p.ProcessingStatus
	}
	if p.OCRText != nil {
		r.OCRText = *p.OCRText
	}
	if p.PatientFriendlyAnalysis != nil {
		r.PatientFriendlyAnalysis = *p.PatientFriendlyAnalysis
	}
	if a := p.analysis; a != nil {
		r.DetailedAnalysis = a.detailed
		r.PredictionDetails = a.predictionDetails
		r.AnalysisResults = a.analysisResults
		r.Predictions = a.predictions
	}
}

func strPtr(s string) *string { return &s }
