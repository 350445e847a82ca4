package reports

import (
	"time"

	"labreport-backend/internal/labdata"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusRejected   = "rejected"
)

const (
	ValidationPending   = "pending"
	ValidationValidated = "validated"
	ValidationRejected  = "rejected"
)

const (
	ReportTypeMedical    = "medical"
	ReportTypeNonMedical = "non-medical"
)

// Report is one uploaded lab report and everything derived from it.
type Report struct {
	ID                      string                     `json:"id"`
	UserID                  string                     `json:"user_id"`
	ProfileID               string                     `json:"profile_id"`
	FileName                string                     `json:"file_name"`
	FilePath                string                     `json:"file_path"`
	FileType                string                     `json:"file_type"`
	ReportType              string                     `json:"report_type,omitempty"`
	ValidationStatus        string                     `json:"validation_status"`
	ValidationMessage       string                     `json:"validation_message,omitempty"`
	ProcessingStatus        string                     `json:"processing_status"`
	OCRText                 string                     `json:"ocr_text,omitempty"`
	DetailedAnalysis        []labdata.Parameter        `json:"detailed_analysis,omitempty"`
	PredictionDetails       []labdata.Prediction       `json:"prediction_details,omitempty"`
	AnalysisResults         []labdata.LegacyParameter  `json:"analysis_results,omitempty"`
	Predictions             []labdata.LegacyPrediction `json:"predictions,omitempty"`
	PatientFriendlyAnalysis string                     `json:"patient_friendly_analysis,omitempty"`
	CreatedAt               time.Time                  `json:"created_at"`
	UpdatedAt               time.Time                  `json:"updated_at"`
}

// Sources returns the stored columns in the shape Canonicalize accepts.
func (r Report) Sources() labdata.Sources {
	return labdata.Sources{
		DetailedAnalysis:  r.DetailedAnalysis,
		PredictionDetails: r.PredictionDetails,
		AnalysisResults:   r.AnalysisResults,
		Predictions:       r.Predictions,
	}
}

// View returns the canonical display view of the record.
func (r Report) View() labdata.View {
	return labdata.Canonicalize(r.Sources())
}

// Fragment is the normalized output of one extraction pass.
type Fragment struct {
	Parameters  []labdata.Parameter
	Predictions []labdata.Prediction
	PatientInfo labdata.PatientInfo
	// OCRText is the raw text plus an extracted patient-info block, if any.
	OCRText string
	// Source is the provenance of the non-backfilled rows: model or fallback_parser.
	Source labdata.Provenance
	// BackfillRows counts catalogue placeholder rows appended.
	BackfillRows int
}

// Classification is the verdict of the validation gate.
type Classification struct {
	IsMedical     bool
	Confidence    labdata.Confidence
	KeywordsFound []string
	Reason        string
	// Source is "model" or "keyword_fallback".
	Source string
}

// Outcome is the result of one pipeline invocation.
type Outcome struct {
	ReportID          string               `json:"report_id"`
	Success           bool                 `json:"success"`
	ValidationFailed  bool                 `json:"validation_failed,omitempty"`
	ReportType        string               `json:"report_type,omitempty"`
	ValidationStatus  string               `json:"validation_status,omitempty"`
	ValidationMessage string               `json:"validation_message,omitempty"`
	KeywordsFound     []string             `json:"medical_keywords_found,omitempty"`
	AnalysisTable     []labdata.Parameter  `json:"analysis_table,omitempty"`
	PredictionTable   []labdata.Prediction `json:"prediction_table,omitempty"`
	Narrative         string               `json:"patient_friendly_analysis,omitempty"`
	Error             string               `json:"error,omitempty"`
}
