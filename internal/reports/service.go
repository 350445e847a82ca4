package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"labreport-backend/internal/labdata"
	"labreport-backend/internal/llm"
	"labreport-backend/internal/queue"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/storage/object"
	"labreport-backend/internal/shared/telemetry"
)

// FallbackNarrative replaces the patient-facing summary when the model
// cannot produce one.
const FallbackNarrative = "## Health Analysis\n\nYour report has been processed successfully. Please consult with your healthcare provider for detailed interpretation."

// Service runs the report pipeline: validate, extract, normalize, persist,
// narrate.
type Service struct {
	Repo  Repo
	LLM   llm.Client
	Store object.ObjectStore
	Queue queue.Client
	// LLMTimeout bounds each model call. Zero leaves only the caller's deadline.
	LLMTimeout time.Duration
	// Catalogue overrides the embedded keyword and backfill catalogue.
	Catalogue *Catalogue
}

func (s *Service) catalogue() Catalogue {
	if s.Catalogue != nil {
		return *s.Catalogue
	}
	return DefaultCatalogue()
}

func (s *Service) generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	client := s.LLM
	if client == nil {
		client = llm.PlaceholderClient{}
	}
	if s.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.LLMTimeout)
		defer cancel()
	}
	return client.Generate(ctx, prompt, opts)
}

// Analyze runs the full pipeline for one report. A non-medical document is
// not an error: the outcome carries ValidationFailed instead.
func (s *Service) Analyze(ctx context.Context, reportID, rawText string) (Outcome, error) {
	if strings.TrimSpace(reportID) == "" {
		return Outcome{}, eris.New("reportID is required")
	}
	if strings.TrimSpace(rawText) == "" {
		return Outcome{ReportID: reportID, Error: ErrEmptyText.Error()}, ErrEmptyText
	}
	startedAt := time.Now()

	c, err := s.Validate(ctx, reportID, rawText)
	if err != nil {
		return Outcome{ReportID: reportID, Error: ErrSaveFailed.Error()}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	verdict := verdictFor(c)
	if !c.IsMedical {
		return Outcome{
			ReportID:          reportID,
			ValidationFailed:  true,
			ReportType:        verdict.reportType,
			ValidationStatus:  verdict.validation,
			ValidationMessage: verdict.message,
			KeywordsFound:     c.KeywordsFound,
			Error:             RejectionMessage,
		}, nil
	}

	modelOutput, err := s.generate(ctx, llm.BuildExtractionPrompt(rawText), llm.ExtractionOptions)
	if err != nil {
		s.fail(ctx, reportID, eris.Wrap(err, "llm extraction"), startedAt)
		return Outcome{ReportID: reportID, Error: ErrAnalysisFailed.Error()}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	s.archive(ctx, reportID, "extraction.txt", modelOutput)

	frag := NormalizeWith(s.catalogue(), rawText, modelOutput)
	if frag.Source == labdata.ProvenanceFallbackParser {
		metrics.IncExtractionFallback()
	}
	metrics.AddBackfillRows(frag.BackfillRows)

	patch := Patch{
		ReportType:       strPtr(ReportTypeMedical),
		ValidationStatus: strPtr(ValidationValidated),
		ProcessingStatus: strPtr(StatusCompleted),
		OCRText:          &frag.OCRText,
	}.WithAnalysis(frag.Parameters, frag.Predictions)
	if err := s.Repo.Update(ctx, reportID, patch); err != nil {
		s.fail(ctx, reportID, eris.Wrap(err, "save analysis"), startedAt)
		return Outcome{ReportID: reportID, Error: ErrSaveFailed.Error()}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	telemetry.Info("report.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"report_id":         reportID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"parameters":        len(frag.Parameters),
		"backfill_rows":     frag.BackfillRows,
		"predictions":       len(frag.Predictions),
		"parsed_by":         string(frag.Source),
	})

	narrative := s.narrate(ctx, reportID, frag)
	if err := s.Repo.Update(ctx, reportID, Patch{PatientFriendlyAnalysis: &narrative}); err != nil {
		telemetry.Warn("report.narrative_save_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"report_id":  reportID,
			"error":      err,
		})
	}

	durationMs := metrics.SinceMillis(startedAt)
	metrics.IncCompleted()
	metrics.ObservePipelineDurationMs(durationMs)
	telemetry.Info("report.pipeline.complete", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"report_id":   reportID,
		"duration_ms": durationMs,
	})

	return Outcome{
		ReportID:          reportID,
		Success:           true,
		ReportType:        ReportTypeMedical,
		ValidationStatus:  ValidationValidated,
		ValidationMessage: verdict.message,
		AnalysisTable:     frag.Parameters,
		PredictionTable:   frag.Predictions,
		Narrative:         narrative,
	}, nil
}

// narrate asks for the patient-facing summary and substitutes the fixed
// fallback on any gateway failure.
func (s *Service) narrate(ctx context.Context, reportID string, frag Fragment) string {
	prompt := llm.BuildNarrativePrompt(llm.NarrativeInput{
		PatientInfo: frag.PatientInfo,
		Parameters:  frag.Parameters,
		Predictions: frag.Predictions,
	})
	text, err := s.generate(ctx, prompt, llm.NarrativeOptions)
	if err == nil && strings.TrimSpace(text) != "" {
		return text
	}
	fields := map[string]any{
		"request_id": requestIDFromContext(ctx),
		"report_id":  reportID,
	}
	if err != nil {
		fields["error"] = err
	}
	telemetry.Warn("report.narrative_fallback", fields)
	metrics.IncNarrativeFallback()
	return FallbackNarrative
}

func (s *Service) fail(ctx context.Context, reportID string, cause error, startedAt time.Time) {
	// The caller's context may already be past its deadline.
	if err := s.Repo.Update(detach(ctx), reportID, Patch{ProcessingStatus: strPtr(StatusFailed)}); err != nil {
		telemetry.Error("report.fail_update_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"report_id":  reportID,
			"error":      err,
			"cause":      cause,
		})
	}
	durationMs := metrics.SinceMillis(startedAt)
	metrics.IncFailed()
	metrics.ObservePipelineDurationMs(durationMs)
	telemetry.Error("report.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"report_id":         reportID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"duration_ms":       durationMs,
		"error":             cause,
	})
}

// archive keeps raw model output next to the report. Failures are logged only.
func (s *Service) archive(ctx context.Context, reportID, name, content string) {
	if s.Store == nil {
		return
	}
	key := reportObjectKey(reportID, name)
	if _, err := s.Store.SaveWithKey(ctx, key, "text/plain; charset=utf-8", strings.NewReader(content)); err != nil {
		telemetry.Warn("report.archive_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"report_id":  reportID,
			"key":        key,
			"error":      err,
		})
	}
}

func reportObjectKey(reportID, name string) string {
	return "reports/" + reportID + "/" + name
}

type verdict struct {
	reportType string
	validation string
	processing string
	message    string
}

func verdictFor(c Classification) verdict {
	if c.IsMedical {
		return verdict{
			reportType: ReportTypeMedical,
			validation: ValidationValidated,
			processing: StatusProcessing,
			message:    fmt.Sprintf("Medical report validated with %s confidence", strings.ToLower(string(c.Confidence))),
		}
	}
	return verdict{
		reportType: ReportTypeNonMedical,
		validation: ValidationRejected,
		processing: StatusRejected,
		message:    "Non-medical document detected: " + c.Reason,
	}
}
