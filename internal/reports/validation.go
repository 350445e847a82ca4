package reports

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"labreport-backend/internal/labdata"
	"labreport-backend/internal/llm"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/telemetry"
)

const (
	ClassifiedByModel    = "model"
	ClassifiedByKeywords = "keyword_fallback"

	minMedicalKeywords = 3
	highKeywordCount   = 5
)

var keywordFolder = cases.Lower(language.Und)

// Classify decides whether rawText is a medical report. It asks the model
// first and falls back to a keyword scan when the call fails or the reply
// has no usable verdict. It never fails.
func (s *Service) Classify(ctx context.Context, rawText string) Classification {
	if s.LLM != nil {
		out, err := s.generate(ctx, llm.BuildClassificationPrompt(rawText), llm.ClassificationOptions)
		if err == nil {
			if c, ok := parseClassification(out); ok {
				return c
			}
			telemetry.Warn("classification.unparseable", map[string]any{
				"request_id": requestIDFromContext(ctx),
				"output_len": len(out),
			})
		} else {
			telemetry.Warn("classification.gateway_error", map[string]any{
				"request_id": requestIDFromContext(ctx),
				"error":      err,
			})
		}
	}
	metrics.IncClassificationFallback()
	return classifyByKeywords(s.catalogue().Keywords, rawText)
}

func parseClassification(out string) (Classification, bool) {
	obj, ok := decodeObject(out)
	if !ok {
		return Classification{}, false
	}
	isMedical, ok := obj["is_medical"].(bool)
	if !ok {
		return Classification{}, false
	}
	keywords := labdata.StringList(obj["medical_keywords_found"])
	if keywords == nil {
		keywords = []string{}
	}
	return Classification{
		IsMedical:     isMedical,
		Confidence:    labdata.ParseConfidence(labdata.Field(obj, "confidence"), labdata.ConfidenceLow),
		KeywordsFound: keywords,
		Reason:        labdata.Field(obj, "reason"),
		Source:        ClassifiedByModel,
	}, true
}

func classifyByKeywords(keywords []string, rawText string) Classification {
	folded := keywordFolder.String(rawText)
	found := []string{}
	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			found = append(found, kw)
		}
	}

	c := Classification{
		IsMedical:     len(found) >= minMedicalKeywords,
		Confidence:    labdata.ConfidenceLow,
		KeywordsFound: found,
		Reason:        "Insufficient medical terminology detected",
		Source:        ClassifiedByKeywords,
	}
	switch {
	case len(found) >= highKeywordCount:
		c.Confidence = labdata.ConfidenceHigh
	case len(found) >= minMedicalKeywords:
		c.Confidence = labdata.ConfidenceMedium
	}
	if c.IsMedical {
		c.Reason = fmt.Sprintf("Found %d medical keywords", len(found))
	}
	return c
}

// Validate classifies rawText and always records the verdict on the report.
// Only a store failure is returned.
func (s *Service) Validate(ctx context.Context, reportID, rawText string) (Classification, error) {
	c := s.Classify(ctx, rawText)

	v := verdictFor(c)
	patch := Patch{
		ReportType:        &v.reportType,
		ValidationStatus:  &v.validation,
		ValidationMessage: &v.message,
		ProcessingStatus:  &v.processing,
		OCRText:           &rawText,
	}
	if err := s.Repo.Update(ctx, reportID, patch); err != nil {
		return c, eris.Wrap(err, "record validation")
	}

	if c.IsMedical {
		metrics.IncValidated()
	} else {
		metrics.IncRejected()
	}
	telemetry.Info("report.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"report_id":         reportID,
		"status":            v.processing,
		"status_transition": "pending->" + v.processing,
		"classified_by":     c.Source,
		"confidence":        string(c.Confidence),
		"keywords_found":    len(c.KeywordsFound),
	})
	return c, nil
}
