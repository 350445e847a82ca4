// Package labdata defines the canonical lab-report shapes and the single
// coalescing path between them and the legacy mirror columns.
package labdata

import (
	"encoding/json"
	"strings"
)

// Status is the two-bucket classification of a lab parameter.
type Status string

const (
	StatusNormal   Status = "Normal"
	StatusAbnormal Status = "Abnormal"
)

// Tag returns the display tag persisted for the status.
func (s Status) Tag() string {
	if s == StatusNormal {
		return "✅ Normal"
	}
	return "⚠️ Abnormal"
}

// Icon returns the legacy icon for the status.
func (s Status) Icon() string {
	if s == StatusNormal {
		return "✅"
	}
	return "⚠️"
}

// ParseStatus maps a stored tag or plain word to a Status. Anything that is
// not recognisably normal is Abnormal.
func ParseStatus(raw string) Status {
	trimmed := strings.TrimSpace(raw)
	if strings.Contains(trimmed, "✅") {
		return StatusNormal
	}
	if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(trimmed, "⚠️")), "normal") {
		return StatusNormal
	}
	return StatusAbnormal
}

// MarshalJSON writes the display tag.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Tag())
}

// UnmarshalJSON accepts either the display tag or the plain word.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// Confidence grades a risk prediction.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// ParseConfidence normalizes free-form confidence text, returning def when
// nothing matches.
func ParseConfidence(raw string, def Confidence) Confidence {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case lower == "":
		return def
	case strings.Contains(lower, "high"):
		return ConfidenceHigh
	case strings.Contains(lower, "medium"), strings.Contains(lower, "moderate"):
		return ConfidenceMedium
	case strings.Contains(lower, "low"):
		return ConfidenceLow
	default:
		return def
	}
}

// Provenance records where a row came from so placeholders are never
// mistaken for measured values.
type Provenance string

const (
	ProvenanceModel             Provenance = "model"
	ProvenanceFallbackParser    Provenance = "fallback_parser"
	ProvenanceCatalogueBackfill Provenance = "catalogue_backfill"
	ProvenanceSynthetic         Provenance = "synthetic"
	ProvenanceLegacy            Provenance = "legacy"
)

// Parameter is one canonical row of lab data.
type Parameter struct {
	Parameter     string     `json:"parameter"`
	Value         string     `json:"value"`
	Unit          string     `json:"unit"`
	ReportRange   string     `json:"report_range,omitempty"`
	NormalRange   string     `json:"normal_range"`
	Status        Status     `json:"status"`
	SourceStatus  string     `json:"source_status,omitempty"`
	Deviation     string     `json:"deviation"`
	Note          string     `json:"note"`
	SourceSnippet string     `json:"source_snippet"`
	Provenance    Provenance `json:"provenance"`
}

// Valid reports whether the row satisfies the non-empty name and value rule.
func (p Parameter) Valid() bool {
	return strings.TrimSpace(p.Parameter) != "" && strings.TrimSpace(p.Value) != ""
}

// Prediction is one canonical risk inference.
type Prediction struct {
	Condition    string     `json:"condition"`
	Confidence   Confidence `json:"confidence"`
	LinkedValues []string   `json:"linked_values"`
	Reason       string     `json:"reason"`
	Citation     string     `json:"citation"`
	Provenance   Provenance `json:"provenance"`
}

// LegacyParameter is the older analysis_results row shape.
type LegacyParameter struct {
	Test   string `json:"test"`
	Value  string `json:"value"`
	Range  string `json:"range"`
	Status string `json:"status"`
	Icon   string `json:"icon"`
}

// LegacyPrediction is the older predictions row shape.
type LegacyPrediction struct {
	RiskLevel      string `json:"risk_level"`
	Condition      string `json:"condition"`
	Recommendation string `json:"recommendation"`
}

// PatientInfo holds optional demographics echoed from the report.
type PatientInfo struct {
	Name       string `json:"name,omitempty"`
	Age        string `json:"age,omitempty"`
	Gender     string `json:"gender,omitempty"`
	ReportDate string `json:"report_date,omitempty"`
	LabName    string `json:"lab_name,omitempty"`
}

// IsZero reports whether no field is populated.
func (p PatientInfo) IsZero() bool {
	return p == PatientInfo{}
}
