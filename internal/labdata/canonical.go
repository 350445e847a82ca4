package labdata

import (
	"encoding/json"
	"strconv"
	"strings"
)

const (
	legacyAbnormalNote = "Please consult your healthcare provider"
	legacyCitation     = "Clinical guidelines and standard medical practice"
)

// ParameterRow is a lab row in either the enhanced or the legacy shape.
type ParameterRow interface {
	Canonical() Parameter
	isParameterRow()
}

// PredictionRow is a prediction in either the enhanced or the legacy shape.
type PredictionRow interface {
	Canonical() Prediction
	isPredictionRow()
}

// Canonical returns the row unchanged.
func (p Parameter) Canonical() Parameter { return p }
func (Parameter) isParameterRow()        {}

// Canonical maps a legacy row into the canonical shape.
func (l LegacyParameter) Canonical() Parameter {
	status := ParseStatus(l.Status)
	if l.Icon != "" && strings.TrimSpace(l.Status) == "" {
		status = ParseStatus(l.Icon)
	}
	note := ""
	if status == StatusAbnormal {
		note = legacyAbnormalNote
	}
	return Parameter{
		Parameter:     l.Test,
		Value:         l.Value,
		Unit:          "N/A",
		ReportRange:   l.Range,
		NormalRange:   l.Range,
		Status:        status,
		Deviation:     "N/A",
		Note:          note,
		SourceSnippet: l.Test + ": " + l.Value,
		Provenance:    ProvenanceLegacy,
	}
}
func (LegacyParameter) isParameterRow() {}

// Canonical returns the row unchanged.
func (p Prediction) Canonical() Prediction { return p }
func (Prediction) isPredictionRow()        {}

// Canonical maps a legacy prediction into the canonical shape.
func (l LegacyPrediction) Canonical() Prediction {
	return Prediction{
		Condition:    l.Condition,
		Confidence:   ParseConfidence(l.RiskLevel, ConfidenceLow),
		LinkedValues: []string{l.Condition},
		Reason:       l.Recommendation,
		Citation:     legacyCitation,
		Provenance:   ProvenanceLegacy,
	}
}
func (LegacyPrediction) isPredictionRow() {}

// Sources is what a stored record carries: the enhanced columns and their
// legacy mirrors. Either side may be empty on older rows.
type Sources struct {
	DetailedAnalysis  []Parameter
	PredictionDetails []Prediction
	AnalysisResults   []LegacyParameter
	Predictions       []LegacyPrediction
}

// View is the display-ready result of Canonicalize.
type View struct {
	Parameters  []Parameter  `json:"analysis_table"`
	Predictions []Prediction `json:"prediction_table"`
	// Legacy is true when any side was reconstructed from mirror columns.
	Legacy bool `json:"legacy"`
}

// ParameterRows picks enhanced rows when present, else the legacy mirror.
func (s Sources) ParameterRows() []ParameterRow {
	if len(s.DetailedAnalysis) > 0 {
		rows := make([]ParameterRow, 0, len(s.DetailedAnalysis))
		for _, p := range s.DetailedAnalysis {
			rows = append(rows, p)
		}
		return rows
	}
	rows := make([]ParameterRow, 0, len(s.AnalysisResults))
	for _, l := range s.AnalysisResults {
		rows = append(rows, l)
	}
	return rows
}

// PredictionRows picks enhanced predictions when present, else the legacy mirror.
func (s Sources) PredictionRows() []PredictionRow {
	if len(s.PredictionDetails) > 0 {
		rows := make([]PredictionRow, 0, len(s.PredictionDetails))
		for _, p := range s.PredictionDetails {
			rows = append(rows, p)
		}
		return rows
	}
	rows := make([]PredictionRow, 0, len(s.Predictions))
	for _, l := range s.Predictions {
		rows = append(rows, l)
	}
	return rows
}

// Canonicalize coalesces a record's columns into one canonical view. Rows
// without a name and value are dropped.
func Canonicalize(src Sources) View {
	view := View{
		Parameters:  []Parameter{},
		Predictions: []Prediction{},
		Legacy: (len(src.DetailedAnalysis) == 0 && len(src.AnalysisResults) > 0) ||
			(len(src.PredictionDetails) == 0 && len(src.Predictions) > 0),
	}
	for _, row := range src.ParameterRows() {
		p := row.Canonical()
		if p.Valid() {
			view.Parameters = append(view.Parameters, p)
		}
	}
	for _, row := range src.PredictionRows() {
		p := row.Canonical()
		if strings.TrimSpace(p.Condition) != "" {
			view.Predictions = append(view.Predictions, p)
		}
	}
	return view
}

// MirrorParameters derives the legacy analysis_results rows.
func MirrorParameters(params []Parameter) []LegacyParameter {
	out := make([]LegacyParameter, 0, len(params))
	for _, p := range params {
		rng := p.ReportRange
		if rng == "" {
			rng = p.NormalRange
		}
		status := "abnormal"
		if p.Status == StatusNormal {
			status = "normal"
		}
		out = append(out, LegacyParameter{
			Test:   p.Parameter,
			Value:  p.Value,
			Range:  rng,
			Status: status,
			Icon:   p.Status.Icon(),
		})
	}
	return out
}

// MirrorPredictions derives the legacy predictions rows.
func MirrorPredictions(preds []Prediction) []LegacyPrediction {
	out := make([]LegacyPrediction, 0, len(preds))
	for _, p := range preds {
		out = append(out, LegacyPrediction{
			RiskLevel:      string(p.Confidence),
			Condition:      p.Condition,
			Recommendation: p.Reason,
		})
	}
	return out
}

// Field returns the first non-empty value among keys in a loosely typed
// model item. Numbers keep their literal text.
func Field(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := scalarText(item[key]); s != "" {
			return s
		}
	}
	return ""
}

// StringList returns a string slice from a loosely typed array value.
func StringList(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		if s := scalarText(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s := scalarText(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

const (
	defaultPredictionReason   = "Based on abnormal lab values"
	defaultPredictionCitation = "Clinical guidelines and evidence-based medicine"
)

// ModelParameter is a loosely typed parameter item as the model returned it.
// Normal is true when the item came from the normal_values list.
type ModelParameter struct {
	Item   map[string]any
	Normal bool
}

// Canonical coalesces alternate key names and fills defaults. The two-bucket
// status follows list membership; the model's own wording goes to SourceStatus.
func (m ModelParameter) Canonical() Parameter {
	name := Field(m.Item, "test_name", "parameter", "test", "name")
	value := Field(m.Item, "result_value", "value", "result")
	rawUnit := Field(m.Item, "unit")
	unit := rawUnit
	if unit == "" {
		unit = "N/A"
	}
	reportRange := Field(m.Item, "reference_range", "report_range", "range")
	normalRange := Field(m.Item, "normal_range")
	if normalRange == "" {
		normalRange = reportRange
	}
	status := StatusAbnormal
	deviation := Field(m.Item, "deviation")
	if m.Normal {
		status = StatusNormal
		if deviation == "" {
			deviation = "0%"
		}
	} else if deviation == "" {
		deviation = "N/A"
	}
	return Parameter{
		Parameter:     name,
		Value:         value,
		Unit:          unit,
		ReportRange:   reportRange,
		NormalRange:   normalRange,
		Status:        status,
		SourceStatus:  Field(m.Item, "status"),
		Deviation:     deviation,
		Note:          Field(m.Item, "clinical_significance", "note"),
		SourceSnippet: strings.TrimSpace(name + ": " + value + " " + rawUnit),
		Provenance:    ProvenanceModel,
	}
}
func (ModelParameter) isParameterRow() {}

// ModelPrediction is a loosely typed prediction item as the model returned it.
type ModelPrediction struct {
	Item map[string]any
}

// Canonical coalesces alternate key names and fills defaults.
func (m ModelPrediction) Canonical() Prediction {
	condition := Field(m.Item, "possible_condition", "condition")
	rawReason := Field(m.Item, "reason", "reason_one_line")
	reason := rawReason
	if reason == "" {
		reason = defaultPredictionReason
	}
	citation := Field(m.Item, "evidence", "citation", "proof_citation")
	if citation == "" {
		citation = defaultPredictionCitation
	}
	linked := StringList(m.Item["risk_factors"])
	if len(linked) == 0 {
		linked = StringList(m.Item["linked_values"])
	}
	switch {
	case len(linked) > 0:
	case rawReason != "":
		linked = []string{rawReason}
	case condition != "":
		linked = []string{condition}
	default:
		linked = []string{}
	}
	return Prediction{
		Condition:    condition,
		Confidence:   ParseConfidence(Field(m.Item, "confidence"), ConfidenceMedium),
		LinkedValues: linked,
		Reason:       reason,
		Citation:     citation,
		Provenance:   ProvenanceModel,
	}
}
func (ModelPrediction) isPredictionRow() {}

// DefaultPrediction fills the positional defaults used for delimited rows.
func DefaultPrediction(condition, confidence, reason, citation string) Prediction {
	if reason == "" {
		reason = defaultPredictionReason
	}
	if citation == "" {
		citation = defaultPredictionCitation
	}
	return Prediction{
		Condition:    condition,
		Confidence:   ParseConfidence(confidence, ConfidenceMedium),
		LinkedValues: []string{reason},
		Reason:       reason,
		Citation:     citation,
		Provenance:   ProvenanceFallbackParser,
	}
}
