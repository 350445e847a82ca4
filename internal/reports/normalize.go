package reports

import (
	"encoding/json"
	"strings"

	"labreport-backend/internal/labdata"
)

const (
	syntheticCondition = "General Health Monitoring"
	syntheticLinked    = "Overall Health Status"
	syntheticReason    = "Continue regular health monitoring based on current results"
	syntheticCitation  = "Preventive medicine guidelines - routine health screening recommendations"
)

// Normalize turns one extraction response into the canonical fragment. It is
// deterministic and never fails: unparseable output degrades to the delimited
// parser, then to catalogue placeholders.
func Normalize(rawText, modelOutput string) Fragment {
	return NormalizeWith(DefaultCatalogue(), rawText, modelOutput)
}

// NormalizeWith is Normalize with an explicit catalogue.
func NormalizeWith(cat Catalogue, rawText, modelOutput string) Fragment {
	frag, ok := parseStructured(modelOutput)
	if !ok {
		frag = parseDelimited(modelOutput)
	}
	frag.OCRText = ocrText(rawText, frag.PatientInfo)

	var added int
	frag.Parameters, added = backfill(cat, frag.Parameters)
	frag.BackfillRows = added
	if len(frag.Predictions) == 0 {
		frag.Predictions = []labdata.Prediction{syntheticPrediction()}
	}
	return frag
}

func parseStructured(modelOutput string) (Fragment, bool) {
	obj, ok := decodeObject(modelOutput)
	if !ok {
		return Fragment{}, false
	}

	frag := Fragment{
		Parameters:  []labdata.Parameter{},
		Predictions: []labdata.Prediction{},
		PatientInfo: patientInfo(obj["patient_info"]),
		Source:      labdata.ProvenanceModel,
	}
	for _, item := range objectList(obj["abnormal_values"]) {
		if p := (labdata.ModelParameter{Item: item}).Canonical(); p.Valid() {
			frag.Parameters = append(frag.Parameters, p)
		}
	}
	for _, item := range objectList(obj["normal_values"]) {
		if p := (labdata.ModelParameter{Item: item, Normal: true}).Canonical(); p.Valid() {
			frag.Parameters = append(frag.Parameters, p)
		}
	}
	for _, item := range objectList(obj["prediction_table"]) {
		if p := (labdata.ModelPrediction{Item: item}).Canonical(); strings.TrimSpace(p.Condition) != "" {
			frag.Predictions = append(frag.Predictions, p)
		}
	}
	return frag, true
}

// objectList returns the object elements of raw. Anything that is not an
// array yields nil; non-object elements are skipped.
func objectList(raw any) []map[string]any {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func patientInfo(raw any) labdata.PatientInfo {
	m, ok := raw.(map[string]any)
	if !ok {
		return labdata.PatientInfo{}
	}
	return labdata.PatientInfo{
		Name:       labdata.Field(m, "name", "patient_name"),
		Age:        labdata.Field(m, "age"),
		Gender:     labdata.Field(m, "gender"),
		ReportDate: labdata.Field(m, "report_date"),
		LabName:    labdata.Field(m, "lab_name"),
	}
}

func ocrText(rawText string, info labdata.PatientInfo) string {
	if info.IsZero() {
		return rawText
	}
	data, err := json.Marshal(info)
	if err != nil {
		return rawText
	}
	return rawText + "\n\nExtracted Patient Info: " + string(data)
}

func syntheticPrediction() labdata.Prediction {
	return labdata.Prediction{
		Condition:    syntheticCondition,
		Confidence:   labdata.ConfidenceLow,
		LinkedValues: []string{syntheticLinked},
		Reason:       syntheticReason,
		Citation:     syntheticCitation,
		Provenance:   labdata.ProvenanceSynthetic,
	}
}
