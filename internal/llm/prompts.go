package llm

import (
	_ "embed"
	"encoding/json"
	"strings"

	"labreport-backend/internal/labdata"
)

var (
	//go:embed prompts/classification.txt
	classificationTemplate string
	//go:embed prompts/extraction.txt
	extractionTemplate string
	//go:embed prompts/narrative.txt
	narrativeTemplate string
)

// NarrativeInput is the normalized fragment embedded in the summary prompt.
type NarrativeInput struct {
	PatientInfo labdata.PatientInfo
	Parameters  []labdata.Parameter
	Predictions []labdata.Prediction
}

type narrativePayload struct {
	PatientInfo     labdata.PatientInfo  `json:"patient_info"`
	AbnormalValues  []labdata.Parameter  `json:"abnormal_values"`
	NormalValues    []labdata.Parameter  `json:"normal_values"`
	PredictionTable []labdata.Prediction `json:"prediction_table"`
}

// BuildClassificationPrompt asks the model whether rawText is a medical report.
func BuildClassificationPrompt(rawText string) string {
	return strings.NewReplacer("{{REPORT_TEXT}}", rawText).Replace(classificationTemplate)
}

// BuildExtractionPrompt asks the model for the structured parameter and prediction tables.
func BuildExtractionPrompt(rawText string) string {
	return strings.NewReplacer("{{REPORT_TEXT}}", rawText).Replace(extractionTemplate)
}

// BuildNarrativePrompt asks for a patient-friendly summary of already-normalized data.
func BuildNarrativePrompt(in NarrativeInput) string {
	payload := narrativePayload{
		PatientInfo:     in.PatientInfo,
		AbnormalValues:  []labdata.Parameter{},
		NormalValues:    []labdata.Parameter{},
		PredictionTable: in.Predictions,
	}
	if payload.PredictionTable == nil {
		payload.PredictionTable = []labdata.Prediction{}
	}
	for _, p := range in.Parameters {
		if p.Status == labdata.StatusNormal {
			payload.NormalValues = append(payload.NormalValues, p)
		} else {
			payload.AbnormalValues = append(payload.AbnormalValues, p)
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	return strings.NewReplacer("{{STRUCTURED_DATA}}", string(data)).Replace(narrativeTemplate)
}
