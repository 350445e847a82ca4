package presentation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"labreport-backend/internal/labdata"
)

func sampleDoc() Document {
	return Document{
		FileName:         "cbc.pdf",
		CreatedAt:        time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
		ProcessingStatus: "completed",
		GeneratedAt:      time.Date(2026, time.March, 2, 11, 0, 0, 0, time.UTC),
		Narrative:        "## Your results\n\n| Test | Value |\n|---|---|\n| Glucose | 180 |\n",
		View: labdata.View{
			Parameters: []labdata.Parameter{
				{Parameter: "Glucose", Value: "180", Unit: "mg/dL", ReportRange: "70-100", NormalRange: "70-100", Status: labdata.StatusAbnormal, Deviation: "+80%", Note: "High glucose", SourceSnippet: "Glucose: 180 mg/dL", Provenance: labdata.ProvenanceModel},
				{Parameter: "Hemoglobin", Value: "14.0", Unit: "g/dL", NormalRange: "13-17", Status: labdata.StatusNormal, Deviation: "0%", Provenance: labdata.ProvenanceModel},
				{Parameter: "LDL Cholesterol", Value: "160", Unit: "mg/dL", NormalRange: "<100", Status: labdata.StatusAbnormal, Deviation: "N/A", Provenance: labdata.ProvenanceModel},
			},
			Predictions: []labdata.Prediction{
				{Condition: "Type 2 Diabetes", Confidence: labdata.ConfidenceHigh, LinkedValues: []string{"Glucose", "HbA1c"}, Reason: "Glucose above range", Citation: "ADA 2024", Provenance: labdata.ProvenanceModel},
			},
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleDoc().View)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Normal)
	assert.Equal(t, 2, s.Abnormal)
	assert.Equal(t, "1 Normal, 2 Abnormal", s.Line)
	require.Len(t, s.Cards, 1)
	assert.Equal(t, Card{Parameter: "Glucose", Status: "⚠️ Abnormal", Note: "High glucose", Category: "blood_sugar"}, s.Cards[0])
}

func TestSummarizeEmptyView(t *testing.T) {
	s := Summarize(labdata.View{})
	assert.Equal(t, "0 Normal, 0 Abnormal", s.Line)
	assert.NotNil(t, s.Cards)
}

func TestCSVSections(t *testing.T) {
	out, err := CSV(sampleDoc())
	require.NoError(t, err)

	want := "ANALYSIS RESULTS\n" +
		"Parameter,Value,Unit,Report Range,Normal Range,Status,Deviation,Note\n" +
		"Glucose,180,mg/dL,70-100,70-100,⚠️ Abnormal,+80%,High glucose\n" +
		"Hemoglobin,14.0,g/dL,13-17,13-17,✅ Normal,0%,\n" +
		"LDL Cholesterol,160,mg/dL,<100,<100,⚠️ Abnormal,N/A,\n" +
		"\nPREDICTIONS\n" +
		"Condition,Confidence,Linked Values,Reason,Citation\n" +
		"Type 2 Diabetes,High,Glucose; HbA1c,Glucose above range,ADA 2024\n"
	assert.Equal(t, want, string(out))
}

func TestTextIncludesSummaryLine(t *testing.T) {
	out := string(Text(sampleDoc()))

	assert.True(t, strings.HasPrefix(out, "Lab Report Analysis\n"))
	assert.Contains(t, out, "Report: cbc.pdf\nDate: 2026-03-02\nProcessing Status: completed\n")
	assert.Contains(t, out, "Value: 180 mg/dL\n")
	assert.Contains(t, out, "Linked Parameters: Glucose, HbA1c\n")
	assert.Contains(t, out, "Summary: 1 Normal, 2 Abnormal parameters detected.\n")
	assert.Contains(t, out, "Generated 2026-03-02T11:00:00Z\n")
}

func TestXLSXHasTwoSheets(t *testing.T) {
	out, err := XLSX(sampleDoc())
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(out)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Equal(t, "Analysis", f.Sheets[0].Name)
	assert.Equal(t, "Predictions", f.Sheets[1].Name)

	analysis := f.Sheets[0]
	require.Len(t, analysis.Rows, 4)
	assert.Equal(t, "Parameter", analysis.Rows[0].Cells[0].Value)
	assert.Equal(t, "Glucose", analysis.Rows[1].Cells[0].Value)
	assert.Equal(t, "⚠️ Abnormal", analysis.Rows[1].Cells[5].Value)

	preds := f.Sheets[1]
	require.Len(t, preds.Rows, 2)
	assert.Equal(t, "Glucose; HbA1c", preds.Rows[1].Cells[2].Value)
}

func TestHTMLRendersGFMTable(t *testing.T) {
	out, err := HTML(sampleDoc())
	require.NoError(t, err)

	page := string(out)
	assert.Contains(t, page, "<title>cbc.pdf</title>")
	assert.Contains(t, page, "<h2>Your results</h2>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<td>Glucose</td>")
}

func TestHTMLDropsRawMarkup(t *testing.T) {
	doc := sampleDoc()
	doc.Narrative = "Hello <script>alert(1)</script>"
	out, err := HTML(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
}

func TestRender(t *testing.T) {
	for _, format := range Formats {
		t.Run(format, func(t *testing.T) {
			exp, err := Render(format, sampleDoc())
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(exp.FileName, "cbc.pdf_"))
			assert.NotEmpty(t, exp.ContentType)
			assert.NotEmpty(t, exp.Body)
		})
	}

	_, err := Render("pdf", sampleDoc())
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
