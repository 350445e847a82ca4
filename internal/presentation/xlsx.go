package presentation

import (
	"bytes"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

var (
	analysisHeader   = []string{"Parameter", "Value", "Unit", "Report Range", "Normal Range", "Status", "Deviation", "Note", "Source"}
	predictionHeader = []string{"Condition", "Confidence", "Linked Values", "Reason", "Citation", "Source"}
)

// XLSX builds a workbook with one sheet per table.
func XLSX(doc Document) ([]byte, error) {
	f := xlsx.NewFile()

	analysis, err := f.AddSheet("Analysis")
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add analysis sheet")
	}
	addRow(analysis, analysisHeader)
	for _, p := range doc.View.Parameters {
		rng := p.ReportRange
		if rng == "" {
			rng = p.NormalRange
		}
		addRow(analysis, []string{p.Parameter, p.Value, p.Unit, rng, p.NormalRange, p.Status.Tag(), p.Deviation, p.Note, string(p.Provenance)})
	}

	predictions, err := f.AddSheet("Predictions")
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add predictions sheet")
	}
	addRow(predictions, predictionHeader)
	for _, p := range doc.View.Predictions {
		addRow(predictions, []string{p.Condition, string(p.Confidence), strings.Join(p.LinkedValues, "; "), p.Reason, p.Citation, string(p.Provenance)})
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "xlsx: write workbook")
	}
	return buf.Bytes(), nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}
