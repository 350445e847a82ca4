package presentation

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

type csvParameter struct {
	Parameter   string `csv:"Parameter"`
	Value       string `csv:"Value"`
	Unit        string `csv:"Unit"`
	ReportRange string `csv:"Report Range"`
	NormalRange string `csv:"Normal Range"`
	Status      string `csv:"Status"`
	Deviation   string `csv:"Deviation"`
	Note        string `csv:"Note"`
}

type csvPrediction struct {
	Condition    string `csv:"Condition"`
	Confidence   string `csv:"Confidence"`
	LinkedValues string `csv:"Linked Values"`
	Reason       string `csv:"Reason"`
	Citation     string `csv:"Citation"`
}

// CSV writes the analysis and prediction tables as two titled sections.
func CSV(doc Document) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("ANALYSIS RESULTS\n")
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(csvParameter{}); err != nil {
		return nil, eris.Wrap(err, "csv: analysis header")
	}
	for _, p := range doc.View.Parameters {
		rng := p.ReportRange
		if rng == "" {
			rng = p.NormalRange
		}
		row := csvParameter{
			Parameter:   p.Parameter,
			Value:       p.Value,
			Unit:        p.Unit,
			ReportRange: rng,
			NormalRange: p.NormalRange,
			Status:      p.Status.Tag(),
			Deviation:   p.Deviation,
			Note:        p.Note,
		}
		if err := enc.Encode(row); err != nil {
			return nil, eris.Wrap(err, "csv: analysis row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "csv: flush analysis")
	}

	buf.WriteString("\nPREDICTIONS\n")
	w = csv.NewWriter(&buf)
	enc = csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(csvPrediction{}); err != nil {
		return nil, eris.Wrap(err, "csv: prediction header")
	}
	for _, p := range doc.View.Predictions {
		row := csvPrediction{
			Condition:    p.Condition,
			Confidence:   string(p.Confidence),
			LinkedValues: strings.Join(p.LinkedValues, "; "),
			Reason:       p.Reason,
			Citation:     p.Citation,
		}
		if err := enc.Encode(row); err != nil {
			return nil, eris.Wrap(err, "csv: prediction row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "csv: flush predictions")
	}
	return buf.Bytes(), nil
}
