package presentation

import (
	"errors"
	"strings"
)

// ErrUnknownFormat is returned for an export format with no renderer.
var ErrUnknownFormat = errors.New("unknown export format")

// Export is a rendered download.
type Export struct {
	FileName    string
	ContentType string
	Body        []byte
}

// Formats lists the supported export formats.
var Formats = []string{"csv", "txt", "xlsx", "html"}

// Render produces the named export for doc.
func Render(format string, doc Document) (Export, error) {
	base := strings.TrimSpace(doc.FileName)
	if base == "" {
		base = "report"
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		body, err := CSV(doc)
		if err != nil {
			return Export{}, err
		}
		return Export{FileName: base + "_analysis.csv", ContentType: "text/csv; charset=utf-8", Body: body}, nil
	case "txt", "text":
		return Export{FileName: base + "_detailed_analysis.txt", ContentType: "text/plain; charset=utf-8", Body: Text(doc)}, nil
	case "xlsx":
		body, err := XLSX(doc)
		if err != nil {
			return Export{}, err
		}
		return Export{FileName: base + "_analysis.xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Body: body}, nil
	case "html":
		body, err := HTML(doc)
		if err != nil {
			return Export{}, err
		}
		return Export{FileName: base + "_summary.html", ContentType: "text/html; charset=utf-8", Body: body}, nil
	default:
		return Export{}, ErrUnknownFormat
	}
}
