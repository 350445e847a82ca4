package reports

import (
	"strings"

	"labreport-backend/internal/labdata"
)

type rowKind int

const (
	parameterRows rowKind = iota
	predictionRows
)

// parseDelimited reads pipe-delimited tables out of free text. Sections are
// separated by blank lines; rows from every section are kept. A header row
// fixes the kind of the rows under it, and the section title decides only
// for rows that come before any header.
func parseDelimited(text string) Fragment {
	frag := Fragment{
		Parameters:  []labdata.Parameter{},
		Predictions: []labdata.Prediction{},
		Source:      labdata.ProvenanceFallbackParser,
	}
	for _, section := range splitSections(text) {
		kind := titleKind(section)
		for _, cells := range tableRows(section) {
			if k, ok := headerKind(cells); ok {
				kind = k
				continue
			}
			switch kind {
			case predictionRows:
				if p, ok := predictionFromCells(cells); ok {
					frag.Predictions = append(frag.Predictions, p)
				}
			default:
				if p, ok := parameterFromCells(cells); ok {
					frag.Parameters = append(frag.Parameters, p)
				}
			}
		}
	}
	return frag
}

func splitSections(text string) []string {
	var (
		sections []string
		current  []string
	)
	flush := func() {
		if len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return sections
}

// titleKind classifies headerless rows from the non-table lines of section.
// Table cells are never consulted, so a note mentioning "risk" stays a
// parameter row. "analysis" in the title wins over "risk" or "prediction".
func titleKind(section string) rowKind {
	var title strings.Builder
	for _, line := range strings.Split(section, "\n") {
		if !strings.Contains(line, "|") {
			title.WriteString(strings.ToLower(line))
			title.WriteByte('\n')
		}
	}
	t := title.String()
	if strings.Contains(t, "analysis") {
		return parameterRows
	}
	if strings.Contains(t, "prediction") || strings.Contains(t, "risk") {
		return predictionRows
	}
	return parameterRows
}

// headerKind reports whether cells is a table header, judged by its first
// cell alone.
func headerKind(cells []string) (rowKind, bool) {
	switch strings.ToLower(strings.Trim(cell(cells, 0), "* ")) {
	case "parameter":
		return parameterRows, true
	case "condition":
		return predictionRows, true
	}
	return 0, false
}

// tableRows returns the trimmed cells of each pipe row in section, header
// rows included, skipping separator rows.
func tableRows(section string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(section, "\n") {
		if !strings.Contains(line, "|") {
			continue
		}
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimPrefix(trimmed, "|")
		trimmed = strings.TrimSuffix(trimmed, "|")
		cells := strings.Split(trimmed, "|")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if isSeparatorRow(cells) {
			continue
		}
		rows = append(rows, cells)
	}
	return rows
}

func isSeparatorRow(cells []string) bool {
	sawDash := false
	for _, c := range cells {
		for _, r := range c {
			switch r {
			case '-':
				sawDash = true
			case ':', ' ':
			default:
				return false
			}
		}
	}
	return sawDash
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

func parameterFromCells(cells []string) (labdata.Parameter, bool) {
	name, value := cell(cells, 0), cell(cells, 1)
	if name == "" || value == "" {
		return labdata.Parameter{}, false
	}
	unit := cell(cells, 2)
	if unit == "" {
		unit = "N/A"
	}
	reportRange := cell(cells, 3)
	normalRange := cell(cells, 4)
	if normalRange == "" {
		normalRange = reportRange
	}
	rawStatus := cell(cells, 5)
	status := labdata.StatusAbnormal
	if strings.Contains(rawStatus, "✅") || strings.EqualFold(rawStatus, "normal") {
		status = labdata.StatusNormal
	}
	deviation := cell(cells, 6)
	if deviation == "" {
		deviation = "N/A"
	}
	return labdata.Parameter{
		Parameter:     name,
		Value:         value,
		Unit:          unit,
		ReportRange:   reportRange,
		NormalRange:   normalRange,
		Status:        status,
		SourceStatus:  rawStatus,
		Deviation:     deviation,
		Note:          cell(cells, 7),
		SourceSnippet: name + ": " + value,
		Provenance:    labdata.ProvenanceFallbackParser,
	}, true
}

func predictionFromCells(cells []string) (labdata.Prediction, bool) {
	condition := cell(cells, 0)
	if condition == "" {
		return labdata.Prediction{}, false
	}
	return labdata.DefaultPrediction(condition, cell(cells, 1), cell(cells, 2), cell(cells, 3)), true
}
