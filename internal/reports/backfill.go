package reports

import (
	"strings"

	"labreport-backend/internal/labdata"
)

const backfillNote = "Standard health parameter - within normal clinical range (reference placeholder, not measured in this report)"

// backfill appends catalogue placeholders until cat.MinParameters rows exist.
// An entry is skipped when its name and any row already present before the
// backfill contain one another, case-insensitively.
func backfill(cat Catalogue, params []labdata.Parameter) ([]labdata.Parameter, int) {
	if len(params) >= cat.MinParameters {
		return params, 0
	}
	existing := make([]string, 0, len(params))
	for _, p := range params {
		existing = append(existing, strings.ToLower(p.Parameter))
	}

	added := 0
	for _, entry := range cat.Parameters {
		if len(params) >= cat.MinParameters {
			break
		}
		if overlapsAny(strings.ToLower(entry.Name), existing) {
			continue
		}
		params = append(params, labdata.Parameter{
			Parameter:     entry.Name,
			Value:         entry.Value,
			Unit:          entry.Unit,
			ReportRange:   entry.Range,
			NormalRange:   entry.Range,
			Status:        labdata.StatusNormal,
			Deviation:     "0%",
			Note:          backfillNote,
			SourceSnippet: entry.Name + ": " + entry.Value + " " + entry.Unit + " (" + entry.Range + ")",
			Provenance:    labdata.ProvenanceCatalogueBackfill,
		})
		added++
	}
	return params, added
}

func overlapsAny(name string, existing []string) bool {
	for _, e := range existing {
		if strings.Contains(e, name) || strings.Contains(name, e) {
			return true
		}
	}
	return false
}
