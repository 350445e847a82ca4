package presentation

import (
	"fmt"
	"strings"
	"time"
)

// Text renders the plain-text detailed analysis download.
func Text(doc Document) []byte {
	var b strings.Builder
	status := doc.ProcessingStatus
	if status == "" {
		status = "completed"
	}
	generated := doc.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}
	sum := Summarize(doc.View)

	b.WriteString("Lab Report Analysis\n")
	b.WriteString("===================\n\n")
	fmt.Fprintf(&b, "Report: %s\n", doc.FileName)
	if !doc.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", doc.CreatedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "Processing Status: %s\n\n", status)

	b.WriteString("DETAILED ANALYSIS RESULTS\n")
	b.WriteString("=========================\n")
	for _, p := range doc.View.Parameters {
		fmt.Fprintf(&b, "Parameter: %s\n", p.Parameter)
		fmt.Fprintf(&b, "Value: %s\n", strings.TrimSpace(p.Value+" "+p.Unit))
		fmt.Fprintf(&b, "Normal Range: %s\n", p.NormalRange)
		fmt.Fprintf(&b, "Status: %s\n", p.Status.Tag())
		fmt.Fprintf(&b, "Deviation: %s\n", p.Deviation)
		fmt.Fprintf(&b, "Clinical Note: %s\n", p.Note)
		fmt.Fprintf(&b, "Source Text: %s\n", p.SourceSnippet)
		fmt.Fprintf(&b, "Source: %s\n\n", p.Provenance)
	}

	b.WriteString("EVIDENCE-BASED PREDICTIONS\n")
	b.WriteString("==========================\n")
	for _, p := range doc.View.Predictions {
		fmt.Fprintf(&b, "Condition: %s\n", p.Condition)
		fmt.Fprintf(&b, "Confidence Level: %s\n", p.Confidence)
		fmt.Fprintf(&b, "Linked Parameters: %s\n", strings.Join(p.LinkedValues, ", "))
		fmt.Fprintf(&b, "Mechanism: %s\n", p.Reason)
		fmt.Fprintf(&b, "Evidence: %s\n\n", p.Citation)
	}

	fmt.Fprintf(&b, "Summary: %s parameters detected.\n\n", sum.Line)
	fmt.Fprintf(&b, "Generated %s\n", generated.Format(time.RFC3339))
	return []byte(b.String())
}
