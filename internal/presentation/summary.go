// Package presentation renders a canonical lab-report view as summary cards
// and downloadable exports.
package presentation

import (
	"fmt"
	"strings"
	"time"

	"labreport-backend/internal/labdata"
)

// Document is what every renderer works from.
type Document struct {
	FileName         string
	CreatedAt        time.Time
	ProcessingStatus string
	View             labdata.View
	Narrative        string
	GeneratedAt      time.Time
}

// Card highlights one abnormal parameter that carries a clinical note.
type Card struct {
	Parameter string `json:"parameter"`
	Status    string `json:"status"`
	Note      string `json:"note"`
	Category  string `json:"category"`
}

// Summary is the dashboard headline for a report.
type Summary struct {
	Total    int    `json:"total"`
	Normal   int    `json:"normal"`
	Abnormal int    `json:"abnormal"`
	Line     string `json:"line"`
	Cards    []Card `json:"health_cards"`
}

// Summarize counts rows by status and builds cards for annotated abnormal rows.
func Summarize(view labdata.View) Summary {
	s := Summary{Total: len(view.Parameters), Cards: []Card{}}
	for _, p := range view.Parameters {
		if p.Status == labdata.StatusNormal {
			s.Normal++
			continue
		}
		s.Abnormal++
		if strings.TrimSpace(p.Note) == "" {
			continue
		}
		s.Cards = append(s.Cards, Card{
			Parameter: p.Parameter,
			Status:    p.Status.Tag(),
			Note:      p.Note,
			Category:  category(p.Parameter),
		})
	}
	s.Line = fmt.Sprintf("%d Normal, %d Abnormal", s.Normal, s.Abnormal)
	return s
}

func category(parameter string) string {
	lower := strings.ToLower(parameter)
	switch {
	case strings.Contains(lower, "cholesterol"), strings.Contains(lower, "lipid"), strings.Contains(lower, "triglyceride"):
		return "heart"
	case strings.Contains(lower, "glucose"), strings.Contains(lower, "sugar"), strings.Contains(lower, "hba1c"):
		return "blood_sugar"
	default:
		return "general"
	}
}
