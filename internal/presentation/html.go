package presentation

import (
	"bytes"
	"html"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders the patient-facing narrative, which is markdown, as a
// standalone page. Raw HTML in the narrative is not passed through.
func HTML(doc Document) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(doc.Narrative), &body); err != nil {
		return nil, eris.Wrap(err, "html: convert narrative")
	}
	title := strings.TrimSpace(doc.FileName)
	if title == "" {
		title = "Lab report"
	}

	var out bytes.Buffer
	out.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>")
	out.WriteString(html.EscapeString(title))
	out.WriteString("</title><style>body{font-family:sans-serif;max-width:860px;margin:2rem auto;padding:0 1rem;line-height:1.5}" +
		"table{border-collapse:collapse;width:100%}th,td{border:1px solid #ccc;padding:.35rem .5rem;text-align:left}</style></head><body>")
	out.Write(body.Bytes())
	out.WriteString("</body></html>")
	return out.Bytes(), nil
}
