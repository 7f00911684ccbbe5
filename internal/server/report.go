package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/TobiSchelling/headlinestudio/internal/database"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

var reportPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Generated headlines</title></head>
<body>
{{.}}
</body>
</html>
`))

const reportLimit = 200

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	items, err := s.db.ListGenerated(reportLimit)
	if err != nil {
		s.internalError(w, "listing generated headlines", err)
		return
	}
	stats, err := s.db.GetGeneratedStats()
	if err != nil {
		s.internalError(w, "reading generated stats", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reportPage.Execute(w, renderMarkdown(buildReport(items, stats))); err != nil {
		s.logger.Error("rendering report", zap.Error(err))
	}
}

// buildReport formats the generation log as a markdown document.
func buildReport(items []database.GeneratedHeadline, stats *database.GeneratedStats) string {
	var b strings.Builder
	b.WriteString("# Generated headlines\n\n")
	fmt.Fprintf(&b, "**%d** generated, average length **%d** characters.\n\n", stats.Total, stats.AverageLength)

	if len(items) == 0 {
		b.WriteString("_Nothing generated yet._\n")
		return b.String()
	}

	b.WriteString("| Generated | Region | Original | AI headline |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, g := range items {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			cell(g.GeneratedAt), cell(g.Region), cell(g.Headline), cell(g.AIHeadline))
	}
	return b.String()
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", " ")

func cell(s string) string {
	return cellEscaper.Replace(s)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}
