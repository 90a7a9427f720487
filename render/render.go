// Package render serializes a terminal pipeline state into report files.
// The output format is selected by file extension: .json, .md, or .html.
package render

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/martinemde/prospector/pipeline"
)

// JSON renders the full state as indented JSON.
func JSON(state *pipeline.State) ([]byte, error) {
	return json.MarshalIndent(state, "", "  ")
}

// Markdown renders the report as a Markdown document. Sections whose
// upstream stage produced nothing are omitted.
func Markdown(state *pipeline.State) string {
	var b strings.Builder
	req := state.Request

	fmt.Fprintf(&b, "# Procurement Discovery Report: %s\n\n", req.ServiceName)
	fmt.Fprintf(&b, "**Country:** %s  \n**Run:** %s  \n**Status:** %s\n\n", req.Country, state.RunID, state.Status)

	r := state.Report
	if r == nil {
		b.WriteString("_No report was generated for this run._\n")
		if state.LastError != "" {
			fmt.Fprintf(&b, "\n**Last error:** %s\n", state.LastError)
		}
		return b.String()
	}

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(r.ExecutiveSummary)
	b.WriteString("\n\n")

	if sa := r.ServiceAnalysis; sa != nil {
		b.WriteString("## Service Analysis\n\n")
		b.WriteString(sa.Description)
		b.WriteString("\n\n")
		writeList(&b, "Key Features", sa.KeyFeatures)
		writeList(&b, "Use Cases", sa.UseCases)
		writeList(&b, "Benefits", sa.Benefits)
	}

	if len(r.VendorRankings) > 0 {
		b.WriteString("## Vendor Rankings\n\n")
		b.WriteString("| Rank | Vendor | Score | Headquarters |\n")
		b.WriteString("|------|--------|-------|--------------|\n")
		for i, v := range r.VendorRankings {
			fmt.Fprintf(&b, "| %d | %s | %.1f | %s |\n", i+1, v.Name, v.Score, v.Headquarters)
		}
		b.WriteString("\n")
		for _, v := range r.VendorRankings {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", v.Name, v.Description)
			writeList(&b, "Strengths", v.Strengths)
			writeList(&b, "Weaknesses", v.Weaknesses)
			if v.FitNotes != "" {
				fmt.Fprintf(&b, "**Fit:** %s\n\n", v.FitNotes)
			}
		}
	}

	if len(r.PartnerRecommendations) > 0 {
		b.WriteString("## Partner Recommendations\n\n")
		for _, p := range r.PartnerRecommendations {
			fmt.Fprintf(&b, "- **%s** (%s", p.Name, p.Relationship)
			if p.City != "" {
				fmt.Fprintf(&b, ", %s", p.City)
			}
			fmt.Fprintf(&b, ") — %s\n", p.Description)
		}
		b.WriteString("\n")
	}

	if pb := r.PriceBenchmark; pb != nil {
		b.WriteString("## Price Benchmark\n\n")
		fmt.Fprintf(&b, "**Range:** %.0f – %.0f %s  \n**Model:** %s\n\n",
			pb.RangeLow, pb.RangeHigh, pb.Currency, pb.PricingModel)
		writeList(&b, "Cost Factors", pb.CostFactors)
		writeList(&b, "Total Cost of Ownership", pb.TCOFactors)
	}

	writeListH2(&b, "Implementation Roadmap", r.ImplementationRoadmap)
	writeListH2(&b, "Risk Assessment", r.RiskAssessment)
	writeListH2(&b, "Next Steps", r.NextSteps)

	return b.String()
}

// HTML renders the report as a standalone HTML page.
func HTML(state *pipeline.State) string {
	md := Markdown(state)
	var body strings.Builder
	for _, line := range strings.Split(md, "\n") {
		switch {
		case strings.HasPrefix(line, "### "):
			fmt.Fprintf(&body, "<h3>%s</h3>\n", html.EscapeString(line[4:]))
		case strings.HasPrefix(line, "## "):
			fmt.Fprintf(&body, "<h2>%s</h2>\n", html.EscapeString(line[3:]))
		case strings.HasPrefix(line, "# "):
			fmt.Fprintf(&body, "<h1>%s</h1>\n", html.EscapeString(line[2:]))
		case strings.HasPrefix(line, "- "):
			fmt.Fprintf(&body, "<li>%s</li>\n", html.EscapeString(line[2:]))
		case strings.HasPrefix(line, "|"):
			// Tables degrade to preformatted rows.
			fmt.Fprintf(&body, "<pre>%s</pre>\n", html.EscapeString(line))
		case strings.TrimSpace(line) == "":
			body.WriteString("\n")
		default:
			fmt.Fprintf(&body, "<p>%s</p>\n", html.EscapeString(line))
		}
	}
	return fmt.Sprintf(htmlShell, html.EscapeString(state.Request.ServiceName), body.String())
}

const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Procurement Discovery: %s</title>
<style>
body { font-family: -apple-system, Segoe UI, sans-serif; max-width: 860px; margin: 2rem auto; color: #222; }
h1 { border-bottom: 2px solid #2c5aa0; padding-bottom: .3rem; }
h2 { color: #2c5aa0; margin-top: 2rem; }
pre { font-family: inherit; margin: 0; }
li { margin: .25rem 0; }
</style>
</head>
<body>
%s
</body>
</html>
`

// WriteFile writes the report to path, choosing the format from the file
// extension. Unknown extensions fall back to JSON.
func WriteFile(state *pipeline.State, path string) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		data = []byte(Markdown(state))
	case ".html", ".htm":
		data = []byte(HTML(state))
	default:
		var err error
		data, err = JSON(state)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s:**\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func writeListH2(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
