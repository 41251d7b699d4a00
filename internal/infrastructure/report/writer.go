package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/turabik33/CE48-Final/internal/domain"
)

const (
	jsonName     = "report.json"
	markdownName = "report.md"
)

// Write stores the report as JSON and Markdown under dir and returns both paths.
func Write(dir string, r domain.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	encoded, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	jsonPath := filepath.Join(dir, jsonName)
	if err := os.WriteFile(jsonPath, append(encoded, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", jsonName, err)
	}

	mdPath := filepath.Join(dir, markdownName)
	if err := os.WriteFile(mdPath, []byte(Markdown(r)), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", markdownName, err)
	}
	return []string{jsonPath, mdPath}, nil
}

// Markdown renders the report as a set of tables.
func Markdown(r domain.Report) string {
	var b strings.Builder
	b.WriteString("# Civil Engineering AI Articles Report\n\n")
	fmt.Fprintf(&b, "Generated at %s\n\n", r.GeneratedAt)

	b.WriteString("## Overview\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Processed | %d |\n", r.Processed)
	fmt.Fprintf(&b, "| Accepted | %d |\n", r.Accepted)
	fmt.Fprintf(&b, "| Rejected | %d |\n", r.Rejected)
	fmt.Fprintf(&b, "| Acceptance rate | %.1f%% |\n", r.AcceptanceRate)

	sections := []struct {
		title string
		rows  []domain.Tally
	}{
		{"Categories", r.Categories},
		{"Civil engineering areas", r.Areas},
		{"AI techniques", r.Techniques},
		{"Application stages", r.Stages},
		{"Source types", r.SourceTypes},
		{"Top sources", r.TopSources},
		{"Publication months", r.Months},
		{"Top keywords", r.TopKeywords},
		{"Rejection reasons", r.RejectionCauses},
	}
	for _, s := range sections {
		fmt.Fprintf(&b, "\n## %s\n\n", s.title)
		if len(s.rows) == 0 {
			b.WriteString("_No data._\n")
			continue
		}
		b.WriteString("| Label | Count | Share |\n|---|---:|---:|\n")
		for _, row := range s.rows {
			fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", escapeCell(row.Label), row.Count, row.Percent)
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
