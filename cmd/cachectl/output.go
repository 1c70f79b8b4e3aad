package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/charlesng35/axoncache/internal/app/maintenance"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func parseFormat(s string) outputFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return formatJSON
	case "yaml", "yml":
		return formatYAML
	default:
		return formatTable
	}
}

type statsView struct {
	Store        string `json:"store" yaml:"store"`
	TotalItems   int64  `json:"total_items" yaml:"total_items"`
	ActiveItems  int64  `json:"active_items" yaml:"active_items"`
	ExpiredItems int64  `json:"expired_items" yaml:"expired_items"`
}

type sweepView struct {
	ExpiredEntries int64 `json:"expired_entries" yaml:"expired_entries"`
	OrphanedRefs   int64 `json:"orphaned_refs" yaml:"orphaned_refs"`
}

type printer struct {
	format outputFormat
	writer io.Writer
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{format: parseFormat(format), writer: w}
}

func (p *printer) encode(data any) (bool, error) {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.writer)
		enc.SetIndent("", "  ")
		return true, enc.Encode(data)
	case formatYAML:
		enc := yaml.NewEncoder(p.writer)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

// PrintStats prints entry counts.
func (p *printer) PrintStats(stats statsView) error {
	if done, err := p.encode(stats); done {
		return err
	}

	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Cache statistics (%s store):\n", stats.Store)
	fmt.Fprintf(w, "  Total items:\t%d\n", stats.TotalItems)
	fmt.Fprintf(w, "  Active items:\t%d\n", stats.ActiveItems)
	fmt.Fprintf(w, "  Expired items:\t%d\n", stats.ExpiredItems)
	return w.Flush()
}

// PrintSweep prints what a sweep removed.
func (p *printer) PrintSweep(stats maintenance.SweepStats) error {
	view := sweepView{ExpiredEntries: stats.ExpiredEntries, OrphanedRefs: stats.OrphanedRefs}
	if done, err := p.encode(view); done {
		return err
	}

	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Sweep complete:")
	fmt.Fprintf(w, "  Expired entries removed:\t%d\n", view.ExpiredEntries)
	fmt.Fprintf(w, "  Orphaned index references removed:\t%d\n", view.OrphanedRefs)
	return w.Flush()
}
