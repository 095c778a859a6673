// Package report renders reconciliation results for the command line, as
// human-readable text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"payment-reconciliation-service/internal/models"
)

// OutputFormat selects the rendering style.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
)

// IsValid checks if the output format is valid
func (f OutputFormat) IsValid() bool {
	return f == FormatConsole || f == FormatJSON
}

// Report summarizes one scope's reconciliation run.
type Report struct {
	Scope       string    `json:"scope"`
	GeneratedAt time.Time `json:"generated_at"`

	Collections int `json:"collections"`
	Banks       int `json:"banks"`
	Matched     int `json:"matched"`

	UnmatchedCollections int `json:"unmatched_collections"`
	UnmatchedBanks       int `json:"unmatched_banks"`

	ByType     map[string]int `json:"by_type"`
	Confidence Distribution   `json:"confidence"`

	Matches []*models.Match `json:"matches,omitempty"`
}

// Distribution buckets match confidences.
type Distribution struct {
	High   int `json:"high"`   // >= 0.9
	Medium int `json:"medium"` // 0.7 - 0.9
	Low    int `json:"low"`    // < 0.7
}

// Build assembles a report from a run's inputs and output.
func Build(scope string, collections, banks int, matches []*models.Match) *Report {
	report := &Report{
		Scope:       scope,
		GeneratedAt: time.Now().UTC(),
		Collections: collections,
		Banks:       banks,
		Matched:     len(matches),
		ByType:      make(map[string]int),
		Matches:     matches,
	}

	for _, match := range matches {
		report.ByType[match.Type.String()]++
		switch {
		case match.Confidence >= 0.9:
			report.Confidence.High++
		case match.Confidence >= 0.7:
			report.Confidence.Medium++
		default:
			report.Confidence.Low++
		}
	}

	report.UnmatchedCollections = collections - len(matches)
	report.UnmatchedBanks = banks - len(matches)
	return report
}

// Render writes the report in the requested format.
func (r *Report) Render(w io.Writer, format OutputFormat) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)
	case FormatConsole, "":
		return r.renderConsole(w)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func (r *Report) renderConsole(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Reconciliation report\t%s\n", r.Scope)
	fmt.Fprintf(tw, "Generated\t%s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Collection records\t%d\n", r.Collections)
	fmt.Fprintf(tw, "Bank records\t%d\n", r.Banks)
	fmt.Fprintf(tw, "Matched\t%d\n", r.Matched)
	fmt.Fprintf(tw, "Unmatched collections\t%d\n", r.UnmatchedCollections)
	fmt.Fprintf(tw, "Unmatched bank lines\t%d\n", r.UnmatchedBanks)

	if len(r.ByType) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Matches by type")
		types := make([]string, 0, len(r.ByType))
		for matchType := range r.ByType {
			types = append(types, matchType)
		}
		sort.Strings(types)
		for _, matchType := range types {
			fmt.Fprintf(tw, "  %s\t%d\n", matchType, r.ByType[matchType])
		}

		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Confidence")
		fmt.Fprintf(tw, "  high (>= 0.90)\t%d\n", r.Confidence.High)
		fmt.Fprintf(tw, "  medium (0.70 - 0.90)\t%d\n", r.Confidence.Medium)
		fmt.Fprintf(tw, "  low (< 0.70)\t%d\n", r.Confidence.Low)
	}

	return tw.Flush()
}
