// Package cli formats semlight results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/semlight/internal/scoring"
	"github.com/hyperjump/semlight/internal/topics"
	"github.com/hyperjump/semlight/pkg/utils"
)

// OutputFormat is the format for result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one tab-separated line per result.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, compact or json)", s)
	}
}

// ScoreReport is a scoring run as printed by the CLI.
type ScoreReport struct {
	Topic     string                  `json:"topic"`
	Threshold float64                 `json:"threshold"`
	Results   []scoring.ScoredPassage `json:"results"`
}

// WriteScores writes scored passages to w in input order. Passages scoring at
// least the threshold are flagged in text output.
func WriteScores(w io.Writer, report ScoreReport, format OutputFormat) error {
	switch format {
	case OutputJSON:
		if report.Results == nil {
			report.Results = []scoring.ScoredPassage{}
		}
		return writeJSON(w, report)
	case OutputCompact:
		for _, r := range report.Results {
			fmt.Fprintf(w, "%.4f\t%s\n", r.Score, utils.CollapseSpace(r.Text))
		}
		return nil
	default:
		writeScoresText(w, report)
		return nil
	}
}

func writeScoresText(w io.Writer, report ScoreReport) {
	above := len(scoring.Above(report.Results, report.Threshold))
	fmt.Fprintf(w, "\nTopic %q: %d passages, %d at or above %.2f\n\n",
		report.Topic, len(report.Results), above, report.Threshold)
	for i, r := range report.Results {
		mark := " "
		if r.Score >= report.Threshold {
			mark = "*"
		}
		fmt.Fprintf(w, "%s [%d] %.4f  %s\n", mark, i+1, r.Score, utils.Truncate(utils.CollapseSpace(r.Text), 100))
	}
	fmt.Fprintln(w)
}

// WriteMatches writes topic-name search results.
func WriteMatches(w io.Writer, query string, matches []topics.Match, format OutputFormat) error {
	switch format {
	case OutputJSON:
		if matches == nil {
			matches = []topics.Match{}
		}
		return writeJSON(w, map[string]interface{}{"query": query, "matches": matches})
	case OutputCompact:
		for _, m := range matches {
			fmt.Fprintln(w, m.Name)
		}
		return nil
	default:
		if len(matches) == 0 {
			fmt.Fprintf(w, "No topics match %q\n", query)
			return nil
		}
		for _, m := range matches {
			fmt.Fprintf(w, "%-40s (distance %.2f)\n", m.Name, m.Distance)
		}
		return nil
	}
}

// WriteTopics writes topics with their keywords.
func WriteTopics(w io.Writer, list []*topics.Topic, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return topics.WriteJSON(w, list)
	case OutputCompact:
		for _, t := range list {
			fmt.Fprintln(w, t.Name)
		}
		return nil
	default:
		for _, t := range list {
			fmt.Fprintf(w, "%s (%d keywords)\n", t.Name, len(t.Keywords))
			if len(t.Keywords) > 0 {
				fmt.Fprintf(w, "  %s\n", utils.Truncate(strings.Join(t.Keywords, ", "), 120))
			}
		}
		return nil
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
