// Package cli provides output helpers for the textfilter command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/textfilter/internal/filters"
	"github.com/hyperjump/textfilter/internal/models"
	"github.com/mattn/go-runewidth"
)

// OutputFormat is the format for filter result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is the filter output alone, for piping.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputCompact, OutputJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
}

// inputPreviewWidth bounds the echoed input in text output.
const inputPreviewWidth = 60

// WriteFilterResult writes result to w in the given format.
// Unknown formats fall back to text.
func WriteFilterResult(w io.Writer, result *models.FilterResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case OutputCompact:
		_, err := fmt.Fprintln(w, result.Output)
		return err
	default:
		_, err := fmt.Fprintf(w, "filter: %s\ninput:  %s\noutput: %s\n",
			result.Filter, filters.TruncateWidth(result.Input, inputPreviewWidth), result.Output)
		return err
	}
}

// WriteFilterList writes one filter per line with its description in an
// aligned column.
func WriteFilterList(w io.Writer, list []models.FilterInfo) error {
	width := 0
	for _, f := range list {
		if n := runewidth.StringWidth(f.Name); n > width {
			width = n
		}
	}
	for _, f := range list {
		if _, err := fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(f.Name, width), f.Description); err != nil {
			return err
		}
	}
	return nil
}
