package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Formatter abstracts output formatting.
type Formatter interface {
	Write(w io.Writer, payload any) error
}

// JSONFormatter writes JSON output, one document per call.
type JSONFormatter struct {
	Indent bool
}

// Write writes JSON payload to a writer.
func (f JSONFormatter) Write(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(payload)
}

// Table is a header plus rows of cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// TableFormatter aligns Table payloads into columns. Other payloads are
// rejected.
type TableFormatter struct{}

// Write writes a Table to w.
func (TableFormatter) Write(w io.Writer, payload any) error {
	table, ok := payload.(Table)
	if !ok {
		if ptr, isPtr := payload.(*Table); isPtr && ptr != nil {
			table, ok = *ptr, true
		}
	}
	if !ok {
		return fmt.Errorf("table formatter: unsupported payload %T", payload)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(table.Header) > 0 {
		if _, err := fmt.Fprintln(tw, strings.Join(table.Header, "\t")); err != nil {
			return err
		}
	}
	for _, row := range table.Rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
