// Package tsvio writes decoded region intervals as tab-separated records.
package tsvio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/talkowski-lab/sva-typer/internal/dna"
)

// Writer serializes (record ID, Interval) rows as TSV.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w and writes the TSV header immediately, so a run that
// produces zero records (or errors before any record completes) still
// emits a header line.
func NewWriter(w io.Writer) (*Writer, error) {
	tw := &Writer{w: bufio.NewWriter(w)}
	if _, err := tw.w.WriteString("ID\tregion\tstart\tend\n"); err != nil {
		return nil, err
	}
	return tw, nil
}

// WriteRecord appends one row per interval for the named query record.
func (tw *Writer) WriteRecord(recordID string, intervals []dna.Interval) error {
	for _, iv := range intervals {
		if _, err := fmt.Fprintf(tw.w, "%s\t%s\t%d\t%d\n", recordID, iv.Region, iv.Start, iv.Stop); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (tw *Writer) Flush() error {
	return tw.w.Flush()
}
