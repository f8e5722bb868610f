package bench

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
)

// WriteReport prints the benchmark results as a table, followed by
// the relative speedup of the channels-last variant.
func WriteReport(w io.Writer, res *Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"VARIANT", "MEAN MS", "REPS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	for _, v := range []VariantResult{res.Contiguous, res.ChanLast} {
		table.Append([]string{v.Name, fmt.Sprintf("%.3f", v.MeanMS), fmt.Sprintf("%d", len(v.Times))})
	}
	table.Render()

	fmt.Fprintf(w, "\nchannels_last is %.3fx faster than contiguous\n", res.Speedup())
}

// traceEvent is one complete event ("ph": "X") in the chrome trace
// format, loadable at chrome://tracing.
type traceEvent struct {
	Name      string `json:"name"`
	Phase     string `json:"ph"`
	Timestamp int64  `json:"ts"`
	Duration  int64  `json:"dur"`
	PID       int    `json:"pid"`
	TID       int    `json:"tid"`
}

type traceFile struct {
	TraceEvents []traceEvent `json:"traceEvents"`
}

// ExportTrace writes every timed iteration as a chrome trace event to
// path. Variants get separate thread IDs so they render as two rows.
func ExportTrace(path string, res *Result) error {
	var tf traceFile
	ts := int64(0)
	for tid, v := range []VariantResult{res.Contiguous, res.ChanLast} {
		for _, d := range v.Times {
			us := d.Microseconds()
			tf.TraceEvents = append(tf.TraceEvents, traceEvent{
				Name:      v.Name,
				Phase:     "X",
				Timestamp: ts,
				Duration:  us,
				PID:       1,
				TID:       tid + 1,
			})
			ts += us
		}
	}

	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("bench: marshal trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("bench: write trace: %w", err)
	}
	return nil
}
