package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/emojiimport/internal/core"
)

// printReport writes one line per candidate followed by the totals.
func printReport(w io.Writer, r *core.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, res := range r.Results {
		name := res.Shortcode
		if name == "" {
			name = res.Label
		}
		detail := ""
		switch res.Outcome {
		case core.OutcomeImported:
			detail = fmt.Sprintf("%dx%d %s", res.Width, res.Height, byteSize(res.Bytes))
			if res.Replaced {
				detail += " (replaced)"
			}
		case core.OutcomeFailed:
			msg := core.KindMessage(res.Kind)
			detail = fmt.Sprintf("[%s] %s", res.Code, msg.Message)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, res.Outcome, detail)
	}
	tw.Flush()

	prefix := ""
	if r.DryRun {
		prefix = "[dry run] "
	}
	fmt.Fprintf(w, "\n%s%d candidates: %d imported, %d filtered, %d existing, %d failed (%s)\n",
		prefix, r.Candidates, r.Imported, r.Filtered, r.Exists, r.Failed, r.Duration.Round(time.Millisecond))

	failed := r.FailedResults()
	if len(failed) == 0 {
		return
	}
	fmt.Fprintln(w, "\nFailures:")
	for _, res := range failed {
		fmt.Fprintf(w, "  %s <%s>: %s\n", res.Label, res.Locator, res.Reason)
	}
	fmt.Fprintf(w, "Run ID %s. Quote it with the error codes when asking for help.\n", r.RunID)
}

func byteSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
