package reporter

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/release-tag-resolver/pkg/batch"
)

type TableReporter struct {
	Out io.Writer
}

func (r *TableReporter) Report(findings []batch.Finding) error {
	if len(findings) == 0 {
		fmt.Fprintln(r.Out, "No commits resolved.")
		return nil
	}

	w := tabwriter.NewWriter(r.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMMIT\tRELEASE TAG\tBASE RELEASE TAG\tEXACT\tSUBJECT")
	fmt.Fprintln(w, "------\t-----------\t----------------\t-----\t-------")

	for _, f := range findings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			shortSHA(f.Commit),
			orNone(f.ReleaseTag),
			orNone(f.BaseTag),
			f.Exact,
			f.Subject,
		)
	}
	return w.Flush()
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
