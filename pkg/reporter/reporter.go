package reporter

import (
	"io"

	"github.com/release-tag-resolver/pkg/batch"
)

type Reporter interface {
	Report(findings []batch.Finding) error
}

func New(format string, w io.Writer) Reporter {
	switch format {
	case "json":
		return &JSONReporter{Out: w}
	default:
		return &TableReporter{Out: w}
	}
}
