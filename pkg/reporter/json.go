package reporter

import (
	"encoding/json"
	"io"

	"github.com/release-tag-resolver/pkg/batch"
)

type JSONReporter struct {
	Out io.Writer
}

func (r *JSONReporter) Report(findings []batch.Finding) error {
	enc := json.NewEncoder(r.Out)
	enc.SetIndent("", "  ")

	type output struct {
		Count    int             `json:"count"`
		Findings []batch.Finding `json:"findings"`
	}

	if findings == nil {
		findings = []batch.Finding{}
	}
	return enc.Encode(output{
		Count:    len(findings),
		Findings: findings,
	})
}
