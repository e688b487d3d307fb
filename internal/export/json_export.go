package export

import (
	"encoding/json"
	"io"

	"github.com/Bahjat/page-link-checker/internal/model"
)

// JSONExporter writes the report as a single JSON document.
type JSONExporter struct {
	Indent string
}

func (e *JSONExporter) Export(w io.Writer, report *model.TreeReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", e.Indent)
	return enc.Encode(report)
}
