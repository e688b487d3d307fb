// Package export writes link check reports as a console table, CSV or JSON.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Bahjat/page-link-checker/internal/model"
)

var errUnknownFormat = errors.New("unknown report format")

// Format names an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// Exporter writes a report to w. Table and CSV output list only the links
// flagged for display; JSON carries every link with its flag.
type Exporter interface {
	Export(w io.Writer, report *model.TreeReport) error
}

// New returns the exporter for format.
func New(format Format) (Exporter, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatTable, "":
		return &TableExporter{}, nil
	case FormatCSV:
		return &CSVExporter{}, nil
	case FormatJSON:
		return &JSONExporter{Indent: "  "}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

// SinglePage wraps one page report so it can be exported like a tree.
func SinglePage(page *model.CheckedPage) *model.TreeReport {
	report := &model.TreeReport{RootID: page.ID}
	report.Add(page)
	return report
}
