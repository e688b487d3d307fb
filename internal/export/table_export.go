package export

import (
	"fmt"
	"io"

	"github.com/rodaine/table"

	"github.com/Bahjat/page-link-checker/internal/model"
)

// TableExporter prints one row per displayed link, grouped by page, followed
// by the totals.
type TableExporter struct{}

func (e *TableExporter) Export(w io.Writer, report *model.TreeReport) error {
	tbl := table.New("Page", "Line", "Link", "Type", "Status").WithWriter(w)
	for _, page := range report.Pages {
		label := fmt.Sprintf("%s (%d)", page.Name, page.ID)
		if page.Failed() {
			tbl.AddRow(label, "", page.URL, "Page", page.FetchError)
			continue
		}

		first := true
		for _, link := range page.CheckedLinks {
			if !link.IsDisplayCode {
				continue
			}
			if first {
				tbl.AddRow(label, link.Line, link.URL, link.LinkType(), statusLabel(link))
				first = false
			} else {
				tbl.AddRow("", link.Line, link.URL, link.LinkType(), statusLabel(link))
			}
		}
	}
	tbl.Print()

	t := report.Totals
	_, err := fmt.Fprintf(w, "\n%d pages checked (%d failed), %d links: %d ok, %d broken\n",
		t.PagesChecked, t.PagesFailed, t.LinksChecked, t.LinksOK, t.LinksError)
	return err
}

func statusLabel(link model.Link) string {
	if link.StatusCode == "" {
		return link.Status
	}
	return link.StatusCode + " " + link.Status
}
