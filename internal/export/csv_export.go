package export

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/Bahjat/page-link-checker/internal/model"
)

// LinkRow is one CSV line: a displayed link, or a page that failed to load.
type LinkRow struct {
	PageID      int64  `csv:"Page ID"`
	PageName    string `csv:"Page"`
	PageURL     string `csv:"Page URL"`
	URL         string `csv:"Link"`
	Text        string `csv:"Text"`
	LinkType    string `csv:"Type"`
	Line        int    `csv:"Line"`
	Column      int    `csv:"Column"`
	Internal    bool   `csv:"Internal"`
	StatusCode  string `csv:"Status Code"`
	Status      string `csv:"Status"`
	ContentType string `csv:"Content Type"`
	Error       string `csv:"Error,omitempty"`
	Cached      bool   `csv:"Cached"`
}

type CSVExporter struct{}

func (e *CSVExporter) Export(w io.Writer, report *model.TreeReport) error {
	rows := e.transformData(report)
	return gocsv.Marshal(&rows, w)
}

func (e *CSVExporter) transformData(report *model.TreeReport) []LinkRow {
	rows := []LinkRow{}
	for _, page := range report.Pages {
		if page.Failed() {
			rows = append(rows, LinkRow{
				PageID:   page.ID,
				PageName: page.Name,
				PageURL:  page.URL,
				Error:    page.FetchError,
			})
			continue
		}
		for _, link := range page.CheckedLinks {
			if !link.IsDisplayCode {
				continue
			}
			rows = append(rows, LinkRow{
				PageID:      page.ID,
				PageName:    page.Name,
				PageURL:     page.URL,
				URL:         link.URL,
				Text:        link.Text,
				LinkType:    link.LinkType(),
				Line:        link.Line,
				Column:      link.Column,
				Internal:    link.IsInternal,
				StatusCode:  link.StatusCode,
				Status:      link.Status,
				ContentType: link.ContentType,
				Error:       link.Error,
				Cached:      link.CheckedPreviously,
			})
		}
	}
	return rows
}
