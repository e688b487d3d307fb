package model

import "time"

// TreeReport aggregates the page reports of every page under a root node.
type TreeReport struct {
	RootID     int64          `json:"rootId"`
	Pages      []*CheckedPage `json:"pages"`
	Totals     Totals         `json:"totals"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// Totals sums link outcomes across pages.
type Totals struct {
	PagesChecked int `json:"pagesChecked"`
	PagesFailed  int `json:"pagesFailed"`
	LinksChecked int `json:"linksChecked"`
	LinksOK      int `json:"linksOk"`
	LinksError   int `json:"linksError"`
}

// Add appends a page and folds its counts into the totals. A page that could
// not be fetched counts as failed and contributes no links.
func (r *TreeReport) Add(page *CheckedPage) {
	r.Pages = append(r.Pages, page)
	r.Totals.PagesChecked++
	if page.Failed() {
		r.Totals.PagesFailed++
		return
	}
	r.Totals.LinksChecked += page.LinksCount()
	r.Totals.LinksOK += page.SuccessCount()
	r.Totals.LinksError += page.ErrorCount()
}

// HasErrors reports whether any page failed or has a broken link.
func (r *TreeReport) HasErrors() bool {
	return r.Totals.PagesFailed > 0 || r.Totals.LinksError > 0
}
