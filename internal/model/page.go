package model

import (
	"encoding/json"
	"time"

	"github.com/Bahjat/page-link-checker/internal/content"
)

// CheckedPage holds a content page together with its checked links.
// All counts are derived from CheckedLinks on every call.
type CheckedPage struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	UpdateDate time.Time `json:"updateDate"`
	UpdateUser string    `json:"updateUser"`
	URL        string    `json:"url"`

	CheckedLinks []Link `json:"checkedLinks"`

	// FetchError is set when the page itself could not be retrieved.
	FetchError string `json:"fetchError,omitempty"`
}

// NewCheckedPage copies the identity of node into an empty page report.
func NewCheckedPage(node content.Node) *CheckedPage {
	return &CheckedPage{
		ID:           node.ID,
		Name:         node.Name,
		UpdateDate:   node.UpdateDate,
		UpdateUser:   node.UpdateUser,
		URL:          node.URL,
		CheckedLinks: []Link{},
	}
}

func (p *CheckedPage) LinksCount() int {
	return len(p.CheckedLinks)
}

func (p *CheckedPage) ErrorCount() int {
	return p.count(func(l Link) bool { return !l.IsSuccessCode })
}

func (p *CheckedPage) SuccessCount() int {
	return p.count(func(l Link) bool { return l.IsSuccessCode })
}

func (p *CheckedPage) DisplayCount() int {
	return p.count(func(l Link) bool { return l.IsDisplayCode })
}

func (p *CheckedPage) HasErrors() bool {
	return p.ErrorCount() > 0
}

// Failed reports whether the page could not be fetched at all, as opposed to
// having been fetched with zero broken links.
func (p *CheckedPage) Failed() bool {
	return p.FetchError != ""
}

func (p *CheckedPage) count(match func(Link) bool) int {
	var n int
	for _, l := range p.CheckedLinks {
		if match(l) {
			n++
		}
	}
	return n
}

// MarshalJSON adds the derived counts to the serialized page.
func (p *CheckedPage) MarshalJSON() ([]byte, error) {
	type plain CheckedPage
	return json.Marshal(struct {
		*plain
		LinksCount   int  `json:"linksCount"`
		ErrorCount   int  `json:"errorCount"`
		SuccessCount int  `json:"successCount"`
		DisplayCount int  `json:"displayCount"`
		HasErrors    bool `json:"hasErrors"`
	}{
		plain:        (*plain)(p),
		LinksCount:   p.LinksCount(),
		ErrorCount:   p.ErrorCount(),
		SuccessCount: p.SuccessCount(),
		DisplayCount: p.DisplayCount(),
		HasErrors:    p.HasErrors(),
	})
}
