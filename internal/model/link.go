package model

import (
	"encoding/json"
	"fmt"

	"github.com/Bahjat/page-link-checker/internal/classify"
)

// Link is a single checkable reference found in a page's HTML.
//
// The extractor fills in the location fields; the checker fills in the
// outcome fields exactly once, either from a fresh probe or from the cache.
type Link struct {
	URL       string `json:"url"`
	Text      string `json:"text"`
	Attribute string `json:"attribute"` // "href" or "src"
	TagName   string `json:"tagName"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`

	// IsInternal is true when the raw attribute value had no explicit
	// "scheme://" prefix.
	IsInternal bool `json:"isInternal"`

	Status string `json:"status"`
	// StatusCode is empty when no response was received.
	StatusCode    string `json:"statusCode"`
	IsSuccessCode bool   `json:"isSuccessCode"`
	Error         string `json:"error,omitempty"`
	ContentType   string `json:"contentType"`

	CheckedPreviously bool `json:"checkedPreviously"`
	IsDisplayCode     bool `json:"isDisplayCode"`
}

// LinkType is the friendly name of the element the link came from.
func (l Link) LinkType() string {
	return classify.LinkType(l.TagName)
}

// TypeName is the friendly name of the reported content type.
func (l Link) TypeName() string {
	return classify.TypeName(l.ContentType)
}

// StatusClass groups the status code for display filtering.
func (l Link) StatusClass() string {
	return classify.StatusClass(l.StatusCode)
}

func (l Link) String() string {
	return fmt.Sprintf("Url: %s, Text: %s, Tag: %s, Attribute: %s, Internal?: %t, Position: (%d,%d)",
		l.URL, l.Text, l.TagName, l.Attribute, l.IsInternal, l.Line, l.Column)
}

// MarshalJSON adds the derived type names to the serialized link.
func (l Link) MarshalJSON() ([]byte, error) {
	type plain Link
	return json.Marshal(struct {
		plain
		LinkType string `json:"linkType"`
		TypeName string `json:"typeName"`
	}{
		plain:    plain(l),
		LinkType: l.LinkType(),
		TypeName: l.TypeName(),
	})
}
