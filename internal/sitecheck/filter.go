package sitecheck

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Bahjat/page-link-checker/internal/model"
	"github.com/Bahjat/page-link-checker/internal/platform/errs"
)

// DisplayFilter selects which checked links are flagged for display.
// Statuses holds status classes ("4xx", "error") or exact codes ("404");
// an empty list matches every link.
type DisplayFilter struct {
	Statuses   []string
	OnlyErrors bool
}

// ParseStatuses splits a comma-separated status list such as "4xx,5xx,301".
func ParseStatuses(raw string) ([]string, error) {
	var statuses []string
	for part := range strings.SplitSeq(raw, ",") {
		s := strings.ToLower(strings.TrimSpace(part))
		if s == "" {
			continue
		}
		if !validStatus(s) {
			return nil, &errs.AppError{
				Kind:    errs.InvalidInput,
				Message: fmt.Sprintf("Invalid status filter %q. Use classes like 4xx, exact codes like 404, or \"error\".", part),
			}
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

func validStatus(s string) bool {
	if s == "error" {
		return true
	}
	if len(s) != 3 || s[0] < '1' || s[0] > '5' {
		return false
	}
	if s[1:] == "xx" {
		return true
	}
	return isDigit(s[1]) && isDigit(s[2])
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Matches reports whether link should be displayed.
func (f DisplayFilter) Matches(link model.Link) bool {
	if f.OnlyErrors && link.IsSuccessCode {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	return slices.Contains(f.Statuses, link.StatusClass()) ||
		(link.StatusCode != "" && slices.Contains(f.Statuses, link.StatusCode))
}

// Apply sets IsDisplayCode on every link of page.
func (f DisplayFilter) Apply(page *model.CheckedPage) {
	for i := range page.CheckedLinks {
		page.CheckedLinks[i].IsDisplayCode = f.Matches(page.CheckedLinks[i])
	}
}
