package linkcheck

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/Bahjat/page-link-checker/internal/classify"
	"github.com/Bahjat/page-link-checker/internal/content"
	"github.com/Bahjat/page-link-checker/internal/model"
	"github.com/Bahjat/page-link-checker/internal/platform/errs"
)

// linkChecker defines how the engine verifies extracted links.
type linkChecker interface {
	CheckLinksTimeout(ctx context.Context, links []model.Link, timeout time.Duration) ([]model.Link, error)
}

// Options are the per-request switches of a page check.
type Options struct {
	CheckEntireDocument    bool
	TimeoutSeconds         int // 0 means the default of 30; values below 1 are raised to 1
	OmitPortDuringChecks   bool
	CheckInternalLinksOnly bool
}

// Timeout returns the per-request timeout the options ask for.
func (o Options) Timeout() time.Duration {
	if o.TimeoutSeconds == 0 {
		return DefaultTimeout
	}
	return max(time.Duration(o.TimeoutSeconds)*time.Second, MinTimeout)
}

// Engine fetches a page, extracts its links and checks them.
type Engine struct {
	fetcher     Fetcher
	linkChecker linkChecker
}

// NewEngine returns an Engine backed by the given Fetcher and link checker.
func NewEngine(fetcher Fetcher, lc linkChecker) *Engine {
	return &Engine{
		fetcher:     fetcher,
		linkChecker: lc,
	}
}

// CheckURL checks a page that is not part of the content tree.
func (e *Engine) CheckURL(ctx context.Context, pageURL string, opts Options) (*model.CheckedPage, error) {
	return e.CheckPage(ctx, &content.Node{Name: pageURL, URL: pageURL}, opts)
}

// CheckPage fetches node's page and returns it with every link checked.
// Invalid input fails before any request is made; a page that cannot be
// fetched is returned as an error.
func (e *Engine) CheckPage(ctx context.Context, node *content.Node, opts Options) (*model.CheckedPage, error) {
	if node == nil {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: "A content node is required."}
	}

	pageURL, err := parsePageURL(node.URL)
	if err != nil {
		return nil, err
	}
	if opts.OmitPortDuringChecks {
		stripPort(pageURL)
	}

	page := model.NewCheckedPage(*node)
	timeout := opts.Timeout()

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	document, err := e.fetcher.Fetch(fetchCtx, pageURL.String())
	cancel()
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) && errs.KindOf(err) != errs.Timeout {
			err = &errs.AppError{Kind: errs.Timeout, Message: "The page took too long to respond.", Cause: err}
		}
		return nil, err
	}

	links := []model.Link{}
	for link := range ExtractLinks(document, pageURL, ExtractOptions{CheckEntireDocument: opts.CheckEntireDocument}) {
		if opts.CheckInternalLinksOnly && !link.IsInternal {
			continue
		}
		links = append(links, link)
	}

	checked, err := e.linkChecker.CheckLinksTimeout(ctx, links, timeout)
	if err != nil {
		return nil, err
	}
	page.CheckedLinks = checked
	return page, nil
}

func parsePageURL(raw string) (*url.URL, error) {
	const msg = "The page URL must be an absolute http(s) URL (e.g., https://example.com/)."

	if strings.TrimSpace(raw) == "" {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: "The page has no URL."}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: msg, Cause: err}
	}
	if u.Host == "" || !classify.IsCheckableScheme(u.Scheme) {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: msg}
	}
	return u, nil
}

// stripPort removes an explicit port, keeping IPv6 literals bracketed.
func stripPort(u *url.URL) {
	if u.Port() == "" {
		return
	}
	host := u.Hostname()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	u.Host = host
}
