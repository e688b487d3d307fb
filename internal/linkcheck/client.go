package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/Bahjat/page-link-checker/internal/classify"
	"github.com/Bahjat/page-link-checker/internal/platform/errs"
)

// Fetcher retrieves the rendered HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

const (
	maxRedirects    = 10
	maxResponseBody = 10 << 20 // 10 MB

	// DefaultInternalUserAgent identifies the page-load pass.
	DefaultInternalUserAgent = "PageLinkChecker/1.0 (page fetch)"
	// DefaultExternalUserAgent identifies the outbound link probes.
	DefaultExternalUserAgent = "Mozilla/5.0 (compatible; PageLinkChecker/1.0; +link verification)"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
)

// FetcherConfig configures an HTTPClient.
type FetcherConfig struct {
	Timeout              time.Duration
	UserAgent            string
	BlockPrivateNetworks bool
	Transport            http.RoundTripper // overrides the default transport
}

// HTTPClient implements Fetcher with a real HTTP client.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewHTTPClient returns a page fetcher. Zero values in cfg fall back to the
// package defaults.
func NewHTTPClient(cfg FetcherConfig) *HTTPClient {
	transport := cfg.Transport
	if transport == nil {
		transport = newTransport(cfg.BlockPrivateNetworks, 10)
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultInternalUserAgent
	}

	return &HTTPClient{
		client: &http.Client{
			Transport:     transport,
			CheckRedirect: safeRedirectPolicy,
		},
		userAgent: userAgent,
		timeout:   clampTimeout(cfg.Timeout),
	}
}

// safeRedirectPolicy validates redirect targets and limits the redirect chain length.
func safeRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// Fetch GETs pageURL and returns its body decoded to UTF-8. A non-2xx status
// or a transport failure is an error; a response that is not text/html
// yields an empty document and no error. The configured timeout applies
// only when ctx has no deadline of its own.
func (c *HTTPClient) Fetch(ctx context.Context, pageURL string) (string, error) {
	if strings.TrimSpace(pageURL) == "" {
		return "", &errs.AppError{Kind: errs.InvalidInput, Message: "The page URL to fetch cannot be empty."}
	}
	if u, err := url.Parse(pageURL); err != nil || u.Host == "" || !classify.IsCheckableScheme(u.Scheme) {
		return "", &errs.AppError{Kind: errs.InvalidInput, Message: "The page URL must be an absolute http(s) URL.", Cause: err}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &errs.AppError{Kind: errs.InvalidInput, Message: "The page URL is not valid.", Cause: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.client.Do(req)
	if err != nil {
		kind := errs.Unreachable
		if errors.Is(err, context.DeadlineExceeded) {
			kind = errs.Timeout
		}
		return "", &errs.AppError{Kind: kind, Message: "The page could not be reached.", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &errs.AppError{
			Kind:           errs.Unreachable,
			UpstreamStatus: resp.StatusCode,
			Message:        "The page returned an error status.",
			Cause:          fmt.Errorf("GET %s: %s", pageURL, resp.Status),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType(contentType) != "text/html" {
		return "", nil
	}

	body := io.LimitReader(resp.Body, maxResponseBody)
	decoded, err := charset.NewReader(body, contentType)
	if err != nil {
		// The charset preview failed, e.g. on an empty body.
		decoded = body
	}

	data, err := io.ReadAll(decoded)
	if err != nil {
		return "", &errs.AppError{Kind: errs.Unreachable, Message: "The page body could not be read.", Cause: err}
	}
	return string(data), nil
}

// mediaType returns the lower-cased MIME type without parameters.
func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
		mt = strings.ToLower(strings.TrimSpace(mt))
	}
	return mt
}
