package linkcheck

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/Bahjat/page-link-checker/internal/model"
	"github.com/Bahjat/page-link-checker/internal/platform/errs"
)

const (
	// DefaultTimeout is the per-request timeout for probes and page fetches.
	DefaultTimeout = 30 * time.Second
	// MinTimeout is the smallest accepted per-request timeout.
	MinTimeout = time.Second
	// DefaultCachePeriod is how long a received response is reused.
	DefaultCachePeriod = time.Minute
	// DefaultConcurrency is the number of probes run in parallel per batch.
	DefaultConcurrency = 10

	// statusRequestFailed marks a link whose probe never got a response.
	statusRequestFailed = "Request failed"
)

// CheckerConfig configures a LinkChecker. Zero values fall back to defaults.
type CheckerConfig struct {
	Timeout              time.Duration
	CachePeriod          time.Duration
	UserAgent            string
	Concurrency          int
	RequestsPerSecond    float64 // zero disables client-side rate limiting
	BlockPrivateNetworks bool
	Clock                func() time.Time
	Transport            http.RoundTripper // overrides the default transport
}

// LinkChecker probes links with HEAD requests and caches received responses.
type LinkChecker struct {
	client      *http.Client
	cache       *StatusCache
	group       *singleflight.Group
	limiter     *rate.Limiter
	userAgent   string
	timeout     time.Duration
	cachePeriod time.Duration
	concurrency int
}

// NewLinkChecker returns a LinkChecker with its own status cache.
func NewLinkChecker(cfg CheckerConfig) *LinkChecker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	transport := cfg.Transport
	if transport == nil {
		transport = newTransport(cfg.BlockPrivateNetworks, concurrency)
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultExternalUserAgent
	}
	cachePeriod := cfg.CachePeriod
	if cachePeriod <= 0 {
		cachePeriod = DefaultCachePeriod
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))
	}

	return &LinkChecker{
		client: &http.Client{
			Transport:     transport,
			CheckRedirect: safeRedirectPolicy,
		},
		cache:       NewStatusCache(cfg.Clock),
		group:       &singleflight.Group{},
		limiter:     limiter,
		userAgent:   userAgent,
		timeout:     clampTimeout(cfg.Timeout),
		cachePeriod: cachePeriod,
		concurrency: concurrency,
	}
}

// clampTimeout applies the default and the one-second floor.
func clampTimeout(d time.Duration) time.Duration {
	if d == 0 {
		return DefaultTimeout
	}
	return max(d, MinTimeout)
}

// Cache exposes the checker's status cache.
func (lc *LinkChecker) Cache() *StatusCache {
	return lc.cache
}

// CheckLinks checks every link using the configured per-request timeout.
func (lc *LinkChecker) CheckLinks(ctx context.Context, links []model.Link) ([]model.Link, error) {
	return lc.CheckLinksTimeout(ctx, links, 0)
}

// CheckLinksTimeout checks every link concurrently with a pool of workers
// and returns one result per input, in input order. A failing link never
// affects the others. A non-positive timeout means the configured one.
//
// Duplicate URLs share a single in-flight probe. Received responses are
// cached for the cache period; transport failures are not, so they are
// retried on the next check.
func (lc *LinkChecker) CheckLinksTimeout(ctx context.Context, links []model.Link, timeout time.Duration) ([]model.Link, error) {
	if links == nil {
		return nil, &errs.AppError{Kind: errs.InvalidInput, Message: "The links to check cannot be nil."}
	}
	if timeout <= 0 {
		timeout = lc.timeout
	}
	timeout = max(timeout, MinTimeout)

	lc.cache.PurgeExpired()

	results := make([]model.Link, len(links))
	if len(links) == 0 {
		return results, nil
	}

	type indexed struct {
		i    int
		link model.Link
	}

	jobs := make(chan int, len(links))
	out := make(chan indexed, len(links))

	var wg sync.WaitGroup
	for range min(len(links), lc.concurrency) {
		wg.Go(func() {
			for i := range jobs {
				out <- indexed{i: i, link: lc.checkLink(ctx, links[i], timeout)}
			}
		})
	}

	for i := range links {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(out)
	}()

	for r := range out {
		results[r.i] = r.link
	}
	return results, nil
}

// probeResult carries only the outcome fields of a link.
type probeResult struct {
	outcome   model.Link
	cacheable bool
	cached    bool
}

func (lc *LinkChecker) checkLink(ctx context.Context, link model.Link, timeout time.Duration) model.Link {
	if cached, ok := lc.cache.Get(link.URL); ok {
		return withOutcome(link, cached, true)
	}
	if err := ctx.Err(); err != nil {
		return withOutcome(link, model.Link{Status: statusRequestFailed, Error: err.Error()}, false)
	}

	// The shared probe outlives any single caller, so one caller giving up
	// never fails the others. Callers only share probes with the same timeout.
	var leader bool
	key := link.URL + " " + timeout.String()
	ch := lc.group.DoChan(key, func() (any, error) {
		leader = true
		// Another probe for this URL may have finished since the lookup above.
		if cached, ok := lc.cache.Get(link.URL); ok {
			return probeResult{outcome: cached, cached: true}, nil
		}
		res := lc.probe(context.WithoutCancel(ctx), link.URL, timeout)
		if res.cacheable {
			lc.cache.Put(link.URL, res.outcome, lc.cachePeriod)
		}
		return res, nil
	})

	select {
	case <-ctx.Done():
		return withOutcome(link, model.Link{Status: statusRequestFailed, Error: ctx.Err().Error()}, false)
	case r := <-ch:
		res := r.Val.(probeResult)
		// A joined probe only counts as previously checked when its
		// response was cached; shared failures are reported as fresh.
		return withOutcome(link, res.outcome, res.cached || (!leader && res.cacheable))
	}
}

func (lc *LinkChecker) probe(ctx context.Context, target string, timeout time.Duration) probeResult {
	if lc.limiter != nil {
		if err := lc.limiter.Wait(ctx); err != nil {
			return probeResult{outcome: model.Link{Status: statusRequestFailed, Error: err.Error()}}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return probeResult{outcome: model.Link{Status: err.Error(), Error: err.Error()}}
	}
	req.Header.Set("User-Agent", lc.userAgent)

	resp, err := lc.client.Do(req)
	if err != nil {
		return probeResult{outcome: model.Link{Status: statusRequestFailed, Error: err.Error()}}
	}
	defer func() { _ = resp.Body.Close() }()

	return probeResult{
		outcome: model.Link{
			Status:        reasonPhrase(resp),
			StatusCode:    strconv.Itoa(resp.StatusCode),
			IsSuccessCode: resp.StatusCode >= 200 && resp.StatusCode <= 299,
			ContentType:   mediaType(resp.Header.Get("Content-Type")),
		},
		cacheable: true,
	}
}

// withOutcome copies the check outcome onto link, keeping link's own
// location and label.
func withOutcome(link, outcome model.Link, checkedPreviously bool) model.Link {
	link.Status = outcome.Status
	link.StatusCode = outcome.StatusCode
	link.IsSuccessCode = outcome.IsSuccessCode
	link.Error = outcome.Error
	link.ContentType = outcome.ContentType
	link.CheckedPreviously = checkedPreviously
	return link
}

// reasonPhrase prefers the phrase sent by the server, e.g. "Not Found".
func reasonPhrase(resp *http.Response) string {
	phrase := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if phrase == "" {
		phrase = http.StatusText(resp.StatusCode)
	}
	return phrase
}
