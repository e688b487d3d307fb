package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Bahjat/page-link-checker/internal/platform/errs"
)

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(FetcherConfig{})
	if c == nil {
		t.Fatal("NewHTTPClient returned nil")
	}
	if c.client == nil {
		t.Fatal("internal http.Client is nil")
	}
	if c.userAgent != DefaultInternalUserAgent {
		t.Errorf("userAgent = %q, want %q", c.userAgent, DefaultInternalUserAgent)
	}
	if c.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, DefaultTimeout)
	}
}

func TestHTTPClient_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.Header.Get("User-Agent") != DefaultInternalUserAgent {
			t.Errorf("User-Agent = %q, want %q", r.Header.Get("User-Agent"), DefaultInternalUserAgent)
		}
		if r.Header.Get("Accept") != "text/html" {
			t.Errorf("Accept = %q, want %q", r.Header.Get("Accept"), "text/html")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><body>Hello</body></html>")
	}))
	defer ts.Close()

	body, err := NewHTTPClient(FetcherConfig{}).Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "<html><body>Hello</body></html>" {
		t.Errorf("body = %q, want %q", body, "<html><body>Hello</body></html>")
	}
}

func TestHTTPClient_Fetch_DecodesCharset(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "Café" in Latin-1.
		_, _ = w.Write([]byte{'<', 'p', '>', 'C', 'a', 'f', 0xe9, '<', '/', 'p', '>'})
	}))
	defer ts.Close()

	body, err := NewHTTPClient(FetcherConfig{}).Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "<p>Café</p>" {
		t.Errorf("body = %q, want %q", body, "<p>Café</p>")
	}
}

func TestHTTPClient_Fetch_NonHTML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 <a href=\"/x\">"))
	}))
	defer ts.Close()

	body, err := NewHTTPClient(FetcherConfig{}).Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "" {
		t.Errorf("body = %q, want empty for a non-HTML response", body)
	}
}

func TestHTTPClient_Fetch_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "forbidden", status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			_, err := NewHTTPClient(FetcherConfig{}).Fetch(context.Background(), ts.URL)

			var appErr *errs.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("error = %v, want *errs.AppError", err)
			}
			if appErr.Kind != errs.Unreachable {
				t.Errorf("Kind = %v, want %v", appErr.Kind, errs.Unreachable)
			}
			if appErr.UpstreamStatus != tt.status {
				t.Errorf("UpstreamStatus = %d, want %d", appErr.UpstreamStatus, tt.status)
			}
		})
	}
}

func TestHTTPClient_Fetch_InvalidURL(t *testing.T) {
	tests := []string{"", "   ", "://bad-url", "/relative/path", "ftp://example.com/file"}

	c := NewHTTPClient(FetcherConfig{})
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := c.Fetch(context.Background(), raw)
			if kind := errs.KindOf(err); kind != errs.InvalidInput {
				t.Errorf("Fetch(%q) kind = %v, want %v", raw, kind, errs.InvalidInput)
			}
		})
	}
}

func TestHTTPClient_Fetch_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(FetcherConfig{}).Fetch(ctx, ts.URL)
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}

func TestHTTPClient_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewHTTPClient(FetcherConfig{}).Fetch(ctx, ts.URL)
	if kind := errs.KindOf(err); kind != errs.Timeout {
		t.Errorf("kind = %v, want %v (err: %v)", kind, errs.Timeout, err)
	}
}

func TestHTTPClient_Fetch_BlocksPrivateNetworks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request reached a blocked address")
	}))
	defer ts.Close()

	_, err := NewHTTPClient(FetcherConfig{BlockPrivateNetworks: true}).Fetch(context.Background(), ts.URL)
	if !errors.Is(err, errBlockedAddress) {
		t.Errorf("error = %v, want %v", err, errBlockedAddress)
	}
}

func TestSafeRedirectPolicy(t *testing.T) {
	tests := []struct {
		name    string
		scheme  string
		via     int
		wantErr error
	}{
		{name: "http within limit", scheme: "http", via: 3},
		{name: "https at limit minus one", scheme: "https", via: maxRedirects - 1},
		{name: "too many redirects", scheme: "https", via: maxRedirects, wantErr: errTooManyRedirects},
		{name: "blocked ftp scheme", scheme: "ftp", via: 0, wantErr: errBlockedRedirect},
		{name: "blocked file scheme", scheme: "file", via: 0, wantErr: errBlockedRedirect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{URL: &url.URL{Scheme: tt.scheme, Host: "example.com"}}
			via := make([]*http.Request, tt.via)

			err := safeRedirectPolicy(req, via)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("safeRedirectPolicy() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"text/html", "text/html"},
		{"Text/HTML; charset=UTF-8", "text/html"},
		{"image/png", "image/png"},
		{"text/html; charset", "text/html"},
	}
	for _, tt := range tests {
		if got := mediaType(tt.in); got != tt.want {
			t.Errorf("mediaType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
