package sitecheck

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Bahjat/page-link-checker/internal/linkcheck"
	"github.com/Bahjat/page-link-checker/internal/model"
	"github.com/Bahjat/page-link-checker/internal/platform/errs"
)

func newTestMux(checker PageChecker) *http.ServeMux {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := NewService(newMockRepo(), checker, logger, 2)
	transport := NewTransport(svc, logger)
	mux := http.NewServeMux()
	transport.RegisterRoutes(mux)
	return mux
}

func serve(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleDescendants(t *testing.T) {
	rec := serve(newTestMux(&mockPageChecker{}), "/pages/1/descendants")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var ids []int64
	if err := json.NewDecoder(rec.Body).Decode(&ids); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(ids) != 4 || ids[0] != 1 {
		t.Errorf("ids = %v, want [1 2 3 5]", ids)
	}
}

func TestHandleCheckPage_Success(t *testing.T) {
	checker := &mockPageChecker{}
	mux := newTestMux(checker)

	rec := serve(mux, "/pages/2/check?checkEntireDocument=true&timeoutSeconds=10&omitPortDuringChecks=1&checkInternalLinksOnly=false&status=4xx&onlyErrors=true")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	want := linkcheck.Options{CheckEntireDocument: true, TimeoutSeconds: 10, OmitPortDuringChecks: true}
	if checker.gotOpts != want {
		t.Errorf("options = %+v, want %+v", checker.gotOpts, want)
	}

	var page struct {
		ID           int64        `json:"id"`
		LinksCount   int          `json:"linksCount"`
		ErrorCount   int          `json:"errorCount"`
		DisplayCount int          `json:"displayCount"`
		HasErrors    bool         `json:"hasErrors"`
		CheckedLinks []model.Link `json:"checkedLinks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if page.ID != 2 || page.LinksCount != 2 || page.ErrorCount != 1 || page.DisplayCount != 1 || !page.HasErrors {
		t.Errorf("page = %+v", page)
	}
}

func TestHandleCheckTree(t *testing.T) {
	rec := serve(newTestMux(&mockPageChecker{}), "/pages/2/tree-check")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var report model.TreeReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.RootID != 2 || report.Totals.PagesChecked != 2 || report.Totals.LinksError != 2 {
		t.Errorf("report = %+v", report.Totals)
	}
}

func TestHandleHealth(t *testing.T) {
	rec := serve(newTestMux(&mockPageChecker{}), "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleCheckPage_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		checker    *mockPageChecker
		wantStatus int
	}{
		{name: "non-numeric id", target: "/pages/home/check", wantStatus: http.StatusBadRequest},
		{name: "zero id", target: "/pages/0/check", wantStatus: http.StatusBadRequest},
		{name: "bad boolean", target: "/pages/1/check?onlyErrors=maybe", wantStatus: http.StatusBadRequest},
		{name: "bad timeout", target: "/pages/1/check?timeoutSeconds=soon", wantStatus: http.StatusBadRequest},
		{name: "bad status filter", target: "/pages/1/check?status=7xx", wantStatus: http.StatusBadRequest},
		{name: "unknown node", target: "/pages/404/check", wantStatus: http.StatusNotFound},
		{
			name:   "unreachable page",
			target: "/pages/1/check",
			checker: &mockPageChecker{failing: map[int64]error{
				1: &errs.AppError{Kind: errs.Unreachable, UpstreamStatus: 500, Message: "The page returned an error status."},
			}},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:   "timeout",
			target: "/pages/1/check",
			checker: &mockPageChecker{failing: map[int64]error{
				1: &errs.AppError{Kind: errs.Timeout, Message: "slow", Cause: context.DeadlineExceeded},
			}},
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:   "invalid page URL",
			target: "/pages/1/check",
			checker: &mockPageChecker{failing: map[int64]error{
				1: &errs.AppError{Kind: errs.InvalidInput, Message: "bad url"},
			}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unclassified error",
			target:     "/pages/1/check",
			checker:    &mockPageChecker{failing: map[int64]error{1: io.ErrUnexpectedEOF}},
			wantStatus: http.StatusInternalServerError,
		},
		{name: "tree of unknown node", target: "/pages/404/tree-check", wantStatus: http.StatusNotFound},
		{name: "descendants of unknown node", target: "/pages/404/descendants", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := tt.checker
			if checker == nil {
				checker = &mockPageChecker{}
			}
			rec := serve(newTestMux(checker), tt.target)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp model.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if resp.StatusCode != tt.wantStatus || resp.Message == "" {
				t.Errorf("error response = %+v", resp)
			}
		})
	}
}

func TestHandleCheckPage_WrongMethod(t *testing.T) {
	mux := newTestMux(&mockPageChecker{})

	req := httptest.NewRequest(http.MethodPost, "/pages/1/check", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	// ServeMux returns 405 for method mismatch.
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
