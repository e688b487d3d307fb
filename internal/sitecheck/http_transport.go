package sitecheck

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Bahjat/page-link-checker/internal/linkcheck"
	"github.com/Bahjat/page-link-checker/internal/model"
	"github.com/Bahjat/page-link-checker/internal/platform/errs"
)

// Transport handles HTTP requests for link checks.
type Transport struct {
	service *Service
	logger  *slog.Logger
}

// NewTransport creates an HTTP transport backed by the given service.
func NewTransport(service *Service, logger *slog.Logger) *Transport {
	return &Transport{service: service, logger: logger}
}

// RegisterRoutes attaches the transport's handlers to the given mux.
func (t *Transport) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /pages/{id}/descendants", t.handleDescendants)
	mux.HandleFunc("GET /pages/{id}/check", t.handleCheckPage)
	mux.HandleFunc("GET /pages/{id}/tree-check", t.handleCheckTree)
	mux.HandleFunc("GET /healthz", t.handleHealth)
}

func (t *Transport) handleDescendants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	ids, err := t.service.ListCheckableDescendantIDs(r.Context(), id)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	t.renderJSON(w, http.StatusOK, ids)
}

func (t *Transport) handleCheckPage(w http.ResponseWriter, r *http.Request) {
	id, opts, filter, err := parseCheckRequest(r)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	page, err := t.service.CheckPage(r.Context(), id, opts, filter)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	t.renderJSON(w, http.StatusOK, page)
}

func (t *Transport) handleCheckTree(w http.ResponseWriter, r *http.Request) {
	id, opts, filter, err := parseCheckRequest(r)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	report, err := t.service.CheckTree(r.Context(), id, opts, filter)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	t.renderJSON(w, http.StatusOK, report)
}

func (t *Transport) handleHealth(w http.ResponseWriter, _ *http.Request) {
	t.renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: fmt.Sprintf("Invalid node id %q. It must be a positive number.", raw),
		}
	}
	return id, nil
}

// parseCheckRequest reads the node id and the check switches. Absent
// switches keep their zero value.
func parseCheckRequest(r *http.Request) (int64, linkcheck.Options, DisplayFilter, error) {
	var (
		opts   linkcheck.Options
		filter DisplayFilter
	)

	id, err := pathID(r)
	if err != nil {
		return 0, opts, filter, err
	}

	q := r.URL.Query()
	for name, dst := range map[string]*bool{
		"checkEntireDocument":    &opts.CheckEntireDocument,
		"omitPortDuringChecks":   &opts.OmitPortDuringChecks,
		"checkInternalLinksOnly": &opts.CheckInternalLinksOnly,
		"onlyErrors":             &filter.OnlyErrors,
	} {
		if err := queryBool(q, name, dst); err != nil {
			return 0, opts, filter, err
		}
	}

	if raw := q.Get("timeoutSeconds"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			return 0, opts, filter, &errs.AppError{
				Kind:    errs.InvalidInput,
				Message: fmt.Sprintf("Invalid timeoutSeconds %q. It must be a whole number.", raw),
			}
		}
		opts.TimeoutSeconds = secs
	}

	if filter.Statuses, err = ParseStatuses(q.Get("status")); err != nil {
		return 0, opts, filter, err
	}

	return id, opts, filter, nil
}

func queryBool(q url.Values, name string, dst *bool) error {
	raw := q.Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: fmt.Sprintf("Invalid %s %q. Use true or false.", name, raw),
		}
	}
	*dst = v
	return nil
}

func (t *Transport) handleServiceError(w http.ResponseWriter, err error) {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Kind {
		case errs.InvalidInput:
			status = http.StatusBadRequest
		case errs.NotFound:
			status = http.StatusNotFound
		case errs.Unreachable:
			status = http.StatusBadGateway
		case errs.Timeout:
			status = http.StatusGatewayTimeout
		case errs.ParsingFailed, errs.Unknown:
			// 500 Internal Server Error
		}
		t.renderError(w, status, appErr.Message)
		return
	}

	t.renderError(w, http.StatusInternalServerError, "An unexpected error occurred.")
}

func (t *Transport) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		t.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *Transport) renderError(w http.ResponseWriter, status int, message string) {
	t.renderJSON(w, status, model.ErrorResponse{
		Error:      http.StatusText(status),
		StatusCode: status,
		Message:    message,
	})
}
