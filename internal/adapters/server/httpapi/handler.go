// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hylla/worklog/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	service common.WorklogService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter over the worklog service.
func NewHandler(service common.WorklogService) *Handler {
	return &Handler{service: service}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "worklog service is not configured",
		})
		return
	}

	path := normalizePath(r.URL.Path)
	switch path {
	case "monitoring":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleMonitoringStatus(w, r)
	case "monitoring/start", "monitoring/stop":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleMonitoringTransition(w, r, path == "monitoring/start")
	case "activities":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListActivities(w, r)
	case "summaries":
		switch r.Method {
		case http.MethodGet:
			h.handleListSummaries(w, r)
		case http.MethodPost:
			h.handleGenerateSummary(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case "statistics":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleStatistics(w, r)
	case "cleanup":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleCleanup(w, r)
	default:
		collection, id, ok := resolveItemPath(path)
		if !ok {
			writeJSONError(w, http.StatusNotFound, APIError{
				Code:    "not_found",
				Message: "endpoint not found",
			})
			return
		}
		if r.Method != http.MethodDelete {
			writeMethodNotAllowed(w, http.MethodDelete)
			return
		}
		h.handleDelete(w, r, collection, id)
	}
}

// handleMonitoringStatus serves GET `/monitoring`.
func (h *Handler) handleMonitoringStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.MonitoringStatus(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleMonitoringTransition serves POST `/monitoring/start` and `/monitoring/stop`.
func (h *Handler) handleMonitoringTransition(w http.ResponseWriter, r *http.Request, start bool) {
	var (
		status common.MonitoringStatus
		err    error
	)
	if start {
		status, err = h.service.StartMonitoring(r.Context())
	} else {
		status, err = h.service.StopMonitoring(r.Context())
	}
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleListActivities serves GET `/activities`.
func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	activities, err := h.service.ListActivities(r.Context(), common.ListActivitiesRequest{
		Date: strings.TrimSpace(query.Get("date")),
		From: strings.TrimSpace(query.Get("from")),
		To:   strings.TrimSpace(query.Get("to")),
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.ActivityList{Activities: activities})
}

// handleListSummaries serves GET `/summaries`.
func (h *Handler) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListSummaries(r.Context(), common.ListSummariesRequest{
		Date: strings.TrimSpace(r.URL.Query().Get("date")),
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.SummaryList{Summaries: summaries})
}

// handleGenerateSummary serves POST `/summaries`.
func (h *Handler) handleGenerateSummary(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GenerateSummary(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if !result.Generated || result.Summary == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, result.Summary)
}

// handleStatistics serves GET `/statistics`.
func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context(), common.StatisticsRequest{
		Date: strings.TrimSpace(r.URL.Query().Get("date")),
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleCleanup serves POST `/cleanup`.
func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req common.CleanupRequest
	if err := decodeOptionalJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	result, err := h.service.Cleanup(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDelete serves DELETE `/activities/{id}` and `/summaries/{id}`.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, collection, id string) {
	var err error
	switch collection {
	case "activities":
		err = h.service.DeleteActivity(r.Context(), id)
	default:
		err = h.service.DeleteSummary(r.Context(), id)
	}
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolveItemPath parses `activities/{id}` or `summaries/{id}`.
func resolveItemPath(path string) (string, string, bool) {
	collection, id, ok := strings.Cut(path, "/")
	if !ok || (collection != "activities" && collection != "summaries") {
		return "", "", false
	}
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "/") {
		return "", "", false
	}
	return collection, id, true
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
			Hint:    "Dates use YYYY-MM-DD.",
		})
	case errors.Is(err, common.ErrNotConfigured):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "not_configured",
			Message: err.Error(),
			Hint:    "Set api.api_key in config.local.toml or WORKLOG_API_KEY.",
		})
	case errors.Is(err, common.ErrUpstream):
		writeJSONError(w, http.StatusBadGateway, APIError{
			Code:    "upstream_failed",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrServiceUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeOptionalJSONBody decodes one optional JSON body and ignores empty payloads.
func decodeOptionalJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(out)
	if err == nil {
		// Reject trailing payloads so malformed JSON bodies fail closed.
		if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("request canceled: %w", ctx.Err())
		default:
			return nil
		}
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
}
