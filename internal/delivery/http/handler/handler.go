package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/company-lookup/internal/browser"
	"github.com/user/company-lookup/internal/delivery/http/request"
	"github.com/user/company-lookup/internal/delivery/http/response"
	"github.com/user/company-lookup/internal/usecase"
	"github.com/user/company-lookup/pkg/utils"
)

type Handler struct {
	lookup usecase.CompanyLookup
}

func NewHandler(lookup usecase.CompanyLookup) *Handler {
	return &Handler{
		lookup: lookup,
	}
}

func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	req, err := request.ParseLookup(r)
	if err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.lookup.Lookup(r.Context(), req.Query)
	if err != nil {
		var setupErr *browser.SessionSetupError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			// The router's Timeout middleware answers 504 once the handler returns.
			slog.Warn("Lookup deadline exceeded",
				"request_id", middleware.GetReqID(r.Context()),
				"query_id", utils.HashQuery(req.Query),
			)
			return
		case errors.Is(err, context.Canceled):
			h.writeJSONError(w, "Request cancelled", http.StatusServiceUnavailable)
			return
		case errors.As(err, &setupErr):
			slog.Error("Browser session unavailable",
				"request_id", middleware.GetReqID(r.Context()),
				"query_id", utils.HashQuery(req.Query),
				"backend", setupErr.Backend,
				"error", err,
			)
			h.writeJSONError(w, "Browser session unavailable", http.StatusServiceUnavailable)
			return
		default:
			slog.Error("Lookup failed", "query", req.Query, "error", err)
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	if !result.Found {
		h.writeJSON(w, http.StatusNotFound, response.ErrorResponse{
			Error:   "Failed to fetch company data",
			QueryID: result.QueryID,
		})
		return
	}

	resp := response.LookupResponse{
		QueryID:    result.QueryID,
		Query:      result.Query,
		Found:      true,
		Details:    result.Record,
		FetchedAt:  result.FetchedAt,
		DurationMS: result.DurationMS,
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
