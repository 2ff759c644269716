// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
	"github.com/joeott/legal-doc-processor-sub010/internal/middleware"
)

// APIResponse is the standardized response wrapper for all endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError carries error details.
type APIError struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// RequestID is the request ID for tracing
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta contains optional response metadata.
type APIMeta struct {
	RequestID  string          `json:"request_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

// PaginationMeta describes a list page.
type PaginationMeta struct {
	Count   int  `json:"count"`
	Offset  int  `json:"offset,omitempty"`
	Limit   int  `json:"limit,omitempty"`
	HasMore bool `json:"has_more"`
}

// Error codes for API responses
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, resp APIResponse) {
	if resp.Meta == nil {
		resp.Meta = &APIMeta{}
	}
	resp.Meta.RequestID = middleware.GetRequestID(r.Context())
	resp.Meta.Timestamp = time.Now().UTC()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode API response")
	}
}

// respond writes a successful response with data.
func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSON(w, r, status, APIResponse{Success: true, Data: data})
}

// respondList writes a successful list response with pagination metadata.
func respondList(w http.ResponseWriter, r *http.Request, data interface{}, page *PaginationMeta) {
	writeJSON(w, r, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Pagination: page},
	})
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, r, status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	})
}
