// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package api

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/joeott/legal-doc-processor-sub010/internal/blobstore"
	"github.com/joeott/legal-doc-processor-sub010/internal/config"
	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
	"github.com/joeott/legal-doc-processor-sub010/internal/models"
	"github.com/joeott/legal-doc-processor-sub010/internal/pipeline"
	"github.com/joeott/legal-doc-processor-sub010/internal/statestore"
)

// Handler serves the document pipeline API.
type Handler struct {
	ctrl  *pipeline.Controller
	store *statestore.Store
	blobs *blobstore.Store
	cfg   config.APIConfig
}

// NewHandler creates the API handler.
func NewHandler(ctrl *pipeline.Controller, store *statestore.Store, blobs *blobstore.Store, cfg config.APIConfig) *Handler {
	return &Handler{ctrl: ctrl, store: store, blobs: blobs, cfg: cfg}
}

// docIDParam parses the {id} route parameter.
func docIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// SubmitDocument accepts a multipart upload and queues it for processing.
//
//	POST /api/v1/documents
//	  file:       the document (required)
//	  project_id: external project/matter identifier (optional)
func (h *Handler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, r, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", h.cfg.MaxUploadSize))
			return
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "expected multipart form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "missing file field")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == "/" {
		name = "document"
	}
	blobRef := fmt.Sprintf("uploads/%s-%s", uuid.New().String(), name)
	if err := h.blobs.Put(blobRef, file); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to store uploaded blob")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "failed to store upload")
		return
	}

	metadata := map[string]string{"filename": name}
	if ct := header.Header.Get("Content-Type"); ct != "" {
		metadata["content_type"] = ct
	}

	doc, err := h.ctrl.Submit(r.Context(), blobRef, r.FormValue("project_id"), metadata)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Document submission failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "submission failed")
		return
	}

	respond(w, r, http.StatusAccepted, doc)
}

// GetDocument returns the document record plus all stage statuses.
//
//	GET /api/v1/documents/{id}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := docIDParam(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid document ID")
		return
	}

	status, err := h.ctrl.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "document not found")
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "failed to load document")
		return
	}
	respond(w, r, http.StatusOK, status)
}

// ListDocuments returns documents with offset pagination, optionally
// filtered by stage.
//
//	GET /api/v1/documents?stage=failed&limit=50&offset=0
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := h.parseIntQuery(r, "limit", h.cfg.DefaultPageSize)
	if limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}
	offset := h.parseIntQuery(r, "offset", 0)

	var stageFilter models.Stage
	if s := r.URL.Query().Get("stage"); s != "" {
		stageFilter = models.Stage(s)
		if !stageFilter.Valid() {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "unknown stage "+s)
			return
		}
	}

	docs := []*models.Document{}
	skipped := 0
	hasMore := false
	err := h.store.ListDocuments(r.Context(), func(doc *models.Document) error {
		if stageFilter != "" && doc.Stage != stageFilter {
			return nil
		}
		if skipped < offset {
			skipped++
			return nil
		}
		if len(docs) >= limit {
			hasMore = true
			return nil
		}
		d := *doc
		docs = append(docs, &d)
		return nil
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "failed to list documents")
		return
	}

	respondList(w, r, docs, &PaginationMeta{
		Count:   len(docs),
		Offset:  offset,
		Limit:   limit,
		HasMore: hasMore,
	})
}

// GetText returns the document's extracted plain text.
//
//	GET /api/v1/documents/{id}/text
func (h *Handler) GetText(w http.ResponseWriter, r *http.Request) {
	id, err := docIDParam(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid document ID")
		return
	}
	text, err := h.blobs.GetText(id)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "no extracted text for document")
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "failed to load text")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

// GetChunks returns the document's chunk set.
//
//	GET /api/v1/documents/{id}/chunks
func (h *Handler) GetChunks(w http.ResponseWriter, r *http.Request) {
	h.stageOutput(w, r, "chunks", func(id uuid.UUID) (interface{}, error) {
		return h.store.GetChunks(r.Context(), id)
	})
}

// GetMentions returns the document's raw entity mentions in chunk order.
//
//	GET /api/v1/documents/{id}/mentions
func (h *Handler) GetMentions(w http.ResponseWriter, r *http.Request) {
	h.stageOutput(w, r, "mentions", func(id uuid.UUID) (interface{}, error) {
		return h.store.GetMentions(r.Context(), id)
	})
}

// GetEntities returns the document's canonical entities.
//
//	GET /api/v1/documents/{id}/entities
func (h *Handler) GetEntities(w http.ResponseWriter, r *http.Request) {
	h.stageOutput(w, r, "entities", func(id uuid.UUID) (interface{}, error) {
		return h.store.GetEntities(r.Context(), id)
	})
}

// GetRelationships returns the document's staged relationship records.
//
//	GET /api/v1/documents/{id}/relationships
func (h *Handler) GetRelationships(w http.ResponseWriter, r *http.Request) {
	h.stageOutput(w, r, "relationships", func(id uuid.UUID) (interface{}, error) {
		return h.store.GetRelationships(r.Context(), id)
	})
}

// stageOutput serves one stage-output collection with shared error mapping.
func (h *Handler) stageOutput(w http.ResponseWriter, r *http.Request, what string, load func(uuid.UUID) (interface{}, error)) {
	id, err := docIDParam(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid document ID")
		return
	}
	out, err := load(id)
	if err != nil {
		if errors.Is(err, statestore.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "no "+what+" for document")
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "failed to load "+what)
		return
	}
	respond(w, r, http.StatusOK, out)
}

type reprocessRequest struct {
	From string `json:"from"`
}

// Reprocess resets a document to a given stage and re-runs from there.
//
//	POST /api/v1/documents/{id}/reprocess
//	{"from": "entity_extraction"}
func (h *Handler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id, err := docIDParam(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid document ID")
		return
	}

	var req reprocessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	from := models.Stage(strings.TrimSpace(req.From))
	if !from.IsWorkStage() {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest,
			"from must be one of: "+stageNames())
		return
	}

	if err := h.ctrl.Reprocess(r.Context(), id, from); err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "document not found")
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "reprocess failed")
		return
	}

	status, err := h.ctrl.Status(r.Context(), id)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "failed to load document")
		return
	}
	respond(w, r, http.StatusAccepted, status)
}

// Cancel fails every live stage of a document.
//
//	POST /api/v1/documents/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := docIDParam(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid document ID")
		return
	}

	if err := h.ctrl.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNotFound):
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "document not found")
		case errors.Is(err, pipeline.ErrTerminal):
			respondError(w, r, http.StatusConflict, ErrCodeConflict, "document already terminal")
		default:
			respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "cancel failed")
		}
		return
	}
	respond(w, r, http.StatusOK, map[string]string{"status": "canceled"})
}

// HealthLive reports process liveness.
//
//	GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady reports readiness: the state store must answer a read.
//
//	GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	err := h.store.ListDocuments(r.Context(), func(*models.Document) error {
		return errStopIteration
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeInternalError, "state store unavailable")
		return
	}
	respond(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

var errStopIteration = errors.New("stop iteration")

func (h *Handler) parseIntQuery(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func stageNames() string {
	names := make([]string, len(models.WorkStages))
	for i, s := range models.WorkStages {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}
