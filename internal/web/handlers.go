// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"docrecon/internal/document"
	"docrecon/internal/engine"
	"docrecon/internal/formatters"
	"docrecon/internal/ledger"
	"docrecon/internal/redaction"
	"docrecon/internal/store"
)

// ingestRequest is the payload for document ingestion: the extraction
// output plus optional detector results.
type ingestRequest struct {
	BatchID    string                    `json:"batch_id,omitempty"`
	Extraction document.ExtractionResult `json:"extraction"`
	PII        []redaction.Detection     `json:"pii,omitempty"`
	Compliance []redaction.Detection     `json:"compliance,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	var infos []formatters.FormatInfo
	for _, name := range formatters.List() {
		infos = append(infos, formatters.GetFormatInfo(name))
	}
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	doc := &document.Document{
		ID:              uuid.New().String(),
		BatchID:         req.BatchID,
		ExtractedText:   req.Extraction.ExtractedText,
		WordBoxes:       req.Extraction.WordBoundingBoxes,
		Fields:          req.Extraction.Fields,
		FieldConfidence: req.Extraction.FieldConfidence,
		LineItems:       req.Extraction.LineItems,
		Status:          document.StatusPending,
	}
	if req.Extraction.ReferenceSize != nil {
		doc.ReferenceSize = *req.Extraction.ReferenceSize
	}

	ctx := r.Context()
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	rec, err := s.engine.Reconcile(ctx, doc, engine.Inputs{PII: req.PII, Compliance: req.Compliance})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, formatters.Report{Document: doc, Reconciliation: rec})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	status := document.ValidationStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = document.StatusPending
	}

	docs, err := s.store.ListByStatus(r.Context(), status)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doc, err := s.store.GetDocument(r.Context(), vars["id"])
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// handleEditFields stages operator field edits; they persist after the
// debounce interval, or immediately with ?flush=1.
func (s *Server) handleEditFields(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	docID := vars["id"]

	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	for field, value := range fields {
		if err := s.engine.StageFieldEdit(docID, field, value); err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	if r.URL.Query().Get("flush") == "1" {
		if err := s.engine.Flush(docID); err != nil {
			if errors.Is(err, engine.ErrExported) {
				s.writeError(w, http.StatusConflict, err)
				return
			}
			s.writeStoreError(w, err)
			return
		}
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "staged"})
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		Status document.ValidationStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	switch req.Status {
	case document.StatusPending, document.StatusValidated, document.StatusRejected:
	default:
		s.writeError(w, http.StatusBadRequest, errors.New("unknown status"))
		return
	}

	if err := s.store.SetStatus(r.Context(), vars["id"], req.Status); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

func (s *Server) handleGetReconciliation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ctx := r.Context()

	rec, err := s.store.GetReconciliation(ctx, vars["id"])
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	doc, _ := s.store.GetDocument(ctx, vars["id"])
	report := formatters.Report{Document: doc, Reconciliation: rec}

	if format := r.URL.Query().Get("format"); format != "" && format != "json" {
		options := formatters.FormatterOptions{
			NoColor:      true,
			IncludeValid: r.URL.Query().Get("all") == "1",
			Verbose:      r.URL.Query().Get("verbose") == "1",
		}
		content, mimeType, filename, err := formatters.ExportForWeb(format, report, options)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		_, _ = w.Write([]byte(content))
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var in engine.Inputs
	if r.ContentLength > 0 {
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		in = engine.Inputs{PII: req.PII, Compliance: req.Compliance}
	}

	rec, err := s.engine.Revalidate(r.Context(), vars["id"], in)
	if err != nil {
		if errors.Is(err, engine.ErrSuperseded) {
			s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
			return
		}
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRowAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid row index"))
		return
	}

	parts := strings.Split(r.URL.Path, "/")
	action := ledger.Action(parts[len(parts)-1])

	operator := r.Header.Get("X-Operator")
	if operator == "" {
		operator = "unknown"
	}

	rec, err := s.engine.ApplyAction(r.Context(), vars["id"], index, action, operator)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeError(w, http.StatusInternalServerError, err)
}
