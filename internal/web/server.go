// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package web exposes the reconciliation engine over HTTP for the review
// front end.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"docrecon/internal/engine"
	"docrecon/internal/observability"
	"docrecon/internal/store"
)

// Server hosts the reconciliation API.
type Server struct {
	router   *mux.Router
	engine   *engine.Engine
	store    store.Store
	observer *observability.StandardObserver

	httpServer *http.Server
}

// NewServer wires the routes over an engine and its store.
func NewServer(eng *engine.Engine, st store.Store, observer *observability.StandardObserver) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		engine:   eng,
		store:    st,
		observer: observer,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/formats", s.handleListFormats).Methods("GET")

	api.HandleFunc("/documents", s.handleIngestDocument).Methods("POST")
	api.HandleFunc("/documents", s.handleListDocuments).Methods("GET")
	api.HandleFunc("/documents/{id}", s.handleGetDocument).Methods("GET")
	api.HandleFunc("/documents/{id}/fields", s.handleEditFields).Methods("PATCH")
	api.HandleFunc("/documents/{id}/status", s.handleSetStatus).Methods("POST")

	api.HandleFunc("/documents/{id}/reconciliation", s.handleGetReconciliation).Methods("GET")
	api.HandleFunc("/documents/{id}/reconcile", s.handleReconcile).Methods("POST")
	api.HandleFunc("/documents/{id}/rows/{index}/approve", s.handleRowAction).Methods("POST")
	api.HandleFunc("/documents/{id}/rows/{index}/reject", s.handleRowAction).Methods("POST")
	api.HandleFunc("/documents/{id}/rows/{index}/clear", s.handleRowAction).Methods("POST")
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
