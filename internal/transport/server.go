// Package transport carries analysis sessions over HTTP. The streaming
// endpoint pushes the session's ordered event sequence to the client as
// Server-Sent Events; the batch endpoint runs sessions to completion
// server-side and returns only final results.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/RyanProMax/stock-analysis/internal/events"
	"github.com/RyanProMax/stock-analysis/internal/logging"
)

// Analyzer is the session driver the transport exposes. Implemented by
// analysis.Orchestrator.
type Analyzer interface {
	// Stream runs one session; the returned channel closes when the session
	// ends and must be drained fully.
	Stream(ctx context.Context, symbol string) <-chan events.Event
	// Analyze runs one session to completion and returns only the result.
	Analyze(ctx context.Context, symbol string) (events.Result, error)
}

// Server serves the streaming and batch analysis endpoints.
type Server struct {
	analyzer Analyzer
	logger   *zap.Logger
	mux      *http.ServeMux
}

// NewServer wires the HTTP routes over the given session driver.
func NewServer(analyzer Analyzer, logger *zap.Logger) *Server {
	s := &Server{
		analyzer: analyzer,
		logger:   logging.Component(logger, "transport"),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /api/agent/analyze", s.handleStream)
	s.mux.HandleFunc("POST /api/analyze", s.handleBatch)
	return s
}

// Handler returns the root handler for http.Server.
func (s *Server) Handler() http.Handler { return s.mux }

// handleStream opens the per-session push channel. The request context is
// the session's lifetime: when the client disconnects, the orchestrator is
// cancelled and whatever it still emits is discarded locally.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, "missing symbol parameter", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := s.analyzer.Stream(r.Context(), symbol)

	// The stream must be drained to completion even once writes start
	// failing, so the orchestrator's producers are never wedged.
	writable := true
	for ev := range stream {
		if !writable {
			continue
		}
		if err := writeSSE(w, ev); err != nil {
			s.logger.Debug("client write failed, draining session",
				zap.String("symbol", symbol), zap.Error(err))
			writable = false
			continue
		}
		flusher.Flush()
	}
}

// writeSSE frames one event. The SSE event name mirrors the payload's type
// tag, matching what EventSource consumers subscribe to.
func writeSSE(w http.ResponseWriter, ev events.Event) error {
	payload, err := events.MarshalWire(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload); err != nil {
		return err
	}
	return nil
}

// BatchRequest asks for synchronous analysis of a set of symbols.
type BatchRequest struct {
	Symbols []string `json:"symbols"`
}

// BatchResponse carries per-symbol results and failures.
type BatchResponse struct {
	Results map[string]events.Result `json:"results"`
	Errors  map[string]string        `json:"errors,omitempty"`
}

// handleBatch runs whole sessions server-side; no intermediate events are
// observable through this endpoint.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Symbols) == 0 {
		http.Error(w, "no symbols given", http.StatusBadRequest)
		return
	}

	resp := BatchResponse{
		Results: make(map[string]events.Result, len(req.Symbols)),
		Errors:  make(map[string]string),
	}
	for _, symbol := range req.Symbols {
		result, err := s.analyzer.Analyze(r.Context(), symbol)
		if err != nil {
			resp.Errors[symbol] = err.Error()
			continue
		}
		resp.Results[result.Symbol] = result
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("batch response write failed", zap.Error(err))
	}
}
